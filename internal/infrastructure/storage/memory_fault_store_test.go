package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pallet-vision/internal/domain/entity"
)

func seedStore(t *testing.T) *MemoryFaultStore {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryFaultStore()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mm := 12.5
	records := []entity.FaultRecord{
		{ID: 1, Timestamp: base, Task: entity.TaskNail, SourceID: "cam-1", FrameSeq: 10, Details: "nail detected", RelayTriggered: true},
		{ID: 2, Timestamp: base.Add(time.Minute), Task: entity.TaskAlignment, SourceID: "cam-2", FrameSeq: 11, Measurement: &mm},
		{ID: 3, Timestamp: base.Add(2 * time.Minute), Task: entity.TaskNail, SourceID: "cam-1", FrameSeq: 12},
	}
	for i := range records {
		require.NoError(t, store.Append(ctx, &records[i]))
	}
	return store
}

func TestMemoryFaultStore_QueryNewestFirst(t *testing.T) {
	store := seedStore(t)

	records, err := store.Query(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, uint64(3), records[0].ID)
	require.Equal(t, uint64(1), records[2].ID)
}

func TestMemoryFaultStore_QueryFilters(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	byTask, err := store.Query(ctx, entity.FaultFilter{Task: entity.TaskAlignment})
	require.NoError(t, err)
	require.Len(t, byTask, 1)
	require.Equal(t, uint64(2), byTask[0].ID)

	bySource, err := store.Query(ctx, entity.FaultFilter{SourceID: "cam-1"})
	require.NoError(t, err)
	require.Len(t, bySource, 2)

	from := time.Date(2026, 3, 10, 12, 1, 30, 0, time.UTC)
	late, err := store.Query(ctx, entity.FaultFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, late, 1)
	require.Equal(t, uint64(3), late[0].ID)
}

func TestMemoryFaultStore_Stats(t *testing.T) {
	store := seedStore(t)

	stats, err := store.Stats(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 2, stats.ByTask[entity.TaskNail])
	require.Equal(t, 1, stats.ByTask[entity.TaskAlignment])
}
