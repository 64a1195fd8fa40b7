package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
	"pallet-vision/internal/infrastructure/storage"
)

// failingStore журнал, который отказывает на каждой записи
type failingStore struct{}

func (s *failingStore) Append(ctx context.Context, record *entity.FaultRecord) error {
	return errors.New("disk is full")
}

func (s *failingStore) Query(ctx context.Context, filter entity.FaultFilter) ([]entity.FaultRecord, error) {
	return nil, nil
}

func (s *failingStore) Stats(ctx context.Context, filter entity.FaultFilter) (entity.FaultStats, error) {
	return entity.FaultStats{}, nil
}

func (s *failingStore) LastID(ctx context.Context) (uint64, error) {
	return 0, nil
}

var _ port.FaultStore = (*failingStore)(nil)

func testOrchestrator(store port.FaultStore, relay port.Relay, bus *EventBus) *FaultOrchestrator {
	act := NewRelayActuator(relay, testActuatorConfig(), bus)
	return NewFaultOrchestrator(store, act, OrchestratorConfig{
		QueueSize:   8,
		DedupWindow: time.Second,
	}, bus)
}

func faultVerdict(source string, seq uint64) *entity.Verdict {
	return &entity.Verdict{
		SourceID: source,
		FrameSeq: seq,
		Task:     entity.TaskNail,
		IsFault:  true,
		Reason:   entity.ReasonNailDetected,
	}
}

func TestFaultOrchestrator_RecordsFault(t *testing.T) {
	store := storage.NewMemoryFaultStore()
	orch := testOrchestrator(store, &fakeRelay{}, NewEventBus())

	require.NoError(t, orch.Start(context.Background()))
	orch.Submit(faultVerdict("cam-1", 5))
	orch.Stop()

	records, err := store.Query(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, uint64(1), records[0].ID)
	require.Equal(t, uint64(5), records[0].FrameSeq)
	require.True(t, records[0].RelayTriggered)
	require.Nil(t, records[0].Measurement)
}

func TestFaultOrchestrator_OneRecordPerVerdict(t *testing.T) {
	store := storage.NewMemoryFaultStore()
	orch := testOrchestrator(store, &fakeRelay{}, NewEventBus())

	require.NoError(t, orch.Start(context.Background()))
	orch.Submit(faultVerdict("cam-1", 1))
	orch.Submit(&entity.Verdict{SourceID: "cam-1", FrameSeq: 2, Task: entity.TaskNail}) // не брак
	orch.Submit(faultVerdict("cam-1", 3))
	orch.Stop()

	records, err := store.Query(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestFaultOrchestrator_RelayFailureNeverSuppressesRecord(t *testing.T) {
	store := storage.NewMemoryFaultStore()
	relay := &fakeRelay{errs: []error{errors.New("relay dead")}}
	orch := testOrchestrator(store, relay, NewEventBus())

	require.NoError(t, orch.Start(context.Background()))
	orch.Submit(faultVerdict("cam-1", 9))
	orch.Stop()

	records, err := store.Query(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.False(t, records[0].RelayTriggered)
}

func TestFaultOrchestrator_DistinctIDsInsideDedupWindow(t *testing.T) {
	store := storage.NewMemoryFaultStore()
	bus := NewEventBus()
	events := make(chan Event, 8)
	bus.Subscribe("test", events)

	orch := testOrchestrator(store, &fakeRelay{}, bus)
	require.NoError(t, orch.Start(context.Background()))
	orch.Submit(faultVerdict("cam-1", 1))
	orch.Submit(faultVerdict("cam-1", 2))
	orch.Stop()

	// Два брака в окне дедупликации — две отдельные записи с разными id.
	records, err := store.Query(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotEqual(t, records[0].ID, records[1].ID)

	var repeats []bool
	for len(events) > 0 {
		ev := <-events
		if ev.Kind == EventFaultRecorded {
			repeats = append(repeats, ev.Repeat)
		}
	}
	require.Equal(t, []bool{false, true}, repeats)
}

func TestFaultOrchestrator_StoreFailureEscalated(t *testing.T) {
	bus := NewEventBus()
	events := make(chan Event, 8)
	bus.Subscribe("test", events)

	orch := testOrchestrator(&failingStore{}, &fakeRelay{}, bus)
	require.NoError(t, orch.Start(context.Background()))
	orch.Submit(faultVerdict("cam-1", 1))
	orch.Stop()

	var kinds []EventKind
	for len(events) > 0 {
		kinds = append(kinds, (<-events).Kind)
	}
	require.Contains(t, kinds, EventStoreFailure)
	require.NotContains(t, kinds, EventFaultRecorded)
}

func TestFaultOrchestrator_MeasurementInRecord(t *testing.T) {
	store := storage.NewMemoryFaultStore()
	orch := testOrchestrator(store, &fakeRelay{}, NewEventBus())

	verdict := &entity.Verdict{
		SourceID: "cam-2",
		FrameSeq: 4,
		Task:     entity.TaskAlignment,
		IsFault:  true,
		Reason:   entity.ReasonOutOfTolerance,
		Measurements: []entity.Measurement{{
			Metric:          entity.MetricOffsetMM,
			MMDistance:      12,
			Target:          10,
			Tolerance:       1,
			WithinTolerance: false,
			Reason:          entity.ReasonOutOfTolerance,
		}},
	}

	require.NoError(t, orch.Start(context.Background()))
	orch.Submit(verdict)
	orch.Stop()

	records, err := store.Query(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Measurement)
	require.Equal(t, 12.0, *records[0].Measurement)
	require.Contains(t, records[0].Details, "12.0mm")
}

func TestFaultOrchestrator_SubmitAfterStopIsDropped(t *testing.T) {
	store := storage.NewMemoryFaultStore()
	orch := testOrchestrator(store, &fakeRelay{}, NewEventBus())

	require.NoError(t, orch.Start(context.Background()))
	orch.Stop()
	orch.Submit(faultVerdict("cam-1", 1)) // не паникует и не пишет

	records, err := store.Query(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Empty(t, records)
}

// cancelSensitiveStore отказывает, если контекст записи уже отменён —
// так ведёт себя любой сетевой журнал
type cancelSensitiveStore struct {
	*storage.MemoryFaultStore
}

func (s *cancelSensitiveStore) Append(ctx context.Context, record *entity.FaultRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryFaultStore.Append(ctx, record)
}

func TestFaultOrchestrator_DrainSurvivesContextCancel(t *testing.T) {
	// Сигнал остановки отменяет внешний контекст раньше, чем вердикт
	// дошёл до журнала; запись о браке всё равно обязана состояться.
	store := &cancelSensitiveStore{storage.NewMemoryFaultStore()}
	bus := NewEventBus()
	events := make(chan Event, 8)
	bus.Subscribe("test", events)

	orch := testOrchestrator(store, &fakeRelay{}, bus)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, orch.Start(ctx))

	cancel()
	orch.Submit(faultVerdict("cam-1", 1))
	orch.Stop()

	records, err := store.Query(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].RelayTriggered)

	// Отмена внешнего контекста не повод объявлять канал реле деградировавшим.
	for len(events) > 0 {
		ev := <-events
		require.NotEqual(t, EventRelayState, ev.Kind)
		require.NotEqual(t, EventStoreFailure, ev.Kind)
	}
}

func TestFaultOrchestrator_ResumesIDsAfterRestart(t *testing.T) {
	store := storage.NewMemoryFaultStore()
	require.NoError(t, store.Append(context.Background(), &entity.FaultRecord{
		ID:        7,
		Timestamp: time.Now(),
		Task:      entity.TaskNail,
		SourceID:  "cam-1",
	}))

	// Новый оркестратор поверх непустого журнала: нумерация продолжается,
	// а не начинается заново с коллизией по уже занятому номеру.
	orch := testOrchestrator(store, &fakeRelay{}, NewEventBus())
	require.NoError(t, orch.Start(context.Background()))
	orch.Submit(faultVerdict("cam-1", 1))
	orch.Stop()

	last, err := store.LastID(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(8), last)

	stats, err := store.Stats(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
}

func TestFaultOrchestrator_DrainsOnStop(t *testing.T) {
	store := storage.NewMemoryFaultStore()
	orch := testOrchestrator(store, &fakeRelay{}, NewEventBus())

	require.NoError(t, orch.Start(context.Background()))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seq uint64) {
			defer wg.Done()
			orch.Submit(faultVerdict("cam-1", seq))
		}(uint64(i + 1))
	}
	wg.Wait()
	orch.Stop()

	// Все вердикты в полёте обработаны до выхода из Stop.
	stats, err := store.Stats(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Equal(t, 8, stats.Total)
	require.Equal(t, 8, stats.ByTask[entity.TaskNail])
}
