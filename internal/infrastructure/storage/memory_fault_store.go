package storage

import (
	"context"
	"sync"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// MemoryFaultStore журнал брака в памяти: для тестов и стендов без БД
type MemoryFaultStore struct {
	mu      sync.RWMutex
	records []entity.FaultRecord
}

// NewMemoryFaultStore создаёт пустой журнал в памяти
func NewMemoryFaultStore() *MemoryFaultStore {
	return &MemoryFaultStore{}
}

// Append дописывает запись о браке
func (s *MemoryFaultStore) Append(ctx context.Context, record *entity.FaultRecord) error {
	s.mu.Lock()
	s.records = append(s.records, *record)
	s.mu.Unlock()

	return nil
}

// Query возвращает записи по фильтру, новые первыми
func (s *MemoryFaultStore) Query(ctx context.Context, filter entity.FaultFilter) ([]entity.FaultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entity.FaultRecord, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		if matches(s.records[i], filter) {
			matched = append(matched, s.records[i])
		}
	}
	return matched, nil
}

// Stats возвращает сводку по записям, попавшим под фильтр
func (s *MemoryFaultStore) Stats(ctx context.Context, filter entity.FaultFilter) (entity.FaultStats, error) {
	records, err := s.Query(ctx, filter)
	if err != nil {
		return entity.FaultStats{}, err
	}

	stats := entity.FaultStats{
		Total:  len(records),
		ByTask: make(map[entity.TaskKind]int),
	}
	for _, r := range records {
		stats.ByTask[r.Task]++
	}
	return stats, nil
}

// LastID возвращает наибольший номер записи в журнале
func (s *MemoryFaultStore) LastID(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last uint64
	for _, r := range s.records {
		if r.ID > last {
			last = r.ID
		}
	}
	return last, nil
}

func matches(record entity.FaultRecord, filter entity.FaultFilter) bool {
	if filter.From != nil && record.Timestamp.Before(*filter.From) {
		return false
	}
	if filter.To != nil && record.Timestamp.After(*filter.To) {
		return false
	}
	if filter.Task != "" && record.Task != filter.Task {
		return false
	}
	if filter.SourceID != "" && record.SourceID != filter.SourceID {
		return false
	}
	return true
}

// Проверка реализации интерфейса
var _ port.FaultStore = (*MemoryFaultStore)(nil)
