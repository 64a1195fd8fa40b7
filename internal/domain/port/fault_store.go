package port

import (
	"context"

	"pallet-vision/internal/domain/entity"
)

// FaultStore интерфейс журнала брака.
// Журнал только дописывается; потеря записи недопустима.
type FaultStore interface {
	// Append дописывает запись о браке. Ошибка записи не глотается:
	// вызывающий обязан её эскалировать.
	Append(ctx context.Context, record *entity.FaultRecord) error

	// Query возвращает записи по фильтру, новые первыми
	Query(ctx context.Context, filter entity.FaultFilter) ([]entity.FaultRecord, error)

	// Stats возвращает сводку по записям, попавшим под фильтр
	Stats(ctx context.Context, filter entity.FaultFilter) (entity.FaultStats, error)

	// LastID возвращает наибольший номер записи в журнале
	// (0 для пустого журнала). Нумерация продолжается с него
	// после перезапуска процесса.
	LastID(ctx context.Context) (uint64, error)
}
