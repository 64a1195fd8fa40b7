package port

import (
	"context"

	"pallet-vision/internal/domain/entity"
)

// ObjectDetector интерфейс модели-детектора объектов
type ObjectDetector interface {
	// Detect прогоняет кадр через модель и возвращает сырые детекции.
	// Фильтрация по порогу уверенности выполняется выше, в InferenceStage.
	Detect(ctx context.Context, frame *entity.Frame) ([]entity.Detection, error)

	// Close выгружает модель и освобождает ресурсы ускорителя
	Close() error
}
