package port

import "pallet-vision/internal/domain/entity"

// FrameAnnotator интерфейс отрисовки результатов на кадре
type FrameAnnotator interface {
	// Annotate рисует детекции и измерения поверх кадра
	// и возвращает JPEG для показа оператору
	Annotate(frame *entity.Frame, verdict *entity.Verdict) ([]byte, error)
}
