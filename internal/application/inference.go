package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// InferenceStage оборачивает модель-детектор: ограничивает время одного
// прогона и отфильтровывает детекции ниже порога уверенности, так что
// дальше по конвейеру видны только прошедшие порог.
type InferenceStage struct {
	det       port.ObjectDetector
	task      entity.TaskKind
	threshold float64
	timeout   time.Duration
	log       *slog.Logger
}

// NewInferenceStage создаёт стадию инференса для одной задачи
func NewInferenceStage(det port.ObjectDetector, task entity.TaskKind, threshold float64, timeout time.Duration) *InferenceStage {
	return &InferenceStage{
		det:       det,
		task:      task,
		threshold: threshold,
		timeout:   timeout,
		log:       slog.With("component", "inference", "task", string(task)),
	}
}

// Infer прогоняет кадр через модель. Никогда не виснет дольше таймаута:
// по его истечении возвращается ErrInferenceTimeout, даже если адаптер
// модели игнорирует контекст.
func (s *InferenceStage) Infer(ctx context.Context, frame *entity.Frame) ([]entity.Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type inferResult struct {
		detections []entity.Detection
		err        error
	}

	done := make(chan inferResult, 1)
	go func() {
		detections, err := s.det.Detect(ctx, frame)
		done <- inferResult{detections: detections, err: err}
	}()

	select {
	case <-ctx.Done():
		s.log.Warn("inference timed out", "seq", frame.Seq, "timeout", s.timeout)
		return nil, fmt.Errorf("%w after %v", ErrInferenceTimeout, s.timeout)
	case r := <-done:
		if r.err != nil {
			s.log.Error("inference failed", "seq", frame.Seq, "error", r.err)
			return nil, fmt.Errorf("%w: %v", ErrInferenceFailure, r.err)
		}
		return s.filter(r.detections), nil
	}
}

// filter отбрасывает детекции ниже порога уверенности задачи
func (s *InferenceStage) filter(detections []entity.Detection) []entity.Detection {
	qualified := make([]entity.Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence >= s.threshold {
			qualified = append(qualified, d)
		}
	}
	return qualified
}
