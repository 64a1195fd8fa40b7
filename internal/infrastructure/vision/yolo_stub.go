//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// YOLODetector заглушка детектора для сборки без OpenCV
type YOLODetector struct {
	classes []entity.Label
}

// NewYOLODetector создаёт детектор-заглушку (без OpenCV).
func NewYOLODetector(modelPath string, classes []entity.Label) (*YOLODetector, error) {
	_ = modelPath
	if len(classes) == 0 {
		return nil, errors.New("detector requires at least one class")
	}
	return &YOLODetector{classes: classes}, nil
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *YOLODetector) Detect(ctx context.Context, frame *entity.Frame) ([]entity.Detection, error) {
	_ = ctx
	_ = frame
	return nil, errors.New("gocv build tag is not enabled")
}

// Close ничего не освобождает в заглушке.
func (d *YOLODetector) Close() error {
	return nil
}

// Проверка реализации интерфейса
var _ port.ObjectDetector = (*YOLODetector)(nil)
