//go:build !gocv
// +build !gocv

package vision

import (
	"errors"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// GoCVAnnotator заглушка отрисовщика для сборки без OpenCV
type GoCVAnnotator struct {
	Quality int
}

// NewGoCVAnnotator создаёт отрисовщик-заглушку (без OpenCV).
func NewGoCVAnnotator() *GoCVAnnotator {
	return &GoCVAnnotator{Quality: 90}
}

// Annotate возвращает ошибку, если сборка без тега gocv.
func (a *GoCVAnnotator) Annotate(frame *entity.Frame, verdict *entity.Verdict) ([]byte, error) {
	_ = frame
	_ = verdict
	return nil, errors.New("gocv build tag is not enabled")
}

// Проверка реализации интерфейса
var _ port.FrameAnnotator = (*GoCVAnnotator)(nil)
