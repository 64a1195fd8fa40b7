//go:build !gocv
// +build !gocv

package camera

import (
	"context"
	"errors"
	"time"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// GoCVCamera заглушка драйвера камеры для сборки без OpenCV
type GoCVCamera struct{}

// NewGoCVCamera создаёт драйвер-заглушку (без OpenCV).
func NewGoCVCamera() *GoCVCamera {
	return &GoCVCamera{}
}

// Open возвращает ошибку, если сборка без тега gocv.
func (c *GoCVCamera) Open(ctx context.Context, sourceID string, mode entity.TriggerMode) error {
	_ = ctx
	_ = sourceID
	_ = mode
	return errors.New("gocv build tag is not enabled")
}

// Grab возвращает ошибку, если сборка без тега gocv.
func (c *GoCVCamera) Grab(ctx context.Context, timeout time.Duration) (*entity.RawFrame, error) {
	_ = ctx
	_ = timeout
	return nil, errors.New("gocv build tag is not enabled")
}

// Close ничего не освобождает в заглушке.
func (c *GoCVCamera) Close() error {
	return nil
}

// Проверка реализации интерфейса
var _ port.Camera = (*GoCVCamera)(nil)
