package port

import (
	"context"
	"errors"
	"time"

	"pallet-vision/internal/domain/entity"
)

// ErrSourceUnavailable камера отключилась или недоступна
var ErrSourceUnavailable = errors.New("camera source unavailable")

// ErrGrabTimeout триггер не пришёл за отведённое время (камера жива)
var ErrGrabTimeout = errors.New("frame grab timed out")

// Camera интерфейс драйвера камеры
type Camera interface {
	// Open открывает камеру в заданном режиме захвата
	Open(ctx context.Context, sourceID string, mode entity.TriggerMode) error

	// Grab ждёт следующий кадр не дольше timeout.
	// Возвращает ErrGrabTimeout, если триггер не пришёл,
	// и ErrSourceUnavailable, если камера отвалилась.
	Grab(ctx context.Context, timeout time.Duration) (*entity.RawFrame, error)

	// Close освобождает камеру
	Close() error
}
