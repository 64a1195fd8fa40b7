//go:build gocv
// +build gocv

package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// GoCVCamera драйвер камеры поверх VideoCapture.
// Отдельная горутина непрерывно вычитывает кадры; в буфере всегда
// лежит только самый свежий, старый молча вытесняется.
type GoCVCamera struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	frames chan *entity.RawFrame
	dead   chan struct{}
	done   chan struct{}
}

// NewGoCVCamera создаёт неоткрытый драйвер камеры
func NewGoCVCamera() *GoCVCamera {
	return &GoCVCamera{}
}

// Open открывает камеру и запускает вычитку кадров
func (c *GoCVCamera) Open(ctx context.Context, sourceID string, mode entity.TriggerMode) error {
	_ = ctx
	_ = mode

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap != nil {
		return fmt.Errorf("camera %s already open", sourceID)
	}

	cap, err := gocv.OpenVideoCapture(sourceID)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", port.ErrSourceUnavailable, sourceID, err)
	}

	c.cap = cap
	c.frames = make(chan *entity.RawFrame, 1)
	c.dead = make(chan struct{})
	c.done = make(chan struct{})
	go c.readLoop(cap, c.frames, c.dead, c.done)
	return nil
}

// readLoop вычитывает кадры до закрытия камеры или ошибки чтения
func (c *GoCVCamera) readLoop(cap *gocv.VideoCapture, frames chan *entity.RawFrame, dead, done chan struct{}) {
	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-done:
			return
		default:
		}

		if !cap.Read(&mat) || mat.Empty() {
			close(dead)
			return
		}

		raw := &entity.RawFrame{
			Timestamp: time.Now(),
			Width:     mat.Cols(),
			Height:    mat.Rows(),
			Data:      mat.ToBytes(),
		}

		// Вытесняем старый кадр, если воркер его не забрал.
		select {
		case frames <- raw:
		default:
			select {
			case <-frames:
			default:
			}
			select {
			case frames <- raw:
			case <-done:
				return
			}
		}
	}
}

// Grab ждёт следующий кадр не дольше timeout
func (c *GoCVCamera) Grab(ctx context.Context, timeout time.Duration) (*entity.RawFrame, error) {
	c.mu.Lock()
	frames, dead := c.frames, c.dead
	c.mu.Unlock()

	if frames == nil {
		return nil, port.ErrSourceUnavailable
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case raw := <-frames:
		return raw, nil
	case <-dead:
		return nil, port.ErrSourceUnavailable
	case <-timer.C:
		return nil, port.ErrGrabTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close освобождает камеру
func (c *GoCVCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil
	}
	close(c.done)
	err := c.cap.Close()
	c.cap = nil
	c.frames = nil
	return err
}

// Проверка реализации интерфейса
var _ port.Camera = (*GoCVCamera)(nil)
