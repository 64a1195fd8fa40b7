package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// SourceState состояние источника кадров
type SourceState string

const (
	SourceIdle         SourceState = "idle"
	SourceRunning      SourceState = "running"
	SourceReconnecting SourceState = "reconnecting"
	SourceStopped      SourceState = "stopped"
)

// FrameSourceConfig настройки одного источника кадров
type FrameSourceConfig struct {
	SourceID      string             // идентификатор камеры
	Mode          entity.TriggerMode // аппаратный триггер или таймер
	Interval      time.Duration      // период захвата в режиме таймера
	GrabTimeout   time.Duration      // таймаут ожидания кадра у камеры
	RetryDelay    time.Duration      // стартовая задержка переподключения
	MaxRetryDelay time.Duration      // потолок задержки переподключения
}

// FrameSource оборачивает одну физическую камеру и производит кадры
// со строго возрастающими номерами. Захват никогда не блокируется
// потребителем: между источником и воркером стоит почтовый ящик
// на один кадр с вытеснением старого.
//
// Состояния: Idle -> Running <-> Reconnecting -> Stopped.
// Отвал камеры не фатален: источник переподключается с экспоненциальной
// задержкой и продолжает нумерацию с того же места.
type FrameSource struct {
	cfg FrameSourceConfig
	cam port.Camera
	bus *EventBus
	log *slog.Logger

	box *frameMailbox
	seq atomic.Uint64

	stateMu sync.Mutex
	state   SourceState

	cancel context.CancelFunc
	wg     sync.WaitGroup

	startedMu sync.Mutex
	started   bool
}

// NewFrameSource создаёт источник кадров поверх драйвера камеры
func NewFrameSource(cfg FrameSourceConfig, cam port.Camera, bus *EventBus) *FrameSource {
	return &FrameSource{
		cfg:   cfg,
		cam:   cam,
		bus:   bus,
		log:   slog.With("component", "framesource", "source_id", cfg.SourceID),
		box:   newFrameMailbox(),
		state: SourceIdle,
	}
}

// Start открывает камеру и запускает цикл захвата
func (s *FrameSource) Start(ctx context.Context) error {
	s.startedMu.Lock()
	defer s.startedMu.Unlock()

	if s.started {
		return fmt.Errorf("frame source %s already started", s.cfg.SourceID)
	}

	if err := s.cam.Open(ctx, s.cfg.SourceID, s.cfg.Mode); err != nil {
		return fmt.Errorf("open camera %s: %w", s.cfg.SourceID, err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.setState(SourceRunning)

	s.wg.Add(1)
	go s.loop(ctx)

	return nil
}

// Stop останавливает захват, дожидается завершения аппаратной операции
// и закрывает почтовый ящик. Повторный вызов безопасен. Почтовый ящик
// закрывается даже у незапущенного источника: воркер, ждущий на нём,
// не должен зависнуть из-за камеры, которая так и не открылась.
func (s *FrameSource) Stop() {
	s.startedMu.Lock()
	if !s.started {
		s.startedMu.Unlock()
		s.box.Close()
		return
	}
	s.started = false
	s.startedMu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.box.Close()

	if err := s.cam.Close(); err != nil {
		s.log.Error("failed to close camera", "error", err)
	}
	s.setState(SourceStopped)
}

// Next блокируется до следующего кадра; nil означает остановку источника.
// Вызывается только воркером-владельцем.
func (s *FrameSource) Next() *entity.Frame {
	return s.box.Take()
}

// State возвращает текущее состояние источника
func (s *FrameSource) State() SourceState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Dropped возвращает количество вытесненных кадров
func (s *FrameSource) Dropped() uint64 {
	return s.box.Drops()
}

// LastSeq возвращает номер последнего выданного кадра
func (s *FrameSource) LastSeq() uint64 {
	return s.seq.Load()
}

func (s *FrameSource) setState(state SourceState) {
	s.stateMu.Lock()
	if s.state == state {
		s.stateMu.Unlock()
		return
	}
	s.state = state
	s.stateMu.Unlock()

	s.log.Info("source state changed", "state", string(state))
	s.bus.Publish(Event{
		Kind:     EventSourceState,
		SourceID: s.cfg.SourceID,
		State:    string(state),
	})
}

func (s *FrameSource) loop(ctx context.Context) {
	defer s.wg.Done()

	var ticker *time.Ticker
	if s.cfg.Mode == entity.TriggerTimed {
		ticker = time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
	}

	for {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		raw, err := s.cam.Grab(ctx, s.cfg.GrabTimeout)
		switch {
		case err == nil:
			s.publish(raw)
		case errors.Is(err, port.ErrGrabTimeout):
			// Триггер не пришёл — штатная пауза линии, ждём дальше.
			s.log.Debug("grab timed out, waiting for trigger")
		case errors.Is(err, port.ErrSourceUnavailable):
			if !s.reconnect(ctx) {
				return
			}
		case ctx.Err() != nil:
			return
		default:
			s.log.Error("grab failed", "error", err)
			if !s.reconnect(ctx) {
				return
			}
		}
	}
}

// publish присваивает кадру номер и кладёт его в почтовый ящик
func (s *FrameSource) publish(raw *entity.RawFrame) {
	frame := &entity.Frame{
		SourceID:  s.cfg.SourceID,
		Seq:       s.seq.Add(1),
		Timestamp: raw.Timestamp,
		Width:     raw.Width,
		Height:    raw.Height,
		Data:      raw.Data,
		Mode:      s.cfg.Mode,
		TraceID:   uuid.NewString(),
	}

	if s.box.Put(frame) {
		s.log.Warn("frame dropped, worker is slow", "seq", frame.Seq)
		s.bus.Publish(Event{
			Kind:     EventFrameDropped,
			SourceID: s.cfg.SourceID,
			Seq:      frame.Seq,
		})
	}
	s.bus.Publish(Event{
		Kind:     EventFrameProduced,
		SourceID: s.cfg.SourceID,
		Seq:      frame.Seq,
	})
}

// reconnect переподключает камеру с экспоненциальной задержкой:
// delay = RetryDelay * 2^(n-1), не больше MaxRetryDelay, без предела
// попыток — отвал камеры никогда не фатален для конвейера.
// Возвращает false, если остановили во время переподключения.
func (s *FrameSource) reconnect(ctx context.Context) bool {
	s.setState(SourceReconnecting)

	if err := s.cam.Close(); err != nil {
		s.log.Debug("close before reconnect failed", "error", err)
	}

	for attempt := 1; ; attempt++ {
		delay := s.backoff(attempt)
		s.log.Warn("camera unavailable, retrying", "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		if err := s.cam.Open(ctx, s.cfg.SourceID, s.cfg.Mode); err != nil {
			s.log.Error("reconnect failed", "attempt", attempt, "error", err)
			continue
		}

		s.log.Info("camera reconnected", "attempt", attempt)
		s.setState(SourceRunning)
		return true
	}
}

func (s *FrameSource) backoff(attempt int) time.Duration {
	delay := s.cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > s.cfg.MaxRetryDelay || delay <= 0 {
		delay = s.cfg.MaxRetryDelay
	}
	return delay
}
