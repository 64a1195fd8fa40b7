package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"pallet-vision/internal/domain/port"
)

// Команды одноканального реле: включить и выключить.
var (
	RelayCmdOn  = []byte{0xA0, 0x01, 0x01, 0xA2}
	RelayCmdOff = []byte{0xA0, 0x01, 0x00, 0xA1}
)

// Состояния актуатора для событий
const (
	RelayStateOK       = "ok"
	RelayStateDegraded = "degraded"
)

// ActuatorConfig настройки актуатора реле
type ActuatorConfig struct {
	Pulse   time.Duration // длительность импульса (реле включено)
	Timeout time.Duration // таймаут подтверждения одной команды
	On      []byte        // команда включения (по умолчанию RelayCmdOn)
	Off     []byte        // команда выключения (по умолчанию RelayCmdOff)
}

// RelayActuator управляет физическим реле. Одновременно в полёте не
// больше одного срабатывания на канал: параллельные запросы выстраиваются
// в очередь на мьютексе и не теряются — гарантия реакции на брак
// сохраняется и при всплесках.
//
// Ошибка связи (не таймаут) переводит актуатор в состояние Degraded;
// оркестратор видит его через Degraded() и поднимает аларм, продолжая
// записывать брак.
type RelayActuator struct {
	relay port.Relay
	cfg   ActuatorConfig
	bus   *EventBus
	log   *slog.Logger

	mu       sync.Mutex // очередь срабатываний: один импульс за раз
	degraded atomic.Bool
}

// NewRelayActuator создаёт актуатор поверх канала связи с реле
func NewRelayActuator(relay port.Relay, cfg ActuatorConfig, bus *EventBus) *RelayActuator {
	if cfg.On == nil {
		cfg.On = RelayCmdOn
	}
	if cfg.Off == nil {
		cfg.Off = RelayCmdOff
	}
	return &RelayActuator{
		relay: relay,
		cfg:   cfg,
		bus:   bus,
		log:   slog.With("component", "relay"),
	}
}

// Trigger выдаёт импульс реле: включить, подержать Pulse, выключить.
// Возвращает признак подтверждения и задержку от запроса до него.
// Блокируется не дольше таймаутов команд плюс ожидание очереди канала.
func (a *RelayActuator) Trigger(ctx context.Context) (ack bool, latency time.Duration, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()

	if err := a.send(ctx, a.cfg.On); err != nil {
		return false, time.Since(start), err
	}
	latency = time.Since(start)

	// Держим импульс, затем обязательно пытаемся выключить.
	select {
	case <-ctx.Done():
	case <-time.After(a.cfg.Pulse):
	}

	if err := a.send(ctx, a.cfg.Off); err != nil {
		// Реле включилось, но не выключилось — срабатывание
		// состоялось, а канал связи деградировал.
		return true, latency, err
	}

	a.markHealthy()
	return true, latency, nil
}

// Degraded сообщает, надёжен ли сейчас канал связи с реле
func (a *RelayActuator) Degraded() bool {
	return a.degraded.Load()
}

func (a *RelayActuator) send(ctx context.Context, cmd []byte) error {
	cctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	err := a.relay.Send(cctx, cmd)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("relay did not ack in time", "timeout", a.cfg.Timeout)
		return fmt.Errorf("%w after %v", ErrRelayTimeout, a.cfg.Timeout)
	}

	a.markDegraded(err)
	return fmt.Errorf("%w: %v", ErrRelayComm, err)
}

func (a *RelayActuator) markDegraded(cause error) {
	if a.degraded.Swap(true) {
		return
	}
	a.log.Error("relay link degraded", "error", cause)
	a.bus.Publish(Event{
		Kind:  EventRelayState,
		State: RelayStateDegraded,
		Err:   cause.Error(),
	})
}

func (a *RelayActuator) markHealthy() {
	if !a.degraded.Swap(false) {
		return
	}
	a.log.Info("relay link recovered")
	a.bus.Publish(Event{
		Kind:  EventRelayState,
		State: RelayStateOK,
	})
}
