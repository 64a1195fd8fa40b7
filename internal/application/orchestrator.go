package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// OrchestratorConfig настройки оркестратора брака
type OrchestratorConfig struct {
	QueueSize    int           // ёмкость очереди вердиктов от воркеров
	DedupWindow  time.Duration // окно, в котором повторный брак помечается как Repeat
	StoreTimeout time.Duration // потолок одной записи в журнал брака
}

// FaultOrchestrator единственный сериализованный потребитель вердиктов
// со всех воркеров: номера брака и арбитраж канала реле свободны от
// гонок, потому что ими владеет одна горутина.
//
// На каждый вердикт с браком: монотонный номер, срабатывание реле,
// запись в журнал — независимо от исхода реле. Журнал аудита — главная
// гарантия, срабатывание — best-effort. Повторный брак того же
// источника и задачи внутри окна дедупликации всё равно записывается
// отдельной записью: операторам нужен честный счётчик.
type FaultOrchestrator struct {
	store    port.FaultStore
	actuator *RelayActuator
	cfg      OrchestratorConfig
	bus      *EventBus
	log      *slog.Logger

	in      chan *entity.Verdict
	stopMu  sync.RWMutex
	stopped bool
	wg      sync.WaitGroup

	// Всё ниже принадлежит только горутине обработки.
	nextID    uint64
	lastFault map[string]time.Time
}

// NewFaultOrchestrator создаёт оркестратор брака
func NewFaultOrchestrator(store port.FaultStore, actuator *RelayActuator, cfg OrchestratorConfig, bus *EventBus) *FaultOrchestrator {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &FaultOrchestrator{
		store:     store,
		actuator:  actuator,
		cfg:       cfg,
		bus:       bus,
		log:       slog.With("component", "orchestrator"),
		in:        make(chan *entity.Verdict, cfg.QueueSize),
		lastFault: make(map[string]time.Time),
	}
}

// Start продолжает нумерацию брака с последнего номера в журнале
// и запускает горутину обработки вердиктов. Журнал переживает
// перезапуски процесса, номера обязаны делать то же самое.
func (o *FaultOrchestrator) Start(ctx context.Context) error {
	last, err := o.store.LastID(ctx)
	if err != nil {
		return fmt.Errorf("read last fault id: %w", err)
	}
	o.nextID = last

	// Обработка не наследует отмену внешнего контекста: вердикты
	// в полёте обязаны дойти до реле и журнала и после сигнала
	// остановки, иначе дренаж при Stop теряет брак.
	base := context.WithoutCancel(ctx)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for verdict := range o.in {
			o.process(base, verdict)
		}
	}()
	return nil
}

// Submit передаёт вердикт на обработку. Вердикты одного источника
// обрабатываются в порядке поступления; между источниками порядок
// не гарантируется. После Stop вердикт отбрасывается с записью в журнал
// работы (но не в журнал брака): конвейер обязан останавливать воркеров
// до оркестратора.
func (o *FaultOrchestrator) Submit(verdict *entity.Verdict) {
	o.stopMu.RLock()
	defer o.stopMu.RUnlock()

	if o.stopped {
		o.log.Error("verdict submitted after stop, dropped",
			"source_id", verdict.SourceID, "seq", verdict.FrameSeq)
		return
	}
	o.in <- verdict
}

// Stop закрывает приём и дожидается, пока все вердикты в полёте
// будут обработаны: ни один брак не теряется при остановке.
func (o *FaultOrchestrator) Stop() {
	o.stopMu.Lock()
	if o.stopped {
		o.stopMu.Unlock()
		return
	}
	o.stopped = true
	o.stopMu.Unlock()

	close(o.in)
	o.wg.Wait()
}

// process обрабатывает один вердикт; вызывается только из горутины Start
func (o *FaultOrchestrator) process(ctx context.Context, verdict *entity.Verdict) {
	if !verdict.IsFault {
		return
	}

	o.nextID++
	record := &entity.FaultRecord{
		ID:        o.nextID,
		Timestamp: time.Now(),
		Task:      verdict.Task,
		SourceID:  verdict.SourceID,
		FrameSeq:  verdict.FrameSeq,
		Details:   verdict.Reason,
	}
	for _, m := range verdict.Measurements {
		if !m.WithinTolerance && m.Reason != entity.ReasonInsufficientDetections {
			mm := m.MMDistance
			record.Measurement = &mm
			record.Details = fmt.Sprintf("%s: %.1fmm (target %.1fmm ±%.1fmm)",
				verdict.Reason, m.MMDistance, m.Target, m.Tolerance)
			break
		}
	}

	// Реле — best-effort: его отказ никогда не подавляет запись о браке.
	ack, latency, err := o.actuator.Trigger(ctx)
	record.RelayTriggered = ack
	record.RelayLatency = latency
	if err != nil {
		o.log.Warn("relay trigger failed, fault will be recorded anyway",
			"fault_id", record.ID, "error", err)
	}
	if o.actuator.Degraded() {
		o.log.Warn("relay link is degraded", "fault_id", record.ID)
	}

	// Запись ограничена собственным таймаутом: зависший журнал не
	// должен останавливать дренаж навсегда.
	sctx, cancel := context.WithTimeout(ctx, o.cfg.StoreTimeout)
	err = o.store.Append(sctx, record)
	cancel()
	if err != nil {
		// Потеря записи о браке подрывает смысл системы: ошибку
		// не глотаем и не ретраим молча, а эскалируем оператору.
		o.log.Error("FAULT RECORD NOT PERSISTED",
			"fault_id", record.ID, "source_id", record.SourceID, "error", err)
		o.bus.Publish(Event{
			Kind:     EventStoreFailure,
			SourceID: record.SourceID,
			Task:     record.Task,
			Seq:      record.FrameSeq,
			Err:      err.Error(),
		})
		return
	}

	key := verdict.SourceID + "/" + string(verdict.Task)
	repeat := time.Since(o.lastFault[key]) <= o.cfg.DedupWindow
	o.lastFault[key] = record.Timestamp

	o.log.Info("fault recorded",
		"fault_id", record.ID,
		"task", string(record.Task),
		"source_id", record.SourceID,
		"seq", record.FrameSeq,
		"relay_ack", record.RelayTriggered,
		"repeat", repeat,
	)
	o.bus.Publish(Event{
		Kind:     EventFaultRecorded,
		SourceID: record.SourceID,
		Task:     record.Task,
		Seq:      record.FrameSeq,
		Fault:    record,
		Repeat:   repeat,
	})
}
