package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// DetectionWorker обрабатывает кадры одного источника в рамках одной
// задачи. Воркеры разных потоков не делят изменяемое состояние: каждый
// единолично владеет своим источником. Любой забранный кадр даёт ровно
// один вердикт — даже если инференс не удался.
type DetectionWorker struct {
	src       *FrameSource
	stage     *InferenceStage
	task      entity.TaskKind
	calib     entity.CalibrationConfig
	orch      *FaultOrchestrator
	annotator port.FrameAnnotator
	bus       *EventBus
	log       *slog.Logger

	wg sync.WaitGroup
}

// NewDetectionWorker создаёт воркер для пары источник+задача.
// annotator может быть nil — тогда кадры брака не размечаются.
func NewDetectionWorker(
	src *FrameSource,
	stage *InferenceStage,
	task entity.TaskKind,
	calib entity.CalibrationConfig,
	orch *FaultOrchestrator,
	annotator port.FrameAnnotator,
	bus *EventBus,
) *DetectionWorker {
	return &DetectionWorker{
		src:       src,
		stage:     stage,
		task:      task,
		calib:     calib,
		orch:      orch,
		annotator: annotator,
		bus:       bus,
		log:       slog.With("component", "worker", "task", string(task)),
	}
}

// Start запускает цикл обработки кадров
func (w *DetectionWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.loop(ctx)
}

// Wait блокируется до выхода воркера (источник остановлен)
func (w *DetectionWorker) Wait() {
	w.wg.Wait()
}

func (w *DetectionWorker) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		frame := w.src.Next()
		if frame == nil {
			w.log.Info("frame source closed, worker exiting")
			return
		}

		verdict := w.process(ctx, frame)
		w.bus.Publish(Event{
			Kind:     EventVerdict,
			SourceID: verdict.SourceID,
			Task:     verdict.Task,
			Seq:      verdict.FrameSeq,
			Verdict:  verdict,
		})
		w.orch.Submit(verdict)
	}
}

// process выносит вердикт по одному кадру
func (w *DetectionWorker) process(ctx context.Context, frame *entity.Frame) *entity.Verdict {
	verdict := &entity.Verdict{
		SourceID: frame.SourceID,
		FrameSeq: frame.Seq,
		TraceID:  frame.TraceID,
		Task:     w.task,
	}

	detections, err := w.stage.Infer(ctx, frame)
	if err != nil {
		// Неубедительный результат — не брак и не пропуск: вердикт
		// выносится всегда, но в журнал брака не попадает.
		if errors.Is(err, ErrInferenceTimeout) {
			w.log.Warn("verdict inconclusive: inference timeout", "seq", frame.Seq)
		} else {
			w.log.Error("verdict inconclusive: inference failure", "seq", frame.Seq, "error", err)
		}
		verdict.Reason = entity.ReasonInconclusive
		return verdict
	}
	verdict.Detections = detections

	switch w.task {
	case entity.TaskAlignment:
		verdict.Measurements = Measure(detections, w.calib)
		for _, m := range verdict.Measurements {
			if !m.WithinTolerance {
				verdict.IsFault = true
				verdict.Reason = m.Reason
				break
			}
		}
	default:
		if len(detections) > 0 {
			verdict.IsFault = true
			verdict.Reason = entity.ReasonNailDetected
		}
	}

	if verdict.IsFault && w.annotator != nil {
		annotated, aerr := w.annotator.Annotate(frame, verdict)
		if aerr != nil {
			w.log.Error("failed to annotate fault frame", "seq", frame.Seq, "error", aerr)
		} else {
			verdict.Annotated = annotated
		}
	}

	return verdict
}
