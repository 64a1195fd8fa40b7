package app

import (
	"context"
	"fmt"
	"log/slog"

	"pallet-vision/internal/domain/entity"
)

// Stream один поток инспекции: камера и её воркер
type Stream struct {
	Source *FrameSource
	Worker *DetectionWorker
}

// Pipeline конвейер инспекции целиком: независимые потоки камер,
// сериализованный оркестратор брака и шина событий. Калибровка
// раздаётся всем компонентам как неизменяемый снимок; её смена —
// это остановка и новый конвейер.
type Pipeline struct {
	calib   entity.CalibrationConfig
	streams []*Stream
	orch    *FaultOrchestrator
	bus     *EventBus
	log     *slog.Logger

	started bool
}

// NewPipeline собирает конвейер из готовых потоков и оркестратора
func NewPipeline(calib entity.CalibrationConfig, streams []*Stream, orch *FaultOrchestrator, bus *EventBus) *Pipeline {
	return &Pipeline{
		calib:   calib,
		streams: streams,
		orch:    orch,
		bus:     bus,
		log:     slog.With("component", "pipeline"),
	}
}

// Start проверяет калибровку и запускает конвейер: сначала оркестратор,
// затем воркеры и источники. Ни один источник не стартует, пока
// конфигурация не прошла валидацию.
func (p *Pipeline) Start(ctx context.Context) error {
	if p.started {
		return fmt.Errorf("pipeline already started")
	}
	if err := p.calib.Validate(); err != nil {
		return fmt.Errorf("invalid calibration: %w", err)
	}

	if err := p.orch.Start(ctx); err != nil {
		return fmt.Errorf("start fault orchestrator: %w", err)
	}

	// Сначала источник, потом его воркер: воркер не должен ждать на
	// почтовом ящике камеры, которая так и не открылась.
	for _, stream := range p.streams {
		if err := stream.Source.Start(ctx); err != nil {
			p.stopStreams()
			p.orch.Stop()
			return err
		}
		stream.Worker.Start(ctx)
	}

	p.started = true
	p.log.Info("pipeline started", "streams", len(p.streams))
	return nil
}

// Stop останавливает конвейер в порядке, не теряющем брак:
// источники -> воркеры дорабатывают кадры в полёте -> оркестратор
// дообрабатывает вердикты -> шина событий.
func (p *Pipeline) Stop() {
	if !p.started {
		return
	}
	p.started = false

	p.stopStreams()
	p.orch.Stop()
	p.bus.Close()
	p.log.Info("pipeline stopped")
}

func (p *Pipeline) stopStreams() {
	for _, stream := range p.streams {
		stream.Source.Stop()
	}
	for _, stream := range p.streams {
		stream.Worker.Wait()
	}
}
