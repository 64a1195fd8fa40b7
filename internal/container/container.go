package container

import (
	"pallet-vision/config"
	app "pallet-vision/internal/application"
	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// Container собранный конвейер инспекции и его шина событий
type Container struct {
	Pipeline *app.Pipeline
	Bus      *app.EventBus
	Store    port.FaultStore
}

// Deps внешние зависимости конвейера: драйверы камер, модели,
// канал реле и журнал брака
type Deps struct {
	NailCamera    port.Camera
	BoardCamera   port.Camera
	NailDetector  port.ObjectDetector
	BoardDetector port.ObjectDetector
	Relay         port.Relay
	Store         port.FaultStore
	Annotator     port.FrameAnnotator
}

// New собирает конвейер из конфигурации и зависимостей.
// Поток гвоздей работает по таймеру, поток выравнивания по
// аппаратному триггеру линии.
func New(cfg *config.Config, deps Deps) *Container {
	bus := app.NewEventBus()
	calib := cfg.Calibration()

	actuator := app.NewRelayActuator(deps.Relay, app.ActuatorConfig{
		Pulse:   cfg.RelayPulse,
		Timeout: cfg.RelayTimeout,
	}, bus)

	orch := app.NewFaultOrchestrator(deps.Store, actuator, app.OrchestratorConfig{
		QueueSize:   cfg.QueueSize,
		DedupWindow: cfg.DedupWindow,
	}, bus)

	nailSource := app.NewFrameSource(app.FrameSourceConfig{
		SourceID:      cfg.NailCameraID,
		Mode:          entity.TriggerTimed,
		Interval:      cfg.NailInterval,
		GrabTimeout:   cfg.GrabTimeout,
		RetryDelay:    cfg.RetryDelay,
		MaxRetryDelay: cfg.MaxRetryDelay,
	}, deps.NailCamera, bus)

	boardSource := app.NewFrameSource(app.FrameSourceConfig{
		SourceID:      cfg.BoardCameraID,
		Mode:          entity.TriggerHardware,
		GrabTimeout:   cfg.GrabTimeout,
		RetryDelay:    cfg.RetryDelay,
		MaxRetryDelay: cfg.MaxRetryDelay,
	}, deps.BoardCamera, bus)

	nailStage := app.NewInferenceStage(deps.NailDetector, entity.TaskNail,
		cfg.NailConfidence, cfg.InferenceTimeout)
	boardStage := app.NewInferenceStage(deps.BoardDetector, entity.TaskAlignment,
		cfg.BoardConfidence, cfg.InferenceTimeout)

	streams := []*app.Stream{
		{
			Source: nailSource,
			Worker: app.NewDetectionWorker(nailSource, nailStage, entity.TaskNail,
				calib, orch, deps.Annotator, bus),
		},
		{
			Source: boardSource,
			Worker: app.NewDetectionWorker(boardSource, boardStage, entity.TaskAlignment,
				calib, orch, deps.Annotator, bus),
		},
	}

	return &Container{
		Pipeline: app.NewPipeline(calib, streams, orch, bus),
		Bus:      bus,
		Store:    deps.Store,
	}
}
