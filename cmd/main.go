package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pallet-vision/config"
	"pallet-vision/internal/container"
	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
	"pallet-vision/internal/infrastructure/camera"
	"pallet-vision/internal/infrastructure/relay"
	"pallet-vision/internal/infrastructure/storage"
	"pallet-vision/internal/infrastructure/vision"
)

func main() {
	// Единая точка выхода: os.Exit в run сломал бы его defer-цепочку.
	if err := run(); err != nil {
		slog.Error("inspection line failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Журнал брака: Postgres, либо память если DSN не задан
	var store port.FaultStore
	if cfg.DatabaseDSN != "" {
		pgStore, err := storage.NewPostgresFaultStore(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("open fault database: %w", err)
		}
		defer pgStore.Close(context.Background())
		store = pgStore
	} else {
		slog.Warn("DATABASE_DSN is not set, fault records are kept in memory")
		store = storage.NewMemoryFaultStore()
	}

	// Модели детекции
	nailDetector, err := vision.NewYOLODetector(cfg.NailModelPath, []entity.Label{entity.LabelNail})
	if err != nil {
		return fmt.Errorf("load nail model: %w", err)
	}
	defer nailDetector.Close()

	boardDetector, err := vision.NewYOLODetector(cfg.BoardModelPath,
		[]entity.Label{entity.LabelBoardEdge, entity.LabelStringerEdge})
	if err != nil {
		return fmt.Errorf("load board model: %w", err)
	}
	defer boardDetector.Close()

	// Реле брака. Ошибка подключения не валит линию: актуатор уйдёт
	// в Degraded, а журнал брака продолжит наполняться.
	relayChannel := relay.NewSerialRelay()
	if cfg.RelayPort != "" {
		if err := relayChannel.Connect(cfg.RelayPort, cfg.RelayBaud); err != nil {
			slog.Warn("failed to connect relay", "port", cfg.RelayPort, "error", err)
		}
		defer relayChannel.Disconnect()
	} else {
		slog.Warn("RELAY_PORT is not set, faults will only be recorded")
	}

	c := container.New(cfg, container.Deps{
		NailCamera:    camera.NewGoCVCamera(),
		BoardCamera:   camera.NewGoCVCamera(),
		NailDetector:  nailDetector,
		BoardDetector: boardDetector,
		Relay:         relayChannel,
		Store:         store,
		Annotator:     vision.NewGoCVAnnotator(),
	})

	if err := c.Pipeline.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	slog.Info("inspection line is running")
	<-ctx.Done()

	slog.Info("shutting down")
	c.Pipeline.Stop()
	return nil
}
