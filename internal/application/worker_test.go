package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/infrastructure/storage"
)

// flakyDetector чередует таймаут и успешную детекцию гвоздя
type flakyDetector struct {
	mu    sync.Mutex
	calls int
}

func (d *flakyDetector) Detect(ctx context.Context, frame *entity.Frame) ([]entity.Detection, error) {
	d.mu.Lock()
	d.calls++
	timeout := d.calls%2 == 1
	d.mu.Unlock()

	if timeout {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []entity.Detection{
		{Class: entity.LabelNail, Confidence: 0.9, FrameSeq: frame.Seq},
	}, nil
}

func (d *flakyDetector) Close() error { return nil }

func testCalibration() entity.CalibrationConfig {
	return entity.CalibrationConfig{PixelToMM: 0.5, TargetMM: 10, ToleranceMM: 1}
}

func nailWorker(t *testing.T, det *flakyDetector) (*DetectionWorker, *storage.MemoryFaultStore) {
	t.Helper()

	bus := NewEventBus()
	store := storage.NewMemoryFaultStore()
	orch := testOrchestrator(store, &fakeRelay{}, bus)
	stage := NewInferenceStage(det, entity.TaskNail, 0.5, 20*time.Millisecond)

	worker := NewDetectionWorker(nil, stage, entity.TaskNail, testCalibration(), orch, nil, bus)
	return worker, store
}

func TestDetectionWorker_EveryFrameYieldsOneVerdict(t *testing.T) {
	// Чередование таймаутов и успехов: вердикт есть на каждый кадр.
	worker, _ := nailWorker(t, &flakyDetector{})

	for seq := uint64(1); seq <= 6; seq++ {
		verdict := worker.process(context.Background(), &entity.Frame{SourceID: "cam-1", Seq: seq})
		require.NotNil(t, verdict)
		require.Equal(t, seq, verdict.FrameSeq)

		if seq%2 == 1 {
			// Таймаут инференса: неубедительно, но не брак.
			require.False(t, verdict.IsFault)
			require.Equal(t, entity.ReasonInconclusive, verdict.Reason)
		} else {
			require.True(t, verdict.IsFault)
			require.Equal(t, entity.ReasonNailDetected, verdict.Reason)
		}
	}
}

func TestDetectionWorker_AlignmentVerdicts(t *testing.T) {
	bus := NewEventBus()
	store := storage.NewMemoryFaultStore()
	orch := testOrchestrator(store, &fakeRelay{}, bus)

	// 24px между кромками при 0.5 мм/px — 12мм при допуске 10±1.
	det := &fakeDetector{detections: edgePair(100, 124, 30)}
	stage := NewInferenceStage(det, entity.TaskAlignment, 0.5, time.Second)
	worker := NewDetectionWorker(nil, stage, entity.TaskAlignment, testCalibration(), orch, nil, bus)

	verdict := worker.process(context.Background(), &entity.Frame{SourceID: "cam-2", Seq: 1})
	require.True(t, verdict.IsFault)
	require.Equal(t, entity.ReasonOutOfTolerance, verdict.Reason)
	require.Len(t, verdict.Measurements, 1)
	require.Equal(t, 12.0, verdict.Measurements[0].MMDistance)
}

func TestDetectionWorker_MissingEdgesAreFault(t *testing.T) {
	bus := NewEventBus()
	store := storage.NewMemoryFaultStore()
	orch := testOrchestrator(store, &fakeRelay{}, bus)

	det := &fakeDetector{} // модель ничего не нашла
	stage := NewInferenceStage(det, entity.TaskAlignment, 0.5, time.Second)
	worker := NewDetectionWorker(nil, stage, entity.TaskAlignment, testCalibration(), orch, nil, bus)

	verdict := worker.process(context.Background(), &entity.Frame{SourceID: "cam-2", Seq: 1})
	require.True(t, verdict.IsFault)
	require.Equal(t, entity.ReasonInsufficientDetections, verdict.Reason)
}

func TestDetectionWorker_LoopSubmitsAndExits(t *testing.T) {
	cam := &fakeCamera{grabs: []error{nil}}
	bus := NewEventBus()
	verdicts := make(chan Event, 8)
	bus.Subscribe("test", verdicts)

	store := storage.NewMemoryFaultStore()
	orch := testOrchestrator(store, &fakeRelay{}, bus)
	require.NoError(t, orch.Start(context.Background()))

	src := NewFrameSource(testSourceConfig(entity.TriggerHardware), cam, bus)
	det := &fakeDetector{detections: []entity.Detection{{Class: entity.LabelNail, Confidence: 0.9}}}
	stage := NewInferenceStage(det, entity.TaskNail, 0.5, time.Second)
	worker := NewDetectionWorker(src, stage, entity.TaskNail, testCalibration(), orch, nil, bus)

	require.NoError(t, src.Start(context.Background()))
	worker.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-verdicts:
			if ev.Kind == EventVerdict {
				require.Equal(t, uint64(1), ev.Seq)
				goto found
			}
		case <-deadline:
			t.Fatal("no verdict published")
		}
	}
found:
	src.Stop()
	worker.Wait()
	orch.Stop()

	records, err := store.Query(context.Background(), entity.FaultFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
}
