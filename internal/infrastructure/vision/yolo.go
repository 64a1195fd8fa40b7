//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// YOLODetector детектор объектов на базе ONNX-модели YOLO
type YOLODetector struct {
	net       gocv.Net
	classes   []entity.Label
	inputSize int
	scoreMin  float32
	nmsThresh float32
}

// NewYOLODetector загружает модель из ONNX-файла.
// Порядок classes должен совпадать с порядком классов модели.
func NewYOLODetector(modelPath string, classes []entity.Label) (*YOLODetector, error) {
	if len(classes) == 0 {
		return nil, errors.New("detector requires at least one class")
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model %s", modelPath)
	}

	return &YOLODetector{
		net:       net,
		classes:   classes,
		inputSize: 640,
		scoreMin:  0.1,
		nmsThresh: 0.45,
	}, nil
}

// Detect прогоняет кадр через модель и возвращает сырые детекции.
func (d *YOLODetector) Detect(ctx context.Context, frame *entity.Frame) ([]entity.Detection, error) {
	_ = ctx

	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Data) == 0 {
		return nil, errors.New("empty frame")
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(d.inputSize, d.inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	boxes, scores, classIDs := d.decode(out, frame.Width, frame.Height)
	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, scores, d.scoreMin, d.nmsThresh)

	detections := make([]entity.Detection, 0, len(indices))
	for _, idx := range indices {
		rect := boxes[idx]
		detections = append(detections, entity.Detection{
			Class: d.classes[classIDs[idx]],
			Box: entity.Box{
				X:      rect.Min.X,
				Y:      rect.Min.Y,
				Width:  rect.Dx(),
				Height: rect.Dy(),
			},
			Confidence: float64(scores[idx]),
			FrameSeq:   frame.Seq,
		})
	}
	return detections, nil
}

// decode разбирает выход модели [1, 4+классы, N]: первые четыре канала
// это центр и размер рамки, дальше оценки классов.
func (d *YOLODetector) decode(out gocv.Mat, frameW, frameH int) ([]image.Rectangle, []float32, []int) {
	dims := out.Size()
	if len(dims) != 3 {
		return nil, nil, nil
	}
	channels := dims[1]
	anchors := dims[2]
	if channels < 4+len(d.classes) {
		return nil, nil, nil
	}

	scaleX := float32(frameW) / float32(d.inputSize)
	scaleY := float32(frameH) / float32(d.inputSize)

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for a := 0; a < anchors; a++ {
		bestScore := float32(0)
		bestClass := 0
		for c := 0; c < len(d.classes); c++ {
			score := out.GetFloatAt3(0, 4+c, a)
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if bestScore < d.scoreMin {
			continue
		}

		cx := out.GetFloatAt3(0, 0, a) * scaleX
		cy := out.GetFloatAt3(0, 1, a) * scaleY
		w := out.GetFloatAt3(0, 2, a) * scaleX
		h := out.GetFloatAt3(0, 3, a) * scaleY

		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2),
			int(cx+w/2), int(cy+h/2),
		))
		scores = append(scores, bestScore)
		classIDs = append(classIDs, bestClass)
	}
	return boxes, scores, classIDs
}

// Close выгружает модель
func (d *YOLODetector) Close() error {
	return d.net.Close()
}

// Проверка реализации интерфейса
var _ port.ObjectDetector = (*YOLODetector)(nil)
