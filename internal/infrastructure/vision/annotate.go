//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"gocv.io/x/gocv"

	"pallet-vision/internal/domain/entity"
	"pallet-vision/internal/domain/port"
)

// GoCVAnnotator рисует детекции и измерения поверх кадра для оператора
type GoCVAnnotator struct {
	Quality int
}

// NewGoCVAnnotator создаёт отрисовщик с качеством JPEG по умолчанию.
func NewGoCVAnnotator() *GoCVAnnotator {
	return &GoCVAnnotator{Quality: 90}
}

// Annotate рисует рамки детекций и плашку с вердиктом, возвращает JPEG.
func (a *GoCVAnnotator) Annotate(frame *entity.Frame, verdict *entity.Verdict) ([]byte, error) {
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Data) == 0 {
		return nil, errors.New("empty frame")
	}

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer mat.Close()

	green := color.RGBA{G: 255, A: 255}
	red := color.RGBA{R: 255, A: 255}

	boxColor := green
	if verdict.IsFault {
		boxColor = red
	}

	for _, det := range verdict.Detections {
		rect := image.Rect(det.Box.X, det.Box.Y, det.Box.Right(), det.Box.Bottom())
		gocv.Rectangle(&mat, rect, boxColor, 2)
		label := fmt.Sprintf("%s %.2f", det.Class, det.Confidence)
		gocv.PutText(&mat, label, image.Pt(det.Box.X, det.Box.Y-5),
			gocv.FontHersheySimplex, 0.5, boxColor, 1)
	}

	for i, m := range verdict.Measurements {
		text := fmt.Sprintf("%s: %.1fmm (target %.1f +/- %.1f)", m.Metric, m.MMDistance, m.Target, m.Tolerance)
		gocv.PutText(&mat, text, image.Pt(10, 60+i*25),
			gocv.FontHersheySimplex, 0.6, boxColor, 2)
	}

	if verdict.IsFault {
		gocv.PutText(&mat, "DEFECT: "+verdict.Reason, image.Pt(10, 30),
			gocv.FontHersheySimplex, 0.8, red, 2)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: a.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Проверка реализации интерфейса
var _ port.FrameAnnotator = (*GoCVAnnotator)(nil)
