package app

import (
	"math"
	"sort"

	"pallet-vision/internal/domain/entity"
)

// Measure вычисляет метрику offset_mm по детекциям кромок.
//
// Опорные точки метрики: среди детекций классов board_edge и
// stringer_edge берутся самая левая и самая правая области (сортировка
// по X). Пиксельное расстояние — среднее из расстояний
// правая-кромка-к-правой-кромке и левая-кромка-к-левой-кромке.
// Миллиметры: mm = px * PixelToMM. В допуске, если |mm - target| <= tolerance.
//
// Если опорных детекций меньше двух, метрика помечается как брак с
// причиной insufficient_detections: неразличимая кромка — сама по себе
// сигнал дефекта, молча пропускать её нельзя.
//
// Функция чистая и детерминированная: одинаковые входы дают
// побитово одинаковый результат.
func Measure(detections []entity.Detection, calib entity.CalibrationConfig) []entity.Measurement {
	edges := make([]entity.Detection, 0, len(detections))
	for _, d := range detections {
		if d.Class == entity.LabelBoardEdge || d.Class == entity.LabelStringerEdge {
			edges = append(edges, d)
		}
	}

	if len(edges) < 2 {
		return []entity.Measurement{{
			Metric:          entity.MetricOffsetMM,
			Target:          calib.TargetMM,
			Tolerance:       calib.ToleranceMM,
			WithinTolerance: false,
			Reason:          entity.ReasonInsufficientDetections,
		}}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Box.X != edges[j].Box.X {
			return edges[i].Box.X < edges[j].Box.X
		}
		// Стабилизируем порядок при равных X, чтобы результат
		// не зависел от порядка детекций на входе.
		return edges[i].Box.Right() < edges[j].Box.Right()
	})

	leftmost := edges[0]
	rightmost := edges[len(edges)-1]

	rightPx := float64(rightmost.Box.Right() - leftmost.Box.Right())
	leftPx := float64(rightmost.Box.Left() - leftmost.Box.Left())
	pixelDistance := (rightPx + leftPx) / 2

	mm := pixelDistance * calib.PixelToMM
	within := math.Abs(mm-calib.TargetMM) <= calib.ToleranceMM

	m := entity.Measurement{
		Metric:          entity.MetricOffsetMM,
		PixelDistance:   pixelDistance,
		MMDistance:      mm,
		Target:          calib.TargetMM,
		Tolerance:       calib.ToleranceMM,
		WithinTolerance: within,
	}
	if !within {
		m.Reason = entity.ReasonOutOfTolerance
	}
	return []entity.Measurement{m}
}
