package entity

// MetricOffsetMM имя метрики смещения доски относительно лаги
const MetricOffsetMM = "offset_mm"

// Measurement физическое измерение, выведенное из пары детекций
// и калибровки. Чистые данные, без скрытого состояния.
type Measurement struct {
	Metric          string  // имя метрики
	PixelDistance   float64 // расстояние в пикселях
	MMDistance      float64 // расстояние в мм: PixelDistance * коэффициент калибровки
	Target          float64 // целевое значение в мм
	Tolerance       float64 // допуск в мм
	WithinTolerance bool    // попадает ли в допуск
	Reason          string  // причина, если измерение забраковано
}
