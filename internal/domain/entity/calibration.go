package entity

import "fmt"

// CalibrationConfig калибровка и допуски инспекции.
// Загружается один раз при старте конвейера и дальше только читается;
// изменение калибровки требует перезапуска конвейера.
type CalibrationConfig struct {
	PixelToMM   float64              // миллиметров в одном пикселе
	TargetMM    float64              // целевое смещение доски в мм
	ToleranceMM float64              // допуск в мм
	Confidence  map[TaskKind]float64 // порог уверенности по задачам
}

// ConfidenceFor возвращает порог уверенности для задачи (0 если не задан)
func (c CalibrationConfig) ConfidenceFor(task TaskKind) float64 {
	return c.Confidence[task]
}

// Validate проверяет калибровку до запуска источников кадров
func (c CalibrationConfig) Validate() error {
	if c.PixelToMM <= 0 {
		return fmt.Errorf("pixel to mm ratio must be positive, got %v", c.PixelToMM)
	}
	if c.ToleranceMM < 0 {
		return fmt.Errorf("tolerance must not be negative, got %v", c.ToleranceMM)
	}
	for task, conf := range c.Confidence {
		if conf < 0 || conf > 1 {
			return fmt.Errorf("confidence threshold for %s must be in [0,1], got %v", task, conf)
		}
	}
	return nil
}
