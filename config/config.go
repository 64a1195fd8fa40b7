package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"pallet-vision/internal/domain/entity"
)

// Config параметры всей линии инспекции
type Config struct {
	// Камеры
	NailCameraID     string // камера над доской, ищет гвозди
	BoardCameraID    string // камера сбоку, контролирует выравнивание
	NailInterval     time.Duration
	GrabTimeout      time.Duration
	RetryDelay       time.Duration
	MaxRetryDelay    time.Duration
	InferenceTimeout time.Duration

	// Модели
	NailModelPath  string
	BoardModelPath string

	// Калибровка
	PixelToMM       float64
	TargetMM        float64
	ToleranceMM     float64
	NailConfidence  float64
	BoardConfidence float64

	// Реле
	RelayPort    string
	RelayBaud    int
	RelayPulse   time.Duration
	RelayTimeout time.Duration

	// Оркестратор
	DedupWindow time.Duration
	QueueSize   int

	// Журнал брака: пустой DSN означает хранение в памяти
	DatabaseDSN string
}

// Load читает конфигурацию из окружения. Искажённое значение — это
// ошибка загрузки, а не тихий откат к значению по умолчанию: линия
// не должна стартовать с калибровкой, которую оператор не задавал.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	var p envParser

	cfg := &Config{
		NailCameraID:     p.String("NAIL_CAMERA_ID", "0"),
		BoardCameraID:    p.String("BOARD_CAMERA_ID", "1"),
		NailInterval:     p.Duration("NAIL_INTERVAL", 800*time.Millisecond),
		GrabTimeout:      p.Duration("GRAB_TIMEOUT", 5*time.Second),
		RetryDelay:       p.Duration("RETRY_DELAY", 500*time.Millisecond),
		MaxRetryDelay:    p.Duration("MAX_RETRY_DELAY", 10*time.Second),
		InferenceTimeout: p.Duration("INFERENCE_TIMEOUT", 2*time.Second),

		NailModelPath:  p.String("NAIL_MODEL_PATH", "models/nail.onnx"),
		BoardModelPath: p.String("BOARD_MODEL_PATH", "models/board.onnx"),

		PixelToMM:       p.Float("PIXEL_TO_MM", 0.1),
		TargetMM:        p.Float("TARGET_MM", 0),
		ToleranceMM:     p.Float("TOLERANCE_MM", 5),
		NailConfidence:  p.Float("NAIL_CONFIDENCE", 0.25),
		BoardConfidence: p.Float("BOARD_CONFIDENCE", 0.5),

		RelayPort:    p.String("RELAY_PORT", ""),
		RelayBaud:    p.Int("RELAY_BAUD", 9600),
		RelayPulse:   p.Duration("RELAY_PULSE", 500*time.Millisecond),
		RelayTimeout: p.Duration("RELAY_TIMEOUT", time.Second),

		DedupWindow: p.Duration("DEDUP_WINDOW", 2*time.Second),
		QueueSize:   p.Int("FAULT_QUEUE_SIZE", 64),

		DatabaseDSN: p.String("DATABASE_DSN", ""),
	}

	if err := p.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Calibration собирает калибровку из параметров конфигурации
func (c *Config) Calibration() entity.CalibrationConfig {
	return entity.CalibrationConfig{
		PixelToMM:   c.PixelToMM,
		TargetMM:    c.TargetMM,
		ToleranceMM: c.ToleranceMM,
		Confidence: map[entity.TaskKind]float64{
			entity.TaskNail:      c.NailConfidence,
			entity.TaskAlignment: c.BoardConfidence,
		},
	}
}

// Validate проверяет параметры до запуска линии
func (c *Config) Validate() error {
	if err := c.Calibration().Validate(); err != nil {
		return err
	}
	if c.NailInterval <= 0 {
		return fmt.Errorf("nail interval must be positive, got %v", c.NailInterval)
	}
	if c.GrabTimeout <= 0 {
		return fmt.Errorf("grab timeout must be positive, got %v", c.GrabTimeout)
	}
	if c.InferenceTimeout <= 0 {
		return fmt.Errorf("inference timeout must be positive, got %v", c.InferenceTimeout)
	}
	if c.RelayBaud <= 0 {
		return fmt.Errorf("relay baud must be positive, got %d", c.RelayBaud)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("fault queue size must be positive, got %d", c.QueueSize)
	}
	return nil
}

// envParser накапливает ошибки разбора переменных окружения,
// чтобы оператор увидел их все за один запуск
type envParser struct {
	errs []error
}

// Err возвращает все накопленные ошибки разбора
func (p *envParser) Err() error {
	return errors.Join(p.errs...)
}

func (p *envParser) String(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (p *envParser) Int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return fallback
	}
	return n
}

func (p *envParser) Float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return fallback
	}
	return f
}

func (p *envParser) Duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}
