package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pallet-vision/internal/domain/entity"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 0.1, cfg.PixelToMM)
	require.Equal(t, 5.0, cfg.ToleranceMM)
	require.Equal(t, 0.25, cfg.NailConfidence)
	require.Equal(t, 0.5, cfg.BoardConfidence)
	require.Equal(t, 800*time.Millisecond, cfg.NailInterval)
	require.Equal(t, 5*time.Second, cfg.GrabTimeout)
	require.Equal(t, 9600, cfg.RelayBaud)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PIXEL_TO_MM", "0.5")
	t.Setenv("NAIL_INTERVAL", "250ms")
	t.Setenv("FAULT_QUEUE_SIZE", "16")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 0.5, cfg.PixelToMM)
	require.Equal(t, 250*time.Millisecond, cfg.NailInterval)
	require.Equal(t, 16, cfg.QueueSize)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	// Опечатка в окружении не должна тихо превращаться в значение
	// по умолчанию: линия стартовала бы с чужой калибровкой.
	t.Setenv("PIXEL_TO_MM", "not a number")
	t.Setenv("GRAB_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	require.ErrorContains(t, err, "PIXEL_TO_MM")
	require.ErrorContains(t, err, "GRAB_TIMEOUT")
}

func TestCalibrationFromConfig(t *testing.T) {
	t.Setenv("NAIL_CONFIDENCE", "0.3")

	cfg, err := Load()
	require.NoError(t, err)

	calib := cfg.Calibration()
	require.Equal(t, 0.3, calib.ConfidenceFor(entity.TaskNail))
	require.Equal(t, 0.5, calib.ConfidenceFor(entity.TaskAlignment))
	require.NoError(t, calib.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("PIXEL_TO_MM", "-1")

	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.Validate())
}
