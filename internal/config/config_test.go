package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OCR_ENGINE", "CONFIDENCE_THRESHOLD", "MAX_RETRIES",
		"RETRY_BASE_DELAY_MS", "PAGE_WORKERS", "OUTPUT_DIR",
		"TESSERACT_LANGUAGES", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Engine)
	assert.Equal(t, 80.0, cfg.ConfidenceThreshold)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 2, cfg.PageWorkers)
	assert.Equal(t, "scanreview_output", cfg.OutputDir)
	assert.Equal(t, "eng", cfg.TesseractLanguages)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_ENGINE", "cloud")
	t.Setenv("CONFIDENCE_THRESHOLD", "92.5")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("RETRY_BASE_DELAY_MS", "250")
	t.Setenv("PAGE_WORKERS", "8")
	t.Setenv("TESSERACT_LANGUAGES", "eng+deu")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cloud", cfg.Engine)
	assert.Equal(t, 92.5, cfg.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 8, cfg.PageWorkers)
	assert.Equal(t, "eng+deu", cfg.TesseractLanguages)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown engine", "OCR_ENGINE", "hybrid"},
		{"threshold above 100", "CONFIDENCE_THRESHOLD", "150"},
		{"negative threshold", "CONFIDENCE_THRESHOLD", "-1"},
		{"non-numeric threshold", "CONFIDENCE_THRESHOLD", "high"},
		{"zero retries", "MAX_RETRIES", "0"},
		{"non-numeric retries", "MAX_RETRIES", "lots"},
		{"zero workers", "PAGE_WORKERS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestGetLoggerConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	lc := cfg.GetLoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
}
