// Package config loads per-run configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"scanreview/internal/logger"
)

// Config holds all settings for one processing run. The orchestrator owns
// a Config for the lifetime of a batch; nothing mutates it after Load.
type Config struct {
	// Engine selection: "local" (Tesseract) or "cloud" (Google Vision)
	Engine string

	// Quality gate
	ConfidenceThreshold float64

	// Cloud retry behavior for throttled requests
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Bounded parallel page invocation
	PageWorkers int

	// Output directory for batch results and review artifacts
	OutputDir string

	// Local engine: Tesseract language codes, e.g. "eng" or "eng+deu"
	TesseractLanguages string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	threshold, err := getEnvFloat("CONFIDENCE_THRESHOLD", 80.0)
	if err != nil {
		return nil, err
	}
	maxRetries, err := getEnvInt("MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	retryDelayMS, err := getEnvInt("RETRY_BASE_DELAY_MS", 1000)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("PAGE_WORKERS", 2)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Engine:              getEnv("OCR_ENGINE", "local"),
		ConfidenceThreshold: threshold,
		MaxRetries:          maxRetries,
		RetryBaseDelay:      time.Duration(retryDelayMS) * time.Millisecond,
		PageWorkers:         workers,
		OutputDir:           getEnv("OUTPUT_DIR", "scanreview_output"),
		TesseractLanguages:  getEnv("TESSERACT_LANGUAGES", "eng"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:       getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:           getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Engine != "local" && c.Engine != "cloud" {
		return fmt.Errorf("OCR_ENGINE must be \"local\" or \"cloud\", got %q", c.Engine)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 100 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0,100], got %v", c.ConfidenceThreshold)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	if c.PageWorkers < 1 {
		return fmt.Errorf("PAGE_WORKERS must be at least 1, got %d", c.PageWorkers)
	}
	// Cloud credentials are checked at batch start (fatal precondition),
	// not here: validate and review must run without them.
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, value)
	}
	return f, nil
}
