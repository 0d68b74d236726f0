package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/stagegrid/internal/report"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string

	// Workers overrides the pipeline's worker count when positive.
	Workers int
	// Serial forces one-node-at-a-time execution regardless of the pipeline.
	Serial bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	ReportPath   string
	ReportFormat report.Format

	TraceFile        string
	SampleInterval   time.Duration
	ProgressInterval time.Duration
	FeedURL          string
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	if cfg.ReportFormat == "" {
		cfg.ReportFormat = report.FormatJSON
	}
	f, err := report.ParseFormat(string(cfg.ReportFormat))
	if err != nil {
		return nil, err
	}
	cfg.ReportFormat = f

	if cfg.SampleInterval < 0 || cfg.ProgressInterval < 0 {
		return nil, errors.New("intervals must not be negative")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck-port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
