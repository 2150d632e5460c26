// Package config defines service configuration and its layered loader.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/warp/leave-ledger/logger"
	"github.com/warp/leave-ledger/timeoff"
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// CSVPath is the HR extract the ledger is computed from.
	CSVPath string `koanf:"csv_path"`

	// DBPath is the SQLite archive of refresh runs. Empty keeps history in memory.
	DBPath string `koanf:"db_path"`

	// Archive stores each new ledger version's summaries alongside its run.
	Archive bool `koanf:"archive"`

	// PollInterval re-checks the extract even without file events.
	PollInterval time.Duration `koanf:"poll_interval"`

	// Watch enables file-system notifications for the extract.
	Watch bool `koanf:"watch"`

	// ApprovedMarkers are the status values that admit a row.
	ApprovedMarkers []string `koanf:"approved_markers"`

	// DepartmentAliases renames departments (old -> current).
	DepartmentAliases map[string]string `koanf:"department_aliases"`

	// CORSOrigins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`
}

// New returns a Config holding the defaults.
func New(_ context.Context) *Config {
	parser := timeoff.DefaultParserConfig()
	return &Config{
		Addr:              ":8080",
		LogLevel:          "info",
		LogFormat:         string(logger.FormatText),
		CSVPath:           "data/vacation.csv",
		DBPath:            "",
		Archive:           true,
		PollInterval:      60 * time.Second,
		Watch:             true,
		ApprovedMarkers:   parser.ApprovedMarkers,
		DepartmentAliases: parser.DepartmentAliases,
		CORSOrigins:       []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.CSVPath) == "" {
		return fmt.Errorf("%w: csv_path must not be empty", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch logger.Format(c.LogFormat) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: poll_interval must not be negative", ErrInvalidConfig)
	}
	if c.PollInterval == 0 && !c.Watch {
		return fmt.Errorf("%w: either poll_interval or watch must be set", ErrInvalidConfig)
	}
	if len(c.ApprovedMarkers) == 0 {
		return fmt.Errorf("%w: approved_markers must not be empty", ErrInvalidConfig)
	}
	return nil
}

// ParserConfig is the slice of Config the CSV parser needs.
func (c *Config) ParserConfig() timeoff.ParserConfig {
	return timeoff.ParserConfig{
		ApprovedMarkers:   c.ApprovedMarkers,
		DepartmentAliases: c.DepartmentAliases,
	}
}

// LoggerOptions is the slice of Config the logger needs.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{Level: c.LogLevel, Format: logger.Format(c.LogFormat)}
}
