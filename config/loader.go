package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override: LEAVE_CSV_PATH -> csv_path.
	EnvPrefix = "LEAVE_"

	// EnvConfigFile names a YAML file to load when Load is given no path.
	EnvConfigFile = EnvPrefix + "CONFIG"

	// EnvDotEnvFile overrides the dotenv file location (default ".env").
	EnvDotEnvFile = EnvPrefix + "DOTENV"
)

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New)
//  2. a dotenv file, if present, merged into the process environment
//  3. the YAML file at path, or at $LEAVE_CONFIG when path is empty
//  4. LEAVE_* environment variables
//
// List values given through the environment are comma separated.
func Load(ctx context.Context, path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *New(ctx)
	// Configured collections replace the defaults instead of merging into them.
	if k.Exists("approved_markers") {
		cfg.ApprovedMarkers = nil
	}
	if k.Exists("cors_origins") {
		cfg.CORSOrigins = nil
	}
	if k.Exists("department_aliases") {
		cfg.DepartmentAliases = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	cfg.ApprovedMarkers = splitList(cfg.ApprovedMarkers)
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv merges the dotenv file into the environment. A missing file is
// not an error; already-set variables win.
func loadDotEnv() error {
	path := os.Getenv(EnvDotEnvFile)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: dotenv %s: %v", ErrLoadConfig, path, err)
	}
	return nil
}

// splitList expands comma-separated entries and drops blanks.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
