// Package config loads the framework configuration file.
//
// The configuration is a JSON document, by default resources/config.json
// relative to the working directory:
//
//	{
//	  "basePath": "github.com/acme/shop",
//	  "logLevel": "info",
//	  "createDependencyTree": false,
//	  "dependencyTryMaxCount": 2000
//	}
//
// Every key can be overridden from the environment with the TRELLIS_
// prefix, for example TRELLIS_LOGLEVEL=debug.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DefaultPath = "resources/config.json"
	EnvPrefix   = "TRELLIS"

	DefaultLogLevel              = "info"
	DefaultDependencyTryMaxCount = 2000
)

var (
	ErrNotFound  = errors.New("configuration file doesn't exist")
	ErrMalformed = errors.New("configuration file is not valid JSON")
	ErrInvalid   = errors.New("configuration is invalid")
)

type Configuration struct {
	// BasePath restricts component scanning to packages whose import
	// path starts with it. Empty scans every declared component.
	BasePath string `mapstructure:"basePath" json:"basePath"`

	LogLevel string `mapstructure:"logLevel" json:"logLevel" validate:"omitempty,oneof=debug info warn error"`

	// CreateDependencyTree records the post-inject traversal so that a
	// circular dependency error shows the path that caused it.
	CreateDependencyTree bool `mapstructure:"createDependencyTree" json:"createDependencyTree"`

	DependencyTryMaxCount int `mapstructure:"dependencyTryMaxCount" json:"dependencyTryMaxCount" validate:"gte=0"`
}

func Default() *Configuration {
	cfg := &Configuration{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads, validates and completes the configuration stored at path.
// An empty path means DefaultPath.
func Load(path string) (*Configuration, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("basePath", "")
	v.SetDefault("logLevel", DefaultLogLevel)
	v.SetDefault("createDependencyTree", false)
	v.SetDefault("dependencyTryMaxCount", DefaultDependencyTryMaxCount)

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func ApplyDefaults(cfg *Configuration) {
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.DependencyTryMaxCount == 0 {
		cfg.DependencyTryMaxCount = DefaultDependencyTryMaxCount
	}
}

func Validate(cfg *Configuration) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Configuration) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Write stores cfg as indented JSON at path, creating parent directories.
func Write(path string, cfg *Configuration) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
