// Package config loads the stepmesh configuration from defaults, a YAML file, a .env file,
// STEPMESH_* environment variables and command-line overrides, in increasing precedence.
package config

import (
	"time"

	"github.com/aretw0/stepmesh/pkg/adapters/process"
	"github.com/aretw0/stepmesh/pkg/domain"
)

// Kernel names.
const (
	KernelNative  = "native"
	KernelProcess = "process"
)

// Config is the full runtime configuration.
type Config struct {
	Kernel  string         `yaml:"kernel" mapstructure:"kernel" validate:"oneof=native process"`
	Log     LogConfig      `yaml:"log" mapstructure:"log"`
	Convert ConvertConfig  `yaml:"convert" mapstructure:"convert"`
	Export  ExportConfig   `yaml:"export" mapstructure:"export"`
	Process process.Config `yaml:"process" mapstructure:"process"`
	Redis   RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Metrics MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Serve   ServeConfig    `yaml:"serve" mapstructure:"serve"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

// ConvertConfig holds the whole-model converter settings.
type ConvertConfig struct {
	Output    string           `yaml:"output" mapstructure:"output"`
	Tolerance domain.Tolerance `yaml:"tolerance" mapstructure:"tolerance"`
}

// ExportConfig holds the per-part exporter settings.
type ExportConfig struct {
	OutputDir string           `yaml:"output_dir" mapstructure:"output_dir" validate:"required"`
	Manifest  string           `yaml:"manifest" mapstructure:"manifest"`
	Tolerance domain.Tolerance `yaml:"tolerance" mapstructure:"tolerance"`
}

// RedisConfig enables the Redis manifest store and locker when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db" validate:"gte=0"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus textfile dump of CLI runs.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// ServeConfig holds the HTTP server settings.
type ServeConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Kernel: KernelNative,
		Log:    LogConfig{Level: "info", Format: "text"},
		Convert: ConvertConfig{
			Output:    "model.stl",
			Tolerance: domain.DefaultConvertTolerance(),
		},
		Export: ExportConfig{
			OutputDir: "parts",
			Tolerance: domain.DefaultExportTolerance(),
		},
		Serve: ServeConfig{Addr: "localhost:8080"},
	}
}
