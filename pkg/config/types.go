package config

import (
	"time"

	"github.com/ratewalk/valuation-core/pkg/models"
)

// Config represents the daemon configuration
type Config struct {
	LogLevel  string                `yaml:"log_level"`
	Server    ServerConfig          `yaml:"server"`
	Valuation ValuationConfig       `yaml:"valuation"`
	Minimizer MinimizerConfig       `yaml:"minimizer"`
	Generator *models.GeneratorSpec `yaml:"generator,omitempty"`
	Storage   StorageConfig         `yaml:"storage"`
}

// ServerConfig represents the HTTP server configuration. Environment
// variables override file values.
type ServerConfig struct {
	HTTPAddr        string   `yaml:"http_addr" env:"VALD_HTTP_ADDR"`
	AllowedOrigins  []string `yaml:"allowed_origins,omitempty" env:"VALD_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout string   `yaml:"shutdown_timeout,omitempty" env:"VALD_SHUTDOWN_TIMEOUT"`
}

// ValuationConfig represents defaults for valuation runs
type ValuationConfig struct {
	Horizon int `yaml:"horizon"`
	Workers int `yaml:"workers"`
}

// MinimizerConfig represents the gradient-descent configuration
type MinimizerConfig struct {
	Iterations   int     `yaml:"iterations"`
	LearningRate float64 `yaml:"learning_rate"`
}

// StorageConfig represents run archive configuration. An empty path
// disables persistence.
type StorageConfig struct {
	Path string `yaml:"path,omitempty" env:"VALD_STORAGE_PATH"`
}

// Default returns a configuration with working defaults for every
// section.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			ShutdownTimeout: "10s",
		},
		Valuation: ValuationConfig{
			Horizon: 10,
			Workers: 4,
		},
		Minimizer: MinimizerConfig{
			Iterations:   1000,
			LearningRate: 0.01,
		},
	}
}

// GetShutdownTimeout parses the shutdown timeout, falling back to 10s.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
