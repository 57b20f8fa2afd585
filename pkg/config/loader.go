package config

import (
	"fmt"
	"os"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if cfg.Server.HTTPAddr == "" {
		return fmt.Errorf("server http_addr cannot be empty")
	}

	if err := validateValuation(&cfg.Valuation); err != nil {
		return fmt.Errorf("valuation validation failed: %w", err)
	}

	if err := validateMinimizer(&cfg.Minimizer); err != nil {
		return fmt.Errorf("minimizer validation failed: %w", err)
	}

	if cfg.Generator != nil {
		if err := ValidateGenerator(cfg.Generator); err != nil {
			return fmt.Errorf("generator validation failed: %w", err)
		}
	}

	return nil
}

// validateValuation validates the valuation defaults
func validateValuation(v *ValuationConfig) error {
	if v.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", v.Horizon)
	}
	if v.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", v.Workers)
	}
	return nil
}

// validateMinimizer validates the minimizer configuration
func validateMinimizer(m *MinimizerConfig) error {
	if m.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", m.Iterations)
	}
	if m.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %f", m.LearningRate)
	}
	return nil
}
