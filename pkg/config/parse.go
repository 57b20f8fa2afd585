package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ratewalk/valuation-core/pkg/models"
)

// ParseConfigYAML parses a Config from YAML bytes and validates it.
// Sections absent from the document keep their defaults.
func ParseConfigYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ParseConfigYAMLString parses a Config from a YAML string and validates it.
func ParseConfigYAMLString(yamlText string) (*Config, error) {
	return ParseConfigYAML([]byte(yamlText))
}

// ValidateGenerator validates a synthetic path generator specification.
// It is exported because run inputs carry the same spec as payload.
func ValidateGenerator(spec *models.GeneratorSpec) error {
	if spec.Scenarios <= 0 {
		return fmt.Errorf("scenarios must be positive, got %d", spec.Scenarios)
	}

	switch spec.Model {
	case "constant":
		// any value is a valid constant rate
	case "uniform":
		if spec.Max <= spec.Min {
			return fmt.Errorf("uniform model requires max > min, got min=%f max=%f", spec.Min, spec.Max)
		}
	case "normal_walk":
		if spec.Volatility < 0 {
			return fmt.Errorf("volatility cannot be negative, got %f", spec.Volatility)
		}
	case "":
		return fmt.Errorf("generator model cannot be empty")
	default:
		return fmt.Errorf("invalid generator model: %s (must be constant, uniform, or normal_walk)", spec.Model)
	}

	return nil
}
