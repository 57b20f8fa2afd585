package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ApplyEnv overlays environment variables onto the server and storage
// sections. File values stay in place for variables that are unset.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(&cfg.Server); err != nil {
		return fmt.Errorf("parse server env: %w", err)
	}
	if err := env.Parse(&cfg.Storage); err != nil {
		return fmt.Errorf("parse storage env: %w", err)
	}
	return nil
}
