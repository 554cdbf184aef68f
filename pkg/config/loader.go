// Package config parses environment-based configuration. The service keeps
// its full option surface in internal/config; this package only owns the
// env-tag parsing.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct using `env`
// tags:
//
//	type Config struct {
//	    TypesenseHost string `env:"TYPESENSE_HOST" envDefault:"localhost"`
//	    APIKey        string `env:"TYPESENSE_API_KEY"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
