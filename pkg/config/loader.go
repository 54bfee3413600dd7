package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load reads optional dotenv files into the process environment and then
// parses environment variables into cfg using its `env` tags. Variables
// already present in the environment take precedence over dotenv values.
// Missing dotenv files are ignored.
//
//	type Config struct {
//	    Port     int    `env:"REGISTRY_HTTP_PORT" envDefault:"8010"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any, dotenvFiles ...string) error {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load dotenv %s: %w", f, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
