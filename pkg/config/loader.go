// Package config fills env-tagged structs from the process environment and
// optional dotenv files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load parses environment variables into cfg, which must be a pointer to a
// struct with `env` tags:
//
//	type Config struct {
//	    Port     int    `env:"CART_HTTP_PORT" envDefault:"8003"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
//
// Each dotenv file that exists contributes variables the process environment
// does not already define; earlier files win over later ones. Missing files
// are skipped.
func Load(cfg any, dotenvFiles ...string) error {
	environ := environMap(os.Environ())

	for _, path := range dotenvFiles {
		vals, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range vals {
			if _, set := environ[k]; !set {
				environ[k] = v
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func environMap(pairs []string) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}
