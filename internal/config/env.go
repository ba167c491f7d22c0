package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by FromEnv, e.g.
// EVENTUAL_LISTEN_ADDR or EVENTUAL_STORAGE_BACKEND.
const EnvPrefix = "EVENTUAL_"

// FromEnv overlays EVENTUAL_* environment variables onto cfg. Unset variables
// leave the current value untouched.
func FromEnv(cfg *Config) error {
	return env.Parse(cfg, env.Options{Prefix: EnvPrefix})
}

// LoadDotEnv loads variables from dotenv files into the process environment
// without overriding variables that are already set. With no paths it loads
// .env if present; named files must exist.
func LoadDotEnv(paths ...string) error {
	implicit := len(paths) == 0
	if implicit {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if implicit && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}
