// Package config holds settings shared by the client and the server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// LoadEnvFile loads the first existing .env file from paths.
// A missing file is not an error, variables may come from the environment.
func LoadEnvFile(paths ...string) (string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("stat %s: %w", p, err)
		}

		if err := godotenv.Load(p); err != nil {
			return "", fmt.Errorf("load %s: %w", p, err)
		}
		return p, nil
	}

	return "", nil
}

// ValidEnv reports whether env is one of the known environments.
func ValidEnv(env string) bool {
	switch env {
	case EnvLocal, EnvDev, EnvProd:
		return true
	}
	return false
}
