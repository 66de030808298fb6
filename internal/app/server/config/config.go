package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	baseconfig "bugsentinel/internal/config"
)

const (
	envPath = "../../.env"
	// devSecret signs tokens in local runs only; validate refuses it in prod.
	devSecret = "bugsentinel-dev-secret"
)

type Config struct {
	Env    string
	DB     DB
	Server Server
	Auth   Auth
}

type DB struct {
	DatabaseURI string
	Migrations  string
}

type Server struct {
	RunAddress      string
	ShutdownTimeout time.Duration
}

type Auth struct {
	Secret   string
	TokenTTL time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", baseconfig.EnvLocal)
	v.SetDefault("RUN_ADDRESS", ":8080")
	v.SetDefault("MIGRATIONS_PATH", "migrations")
	v.SetDefault("JWT_SECRET", devSecret)
	v.SetDefault("TOKEN_TTL_HOURS", 24*7)
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)
}

func Load() (*Config, error) {
	if _, err := baseconfig.LoadEnvFile(".env", envPath); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		DB: DB{
			DatabaseURI: v.GetString("DATABASE_URI"),
			Migrations:  v.GetString("MIGRATIONS_PATH"),
		},
		Server: Server{
			RunAddress:      v.GetString("RUN_ADDRESS"),
			ShutdownTimeout: time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
		},
		Auth: Auth{
			Secret:   v.GetString("JWT_SECRET"),
			TokenTTL: time.Duration(v.GetInt("TOKEN_TTL_HOURS")) * time.Hour,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !baseconfig.ValidEnv(c.Env) {
		return fmt.Errorf("unknown app_env %q", c.Env)
	}
	if c.DB.DatabaseURI == "" {
		return errors.New("database_uri must be set")
	}
	if c.Server.RunAddress == "" {
		return errors.New("run_address must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl_hours must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Env == baseconfig.EnvProd && (c.Auth.Secret == devSecret || len(c.Auth.Secret) < 16) {
		return errors.New("jwt_secret must be set to at least 16 characters in prod")
	}
	return nil
}
