package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	baseconfig "bugsentinel/internal/config"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultConfigDir     = ".bugsentinel"
	defaultQuotaBytes    = 5 * 1024 * 1024
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	ServerAddress string `mapstructure:"server_address"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	LogFile       string `mapstructure:"log_file"`
	ConfigDir     string `mapstructure:"config_dir"`
	TokenPath     string `mapstructure:"token_path"`
	DataPath      string `mapstructure:"data_path"`

	SyncInterval  time.Duration `mapstructure:"-"`
	ProbeInterval time.Duration `mapstructure:"-"`
	MaxRetries    int           `mapstructure:"sync_max_retries"`
	QuotaBytes    int64         `mapstructure:"local_quota_bytes"`

	AIAPIKey    string        `mapstructure:"ai_api_key"`
	AIModel     string        `mapstructure:"ai_model"`
	AIRateLimit int           `mapstructure:"ai_rate_limit"`
	AICacheTTL  time.Duration `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", baseconfig.EnvLocal)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("CONFIG_DIR", "")
	v.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	v.SetDefault("PROBE_INTERVAL_SECONDS", 10)
	v.SetDefault("SYNC_MAX_RETRIES", 3)
	v.SetDefault("LOCAL_QUOTA_BYTES", defaultQuotaBytes)
	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_MODEL", "")
	v.SetDefault("AI_RATE_LIMIT", 10)
	v.SetDefault("AI_CACHE_TTL_SECONDS", 300)
}

// Load reads .env, the optional config file and the environment.
// The environment wins over the file.
func Load(configFile string) (*Config, error) {
	if _, err := baseconfig.LoadEnvFile(".env", "../.env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, defaultConfigDir))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return fromViper(v)
}

// MustLoad is Load for main packages.
func MustLoad(configFile string) *Config {
	cfg, err := Load(configFile)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

func fromViper(v *viper.Viper) (*Config, error) {
	configDir := v.GetString("CONFIG_DIR")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		configDir = filepath.Join(home, defaultConfigDir)
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg := &Config{
		Env:           v.GetString("APP_ENV"),
		ServerAddress: v.GetString("SERVER_ADDRESS"),
		EnableTLS:     v.GetBool("ENABLE_TLS"),
		LogFile:       v.GetString("LOG_FILE"),
		ConfigDir:     configDir,
		TokenPath:     filepath.Join(configDir, "session.json"),
		DataPath:      filepath.Join(configDir, "bugsentinel.db"),
		SyncInterval:  time.Duration(v.GetInt("SYNC_INTERVAL_SECONDS")) * time.Second,
		ProbeInterval: time.Duration(v.GetInt("PROBE_INTERVAL_SECONDS")) * time.Second,
		MaxRetries:    v.GetInt("SYNC_MAX_RETRIES"),
		QuotaBytes:    v.GetInt64("LOCAL_QUOTA_BYTES"),
		AIAPIKey:      v.GetString("AI_API_KEY"),
		AIModel:       v.GetString("AI_MODEL"),
		AIRateLimit:   v.GetInt("AI_RATE_LIMIT"),
		AICacheTTL:    time.Duration(v.GetInt("AI_CACHE_TTL_SECONDS")) * time.Second,
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(configDir, "bugsentinel.log")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return errors.New("server_address must not be empty")
	}
	if !baseconfig.ValidEnv(c.Env) {
		return fmt.Errorf("unknown app_env %q", c.Env)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("sync_max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.QuotaBytes < 0 {
		return fmt.Errorf("local_quota_bytes must not be negative, got %d", c.QuotaBytes)
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.Env == baseconfig.EnvProd
}

func (c *Config) IsLocal() bool {
	return c.Env == baseconfig.EnvLocal || c.Env == ""
}
