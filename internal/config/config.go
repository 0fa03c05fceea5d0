package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/log"
)

const (
	DefaultApiBaseURL = "http://localhost:8000/api/v1"
	EnvApiBaseURL     = "NEXT_PUBLIC_API_URL"
)

type Application struct {
	Env     string `mapstructure:"env"      json:"env"`
	Host    string `mapstructure:"host"     json:"host"`
	LogFile string `mapstructure:"log_file" json:"log_file"`
	Port    int    `mapstructure:"port"     json:"port"`
}

type Api struct {
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"  json:"timeout"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Otel struct {
	Host    string `mapstructure:"host"    json:"host"`
	Port    int    `mapstructure:"port"    json:"port"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}

// Auth holds the HMAC key shared with the backend that issues auth tokens.
type Auth struct {
	SecretKey string `mapstructure:"secret_key" json:"-"`
}

type Tax struct {
	LocalFallback bool `mapstructure:"local_fallback" json:"local_fallback"`
}

type Config struct {
	Application `mapstructure:"application" json:"application"`
	Api         `mapstructure:"api"         json:"api"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Otel        `mapstructure:"otel"        json:"otel"`
	Tax         `mapstructure:"tax"         json:"tax"`
	Auth        `mapstructure:"auth"        json:"-"`
}

var (
	once   sync.Once
	config *Config
)

// InitConfig loads the process-wide config once and terminates the process
// when it cannot be read.
func InitConfig(c context.Context, filename string) *Config {
	once.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(log.KeyTag, "main InitConfig").
			Str(log.KeyProcess, "init config").
			Str("filename", filename).
			Logger()

		cfg, err := Load(logger.WithContext(c), filename, "./env")
		if err != nil {
			logger.Fatal().Err(err).Msg(err.Error())
		}
		config = cfg
	})
	return config
}

// Load reads env/<filename>.yaml when present and applies environment
// overrides. A missing file is not an error.
func Load(c context.Context, filename string, paths ...string) (*Config, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "config Load").
		Str("filename", filename).
		Logger()

	v := viper.New()
	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("application.env", "production")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.log_file", "")
	v.SetDefault("api.base_url", DefaultApiBaseURL)
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.database", 0)
	v.SetDefault("cache.password", "")
	v.SetDefault("otel.host", "otel-collector")
	v.SetDefault("otel.port", 4317)
	v.SetDefault("otel.enabled", false)
	v.SetDefault("tax.local_fallback", true)
	v.SetDefault("auth.secret_key", "")
	if err := v.BindEnv("api.base_url", EnvApiBaseURL); err != nil {
		err = fmt.Errorf("failed binding %s with error=%w", EnvApiBaseURL, err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	logger = logger.With().Str(log.KeyProcess, "reading config").Logger()
	logger.Info().Msg("reading config")
	if err := v.ReadInConfig(); err != nil {
		notFound := viper.ConfigFileNotFoundError{}
		if !errors.As(err, &notFound) {
			err = fmt.Errorf("failed reading config with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return nil, err
		}
		logger.Info().Msg("config file not found, using defaults and environment")
	} else {
		logger.Info().Msg("read config")
	}

	logger = logger.With().Str(log.KeyProcess, "unmarshaling config").Logger()
	logger.Info().Msg("unmarshaling config")
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		err = fmt.Errorf("failed unmarshaling config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	cfg.Api.BaseURL = strings.TrimRight(cfg.Api.BaseURL, "/")
	logger.Info().Any(log.KeyConfig, cfg).Msg("unmarshaled config")

	return &cfg, nil
}
