package config

import (
	"errors"
	"fmt"

	configs "github.com/avvvet/tourney-services/configs"
)

type Config struct {
	Port           string `mapstructure:"SOCKET_SERVICE_PORT"`
	NatsURL        string `mapstructure:"NATS_URL"`
	NatsToken      string `mapstructure:"NATS_TOKEN"`
	JWTSecret      string `mapstructure:"JWT_SECRET_KEY"`
	RateLimit      int    `mapstructure:"RATE_LIMIT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	LogDir         string `mapstructure:"LOG_DIR"`
	LogFormat      string `mapstructure:"LOG_FORMAT"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
}

func Load() (Config, error) {
	v := configs.NewViper(map[string]interface{}{
		"SOCKET_SERVICE_PORT": "8081",
		"NATS_URL":            "",
		"NATS_TOKEN":          "",
		"JWT_SECRET_KEY":      "",
		"RATE_LIMIT":          100,
		"ALLOWED_ORIGINS":     "http://localhost:5173",
		"LOG_DIR":             ".l_g",
		"LOG_FORMAT":          "text",
		"LOG_LEVEL":           "info",
	})

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET_KEY is required")
	}
	if cfg.RateLimit <= 0 {
		return cfg, fmt.Errorf("RATE_LIMIT must be positive, got %d", cfg.RateLimit)
	}
	return cfg, nil
}

func (c Config) Origins() []string {
	return configs.SplitList(c.AllowedOrigins)
}
