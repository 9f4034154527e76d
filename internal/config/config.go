// Package config содержит логику чтения конфигурации магазина.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mmeshcher/schoolshop/internal/noest"
)

// Config содержит параметры конфигурации магазина.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	NoestBaseURL  string        `env:"NOEST_BASE_URL"`
	NoestAPIToken string        `env:"NOEST_API_TOKEN"`
	NoestUserGUID string        `env:"NOEST_USER_GUID"`
	NoestTimeout  time.Duration `env:"NOEST_TIMEOUT" envDefault:"0s"`

	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminSecret   string `env:"ADMIN_SECRET"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
}

// NoestCredentials возвращает учётные данные NOEST.
func (c *Config) NoestCredentials() noest.Credentials {
	return noest.Credentials{
		APIToken: c.NoestAPIToken,
		UserGUID: c.NoestUserGUID,
	}
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envNoestBaseURL := cfg.NoestBaseURL
	envRedisAddr := cfg.RedisAddr

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.NoestBaseURL, "n", noest.DefaultBaseURL, "NOEST API base URL")
	flag.StringVar(&cfg.RedisAddr, "r", "", "redis address for admin notifications")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envNoestBaseURL != "" {
		cfg.NoestBaseURL = envNoestBaseURL
	}
	if envRedisAddr != "" {
		cfg.RedisAddr = envRedisAddr
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.NoestBaseURL == "" {
		cfg.NoestBaseURL = noest.DefaultBaseURL
	}

	return cfg, nil
}
