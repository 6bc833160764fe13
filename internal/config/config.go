package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is populated from the environment. A .env file in the working
// directory is loaded first when present.
type Config struct {
	Addr             string `env:"APP_ADDR" envDefault:":8080"`
	DatabaseURL      string `env:"DATABASE_URL"`
	OperatorPassword string `env:"OPERATOR_PASSWORD" envDefault:"admin123"`
	JWTSecret        string `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	ItemsDir         string `env:"ITEMS_DIR" envDefault:"./static/items"`
	PublicURL        string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	Debug            bool   `env:"APP_DEBUG" envDefault:"false"`
}

func Load() (Config, error) {
	// Missing .env is fine; env vars may be set directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
