// Package config assembles the application configuration from the
// environment. A .env file, when present, is loaded first; real environment
// variables always win.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/linkmint/linkmint/internal/admin"
	"github.com/linkmint/linkmint/internal/content"
	"github.com/linkmint/linkmint/pkg/db"
	"github.com/linkmint/linkmint/pkg/logger"
	"github.com/linkmint/linkmint/pkg/mailer"
	"github.com/linkmint/linkmint/pkg/mailer/resend"
	"github.com/linkmint/linkmint/pkg/redis"
)

// Config is the full application configuration.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	// PlacementTerm is how long a published placement stays live.
	PlacementTerm time.Duration `env:"PLACEMENT_TERM" envDefault:"8760h"`

	Sentry    logger.SentryConfig
	DB        db.Config
	Redis     redis.Config
	Mailer    mailer.Config
	Resend    resend.Config
	Generator content.GeneratorConfig
	Publisher content.PublisherConfig
	Admin     admin.Config
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}
