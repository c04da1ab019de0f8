package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration for the session service.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quizlive"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres  Postgres
	Redis     Redis
	Security  Security
	Persister Persister
	Standings Standings
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds standings cache configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for token verification.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
}

// Persister governs the write-behind queue that flushes session state
// to the database.
type Persister struct {
	QueueSize  int           `env:"PERSISTER_QUEUE_SIZE" envDefault:"1024"`
	MaxRetries int           `env:"PERSISTER_MAX_RETRIES" envDefault:"5"`
	BaseDelay  time.Duration `env:"PERSISTER_BASE_DELAY" envDefault:"200ms"`
	OpTimeout  time.Duration `env:"PERSISTER_OP_TIMEOUT" envDefault:"10s"`
}

// Standings governs the Redis-backed quiz standings archive.
type Standings struct {
	TopN int `env:"STANDINGS_TOP" envDefault:"50"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
