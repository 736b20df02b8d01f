package postgres

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the PostgreSQL connection settings. DSN, when set, wins
// over the individual fields.
type Config struct {
	DSN      string `env:"SEANCE_POSTGRES_DSN"`
	Host     string `env:"SEANCE_POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"SEANCE_POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"SEANCE_POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"SEANCE_POSTGRES_PASSWORD"`
	Database string `env:"SEANCE_POSTGRES_DATABASE" envDefault:"postgres"`
	SSLMode  string `env:"SEANCE_POSTGRES_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"SEANCE_POSTGRES_MAX_CONNS" envDefault:"0"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}

// ConnString renders the pgx connection string.
func (c Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
