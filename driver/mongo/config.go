package mongo

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the MongoDB connection settings.
type Config struct {
	URI            string        `env:"SEANCE_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database       string        `env:"SEANCE_MONGO_DATABASE" envDefault:"seance"`
	ConnectTimeout time.Duration `env:"SEANCE_MONGO_CONNECT_TIMEOUT" envDefault:"10s"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}
