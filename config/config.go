package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config carries every process-level setting. Values come from the
// environment (a .env file is honored when present); -listen and -loglevel
// can still be overridden on the command line.
type Config struct {
	ListenAddr  string   `envconfig:"LISTEN_ADDR" default:":3000"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigins []string `envconfig:"CORS_ORIGIN" default:"http://localhost:5173"`
	NameAPIURL  string   `envconfig:"NAME_API_URL" default:"https://random-words-api.kushcreates.com/api?language=en&length=7&type=lowercase&words=1"`
	LinkBaseURL string   `envconfig:"LINK_BASE_URL" default:"https://vdo.ninja/"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
