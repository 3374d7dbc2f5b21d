package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var RateLimitErr error = errors.New("EDGAR_RATE_LIMIT must be between 1 and 10 requests per second")

// Config holds every runtime setting, loaded from the environment with an
// optional .env file on top
type Config struct {
	UserAgent      string `env:"EDGAR_USER_AGENT" envDefault:"prospectus-pipeline/1.0 (admin@fundprospect.io)"`
	RequestsPerSec int    `env:"EDGAR_RATE_LIMIT" envDefault:"8"`
	DataDir        string `env:"DATA_DIR" envDefault:"fund_data"`
	DbHost         string `env:"DATABASE_HOST"`
	DbPort         string `env:"DATABASE_PORT" envDefault:"5432"`
	DbName         string `env:"DATABASE_NAME" envDefault:"prospectus"`
	DbUser         string `env:"DATABASE_USER" envDefault:"postgres"`
	DbPass         string `env:"DATABASE_PASSWORD"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	Verbose        bool   `env:"VERBOSE" envDefault:"false"`
}

func Load() (*Config, error) {

	// a missing .env file is fine, the environment still applies
	godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// fair access rules cap automated EDGAR traffic at 10 requests per second
	if cfg.RequestsPerSec < 1 || cfg.RequestsPerSec > 10 {
		return nil, RateLimitErr
	}

	return cfg, nil
}
