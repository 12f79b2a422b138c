package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	OAuthConfig
	CatalogConfig
	SeedConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetDatabaseURL() string
	GetLogLevel() string
	GetEnv() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	OAuth
	Catalog
	Seed
}

// New loads the configuration from the process environment. A .env file in the
// working directory is read first when present.
func New() (Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

// FromMap loads the configuration from the supplied variables only.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var c mainConfig
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, fmt.Errorf("[config New] failed to parse environment: %w", err)
	}
	if err := c.Session.validate(c.EnvVars.IsDev()); err != nil {
		return nil, err
	}
	return c, nil
}
