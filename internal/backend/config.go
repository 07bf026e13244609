package backend

import (
	"errors"
	"fmt"

	"foro/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	t := Type(appConfig.Backend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.Backend)
	}

	return Config{
		Type:         t,
		SQLitePath:   appConfig.SQLitePath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		PostgresURL:  appConfig.PostgresURL,
		SeedFile:     appConfig.SeedFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
		if c.AMQPURL != "" && c.AMQPExchange == "" {
			return errors.New("AMQP exchange is required when an AMQP URL is set")
		}
	case Postgres:
		if c.PostgresURL == "" {
			return errors.New("Postgres URL is required for postgres backend")
		}
	case Memory:
		// Seed file is optional; a missing file starts empty.
	}
	return nil
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{Memory, SQLite, Postgres}
}
