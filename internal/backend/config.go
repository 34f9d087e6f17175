package backend

import (
	"errors"
	"fmt"

	"kasa/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	c := Config{
		Source: SourceType(appConfig.SourceBackend),
		Store:  StoreType(appConfig.StoreBackend),

		APIBaseURL:    appConfig.APIBaseURL,
		APITimeout:    appConfig.APITimeout,
		DataDirectory: appConfig.SeedDir,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	return c, c.Validate()
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	var errs []error
	if !c.Source.IsValid() {
		errs = append(errs, fmt.Errorf("invalid source type: %q", c.Source))
	}
	if !c.Store.IsValid() {
		errs = append(errs, fmt.Errorf("invalid store type: %q", c.Store))
	}
	if c.Source == RESTSource && c.APIBaseURL == "" {
		errs = append(errs, errors.New("API base URL is required for the rest source"))
	}
	if c.Store == SQLiteStore && c.SQLiteDBPath == "" {
		errs = append(errs, errors.New("SQLite database path is required for the sqlite store"))
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		errs = append(errs, errors.New("AMQP exchange is required when an AMQP URL is set"))
	}
	return errors.Join(errs...)
}

// GetSourceTypes returns all valid source types.
func GetSourceTypes() []SourceType {
	return []SourceType{MemorySource, RESTSource}
}

// GetStoreTypes returns all valid store types.
func GetStoreTypes() []StoreType {
	return []StoreType{MemoryStore, SQLiteStore}
}
