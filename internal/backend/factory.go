package backend

import (
	"context"
	"errors"
	"fmt"

	"kasa/internal/amqp"
	klog "kasa/internal/log"
	"kasa/internal/source"
	"kasa/internal/source/memory"
	"kasa/internal/source/rest"
	"kasa/internal/storage"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *klog.Logger

	// dialAMQP is replaced in tests.
	dialAMQP func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory.
func NewFactory(logger *klog.Logger) Factory {
	if logger == nil {
		logger = klog.For(klog.ComponentBackend)
	}
	return &DefaultFactory{
		logger:   logger,
		dialAMQP: amqp.NewClient,
	}
}

// CreateBackend opens the source, the store and, when configured, the AMQP
// publisher. A broker that cannot be reached is logged and skipped; the app
// runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	src, err := f.createSource(config)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	var publisher *amqp.Client
	if config.AMQPURL != "" && ctx.Err() == nil {
		publisher, err = f.dialAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without category events", klog.FieldError, err)
			publisher = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	cleanup := func() error {
		var errs []error
		if publisher != nil {
			errs = append(errs, publisher.Close())
		}
		if closeStore != nil {
			errs = append(errs, closeStore())
		}
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized backend",
		klog.FieldSource, config.Source.String(),
		"store", config.Store.String(),
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Source:    src,
		Store:     store,
		Publisher: publisher,
		Cleanup:   cleanup,
	}, nil
}

func (f *DefaultFactory) createSource(config Config) (source.Backend, error) {
	switch config.Source {
	case RESTSource:
		return rest.New(config.APIBaseURL, config.APITimeout, nil), nil
	case MemorySource:
		dir := config.DataDirectory
		if dir == "" {
			dir = "data"
		}
		s, err := memory.NewFromFiles(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory source: %w", err)
		}
		f.logger.Info("Initialized memory source", "data_directory", dir)
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", config.Source)
	}
}

func (f *DefaultFactory) createStore(config Config) (storage.Store, CleanupFunc, error) {
	switch config.Store {
	case SQLiteStore:
		s, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return s, s.Close, nil
	case MemoryStore:
		s := storage.NewMemoryStore()
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store type: %s", config.Store)
	}
}
