package backend

import (
	"context"
	"fmt"

	gadsense "adstats/internal/adsense/google"
	"adstats/internal/adsense/memory"
	applog "adstats/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentApp),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case AdSenseBackend:
		return f.createAdSenseBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createAdSenseBackend(config Config) (*BackendResult, error) {
	opts := []gadsense.Option{gadsense.WithLogger(f.logger)}
	if config.Endpoint != "" {
		opts = append(opts, gadsense.WithEndpoint(config.Endpoint))
	}
	if config.RequestTimeout > 0 {
		opts = append(opts, gadsense.WithTimeout(config.RequestTimeout))
	}

	f.logger.Info("Initialized AdSense backend", "endpoint", config.Endpoint)

	return &BackendResult{
		Backend: gadsense.New(opts...),
		Cleanup: nil, // Transport is reclaimed with the process
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Backend: store,
		Cleanup: nil, // No cleanup needed for memory backend
	}, nil
}
