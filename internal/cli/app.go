package cli

import (
	"context"
	"errors"
	"fmt"

	"adstats/internal/auth"
	"adstats/internal/backend"
	"adstats/internal/config"
	applog "adstats/internal/log"
	"adstats/internal/services"
)

// memoryCredential is handed to the memory backend when no identity
// provider is configured; the backend only checks that one is present.
const memoryCredential = "local-memory-backend"

// Identity is the configured token provider with its readiness check.
type Identity interface {
	auth.TokenProvider
	auth.Checker
}

// App holds the wired aggregation pipeline shared by every binary.
type App struct {
	Config     *config.Config
	Identity   Identity
	Backend    backend.Backend
	Aggregator *services.Aggregator
	Runner     *services.Runner

	cleanup backend.CleanupFunc
}

// Close releases backend resources.
func (a *App) Close() error {
	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}

// NewTokenStore opens the configured token store.
func NewTokenStore(ctx context.Context, cfg *config.Config) (auth.TokenStore, error) {
	switch cfg.TokenStore {
	case config.TokenStoreSecretsManager:
		store, err := auth.NewSecretsManagerStore(ctx, cfg.AWSRegion, cfg.TokenSecretName)
		if err != nil {
			return nil, fmt.Errorf("open secrets manager token store: %w", err)
		}
		return store, nil
	case config.TokenStoreFile, "":
		return auth.NewFileStore(cfg.GoogleOAuthTokenFile), nil
	default:
		return nil, fmt.Errorf("unsupported token store: %s", cfg.TokenStore)
	}
}

// NewOAuthProvider builds the OAuth identity from the configured client
// and token store.
func NewOAuthProvider(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*auth.OAuthProvider, error) {
	clientJSON, err := cfg.OAuthClientJSON()
	if err != nil {
		return nil, err
	}
	oauthCfg, err := auth.NewOAuthConfig(clientJSON)
	if err != nil {
		return nil, err
	}
	store, err := NewTokenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return auth.NewOAuthProvider(oauthCfg, store, logger).WithCredentialCache(cfg.CredentialCacheTTL), nil
}

// NewIdentity picks the token provider: a static token when configured,
// OAuth when a client is configured, or a placeholder for the memory backend.
func NewIdentity(ctx context.Context, cfg *config.Config, logger *applog.Logger) (Identity, error) {
	if cfg.StaticAccessToken != "" {
		return auth.NewStaticProvider(cfg.StaticAccessToken), nil
	}
	hasClient := cfg.GoogleOAuthClientJSON != "" || cfg.GoogleOAuthClientFile != ""
	if !hasClient {
		if cfg.DataBackend == config.BackendMemory {
			return auth.NewStaticProvider(memoryCredential), nil
		}
		return nil, errors.New("no identity provider configured")
	}
	return NewOAuthProvider(ctx, cfg, logger)
}

// NewApp wires identity, backend, aggregator and runner. publisher may be nil.
func NewApp(ctx context.Context, cfg *config.Config, publisher services.SummaryPublisher, logger *applog.Logger) (*App, error) {
	identity, err := NewIdentity(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init identity: %w", err)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}

	aggCfg := services.DefaultAggregatorConfig()
	if cfg.FetchConcurrency > 0 {
		aggCfg.Concurrency = cfg.FetchConcurrency
	}
	agg := services.NewAggregator(identity, result.Backend, aggCfg, logger)

	runCfg := services.DefaultRunnerConfig()
	runCfg.RunTimeout = cfg.RunTimeout

	runner := services.NewRunner(agg, identity, publisher, runCfg, logger)

	return &App{
		Config:     cfg,
		Identity:   identity,
		Backend:    result.Backend,
		Aggregator: agg,
		Runner:     runner,
		cleanup:    result.Cleanup,
	}, nil
}
