package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Backend and token store names accepted by Validate.
const (
	BackendAdSense = "adsense"
	BackendMemory  = "memory"

	TokenStoreFile           = "file"
	TokenStoreSecretsManager = "secretsmanager"

	// MaxFetchConcurrency is the number of report fetches in one run.
	MaxFetchConcurrency = 9
)

type Config struct {
	// HTTP Server
	Port string
	// CORSAllowedOrigins enables cross-origin access to /api (empty disables).
	CORSAllowedOrigins []string

	// Logging
	LogLevel  string
	LogFormat string

	// Reporting backend
	DataBackend     string
	AdSenseEndpoint string
	MemorySeedDir   string

	// Aggregation
	FetchConcurrency int
	RunTimeout       time.Duration

	// Google OAuth
	GoogleOAuthClientFile string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenFile  string
	OAuthRedirectPort     string
	// CredentialCacheTTL keeps access tokens in memory between runs (0 disables).
	CredentialCacheTTL time.Duration
	// StaticAccessToken bypasses OAuth entirely when set.
	StaticAccessToken string

	// Token storage
	TokenStore      string
	TokenSecretName string
	AWSRegion       string

	// AMQP
	AMQPURL               string
	AMQPExchange          string
	AMQPQueue             string
	AMQPSummaryRoutingKey string

	// Scheduler
	RefreshSchedule string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:     getEnv("DATA_BACKEND", BackendAdSense),
		AdSenseEndpoint: getEnv("ADSENSE_ENDPOINT", ""),
		MemorySeedDir:   getEnv("MEMORY_SEED_DIR", "./data"),

		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 3),
		RunTimeout:       getEnvDuration("RUN_TIMEOUT", 60*time.Second),

		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", "token.json"),
		OAuthRedirectPort:     getEnv("OAUTH_REDIRECT_PORT", "8085"),
		CredentialCacheTTL:    getEnvDuration("CREDENTIAL_CACHE_TTL", 5*time.Minute),
		StaticAccessToken:     getEnv("ADSENSE_ACCESS_TOKEN", ""),

		TokenStore:      getEnv("TOKEN_STORE", TokenStoreFile),
		TokenSecretName: getEnv("TOKEN_SECRET_NAME", "adstats-oauth-token"),
		AWSRegion:       getEnv("AWS_REGION", ""),

		AMQPURL:               getEnv("AMQP_URL", ""),
		AMQPExchange:          getEnv("AMQP_EXCHANGE", "adstats"),
		AMQPQueue:             getEnv("AMQP_QUEUE", "refresh_requests"),
		AMQPSummaryRoutingKey: getEnv("AMQP_SUMMARY_ROUTING_KEY", "earnings_summary"),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "*/30 * * * *"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for _, origin := range c.CORSAllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid CORS origin '%s': must be '*' or scheme://host", origin))
		}
	}

	switch c.DataBackend {
	case BackendAdSense:
		errors = append(errors, c.validateCredentials()...)
		if c.AdSenseEndpoint != "" {
			if u, err := url.Parse(c.AdSenseEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
				errors = append(errors, fmt.Sprintf("invalid AdSense endpoint '%s': must be an absolute URL", c.AdSenseEndpoint))
			}
		}
	case BackendMemory:
		if strings.TrimSpace(c.MemorySeedDir) == "" {
			errors = append(errors, "memory seed directory cannot be empty when using memory backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendAdSense, BackendMemory))
	}

	if c.FetchConcurrency < 1 || c.FetchConcurrency > MaxFetchConcurrency {
		errors = append(errors, fmt.Sprintf("invalid fetch concurrency %d: must be between 1 and %d", c.FetchConcurrency, MaxFetchConcurrency))
	}

	if c.RunTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid run timeout %v: must be at least 1 second", c.RunTimeout))
	} else if c.RunTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid run timeout %v: must be at most 10 minutes", c.RunTimeout))
	}

	if c.CredentialCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid credential cache TTL %v: cannot be negative", c.CredentialCacheTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPSummaryRoutingKey == "" {
			errors = append(errors, "AMQP summary routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid refresh schedule '%s': %v", c.RefreshSchedule, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// validateCredentials checks the token provider settings of the adsense backend.
func (c *Config) validateCredentials() []string {
	var errors []string

	// A static token needs nothing else.
	if c.StaticAccessToken != "" {
		return nil
	}

	hasClientFile := c.GoogleOAuthClientFile != ""
	hasClientJSON := c.GoogleOAuthClientJSON != ""
	if !hasClientFile && !hasClientJSON {
		errors = append(errors, "either GOOGLE_OAUTH_CLIENT_FILE, GOOGLE_OAUTH_CLIENT_JSON or ADSENSE_ACCESS_TOKEN must be provided for adsense backend")
	}
	if hasClientFile {
		if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
		}
	}

	switch c.TokenStore {
	case TokenStoreFile:
		if c.GoogleOAuthTokenFile == "" {
			errors = append(errors, "GOOGLE_OAUTH_TOKEN_FILE cannot be empty when using file token store")
		}
	case TokenStoreSecretsManager:
		if c.TokenSecretName == "" {
			errors = append(errors, "TOKEN_SECRET_NAME cannot be empty when using secretsmanager token store")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid token store '%s': must be one of [%s %s]", c.TokenStore, TokenStoreFile, TokenStoreSecretsManager))
	}

	return errors
}

// OAuthClientJSON returns the OAuth client configuration, inline JSON first.
func (c *Config) OAuthClientJSON() ([]byte, error) {
	switch {
	case c.GoogleOAuthClientJSON != "":
		return []byte(c.GoogleOAuthClientJSON), nil
	case c.GoogleOAuthClientFile != "":
		b, err := os.ReadFile(c.GoogleOAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
