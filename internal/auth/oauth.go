package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adstats/internal/cache"
	"adstats/internal/core"
	applog "adstats/internal/log"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	adsenseapi "google.golang.org/api/adsense/v2"
)

// NewOAuthConfig parses a Google OAuth client (installed or web) and
// requests read-only reporting access.
func NewOAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := google.ConfigFromJSON(clientJSON, adsenseapi.AdsenseReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// OAuthProvider serves access tokens from the stored user token and
// refreshes them when expired. Refreshed tokens are written back.
type OAuthProvider struct {
	config *oauth2.Config
	store  TokenStore
	logger *applog.Logger
	// creds short-circuits the store between runs when set.
	creds *cache.LRUCache[core.Credential]
}

const (
	credentialKey = "access_token"
	// expirySkew keeps a cached credential from outliving the token.
	expirySkew = time.Minute
)

var (
	_ TokenProvider = (*OAuthProvider)(nil)
	_ Checker       = (*OAuthProvider)(nil)
)

func NewOAuthProvider(config *oauth2.Config, store TokenStore, logger *applog.Logger) *OAuthProvider {
	if logger == nil {
		logger = applog.Discard()
	}
	return &OAuthProvider{
		config: config,
		store:  store,
		logger: logger.WithComponent(applog.ComponentAuth),
	}
}

// WithCredentialCache keeps the access token in memory for up to ttl, and
// never past its expiry, so consecutive runs skip the token store.
func (p *OAuthProvider) WithCredentialCache(ttl time.Duration) *OAuthProvider {
	if ttl > 0 {
		p.creds = cache.NewLRUCache[core.Credential](1, ttl)
	}
	return p
}

// Token returns a valid access token. Every failure is an *core.AuthError.
func (p *OAuthProvider) Token(ctx context.Context) (core.Credential, error) {
	if p.creds != nil {
		if cred, ok := p.creds.Get(credentialKey); ok {
			return cred, nil
		}
	}

	stored, err := p.store.Load(ctx)
	if err != nil {
		return "", &core.AuthError{Err: err}
	}

	tok, err := p.config.TokenSource(ctx, stored).Token()
	if err != nil {
		return "", &core.AuthError{Err: fmt.Errorf("refresh token: %w", err)}
	}
	if tok.AccessToken == "" {
		return "", &core.AuthError{Err: errors.New("identity provider returned an empty access token")}
	}

	if tok.AccessToken != stored.AccessToken {
		// The access token still works for this run even if persisting fails.
		if err := p.store.Save(ctx, tok); err != nil {
			p.logger.WarnContext(ctx, "Failed to persist refreshed token",
				applog.FieldOperation, applog.OpToken,
				applog.FieldError, err.Error())
		} else {
			p.logger.DebugContext(ctx, "Refreshed access token",
				applog.FieldOperation, applog.OpToken,
				"expiry", tok.Expiry)
		}
	}

	cred := core.Credential(tok.AccessToken)
	if p.creds != nil {
		var until time.Time
		if !tok.Expiry.IsZero() {
			until = tok.Expiry.Add(-expirySkew)
		}
		p.creds.SetUntil(credentialKey, cred, until)
	}
	return cred, nil
}

// SignOut forgets the stored token. Signing out twice is not an error.
func (p *OAuthProvider) SignOut(ctx context.Context) error {
	if p.creds != nil {
		p.creds.Delete(credentialKey)
	}
	if err := p.store.Delete(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	p.logger.InfoContext(ctx, "Signed out", applog.FieldOperation, applog.OpSignOut)
	return nil
}

// Check verifies an OAuth client is configured and the token store answers.
// A store without a token is fine: the user can still sign in.
func (p *OAuthProvider) Check(ctx context.Context) error {
	if p.config == nil || p.config.ClientID == "" {
		return errors.New("oauth client is not configured")
	}
	if _, err := p.store.Load(ctx); err != nil && !errors.Is(err, ErrNoToken) {
		return fmt.Errorf("token store unavailable: %w", err)
	}
	return nil
}

// Config exposes the OAuth client used for interactive sign-in.
func (p *OAuthProvider) Config() *oauth2.Config { return p.config }

// Store exposes the token store sign-in saves into.
func (p *OAuthProvider) Store() TokenStore { return p.store }
