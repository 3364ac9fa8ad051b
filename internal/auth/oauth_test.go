package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"adstats/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type memStore struct {
	tok     *oauth2.Token
	loads   int
	saves   int
	loadErr error
	saveErr error
}

func (s *memStore) Load(context.Context) (*oauth2.Token, error) {
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.tok == nil {
		return nil, ErrNoToken
	}
	cp := *s.tok
	return &cp, nil
}

func (s *memStore) Save(_ context.Context, tok *oauth2.Token) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	cp := *tok
	s.tok = &cp
	return nil
}

func (s *memStore) Delete(context.Context) error {
	s.tok = nil
	return nil
}

// newTokenServer fakes the OAuth token endpoint.
func newTokenServer(t *testing.T, status int) (*oauth2.Config, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)

	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, &calls
}

func TestOAuthProvider_Token(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token is used as is", func(t *testing.T) {
		cfg, calls := newTokenServer(t, http.StatusOK)
		store := &memStore{tok: &oauth2.Token{AccessToken: "current", Expiry: time.Now().Add(time.Hour)}}

		cred, err := NewOAuthProvider(cfg, store, nil).Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Credential("current"), cred)
		assert.Zero(t, atomic.LoadInt32(calls))
		assert.Zero(t, store.saves)
	})

	t.Run("expired token is refreshed and persisted", func(t *testing.T) {
		cfg, calls := newTokenServer(t, http.StatusOK)
		store := &memStore{tok: &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}}

		cred, err := NewOAuthProvider(cfg, store, nil).Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Credential("fresh"), cred)
		assert.Equal(t, int32(1), atomic.LoadInt32(calls))
		assert.Equal(t, 1, store.saves)
		assert.Equal(t, "fresh", store.tok.AccessToken)
	})

	t.Run("failed persist still yields the token", func(t *testing.T) {
		cfg, _ := newTokenServer(t, http.StatusOK)
		store := &memStore{
			tok:     &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)},
			saveErr: errors.New("disk full"),
		}

		cred, err := NewOAuthProvider(cfg, store, nil).Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Credential("fresh"), cred)
	})

	t.Run("not signed in", func(t *testing.T) {
		cfg, _ := newTokenServer(t, http.StatusOK)

		_, err := NewOAuthProvider(cfg, &memStore{}, nil).Token(ctx)
		var authErr *core.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("refresh rejected", func(t *testing.T) {
		cfg, _ := newTokenServer(t, http.StatusBadRequest)
		store := &memStore{tok: &oauth2.Token{AccessToken: "stale", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)}}

		_, err := NewOAuthProvider(cfg, store, nil).Token(ctx)
		var authErr *core.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, core.KindAuth, core.Classify(err).Kind)
	})
}

func TestOAuthProvider_CredentialCache(t *testing.T) {
	ctx := context.Background()

	t.Run("cached between runs until sign-out", func(t *testing.T) {
		cfg, _ := newTokenServer(t, http.StatusOK)
		store := &memStore{tok: &oauth2.Token{AccessToken: "current", Expiry: time.Now().Add(time.Hour)}}
		p := NewOAuthProvider(cfg, store, nil).WithCredentialCache(5 * time.Minute)

		for i := 0; i < 3; i++ {
			cred, err := p.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, core.Credential("current"), cred)
		}
		assert.Equal(t, 1, store.loads)

		require.NoError(t, p.SignOut(ctx))
		_, err := p.Token(ctx)
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("token close to expiry is not cached", func(t *testing.T) {
		cfg, _ := newTokenServer(t, http.StatusOK)
		store := &memStore{tok: &oauth2.Token{AccessToken: "current", Expiry: time.Now().Add(30 * time.Second)}}
		p := NewOAuthProvider(cfg, store, nil).WithCredentialCache(5 * time.Minute)

		_, err := p.Token(ctx)
		require.NoError(t, err)
		_, err = p.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, store.loads)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		cfg, _ := newTokenServer(t, http.StatusOK)
		store := &memStore{}
		p := NewOAuthProvider(cfg, store, nil).WithCredentialCache(5 * time.Minute)

		_, err := p.Token(ctx)
		require.Error(t, err)

		store.tok = &oauth2.Token{AccessToken: "later", Expiry: time.Now().Add(time.Hour)}
		cred, err := p.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Credential("later"), cred)
	})
}

func TestOAuthProvider_SignOutAndCheck(t *testing.T) {
	ctx := context.Background()
	cfg, _ := newTokenServer(t, http.StatusOK)
	store := &memStore{tok: &oauth2.Token{AccessToken: "current"}}
	p := NewOAuthProvider(cfg, store, nil)

	require.NoError(t, p.Check(ctx))
	require.NoError(t, p.SignOut(ctx))
	assert.Nil(t, store.tok)
	assert.NoError(t, p.Check(ctx), "a signed-out user can still sign in")

	store.loadErr = errors.New("connection refused")
	assert.Error(t, p.Check(ctx))

	assert.Error(t, NewOAuthProvider(&oauth2.Config{}, &memStore{}, nil).Check(ctx))
}

func TestNewOAuthConfig(t *testing.T) {
	cfg, err := NewOAuthConfig([]byte(`{"installed":{"client_id":"id","client_secret":"s","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`))
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/adsense.readonly"}, cfg.Scopes)

	_, err = NewOAuthConfig([]byte("invalid-json"))
	assert.ErrorContains(t, err, "oauth config")
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()

	cred, err := NewStaticProvider(" tok ").Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Credential("tok"), cred)
	assert.NoError(t, NewStaticProvider("tok").SignOut(ctx))

	_, err = NewStaticProvider("").Token(ctx)
	var authErr *core.AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Error(t, NewStaticProvider("").Check(ctx))
}
