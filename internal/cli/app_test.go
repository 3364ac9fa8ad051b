package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"adstats/internal/auth"
	"adstats/internal/config"
	"adstats/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(dir string) *config.Config {
	return &config.Config{
		DataBackend:      config.BackendMemory,
		MemorySeedDir:    dir,
		FetchConcurrency: 2,
		RunTimeout:       5 * time.Second,
		TokenStore:       config.TokenStoreFile,
	}
}

func TestNewIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("static token wins", func(t *testing.T) {
		cfg := memoryConfig(t.TempDir())
		cfg.StaticAccessToken = "ya29.static"
		id, err := NewIdentity(ctx, cfg, nil)
		require.NoError(t, err)
		tok, err := id.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Credential("ya29.static"), tok)
	})

	t.Run("memory backend without provider", func(t *testing.T) {
		id, err := NewIdentity(ctx, memoryConfig(t.TempDir()), nil)
		require.NoError(t, err)
		assert.NoError(t, id.Check(ctx))
	})

	t.Run("adsense backend without provider", func(t *testing.T) {
		cfg := memoryConfig(t.TempDir())
		cfg.DataBackend = config.BackendAdSense
		_, err := NewIdentity(ctx, cfg, nil)
		assert.Error(t, err)
	})

	t.Run("oauth client with file store", func(t *testing.T) {
		dir := t.TempDir()
		cfg := memoryConfig(dir)
		cfg.DataBackend = config.BackendAdSense
		cfg.GoogleOAuthClientJSON = `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
		cfg.GoogleOAuthTokenFile = filepath.Join(dir, "token.json")

		id, err := NewIdentity(ctx, cfg, nil)
		require.NoError(t, err)
		oauthProvider, ok := id.(*auth.OAuthProvider)
		require.True(t, ok)
		assert.IsType(t, &auth.FileStore{}, oauthProvider.Store())

		// Nobody signed in yet.
		_, err = id.Token(ctx)
		var authErr *core.AuthError
		assert.ErrorAs(t, err, &authErr)
	})
}

func TestNewTokenStore_Unsupported(t *testing.T) {
	cfg := memoryConfig(t.TempDir())
	cfg.TokenStore = "vault"
	_, err := NewTokenStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewApp_MemoryBackend(t *testing.T) {
	dir := t.TempDir()
	today := core.DateOf(time.Now())
	seed := today.String() + " 12.50 EUR\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_earnings.txt"), []byte(seed), 0o644))

	app, err := NewApp(context.Background(), memoryConfig(dir), nil, nil)
	require.NoError(t, err)
	defer app.Close()

	res, err := app.Runner.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, core.StatusReady, res.Status, "message: %s", res.Message)
	assert.Equal(t, "EUR", res.Summary.CurrencyCode)
	assert.True(t, res.Summary.EarningsThisMonth.Equal(decimal.RequireFromString("12.5")))
	require.Len(t, res.Summary.EarningsLast7Days, core.TrailingDays)
	assert.True(t, res.Summary.EarningsLast7Days[core.TrailingDays-1].Earnings.Equal(decimal.RequireFromString("12.5")))

	app.Runner.SignOut(context.Background())
	assert.Equal(t, core.StatusIdle, app.Runner.Result().Status)
}

func TestNewApp_InvalidSeed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_earnings.txt"), []byte("yesterday lots\n"), 0o644))

	_, err := NewApp(context.Background(), memoryConfig(dir), nil, nil)
	assert.ErrorContains(t, err, "init backend")
}
