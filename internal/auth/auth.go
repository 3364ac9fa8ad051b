// Package auth obtains bearer credentials for the reporting API: OAuth
// tokens from a persistent store, refreshed on demand, or a fixed token.
package auth

import (
	"context"
	"errors"
	"strings"

	"adstats/internal/core"
)

// ErrNoToken means no user has signed in yet.
var ErrNoToken = errors.New("not signed in")

// TokenProvider yields a credential for the current user.
// Token fails with *core.AuthError when there is no valid session.
type TokenProvider interface {
	Token(ctx context.Context) (core.Credential, error)
	SignOut(ctx context.Context) error
}

// Checker verifies that the identity provider is usable at all.
type Checker interface {
	Check(ctx context.Context) error
}

// StaticProvider hands out a fixed bearer token.
type StaticProvider struct {
	token string
}

var (
	_ TokenProvider = (*StaticProvider)(nil)
	_ Checker       = (*StaticProvider)(nil)
)

func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: strings.TrimSpace(token)}
}

func (p *StaticProvider) Token(_ context.Context) (core.Credential, error) {
	if p.token == "" {
		return "", &core.AuthError{Err: ErrNoToken}
	}
	return core.Credential(p.token), nil
}

// SignOut is a no-op: the token is configuration, not session state.
func (p *StaticProvider) SignOut(_ context.Context) error {
	return nil
}

func (p *StaticProvider) Check(_ context.Context) error {
	if p.token == "" {
		return ErrNoToken
	}
	return nil
}
