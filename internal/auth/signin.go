package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// DefaultSignInTimeout bounds how long SignIn waits for the browser redirect.
const DefaultSignInTimeout = 5 * time.Minute

type SignInOptions struct {
	// RedirectPort is the local port of the redirect listener. "0" picks a
	// free port; the OAuth client must allow http://localhost:<port>/callback.
	RedirectPort string
	Timeout      time.Duration
	// Prompt shows the authorization URL to the user.
	Prompt func(authURL string)
}

// SignIn runs the authorization code flow with a local redirect listener
// and saves the resulting token.
func SignIn(ctx context.Context, cfg *oauth2.Config, store TokenStore, opts SignInOptions) (*oauth2.Token, error) {
	if opts.RedirectPort == "" {
		opts.RedirectPort = "8085"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSignInTimeout
	}
	if opts.Prompt == nil {
		opts.Prompt = func(string) {}
	}

	ln, err := net.Listen("tcp", "localhost:"+opts.RedirectPort)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
	state := uuid.NewString()

	type result struct {
		code string
		err  error
	}
	resultCh := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
		case q.Get("state") != state:
			res.err = errors.New("authorization state mismatch")
			http.Error(w, "OAuth state mismatch", http.StatusBadRequest)
		default:
			res.code = q.Get("code")
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case resultCh <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	opts.Prompt(flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	var res result
	select {
	case res = <-resultCh:
	case <-timer.C:
		return nil, errors.New("authorization timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := flowCfg.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if err := store.Save(ctx, tok); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return tok, nil
}
