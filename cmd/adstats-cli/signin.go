package main

import (
	"fmt"
	"time"

	"adstats/internal/auth"
	"adstats/internal/cli"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var (
	noBrowser     bool
	signInTimeout time.Duration
)

// signinCmd represents the signin command
var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with Google and store the OAuth token",
	Long: `Run the OAuth authorization code flow in the browser. A local listener on
OAUTH_REDIRECT_PORT receives the redirect; the OAuth client must allow
http://localhost:<port>/callback. The token is saved to the configured
token store (a file or AWS Secrets Manager).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		provider, err := cli.NewOAuthProvider(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to configure OAuth: %w", err)
		}

		out := cmd.OutOrStdout()
		_, err = auth.SignIn(ctx, provider.Config(), provider.Store(), auth.SignInOptions{
			RedirectPort: cfg.OAuthRedirectPort,
			Timeout:      signInTimeout,
			Prompt: func(authURL string) {
				fmt.Fprintf(out, "Open this URL to authorize:\n%s\n", authURL)
				if noBrowser {
					return
				}
				if err := browser.OpenURL(authURL); err != nil {
					fmt.Fprintln(out, "Failed to open browser automatically. Please visit the URL manually.")
				}
			},
		})
		if err != nil {
			return fmt.Errorf("sign-in failed: %w", err)
		}

		fmt.Fprintln(out, "Signed in.")
		return nil
	},
}

// signoutCmd represents the signout command
var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Forget the stored OAuth token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		identity, err := cli.NewIdentity(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if err := identity.SignOut(ctx); err != nil {
			return fmt.Errorf("sign-out failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

func init() {
	signinCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the authorization URL without opening a browser")
	signinCmd.Flags().DurationVar(&signInTimeout, "timeout", auth.DefaultSignInTimeout, "How long to wait for the browser redirect")
	rootCmd.AddCommand(signinCmd, signoutCmd)
}
