package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/halx/internal/server"
	"github.com/desertthunder/halx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin runs the authorization code flow with PKCE against the configured provider.
//
// A local callback server is started on the redirect URI's host; the session is
// persisted by the OIDC service when the code is exchanged.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}
	if r.config.Credentials.OIDC.ClientID == "" {
		return fmt.Errorf("%w: credentials.oidc.client_id is not set", shared.ErrMissingCredentials)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	authURL, err := r.oidc.GetAuthURL(ctx, state, verifier)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	addr, path := callbackAddr(r.config)
	handler := server.NewOAuthHandler(r.oidc, state, verifier, path)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	timeout := cmd.Duration("timeout")
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ready := make(chan string, 1)
	served := make(chan error, 1)
	go func() {
		served <- server.Serve(ctx, addr, router, ready)
	}()

	select {
	case bound := <-ready:
		r.logger.Debug("callback server listening", "addr", bound, "path", path)
	case err := <-served:
		return fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to sign in:\n%s\n", authURL)
	} else if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL to sign in:\n%s\n", authURL)
	} else {
		r.writePlain("Waiting for sign in to complete in the browser...\n")
	}

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case <-ctx.Done():
		return fmt.Errorf("%w: no callback within %s", shared.ErrTimeout, timeout)
	}

	cancel()
	if err := <-served; err != nil {
		r.logger.Debug("callback server shutdown", "error", err)
	}

	if err := result.Error(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.logger.Info("authentication successful", "subject", result.Session.Subject)

	name := result.Session.Subject
	if claims, err := r.oidc.Claims(ctx); err == nil {
		name = claims.DisplayName()
	}
	return r.writePlain("✓ Signed in as %s\n", name)
}

// AuthStatus reports which credentials requests are sent with.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.writePlain("API: %s\n", r.api.BaseURL())

	if r.config.Credentials.Token != "" {
		return r.writePlain("Authentication: static bearer token\n")
	}
	if r.tokens == nil {
		return r.writePlain("Authentication: ✗ Not configured\n")
	}

	if !r.oidc.IsAuthenticated(ctx) {
		return r.writePlain("Authentication: ✗ Not authenticated (run 'halx auth login')\n")
	}

	r.writePlain("Authentication: ✓ Authenticated\n")

	claims, err := r.oidc.Claims(ctx)
	if err != nil {
		r.logger.Warn("failed to read ID token claims", "error", err)
		return nil
	}

	r.writePlain("Member: %s\n", claims.DisplayName())
	if claims.Email != "" {
		r.writePlain("Email: %s\n", claims.Email)
	}
	if !claims.ExpiresAt.IsZero() {
		r.writePlain("Expires: %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// AuthLogout clears the stored session and prints the provider's end session URL.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	endSession, err := r.oidc.Logout(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("session cleared")
	r.writePlain("✓ Signed out\n")
	if endSession != "" {
		r.writePlain("End the provider session at: %s\n", endSession)
	}
	return nil
}

// AuthToken prints a usable access token for scripting.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	if r.tokens == nil {
		return shared.ErrNotAuthenticated
	}

	token, err := r.tokens.AccessToken(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			return fmt.Errorf("%w: run 'halx auth login'", err)
		}
		return err
	}
	if token == "" {
		return shared.ErrNotAuthenticated
	}
	return r.writePlain("%s\n", token)
}

// callbackAddr returns the listen address and path of the OAuth redirect URI,
// falling back to the [server] section and /callback.
func callbackAddr(config *shared.Config) (string, string) {
	u, err := url.Parse(config.Credentials.OIDC.RedirectURI)
	if err != nil || u.Host == "" {
		return config.Server.Addr(), "/callback"
	}

	path := u.Path
	if path == "" {
		path = "/callback"
	}
	return u.Host, path
}
