// OpenID Connect login with authorization code + PKCE and silent refresh
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/halx/internal/models"
	"github.com/desertthunder/halx/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// DiscoveryDocument is the subset of the OpenID provider metadata halx uses.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// Claims are the ID token claims shown to the user.
type Claims struct {
	Subject           string
	Issuer            string
	PreferredUsername string
	Email             string
	Name              string
	ExpiresAt         time.Time
}

// DisplayName returns the friendliest available identifier.
func (c *Claims) DisplayName() string {
	for _, v := range []string{c.Name, c.PreferredUsername, c.Email, c.Subject} {
		if v != "" {
			return v
		}
	}
	return "unknown"
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	Name              string `json:"name"`
}

// OIDCService authenticates members against the club's OpenID provider.
//
// It implements [TokenSource]: the persisted session is read on every call, expired
// tokens are refreshed and stored again, and a logged out store yields no token.
type OIDCService struct {
	config     *oauth2.Config
	issuer     string
	endSession string
	httpClient *http.Client
	sessions   SessionStore
	logger     *log.Logger
	now        func() time.Time

	mu         sync.Mutex
	discovered bool
}

// NewOIDCService creates an OIDC service. Endpoints left empty in cfg are discovered
// from the issuer on first use.
func NewOIDCService(cfg shared.OIDCConfig, sessions SessionStore, client *http.Client, logger *log.Logger) *OIDCService {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}

	return &OIDCService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		issuer:     strings.TrimRight(cfg.Issuer, "/"),
		httpClient: client,
		sessions:   sessions,
		logger:     logger,
		now:        time.Now,
	}
}

// OAuthConfig returns the OAuth2 client configuration, discovering endpoints if needed.
func (s *OIDCService) OAuthConfig(ctx context.Context) (*oauth2.Config, error) {
	if err := s.Discover(ctx); err != nil {
		return nil, err
	}
	return s.config, nil
}

// Discover fills missing endpoints from <issuer>/.well-known/openid-configuration.
// It runs at most once successfully.
func (s *OIDCService) Discover(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.discovered || (s.config.Endpoint.AuthURL != "" && s.config.Endpoint.TokenURL != "") {
		s.discovered = true
		return nil
	}

	if s.issuer == "" {
		return fmt.Errorf("%w: no issuer or endpoints configured", shared.ErrMissingConfig)
	}

	doc, err := s.fetchDiscovery(ctx)
	if err != nil {
		return err
	}

	if s.config.Endpoint.AuthURL == "" {
		s.config.Endpoint.AuthURL = doc.AuthorizationEndpoint
	}
	if s.config.Endpoint.TokenURL == "" {
		s.config.Endpoint.TokenURL = doc.TokenEndpoint
	}
	s.endSession = doc.EndSessionEndpoint
	s.discovered = true

	s.logger.Debug("oidc discovery", "issuer", s.issuer, "auth", s.config.Endpoint.AuthURL, "token", s.config.Endpoint.TokenURL)
	return nil
}

func (s *OIDCService) fetchDiscovery(ctx context.Context) (*DiscoveryDocument, error) {
	wellKnown := s.issuer + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDiscoveryFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDiscoveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", shared.ErrDiscoveryFailed, wellKnown, resp.StatusCode)
	}

	var doc DiscoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode metadata: %v", shared.ErrDiscoveryFailed, err)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" {
		return nil, fmt.Errorf("%w: metadata lacks authorization or token endpoint", shared.ErrDiscoveryFailed)
	}

	return &doc, nil
}

// GetAuthURL returns the authorization URL for state with an S256 challenge for verifier.
func (s *OIDCService) GetAuthURL(ctx context.Context, state, verifier string) (string, error) {
	config, err := s.OAuthConfig(ctx)
	if err != nil {
		return "", err
	}
	return config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)), nil
}

// Exchange trades an authorization code for tokens and persists the new session.
func (s *OIDCService) Exchange(ctx context.Context, code, verifier string) (*models.Session, error) {
	config, err := s.OAuthConfig(ctx)
	if err != nil {
		return nil, err
	}

	token, err := config.Exchange(s.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	return s.store(nil, token)
}

// SaveToken persists a token obtained elsewhere, e.g. by the callback handler.
func (s *OIDCService) SaveToken(token *oauth2.Token) (*models.Session, error) {
	return s.store(nil, token)
}

// AccessToken returns a valid access token, refreshing and persisting it when expired.
//
// It returns "" without error when nobody is logged in.
func (s *OIDCService) AccessToken(ctx context.Context) (string, error) {
	session, err := s.current()
	if err != nil || session == nil {
		return "", err
	}

	if !session.Expired(s.now().Add(10 * time.Second)) {
		return session.AccessToken, nil
	}

	if session.RefreshToken == "" {
		return "", shared.ErrTokenExpired
	}

	config, err := s.OAuthConfig(ctx)
	if err != nil {
		return "", err
	}

	expired := &oauth2.Token{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    session.TokenType,
		Expiry:       session.ExpiresAt,
	}

	renewed, err := config.TokenSource(s.clientContext(ctx), expired).Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	if _, err := s.store(session, renewed); err != nil {
		return "", err
	}

	s.logger.Debug("refreshed access token", "subject", session.Subject)
	return renewed.AccessToken, nil
}

// IsAuthenticated reports whether a usable access token is available.
func (s *OIDCService) IsAuthenticated(ctx context.Context) bool {
	token, err := s.AccessToken(ctx)
	return err == nil && token != ""
}

// Claims returns the claims of the current session's ID token.
func (s *OIDCService) Claims(ctx context.Context) (*Claims, error) {
	session, err := s.current()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if session.IDToken == "" {
		return &Claims{Subject: session.Subject, ExpiresAt: session.ExpiresAt}, nil
	}
	return ParseIDToken(session.IDToken)
}

// Logout clears the persisted session and returns the provider's end session URL, if any.
func (s *OIDCService) Logout(ctx context.Context) (string, error) {
	if s.sessions == nil {
		return "", nil
	}
	if err := s.sessions.Clear(); err != nil {
		return "", fmt.Errorf("failed to clear session: %w", err)
	}

	// Discovery is best effort here; the local session is already gone.
	if err := s.Discover(ctx); err != nil {
		s.logger.Debug("skipping end session URL", "error", err)
	}
	return s.endSession, nil
}

// ParseIDToken decodes ID token claims without verifying the signature. The token
// came straight from the token endpoint over TLS and is only used for display.
func ParseIDToken(raw string) (*Claims, error) {
	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: invalid id token: %v", shared.ErrInvalidInput, err)
	}

	out := &Claims{
		Subject:           claims.Subject,
		Issuer:            claims.Issuer,
		PreferredUsername: claims.PreferredUsername,
		Email:             claims.Email,
		Name:              claims.Name,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (s *OIDCService) current() (*models.Session, error) {
	if s.sessions == nil {
		return nil, nil
	}
	session, err := s.sessions.Current()
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// store writes token into session, creating a new session when it is nil.
func (s *OIDCService) store(session *models.Session, token *oauth2.Token) (*models.Session, error) {
	idToken, _ := token.Extra("id_token").(string)

	if session == nil {
		session = models.NewSession(token.AccessToken, token.RefreshToken, token.TokenType, idToken, token.Expiry)
	} else {
		session.AccessToken = token.AccessToken
		session.TokenType = token.Type()
		session.ExpiresAt = token.Expiry
		if token.RefreshToken != "" {
			session.RefreshToken = token.RefreshToken
		}
		if idToken != "" {
			session.IDToken = idToken
		}
	}

	if session.IDToken != "" {
		if claims, err := ParseIDToken(session.IDToken); err == nil {
			session.Subject = claims.Subject
		} else {
			s.logger.Warn("unreadable id token", "error", err)
		}
	}

	if s.sessions == nil {
		return session, nil
	}
	if err := s.sessions.Save(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

func (s *OIDCService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}
