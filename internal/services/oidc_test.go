package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/halx/internal/models"
	"github.com/desertthunder/halx/internal/shared"
	tu "github.com/desertthunder/halx/internal/testing"
)

type provider struct {
	*httptest.Server
	t       *testing.T
	idToken string

	mu         sync.Mutex
	grants     []string
	verifiers  []string
	discovered int
}

func newProvider(t *testing.T) *provider {
	t.Helper()
	p := &provider{t: t, idToken: tu.MustIDToken(t, "member-42", "Ada Lovelace", time.Now().Add(time.Hour))}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Close)
	return p
}

func (p *provider) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/.well-known/openid-configuration":
		p.mu.Lock()
		p.discovered++
		p.mu.Unlock()
		json.NewEncoder(w).Encode(DiscoveryDocument{
			Issuer:                p.URL,
			AuthorizationEndpoint: p.URL + "/authorize",
			TokenEndpoint:         p.URL + "/token",
			EndSessionEndpoint:    p.URL + "/logout",
		})
	case "/token":
		if err := r.ParseForm(); err != nil {
			p.t.Errorf("failed to parse token request: %v", err)
		}
		p.mu.Lock()
		p.grants = append(p.grants, r.PostForm.Get("grant_type"))
		p.verifiers = append(p.verifiers, r.PostForm.Get("code_verifier"))
		p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"id_token":      p.idToken,
			})
		case "refresh_token":
			if r.PostForm.Get("refresh_token") != "refresh-1" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "access-2",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	default:
		http.NotFound(w, r)
	}
}

func (p *provider) config() shared.OIDCConfig {
	return shared.OIDCConfig{
		Issuer:      p.URL,
		ClientID:    "halx",
		RedirectURI: "http://localhost:3000/callback",
	}
}

func TestOIDCService(t *testing.T) {
	ctx := context.Background()

	t.Run("Discover", func(t *testing.T) {
		p := newProvider(t)
		srv := NewOIDCService(p.config(), nil, p.Client(), nil)

		config, err := srv.OAuthConfig(ctx)
		if err != nil {
			t.Fatalf("OAuthConfig() error = %v", err)
		}
		if config.Endpoint.TokenURL != p.URL+"/token" {
			t.Errorf("TokenURL = %q", config.Endpoint.TokenURL)
		}
		if _, err := srv.OAuthConfig(ctx); err != nil {
			t.Fatalf("second OAuthConfig() error = %v", err)
		}
		if p.discovered != 1 {
			t.Errorf("expected discovery once, got %d", p.discovered)
		}
	})

	t.Run("Discover Skipped With Explicit Endpoints", func(t *testing.T) {
		srv := NewOIDCService(shared.OIDCConfig{AuthURL: "http://a.test/auth", TokenURL: "http://a.test/token"}, nil, nil, nil)
		if err := srv.Discover(ctx); err != nil {
			t.Errorf("Discover() error = %v", err)
		}
	})

	t.Run("Discover Without Issuer", func(t *testing.T) {
		srv := NewOIDCService(shared.OIDCConfig{ClientID: "halx"}, nil, nil, nil)
		if err := srv.Discover(ctx); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Discover Failure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		srv := NewOIDCService(shared.OIDCConfig{Issuer: server.URL}, nil, server.Client(), nil)
		if err := srv.Discover(ctx); !errors.Is(err, shared.ErrDiscoveryFailed) {
			t.Errorf("expected ErrDiscoveryFailed, got %v", err)
		}
	})

	t.Run("GetAuthURL", func(t *testing.T) {
		p := newProvider(t)
		srv := NewOIDCService(p.config(), nil, p.Client(), nil)

		raw, err := srv.GetAuthURL(ctx, "state-123", "verifier-abc")
		if err != nil {
			t.Fatalf("GetAuthURL() error = %v", err)
		}

		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("invalid auth URL %q: %v", raw, err)
		}
		q := u.Query()
		if !strings.HasPrefix(raw, p.URL+"/authorize") {
			t.Errorf("unexpected auth endpoint %q", raw)
		}
		if q.Get("state") != "state-123" || q.Get("client_id") != "halx" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
			t.Errorf("expected S256 PKCE challenge, got %v", q)
		}
		if q.Get("code_challenge") == "verifier-abc" {
			t.Error("challenge must not be the raw verifier")
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		p := newProvider(t)
		store := &tu.MemorySessionStore{}
		srv := NewOIDCService(p.config(), store, p.Client(), nil)

		session, err := srv.Exchange(ctx, "good-code", "verifier-abc")
		if err != nil {
			t.Fatalf("Exchange() error = %v", err)
		}
		if session.AccessToken != "access-1" || session.RefreshToken != "refresh-1" {
			t.Errorf("unexpected session %+v", session)
		}
		if session.Subject != "member-42" {
			t.Errorf("Subject = %q, want member-42", session.Subject)
		}
		if store.Saves() != 1 {
			t.Errorf("expected session to be saved once, got %d", store.Saves())
		}
		if p.verifiers[0] != "verifier-abc" {
			t.Errorf("expected code_verifier to be sent, got %q", p.verifiers[0])
		}

		token, err := srv.AccessToken(ctx)
		if err != nil || token != "access-1" {
			t.Errorf("AccessToken() = %q, %v", token, err)
		}
		if !srv.IsAuthenticated(ctx) {
			t.Error("expected IsAuthenticated() to be true")
		}
	})

	t.Run("Exchange Rejected", func(t *testing.T) {
		p := newProvider(t)
		store := &tu.MemorySessionStore{}
		srv := NewOIDCService(p.config(), store, p.Client(), nil)

		if _, err := srv.Exchange(ctx, "bad-code", "v"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if store.Saves() != 0 {
			t.Error("failed exchange must not persist a session")
		}
	})

	t.Run("AccessToken", func(t *testing.T) {
		t.Run("Logged Out", func(t *testing.T) {
			srv := NewOIDCService(shared.OIDCConfig{}, &tu.MemorySessionStore{}, nil, nil)
			token, err := srv.AccessToken(ctx)
			if err != nil || token != "" {
				t.Errorf("AccessToken() = %q, %v; want empty", token, err)
			}
			if srv.IsAuthenticated(ctx) {
				t.Error("expected IsAuthenticated() to be false")
			}
		})

		t.Run("Refreshes Expired Token", func(t *testing.T) {
			p := newProvider(t)
			store := &tu.MemorySessionStore{}
			store.Save(models.NewSession("access-1", "refresh-1", "Bearer", "", time.Now().Add(-time.Minute)))

			srv := NewOIDCService(p.config(), store, p.Client(), nil)
			token, err := srv.AccessToken(ctx)
			if err != nil {
				t.Fatalf("AccessToken() error = %v", err)
			}
			if token != "access-2" {
				t.Errorf("AccessToken() = %q, want access-2", token)
			}

			current, _ := store.Current()
			if current.AccessToken != "access-2" || current.RefreshToken != "refresh-1" {
				t.Errorf("renewed session not persisted correctly: %+v", current)
			}
			if p.grants[len(p.grants)-1] != "refresh_token" {
				t.Errorf("expected refresh grant, got %v", p.grants)
			}
		})

		t.Run("Refresh Rejected", func(t *testing.T) {
			p := newProvider(t)
			store := &tu.MemorySessionStore{}
			store.Save(models.NewSession("access-1", "stale", "Bearer", "", time.Now().Add(-time.Minute)))

			srv := NewOIDCService(p.config(), store, p.Client(), nil)
			if _, err := srv.AccessToken(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
		})

		t.Run("Expired Without Refresh Token", func(t *testing.T) {
			store := &tu.MemorySessionStore{}
			store.Save(models.NewSession("access-1", "", "Bearer", "", time.Now().Add(-time.Minute)))

			srv := NewOIDCService(shared.OIDCConfig{}, store, nil, nil)
			if _, err := srv.AccessToken(ctx); !errors.Is(err, shared.ErrTokenExpired) {
				t.Errorf("expected ErrTokenExpired, got %v", err)
			}
		})
	})

	t.Run("Claims", func(t *testing.T) {
		store := &tu.MemorySessionStore{}
		srv := NewOIDCService(shared.OIDCConfig{}, store, nil, nil)

		if _, err := srv.Claims(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}

		store.Save(models.NewSession("a", "", "", tu.MustIDToken(t, "member-7", "Grace Hopper", time.Now().Add(time.Hour)), time.Time{}))
		claims, err := srv.Claims(ctx)
		if err != nil {
			t.Fatalf("Claims() error = %v", err)
		}
		if claims.Subject != "member-7" || claims.DisplayName() != "Grace Hopper" {
			t.Errorf("unexpected claims %+v", claims)
		}
	})

	t.Run("Logout", func(t *testing.T) {
		p := newProvider(t)
		store := &tu.MemorySessionStore{}
		store.Save(models.NewSession("access-1", "", "", "", time.Time{}))

		srv := NewOIDCService(p.config(), store, p.Client(), nil)
		endSession, err := srv.Logout(ctx)
		if err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		if endSession != p.URL+"/logout" {
			t.Errorf("end session URL = %q", endSession)
		}
		if _, err := store.Current(); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected session to be cleared, got %v", err)
		}

		token, err := srv.AccessToken(ctx)
		if err != nil || token != "" {
			t.Errorf("AccessToken() after logout = %q, %v", token, err)
		}
	})
}

func TestParseIDToken(t *testing.T) {
	claims, err := ParseIDToken(tu.MustIDToken(t, "member-1", "", time.Unix(1900000000, 0)))
	if err != nil {
		t.Fatalf("ParseIDToken() error = %v", err)
	}
	if claims.DisplayName() != "member-1" {
		t.Errorf("DisplayName() = %q, want preferred username", claims.DisplayName())
	}
	if !claims.ExpiresAt.Equal(time.Unix(1900000000, 0)) {
		t.Errorf("ExpiresAt = %v", claims.ExpiresAt)
	}

	if _, err := ParseIDToken("not-a-jwt"); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
