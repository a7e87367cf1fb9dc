// package services defines the HTTP collaborators of halx: the hypermedia fetcher and the auth provider
package services

import (
	"context"

	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/models"
)

// TokenSource supplies the bearer token for outgoing requests.
//
// It is consulted on every request so a silently renewed token is picked up.
// An empty token means the request goes out without an Authorization header.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to [TokenSource].
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken is a fixed bearer token, used for scripting and tests.
type StaticToken string

func (s StaticToken) AccessToken(context.Context) (string, error) {
	return string(s), nil
}

// Fetcher is the hypermedia client used by forms, the crawler and the frontends.
type Fetcher interface {
	// Do issues a request and returns the response whatever its status.
	Do(ctx context.Context, href string, opts RequestOptions) (*APIResponse, error)

	// Fetch issues a request and fails with a [*FetchError] on non-2xx statuses.
	Fetch(ctx context.Context, href string, opts RequestOptions) (any, error)

	// Resource resolves target, fetches it and classifies the body.
	Resource(ctx context.Context, target any, ignoredStatuses ...int) (*hal.Document, error)

	// ResolveURL resolves href against the API base URL.
	ResolveURL(href string) (string, error)
}

// SessionStore persists the OAuth2 session of the logged in member.
//
// Current returns an error wrapping [shared.ErrNotFound] when nobody is logged in.
type SessionStore interface {
	Current() (*models.Session, error)
	Save(session *models.Session) error
	Clear() error
}
