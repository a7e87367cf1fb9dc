package models

import (
	"errors"
	"time"
)

// Session is a persisted OAuth2 login.
//
// A zero ExpiresAt means the token does not expire. DeletedAt is set on logout.
type Session struct {
	base
	Subject      string
	AccessToken  string
	RefreshToken string
	TokenType    string
	IDToken      string
	ExpiresAt    time.Time
	DeletedAt    *time.Time
}

func NewSession(accessToken, refreshToken, tokenType, idToken string, expiresAt time.Time) *Session {
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &Session{
		base:         newBase(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		IDToken:      idToken,
		ExpiresAt:    expiresAt,
	}
}

func (s *Session) Validate() error {
	if s.AccessToken == "" {
		return errors.New("access token is required")
	}
	return nil
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// IsDeleted reports whether the session was logged out.
func (s *Session) IsDeleted() bool {
	return s.DeletedAt != nil
}
