// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/halx/internal/models"
	"github.com/desertthunder/halx/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing and counts calls
type MockRoundTripper struct {
	response *http.Response
	err      error

	mu    sync.Mutex
	calls []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.response, m.err
}

// Calls returns the number of requests seen.
func (m *MockRoundTripper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MockTokenSource returns Token (or Err) and counts how often it was asked.
type MockTokenSource struct {
	Token string
	Err   error

	mu    sync.Mutex
	calls int
}

func (m *MockTokenSource) AccessToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.Token, m.Err
}

// Set replaces the token, simulating a silent renewal.
func (m *MockTokenSource) Set(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Token = token
}

func (m *MockTokenSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MemorySessionStore is an in-memory session store.
type MemorySessionStore struct {
	mu      sync.Mutex
	session *models.Session
	saves   int
}

func (m *MemorySessionStore) Current() (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, shared.ErrNotFound
	}
	return m.session, nil
}

func (m *MemorySessionStore) Save(session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.ID() == "" {
		session.SetID(shared.GenerateID())
	}
	m.session = session
	m.saves++
	return nil
}

func (m *MemorySessionStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *MemorySessionStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// MustIDToken signs an ID token with a throwaway key. Signatures are never verified by halx.
func MustIDToken(t *testing.T, subject, name string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":                subject,
		"name":               name,
		"preferred_username": subject,
		"iss":                "http://issuer.test",
		"exp":                expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to sign id token: %v", err)
	}
	return signed
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
