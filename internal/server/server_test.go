package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/halx/internal/models"
	"github.com/google/go-cmp/cmp"
)

type mockExchanger struct {
	code     string
	verifier string
	err      error
	calls    int
}

func (m *mockExchanger) Exchange(ctx context.Context, code, verifier string) (*models.Session, error) {
	m.calls++
	m.code, m.verifier = code, verifier
	if m.err != nil {
		return nil, m.err
	}
	return models.NewSession("access", "refresh", "Bearer", "", time.Now().Add(time.Hour)), nil
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Exchanges Code With Verifier", func(t *testing.T) {
		ex := &mockExchanger{}
		h := NewOAuthHandler(ex, "state-1", "verifier-1", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ex.code != "abc" || ex.verifier != "verifier-1" {
			t.Errorf("Exchange called with (%q, %q)", ex.code, ex.verifier)
		}

		result := <-h.Result()
		if result.Error() != nil || result.Session == nil || result.Session.AccessToken != "access" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("Rejects State Mismatch", func(t *testing.T) {
		ex := &mockExchanger{}
		h := NewOAuthHandler(ex, "state-1", "v", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if ex.calls != 0 {
			t.Error("Exchange must not be called on state mismatch")
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("Provider Error", func(t *testing.T) {
		h := NewOAuthHandler(&mockExchanger{}, "s", "v", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied&error_description=%3Cb%3Enope%3C%2Fb%3E", nil))

		if body := rec.Body.String(); !strings.Contains(body, "Sign in failed") || !strings.Contains(body, "&lt;b&gt;nope") {
			t.Errorf("unexpected page %q", body)
		}

		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("unexpected error %v", result.Error())
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		h := NewOAuthHandler(&mockExchanger{err: errors.New("invalid_grant")}, "s", "v", "")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=c", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		ex := &mockExchanger{}
		h := NewOAuthHandler(ex, "s", "v", "/auth/done")

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/done?state=s&code=c", nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/done?state=s&code=c", nil))

		if rec.Code != http.StatusBadRequest || ex.calls != 1 {
			t.Errorf("status = %d, calls = %d", rec.Code, ex.calls)
		}
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/auth/done" {
			t.Errorf("Routes() = %v", routes)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "ok") }

	t.Run("Method Filtering", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc("GET,POST", "/members", ok)

		tt := []struct {
			method string
			want   int
		}{
			{http.MethodGet, http.StatusOK},
			{http.MethodPost, http.StatusOK},
			{http.MethodDelete, http.StatusMethodNotAllowed},
		}
		for _, tc := range tt {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tc.method, "/members", nil))
			if rec.Code != tc.want {
				t.Errorf("%s /members = %d, want %d", tc.method, rec.Code, tc.want)
			}
			if tc.want == http.StatusMethodNotAllowed && rec.Header().Get("Allow") != "GET, POST" {
				t.Errorf("Allow = %q", rec.Header().Get("Allow"))
			}
		}
	})

	t.Run("Routes", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc("get, post,GET", "/members", ok)
		r.Handler(NewOAuthHandler(&mockExchanger{}, "s", "v", ""))

		want := []Route{{Methods: []string{"GET", "POST"}, Path: "/members"}, {Path: "/callback"}}
		if diff := cmp.Diff(want, r.Routes()); diff != "" {
			t.Errorf("routes mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Any Method", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc("", "/", ok)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/anything", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.HandleFunc(http.MethodGet, "/", ok)
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("middleware order = %v", order)
		}
	})

	t.Run("Custom Handler", func(t *testing.T) {
		r := NewBasicRouter()
		h := NewOAuthHandler(&mockExchanger{}, "s", "v", "")
		r.Handler(h)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=c", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Request Logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/members", nil))

		if out := buf.String(); !strings.Contains(out, "/members") || !strings.Contains(out, "418") {
			t.Errorf("unexpected log output %q", out)
		}
	})

	t.Run("Recoverer", func(t *testing.T) {
		h := Recoverer(log.New(io.Discard))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)

	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "pong")
		}), ready)
	}()

	addr := <-ready
	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * ShutdownTimeout):
		t.Fatal("Serve did not shut down")
	}
}
