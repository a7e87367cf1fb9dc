package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/shared"
	tu "github.com/desertthunder/halx/internal/testing"
)

func TestHALService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewHALService("http://example.com/", customClient, nil, nil)

			if srv.BaseURL() != "http://example.com" {
				t.Errorf("expected trailing slash to be trimmed, got %s", srv.BaseURL())
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("Defaults", func(t *testing.T) {
			srv := NewHALService("", nil, nil, nil)

			if srv.BaseURL() != "http://localhost:8080" {
				t.Errorf("expected default baseURL, got %s", srv.BaseURL())
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
			if srv.logger == nil {
				t.Error("expected a discard logger")
			}
		})
	})

	t.Run("ResolveURL", func(t *testing.T) {
		srv := NewHALService("http://club.test", nil, nil, nil)
		tt := []struct{ in, want string }{
			{"/api/members", "http://club.test/api/members"},
			{"api/members", "http://club.test/api/members"},
			{"https://other.test/api/x", "https://other.test/api/x"},
			{"/api/members?page=2", "http://club.test/api/members?page=2"},
		}
		for _, tc := range tt {
			got, err := srv.ResolveURL(tc.in)
			if err != nil {
				t.Fatalf("ResolveURL(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ResolveURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		}
	})

	t.Run("Do", func(t *testing.T) {
		t.Run("Sends Hypermedia Headers", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Accept"); got != "application/prs.hal-forms+json, application/hal+json" {
					t.Errorf("unexpected Accept header %q", got)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer secret" {
					t.Errorf("unexpected Authorization header %q", got)
				}
				if got := r.Header.Get("Content-Type"); got != "" {
					t.Errorf("GET should not send Content-Type, got %q", got)
				}
				w.Header().Set("Content-Type", hal.MediaTypeHAL)
				w.Write([]byte(`{"_links":{"self":{"href":"/api"}}}`))
			}))
			defer server.Close()

			srv := NewHALService(server.URL, nil, StaticToken("secret"), nil)
			resp, err := srv.Do(context.Background(), "/api", RequestOptions{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.OK() || !resp.IsJSON {
				t.Errorf("expected OK JSON response, got %+v", resp)
			}
			if resp.MediaType() != hal.MediaTypeHAL {
				t.Errorf("MediaType() = %q", resp.MediaType())
			}
		})

		t.Run("Writes Send JSON", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut {
					t.Errorf("expected PUT method, got %s", r.Method)
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("expected Content-Type 'application/json', got %s", r.Header.Get("Content-Type"))
				}

				body, _ := io.ReadAll(r.Body)
				var data map[string]string
				if err := json.Unmarshal(body, &data); err != nil {
					t.Errorf("failed to unmarshal request body: %v", err)
				}
				if data["email"] != "ada@example.com" {
					t.Errorf("unexpected request data %v", data)
				}

				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			srv := NewHALService(server.URL, nil, nil, nil)
			resp, err := srv.Do(context.Background(), "/api/members/5", RequestOptions{
				Method: "put",
				Body:   map[string]string{"email": "ada@example.com"},
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusNoContent {
				t.Errorf("expected status 204, got %d", resp.StatusCode)
			}
		})

		t.Run("Does Not Fail On Error Status", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", hal.MediaTypeProblem)
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"errors":{"name":"required"}}`))
			}))
			defer server.Close()

			srv := NewHALService(server.URL, nil, nil, nil)
			resp, err := srv.Do(context.Background(), "/api/x", RequestOptions{Method: http.MethodPost, Body: map[string]any{}})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.OK() || resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400 response, got %d", resp.StatusCode)
			}
			if resp.StatusText() != "Bad Request" {
				t.Errorf("StatusText() = %q", resp.StatusText())
			}
		})

		t.Run("Token Read On Every Request", func(t *testing.T) {
			var seen []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = append(seen, r.Header.Get("Authorization"))
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			tokens := &tu.MockTokenSource{Token: "one"}
			srv := NewHALService(server.URL, nil, tokens, nil)

			srv.Do(context.Background(), "/a", RequestOptions{})
			tokens.Set("two")
			srv.Do(context.Background(), "/a", RequestOptions{})
			tokens.Set("")
			srv.Do(context.Background(), "/a", RequestOptions{})

			want := []string{"Bearer one", "Bearer two", ""}
			if strings.Join(seen, "|") != strings.Join(want, "|") {
				t.Errorf("Authorization headers = %q, want %q", seen, want)
			}
			if tokens.Calls() != 3 {
				t.Errorf("expected token source to be consulted 3 times, got %d", tokens.Calls())
			}
		})

		t.Run("Token Error Sends Anonymous Request", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "" {
					t.Error("expected no Authorization header")
				}
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			srv := NewHALService(server.URL, nil, &tu.MockTokenSource{Err: shared.ErrTokenExpired}, nil)
			resp, err := srv.Do(context.Background(), "/api", RequestOptions{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401 from server, got %d", resp.StatusCode)
			}
		})

		t.Run("Custom Headers", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("X-Request-Id") != "abc" {
					t.Errorf("expected custom header, got %q", r.Header.Get("X-Request-Id"))
				}
			}))
			defer server.Close()

			srv := NewHALService(server.URL, nil, nil, nil)
			if _, err := srv.Do(context.Background(), "/", RequestOptions{Headers: map[string]string{"X-Request-Id": "abc"}}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			srv := NewHALService("http://example.com", nil, nil, nil)
			_, err := srv.Do(context.Background(), "/test\x00invalid", RequestOptions{})

			if err == nil || !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
			}

			srv := NewHALService("http://example.com", client, nil, nil)
			_, err := srv.Do(context.Background(), "/test", RequestOptions{})

			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			srv := NewHALService("http://example.com", client, nil, nil)
			_, err := srv.Do(context.Background(), "/test", RequestOptions{})

			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			srv := NewHALService(server.URL, nil, nil, nil)
			if _, err := srv.Do(ctx, "/test", RequestOptions{}); err == nil {
				t.Error("expected error for canceled context")
			}
		})
	})

	t.Run("Fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/ok":
				w.Write([]byte(`{"name":"Ada"}`))
			case "/empty":
				w.WriteHeader(http.StatusOK)
			case "/text":
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte("hello"))
			case "/form-only":
				w.WriteHeader(http.StatusMethodNotAllowed)
			default:
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("no such thing"))
			}
		}))
		defer server.Close()

		srv := NewHALService(server.URL, nil, nil, nil)
		ctx := context.Background()

		t.Run("Parses JSON", func(t *testing.T) {
			data, err := srv.Fetch(ctx, "/ok", RequestOptions{})
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if data.(map[string]any)["name"] != "Ada" {
				t.Errorf("unexpected data %v", data)
			}
		})

		t.Run("Empty Body", func(t *testing.T) {
			data, err := srv.Fetch(ctx, "/empty", RequestOptions{})
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if m, ok := data.(map[string]any); !ok || len(m) != 0 {
				t.Errorf("expected empty object, got %v", data)
			}
		})

		t.Run("Non JSON Body", func(t *testing.T) {
			if _, err := srv.Fetch(ctx, "/text", RequestOptions{}); !errors.Is(err, shared.ErrUnrecognizedPayload) {
				t.Errorf("expected ErrUnrecognizedPayload, got %v", err)
			}
		})

		t.Run("Error Status", func(t *testing.T) {
			_, err := srv.Fetch(ctx, "/missing", RequestOptions{})

			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %T %v", err, err)
			}
			if fe.Status != http.StatusNotFound || fe.StatusText != "Not Found" {
				t.Errorf("unexpected status %d %q", fe.Status, fe.StatusText)
			}
			if fe.Body != "no such thing" {
				t.Errorf("expected body to be kept for diagnostics, got %q", fe.Body)
			}
			if fe.MediaType() != "text/plain" {
				t.Errorf("MediaType() = %q", fe.MediaType())
			}
		})

		t.Run("Ignored Statuses", func(t *testing.T) {
			data, err := srv.Fetch(ctx, "/form-only", RequestOptions{IgnoredStatuses: []int{404, 405}})
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if m, ok := data.(map[string]any); !ok || len(m) != 0 {
				t.Errorf("expected empty object, got %v", data)
			}
		})
	})

	t.Run("Resource", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			switch r.URL.Path {
			case "/api/members":
				w.Header().Set("Content-Type", hal.MediaTypeHAL)
				w.Write([]byte(`{"_links":{"self":{"href":"/api/members"}},"_embedded":{"members":[]}}`))
			case "/api/members/5/form":
				w.WriteHeader(http.StatusMethodNotAllowed)
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))
		defer server.Close()

		srv := NewHALService(server.URL, nil, nil, nil)
		ctx := context.Background()

		doc, err := srv.Resource(ctx, hal.Link{Href: "/api/members"})
		if err != nil {
			t.Fatalf("Resource() error = %v", err)
		}
		if doc.Kind != hal.KindCollection {
			t.Errorf("Kind = %s", doc.Kind)
		}

		doc, err = srv.Resource(ctx, hal.TemplateTarget{Target: "/api/members/5/form", Method: "PUT"}, 404, 405)
		if err != nil {
			t.Fatalf("Resource() with ignored status error = %v", err)
		}
		if doc.Kind != hal.KindUnrecognized || doc.Resource == nil {
			t.Errorf("expected empty unrecognized document, got %+v", doc)
		}

		if _, err := srv.Resource(ctx, "/boom"); err == nil {
			t.Error("expected error for 500")
		}

		before := calls
		if _, err := srv.Resource(ctx, hal.Link{}); !errors.Is(err, hal.ErrMissingHref) {
			t.Errorf("expected ErrMissingHref, got %v", err)
		}
		if calls != before {
			t.Error("malformed target must fail before any request")
		}
	})
}
