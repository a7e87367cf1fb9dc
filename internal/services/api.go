// HAL service for authenticated hypermedia requests against the club API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/shared"
)

// HALService performs hypermedia requests with content negotiation and bearer auth.
type HALService struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *log.Logger
}

// NewHALService creates a new HAL service for the API at baseURL.
//
// tokens may be nil, in which case requests are sent anonymously.
func NewHALService(baseURL string, client *http.Client, tokens TokenSource, logger *log.Logger) *HALService {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &HALService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		tokens:     tokens,
		logger:     logger,
	}
}

// BaseURL returns the API origin requests are resolved against.
func (s *HALService) BaseURL() string {
	return s.baseURL
}

// RequestOptions customises a single request.
type RequestOptions struct {
	Method  string
	Body    any
	Headers map[string]string

	// IgnoredStatuses are non-2xx statuses that [HALService.Fetch] reports as an empty
	// object instead of an error, e.g. 404 and 405 for form targets without a GET.
	IgnoredStatuses []int
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	URL        string
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// MediaType returns the response content type without parameters.
func (r *APIResponse) MediaType() string {
	return mediaType(r.Headers.Get("Content-Type"))
}

// StatusText returns the reason phrase of the status line.
func (r *APIResponse) StatusText() string {
	if _, text, ok := strings.Cut(r.Status, " "); ok {
		return text
	}
	return http.StatusText(r.StatusCode)
}

// FetchError builds the typed error describing this response.
func (r *APIResponse) FetchError() *FetchError {
	return &FetchError{
		Message:     fmt.Sprintf("failed to fetch %s: %d %s", r.URL, r.StatusCode, r.StatusText()),
		URL:         r.URL,
		Status:      r.StatusCode,
		StatusText:  r.StatusText(),
		ContentType: r.Headers.Get("Content-Type"),
		Body:        string(r.Body),
	}
}

// ResolveURL resolves href against the base URL. Absolute hrefs are returned as is.
func (s *HALService) ResolveURL(href string) (string, error) {
	base, err := url.Parse(s.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("%w: invalid base URL %q: %v", shared.ErrInvalidConfig, s.baseURL, err)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: invalid href %q: %v", shared.ErrInvalidArgument, href, err)
	}

	return base.ResolveReference(ref).String(), nil
}

// Do performs a request and returns the response without interpreting its status.
//
// Errors are reserved for request construction, transport and body read failures.
func (s *HALService) Do(ctx context.Context, href string, opts RequestOptions) (*APIResponse, error) {
	fullURL, err := s.ResolveURL(href)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", hal.AcceptHeader)
	if body != nil || isWrite(method) {
		req.Header.Set("Content-Type", hal.MediaTypeJSON)
	}
	s.authorize(ctx, req)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	s.logger.Debug("request", "method", method, "url", fullURL)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	s.logger.Debug("response", "method", method, "url", fullURL, "status", resp.StatusCode, "bytes", len(data))

	apiResp := &APIResponse{
		URL:        fullURL,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Fetch performs a request and returns the parsed JSON body.
//
// Non-2xx statuses produce a [*FetchError] unless listed in opts.IgnoredStatuses,
// which yield an empty object. An empty 2xx body also yields an empty object.
func (s *HALService) Fetch(ctx context.Context, href string, opts RequestOptions) (any, error) {
	resp, err := s.Do(ctx, href, opts)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		if slices.Contains(opts.IgnoredStatuses, resp.StatusCode) {
			s.logger.Debug("ignored status", "url", resp.URL, "status", resp.StatusCode)
			return map[string]any{}, nil
		}
		return nil, resp.FetchError()
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return map[string]any{}, nil
	}
	if !resp.IsJSON {
		return nil, fmt.Errorf("%w: %s returned %s", shared.ErrUnrecognizedPayload, resp.URL, resp.MediaType())
	}

	return resp.JSONData, nil
}

// Resource resolves target with [hal.ToHref], fetches it and decodes the body.
//
// A malformed target fails before any request is made.
func (s *HALService) Resource(ctx context.Context, target any, ignoredStatuses ...int) (*hal.Document, error) {
	href, err := hal.ToHref(target)
	if err != nil {
		return nil, err
	}

	resp, err := s.Do(ctx, href, RequestOptions{})
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		if slices.Contains(ignoredStatuses, resp.StatusCode) {
			return hal.Decode([]byte("{}"))
		}
		return nil, resp.FetchError()
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return hal.Decode([]byte("{}"))
	}

	return hal.Decode(resp.Body)
}

// authorize attaches the bearer token. Token errors are logged and the request
// proceeds anonymously so the server decides how to answer.
func (s *HALService) authorize(ctx context.Context, req *http.Request) {
	if s.tokens == nil {
		return
	}

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		s.logger.Warn("no access token", "error", err)
		return
	}
	if token == "" {
		s.logger.Debug("anonymous request", "url", req.URL.String())
		return
	}

	req.Header.Set("Authorization", "Bearer "+token)
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}
