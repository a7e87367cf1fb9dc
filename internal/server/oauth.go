package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/halx/internal/models"
	"github.com/flosch/pongo2/v6"
)

// Exchanger trades an authorization code and PKCE verifier for a stored session.
//
// Implemented by [services.OIDCService].
type Exchanger interface {
	Exchange(ctx context.Context, code, verifier string) (*models.Session, error)
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Session *models.Session
	err     error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles OAuth2 callback requests for authorization code flow.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	exchanger   Exchanger
	state       string
	verifier    string
	path        string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a callback handler for one login attempt.
//
// state must be the value sent in the authorization URL and verifier the PKCE verifier whose
// challenge was sent with it. path defaults to /callback.
func NewOAuthHandler(exchanger Exchanger, state, verifier, path string) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	return &OAuthHandler{
		exchanger:  exchanger,
		state:      state,
		verifier:   verifier,
		path:       path,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the OAuth callback request.
//
// Only the first request is processed. It must carry the expected state and a code, which is exchanged
// for a session; the outcome goes to [OAuthHandler.Result] and is shown to the browser as a short page.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	switch {
	case query.Get("state") != h.state:
		h.fail(w, http.StatusBadRequest, "Invalid state parameter", fmt.Errorf("invalid state parameter"))
		return
	case query.Get("code") == "":
		desc := query.Get("error_description")
		h.fail(w, http.StatusBadRequest, "Authorization failed: "+desc,
			fmt.Errorf("authorization failed: %s - %s", query.Get("error"), desc))
		return
	}

	session, err := h.exchanger.Exchange(r.Context(), query.Get("code"), h.verifier)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Token exchange failed", fmt.Errorf("token exchange failed: %w", err))
		return
	}

	h.Send(OAuthResult{Session: session})
	writeCallbackPage(w, http.StatusOK, true, "You can close this window and return to the terminal.")
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, message string, err error) {
	h.Send(OAuthResult{err: err})
	writeCallbackPage(w, status, false, message)
}

var callbackPage = pongo2.Must(pongo2.FromString(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{% if ok %}Signed in{% else %}Sign in failed{% endif %}</title>
  <style>
    body { font-family: system-ui, sans-serif; display: flex; align-items: center; justify-content: center;
           height: 100vh; margin: 0; background: #f5f5f5; }
    main { text-align: center; background: white; padding: 2rem; border-radius: 8px;
           box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
    h1 { margin: 0 0 1rem 0; color: {% if ok %}#2f6fdf{% else %}#c0392b{% endif %}; }
    p { color: #666; margin: 0; }
  </style>
</head>
<body>
  <main>
    <h1>{% if ok %}&#10003; Signed in{% else %}&#10007; Sign in failed{% endif %}</h1>
    <p>{{ message }}</p>
  </main>
</body>
</html>
`))

func writeCallbackPage(w http.ResponseWriter, status int, ok bool, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	callbackPage.ExecuteWriter(pongo2.Context{"ok": ok, "message": message}, w)
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
