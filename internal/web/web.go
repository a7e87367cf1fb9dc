package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/halx/internal/forms"
	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/navigation"
	"github.com/desertthunder/halx/internal/server"
	"github.com/desertthunder/halx/internal/services"
	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateField names the hidden input carrying the submitted template key.
const TemplateField = "_template"

// Client fetches resources and sends form submissions.
type Client interface {
	BaseURL() string
	Resource(ctx context.Context, target any, ignoredStatuses ...int) (*hal.Document, error)
	Do(ctx context.Context, href string, opts services.RequestOptions) (*services.APIResponse, error)
}

// App renders API resources as HTML pages. It implements [server.Handler].
type App struct {
	client   Client
	recorder navigation.Recorder
	views    viewBuilder
	page     *pongo2.Template
	logger   *log.Logger
}

// New parses the embedded templates. recorder and logger may be nil.
func New(client Client, recorder navigation.Recorder, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	set := pongo2.NewSet("halx", pongo2.NewFSLoader(sub))
	page, err := set.FromFile("resource.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &App{
		client:   client,
		recorder: recorder,
		views:    newViewBuilder(client.BaseURL()),
		page:     page,
		logger:   logger,
	}, nil
}

// Routes returns the paths served by the app.
func (a *App) Routes() []string {
	return []string{"/"}
}

// Router returns a router serving the app with request logging and panic recovery.
func (a *App) Router() *server.BasicRouter {
	r := server.NewBasicRouter()
	r.Use(server.Recoverer(a.logger), server.RequestLogger(a.logger))
	r.Handle("GET,HEAD,POST", "/", a)
	return r
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		a.show(w, r)
	case http.MethodPost:
		a.submit(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func apiHref(r *http.Request) string {
	p := r.URL.Path
	if r.URL.RawQuery != "" {
		p += "?" + r.URL.RawQuery
	}
	return navigation.APIPath(p)
}

func (a *App) show(w http.ResponseWriter, r *http.Request) {
	href := apiHref(r)

	doc, err := a.client.Resource(r.Context(), href)
	if err != nil {
		a.fail(w, r.URL.Path, err)
		return
	}

	page := a.views.page(r.URL.Path, doc, a.prefilled(r.Context(), doc, href, nil))
	if a.recorder != nil {
		_ = a.recorder.Record(navigation.Entry{Target: hal.URL(href), Href: href, Title: page.Title})
	}
	a.render(w, http.StatusOK, page)
}

func (a *App) submit(w http.ResponseWriter, r *http.Request) {
	href := apiHref(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	doc, err := a.client.Resource(r.Context(), href)
	if err != nil {
		a.fail(w, r.URL.Path, err)
		return
	}
	if doc.Resource == nil {
		a.fail(w, r.URL.Path, fmt.Errorf("%s has no templates", href))
		return
	}

	key := r.PostForm.Get(TemplateField)
	t, ok := doc.Resource.Template(key)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown template %q", key), http.StatusBadRequest)
		return
	}

	form := forms.NewForm(t, a.prefill(r.Context(), doc.Resource, t, href))
	form.Apply(forms.DecodeValues(t, r.PostForm))

	result := forms.NewSubmitter(a.client, a.logger).Submit(r.Context(), form, href, nil)
	switch result.State {
	case forms.Success:
		http.Redirect(w, r, successPath(r.URL.Path, result.Target.Method), http.StatusSeeOther)
	case forms.ValidationError:
		page := a.views.page(r.URL.Path, doc, a.prefilled(r.Context(), doc, href, map[string]*forms.Form{t.Key: form}))
		a.render(w, http.StatusBadRequest, page)
	default:
		page := a.views.page(r.URL.Path, doc, a.prefilled(r.Context(), doc, href, map[string]*forms.Form{t.Key: form}))
		page.Error = result.Err.Error()
		a.render(w, http.StatusBadGateway, page)
	}
}

// prefilled builds one form per template of doc, each prefilled from its target.
// Forms already in open are kept.
func (a *App) prefilled(ctx context.Context, doc *hal.Document, href string, open map[string]*forms.Form) map[string]*forms.Form {
	out := make(map[string]*forms.Form, len(open))
	if doc == nil || doc.Resource == nil {
		return out
	}
	for _, t := range doc.Resource.OrderedTemplates() {
		if form, ok := open[t.Key]; ok {
			out[t.Key] = form
			continue
		}
		if t.Valid() {
			out[t.Key] = forms.NewForm(t, a.prefill(ctx, doc.Resource, t, href))
		}
	}
	return out
}

func (a *App) prefill(ctx context.Context, res *hal.Resource, t hal.Template, href string) map[string]any {
	data, err := forms.Prefill(ctx, a.client, t, res, href)
	if err != nil {
		a.logger.Warn("prefill failed", "template", t.Key, "error", err)
	}
	return data
}

// successPath is the page shown after a successful submit. A deleted resource is
// replaced by its parent.
func successPath(current, method string) string {
	if !strings.EqualFold(method, http.MethodDelete) {
		return current
	}
	parent := path.Dir(strings.TrimRight(current, "/"))
	if parent == "." || parent == "" {
		return "/"
	}
	return parent
}

// fail renders an error banner. Fetch errors keep the API status.
func (a *App) fail(w http.ResponseWriter, pagePath string, err error) {
	status := http.StatusBadGateway
	var fe *services.FetchError
	switch {
	case errors.As(err, &fe):
		status = fe.Status
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}

	a.logger.Warn("page failed", "path", pagePath, "error", err)
	a.render(w, status, pageView{Path: pagePath, Title: "Error", Status: status, Error: err.Error()})
}

func (a *App) render(w http.ResponseWriter, status int, page pageView) {
	if page.Status == 0 {
		page.Status = status
	}

	out, err := a.page.Execute(pongo2.Context{"page": page})
	if err != nil {
		a.logger.Error("render failed", "path", page.Path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, out)
}
