package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/navigation"
	"github.com/desertthunder/halx/internal/services"
)

const memberBody = `{
	"name": "Ada",
	"email": "ada@club.test",
	"bio": "<b>Captain</b><script>alert(1)</script>",
	"_links": {"self": {"href": "/api/members/1"}, "up": {"href": "/api/members", "title": "All members"}},
	"_templates": {"default": {"title": "Edit member", "method": "PUT", "properties": [
		{"name": "name", "prompt": "Name", "required": true},
		{"name": "email", "type": "email"},
		{"name": "level", "type": "select", "options": {"inline": ["junior", "senior"]}}
	]}}
}`

const courtBody = `{
	"name": "Court 3",
	"surface": "clay",
	"_links": {"self": {"href": "/api/courts/3"}},
	"_templates": {
		"default": {"title": "Book court", "method": "PUT", "target": "/api/courts/3/booking", "properties": [
			{"name": "surface"},
			{"name": "slot", "required": true}
		]},
		"rename": {"title": "Rename court", "method": "PATCH", "target": "/api/courts/3/details", "properties": [
			{"name": "name"}
		]}
	}
}`

type fakeAPI struct {
	mu       sync.Mutex
	writes   []map[string]any
	methods  []string
	problem  bool
	resource map[string]string
	// writeOnly paths answer GET with 405.
	writeOnly map[string]bool
}

func newFakeAPI(t *testing.T, api *fakeAPI) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			api.mu.Lock()
			api.writes = append(api.writes, body)
			api.methods = append(api.methods, r.Method)
			api.mu.Unlock()

			if api.problem {
				w.Header().Set("Content-Type", hal.MediaTypeProblem)
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"title":"Bad","errors":{"email":"already taken"}}`)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if api.writeOnly[r.URL.Path] {
			w.Header().Set("Allow", "PUT")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, ok := api.resource[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", hal.MediaTypeHALForms)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

type recorder struct {
	entries []navigation.Entry
}

func (r *recorder) Record(e navigation.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func newApp(t *testing.T, api *fakeAPI) (*App, *recorder) {
	t.Helper()
	if api.resource == nil {
		api.resource = map[string]string{
			"/api": `{"_links":{"self":{"href":"/api"},"members":{"href":"/api/members","title":"Members"},
				"search":{"href":"/api/members{?q}","templated":true},"docs":{"href":"https://docs.test/club"}}}`,
			"/api/members": `{"_links":{"self":{"href":"/api/members"}},"_embedded":{"members":[
				{"name":"Ada","_links":{"self":{"href":"/api/members/1"}}}]}}`,
			"/api/members/1": memberBody,
			"/api/raw":       `[1, 2, 3]`,
			"/api/courts/3":  courtBody,
			"/api/courts/3/details": `{"name":"Centre Court","_links":{"self":{"href":"/api/courts/3/details"}}}`,
		}
	}
	server := newFakeAPI(t, api)
	rec := &recorder{}
	app, err := New(services.NewHALService(server.URL, nil, nil, nil), rec, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return app, rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func post(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApp(t *testing.T) {
	t.Run("Renders Root Links As Router Paths", func(t *testing.T) {
		app, rec := newApp(t, &fakeAPI{})
		res := get(t, app.Router(), "/")

		if res.Code != http.StatusOK {
			t.Fatalf("status = %d", res.Code)
		}
		body := res.Body.String()
		for _, want := range []string{`href="/members"`, "Members", "/api/members{?q}", "(templated)", `href="https://docs.test/club"`} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
		if len(rec.entries) != 1 || rec.entries[0].Href != "/api" {
			t.Errorf("unexpected history %+v", rec.entries)
		}
	})

	t.Run("Renders Embedded Table", func(t *testing.T) {
		app, _ := newApp(t, &fakeAPI{})
		body := get(t, app.Router(), "/members").Body.String()

		if !strings.Contains(body, "members (1)") || !strings.Contains(body, `href="/members/1"`) {
			t.Errorf("embedded table not rendered:\n%s", body)
		}
	})

	t.Run("Renders Form With Prefill", func(t *testing.T) {
		app, _ := newApp(t, &fakeAPI{})
		body := get(t, app.Router(), "/members/1").Body.String()

		for _, want := range []string{"Edit member", `name="_template" value="default"`, `value="Ada"`, `type="email"`, "<select", "PUT (this resource)"} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
	})

	t.Run("Sanitizes Markup Attributes", func(t *testing.T) {
		app, _ := newApp(t, &fakeAPI{})
		body := get(t, app.Router(), "/members/1").Body.String()

		if !strings.Contains(body, "<b>Captain</b>") {
			t.Error("expected allowed markup to render")
		}
		if strings.Contains(body, "<script>") {
			t.Error("script tag was not removed")
		}
	})

	t.Run("Unrecognized Payload Renders Raw JSON", func(t *testing.T) {
		app, _ := newApp(t, &fakeAPI{})
		body := get(t, app.Router(), "/raw").Body.String()

		if !strings.Contains(body, "<pre>") || !strings.Contains(body, "unrecognized") {
			t.Errorf("expected raw preview:\n%s", body)
		}
	})

	t.Run("Fetch Error Banner", func(t *testing.T) {
		app, _ := newApp(t, &fakeAPI{})
		res := get(t, app.Router(), "/missing")

		if res.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", res.Code)
		}
		if !strings.Contains(res.Body.String(), `class="banner"`) {
			t.Error("expected error banner")
		}
	})

	t.Run("Submit Success Redirects", func(t *testing.T) {
		api := &fakeAPI{}
		app, _ := newApp(t, api)

		res := post(t, app.Router(), "/members/1", url.Values{
			TemplateField: {"default"},
			"name":        {"Ada L."},
			"email":       {"ada@club.test"},
			"level":       {"senior"},
		})

		if res.Code != http.StatusSeeOther || res.Header().Get("Location") != "/members/1" {
			t.Fatalf("status = %d, location = %q", res.Code, res.Header().Get("Location"))
		}
		if len(api.writes) != 1 || api.methods[0] != http.MethodPut {
			t.Fatalf("expected one PUT, got %v", api.methods)
		}
		if api.writes[0]["name"] != "Ada L." || api.writes[0]["level"] != "senior" {
			t.Errorf("unexpected body %v", api.writes[0])
		}
	})

	t.Run("Missing Value Does Not Submit", func(t *testing.T) {
		api := &fakeAPI{}
		app, _ := newApp(t, api)

		res := post(t, app.Router(), "/members/1", url.Values{TemplateField: {"default"}, "name": {""}})

		if res.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", res.Code)
		}
		if !strings.Contains(res.Body.String(), "missing value") {
			t.Error("expected inline missing value error")
		}
		if len(api.writes) != 0 {
			t.Errorf("expected no write, got %d", len(api.writes))
		}
	})

	t.Run("Server Validation Errors", func(t *testing.T) {
		api := &fakeAPI{problem: true}
		app, _ := newApp(t, api)

		res := post(t, app.Router(), "/members/1", url.Values{TemplateField: {"default"}, "name": {"Ada"}, "email": {"taken@club.test"}})

		body := res.Body.String()
		if res.Code != http.StatusBadRequest || !strings.Contains(body, "already taken") || !strings.Contains(body, "Form validation errors") {
			t.Errorf("status = %d, body:\n%s", res.Code, body)
		}
		if !strings.Contains(body, `value="taken@club.test"`) {
			t.Error("posted value should be kept")
		}
	})

	t.Run("Unknown Template", func(t *testing.T) {
		app, _ := newApp(t, &fakeAPI{})
		res := post(t, app.Router(), "/members/1", url.Values{TemplateField: {"archive"}})

		if res.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", res.Code)
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		app, _ := newApp(t, &fakeAPI{})
		rec := httptest.NewRecorder()
		app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/members/1", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
	t.Run("Forms Prefill From Template Targets", func(t *testing.T) {
		app, _ := newApp(t, &fakeAPI{writeOnly: map[string]bool{"/api/courts/3/booking": true}})
		res := get(t, app.Router(), "/courts/3")

		if res.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", res.Code)
		}
		body := res.Body.String()
		for _, want := range []string{"Book court", `value="clay"`, "Rename court", `value="Centre Court"`} {
			if !strings.Contains(body, want) {
				t.Errorf("body missing %q", want)
			}
		}
	})

	t.Run("Submit Keeps Parent Prefill When Target Rejects GET", func(t *testing.T) {
		api := &fakeAPI{writeOnly: map[string]bool{"/api/courts/3/booking": true}}
		app, _ := newApp(t, api)

		res := post(t, app.Router(), "/courts/3", url.Values{TemplateField: {"default"}, "slot": {"09:00"}})

		if res.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, body:\n%s", res.Code, res.Body.String())
		}
		if len(api.writes) != 1 || api.writes[0]["surface"] != "clay" || api.writes[0]["slot"] != "09:00" {
			t.Errorf("unexpected writes %v", api.writes)
		}
	})
}

func TestSuccessPath(t *testing.T) {
	tt := []struct {
		current, method, want string
	}{
		{"/members/1", "PUT", "/members/1"},
		{"/members/1", "POST", "/members/1"},
		{"/members/1", "DELETE", "/members"},
		{"/members/", "delete", "/"},
		{"/", "DELETE", "/"},
	}
	for _, tc := range tt {
		if got := successPath(tc.current, tc.method); got != tc.want {
			t.Errorf("successPath(%q, %q) = %q, want %q", tc.current, tc.method, got, tc.want)
		}
	}
}
