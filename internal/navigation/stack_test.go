package navigation

import (
	"errors"
	"testing"

	"github.com/desertthunder/halx/internal/hal"
	"github.com/desertthunder/halx/internal/repositories"
	"github.com/desertthunder/halx/internal/shared"
	"github.com/google/go-cmp/cmp"
)

type recorded struct {
	entries []Entry
	err     error
}

func (r *recorded) Record(e Entry) error {
	r.entries = append(r.entries, e)
	return r.err
}

func hrefs(s *Stack) []string {
	var out []string
	for _, e := range s.Entries() {
		out = append(out, e.Href)
	}
	return out
}

func TestStack(t *testing.T) {
	root := hal.URL("/api")

	t.Run("Navigate Then Back", func(t *testing.T) {
		s, err := NewStack(root, nil)
		if err != nil {
			t.Fatalf("NewStack() error = %v", err)
		}

		if err := s.Navigate(hal.Link{Href: "/api/members", Title: "Members"}); err != nil {
			t.Fatalf("Navigate() error = %v", err)
		}
		if s.IsFirst() || s.Current().Href != "/api/members" || s.Current().Title != "Members" {
			t.Errorf("unexpected current %+v", s.Current())
		}

		if !s.Back() {
			t.Error("Back() should move")
		}
		if !s.IsFirst() || s.Current().Href != "/api" {
			t.Errorf("expected root after Back(), got %+v", s.Current())
		}
	})

	t.Run("Back At Root", func(t *testing.T) {
		s, _ := NewStack(root, nil)
		if s.Back() {
			t.Error("Back() at root should not move")
		}
		if !s.IsFirst() || s.Len() != 1 {
			t.Errorf("expected single root entry, got %v", hrefs(s))
		}
	})

	t.Run("Reset", func(t *testing.T) {
		s, _ := NewStack(root, nil)
		for _, href := range []string{"/api/members", "/api/members/5", "/api/members/5/bookings"} {
			s.Navigate(hal.URL(href))
		}
		if s.Len() != 4 {
			t.Fatalf("Len() = %d, want 4", s.Len())
		}

		s.Reset()
		if diff := cmp.Diff([]string{"/api"}, hrefs(s)); diff != "" {
			t.Errorf("Reset() mismatch (-want +got):\n%s", diff)
		}
		s.Reset()
		if !s.IsFirst() {
			t.Error("Reset() at root should keep the root")
		}
	})

	t.Run("Malformed Target", func(t *testing.T) {
		if _, err := NewStack(hal.Link{}, nil); !errors.Is(err, hal.ErrMissingHref) {
			t.Errorf("expected ErrMissingHref, got %v", err)
		}

		s, _ := NewStack(root, nil)
		if err := s.Navigate(hal.TemplateTarget{Method: "PUT"}); !errors.Is(err, hal.ErrMissingTarget) {
			t.Errorf("expected ErrMissingTarget, got %v", err)
		}
		if s.Len() != 1 {
			t.Error("failed navigation must leave the stack unchanged")
		}
	})

	t.Run("Entries Are Copies", func(t *testing.T) {
		s, _ := NewStack(root, nil)
		entries := s.Entries()
		entries[0].Href = "/changed"
		if s.Current().Href != "/api" {
			t.Error("Entries() must not expose internal state")
		}
	})

	t.Run("SetTitle", func(t *testing.T) {
		s, _ := NewStack(root, nil)
		s.SetTitle("Club")
		if s.Current().Title != "Club" {
			t.Errorf("Title = %q", s.Current().Title)
		}
	})

	t.Run("Recorder", func(t *testing.T) {
		rec := &recorded{err: errors.New("disk full")}
		s, _ := NewStack(root, rec)
		s.Navigate(hal.URL("/api/members"))
		s.Back()

		if len(rec.entries) != 2 {
			t.Fatalf("expected root and one navigation to be recorded, got %d", len(rec.entries))
		}
		if rec.entries[1].Href != "/api/members" {
			t.Errorf("unexpected recorded entry %+v", rec.entries[1])
		}
		if s.Current().Href != "/api" {
			t.Error("recorder failure must not affect navigation")
		}
	})
}

func TestHistoryRecorder(t *testing.T) {
	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := repositories.NewHistoryRepository(db)
	rec := NewHistoryRecorder(repo, "tui-1", nil)

	s, _ := NewStack(hal.URL("/api"), rec)
	s.Navigate(hal.Link{Href: "/api/members", Title: "Members"})

	entries, err := repo.List(map[string]any{"session_id": rec.SessionID()})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	if entries[0].Href != "/api" || entries[1].Href != "/api/members" || entries[1].Title != "Members" {
		t.Errorf("unexpected history %+v, %+v", entries[0], entries[1])
	}
}

func TestRouterPath(t *testing.T) {
	tt := []struct{ in, want string }{
		{"/api", "/"},
		{"/api/", "/"},
		{"/api/members/5", "/members/5"},
		{"http://club.test/api/members?page=2", "/members?page=2"},
		{"/apiary/hives", "/apiary/hives"},
		{"/members", "/members"},
	}
	for _, tc := range tt {
		if got := RouterPath(tc.in); got != tc.want {
			t.Errorf("RouterPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAPIPath(t *testing.T) {
	tt := []struct{ in, want string }{
		{"/", "/api"},
		{"", "/api"},
		{"/members/5", "/api/members/5"},
		{"members?page=2", "/api/members?page=2"},
		{"/api/members", "/api/members"},
	}
	for _, tc := range tt {
		if got := APIPath(tc.in); got != tc.want {
			t.Errorf("APIPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	for _, href := range []string{"/api/members/5", "/api/members?page=2"} {
		if got := APIPath(RouterPath(href)); got != href {
			t.Errorf("APIPath(RouterPath(%q)) = %q", href, got)
		}
	}
}
