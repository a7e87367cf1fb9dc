package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/halx/internal/models"
	"github.com/desertthunder/halx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestResourceRepository(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		repo := NewResourceRepository(setupTestDB(t))
		res := models.NewCachedResource("http://localhost:8080/api/members", "collection", 200, []byte(`{"_embedded":{}}`))

		if err := repo.Create(res); err != nil {
			t.Fatalf("failed to create resource: %v", err)
		}
		if res.ID() == "" {
			t.Fatal("resource ID should be set after creation")
		}

		got, err := repo.Get(res.ID())
		if err != nil {
			t.Fatalf("failed to get resource: %v", err)
		}
		if got.Href != res.Href || got.Kind != "collection" || string(got.Body) != `{"_embedded":{}}` {
			t.Errorf("unexpected resource %+v", got)
		}
	})

	t.Run("Newer Fetch Supersedes By Href", func(t *testing.T) {
		repo := NewResourceRepository(setupTestDB(t))
		href := "http://localhost:8080/api/members/1"

		first := models.NewCachedResource(href, "item", 200, []byte(`{"v":1}`))
		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create: %v", err)
		}

		second := models.NewCachedResource(href, "form", 200, []byte(`{"v":2}`))
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		if second.ID() != first.ID() {
			t.Errorf("upsert should keep the original ID, got %s want %s", second.ID(), first.ID())
		}

		got, err := repo.GetByHref(href)
		if err != nil {
			t.Fatalf("failed to get by href: %v", err)
		}
		if string(got.Body) != `{"v":2}` || got.Kind != "form" {
			t.Errorf("expected newer body, got %s (%s)", got.Body, got.Kind)
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected one row per href, got %d", len(all))
		}
	})

	t.Run("List Criteria", func(t *testing.T) {
		repo := NewResourceRepository(setupTestDB(t))
		for _, tc := range []struct{ href, kind string }{
			{"http://h/api/members", "collection"},
			{"http://h/api/members/1", "item"},
			{"http://h/api/events", "collection"},
		} {
			if err := repo.Create(models.NewCachedResource(tc.href, tc.kind, 200, []byte(`{}`))); err != nil {
				t.Fatalf("failed to create %s: %v", tc.href, err)
			}
		}

		collections, err := repo.List(map[string]any{"kind": "collection"})
		if err != nil {
			t.Fatalf("list by kind: %v", err)
		}
		if len(collections) != 2 {
			t.Errorf("expected 2 collections, got %d", len(collections))
		}

		members, err := repo.List(map[string]any{"prefix": "http://h/api/members"})
		if err != nil {
			t.Fatalf("list by prefix: %v", err)
		}
		if len(members) != 2 {
			t.Errorf("expected 2 member resources, got %d", len(members))
		}

		limited, err := repo.List(map[string]any{"limit": 1})
		if err != nil {
			t.Fatalf("list with limit: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected 1 resource, got %d", len(limited))
		}
	})

	t.Run("Update Delete Purge Clear", func(t *testing.T) {
		repo := NewResourceRepository(setupTestDB(t))
		old := models.NewCachedResource("http://h/old", "item", 200, []byte(`{}`))
		old.FetchedAt = time.Now().UTC().Add(-48 * time.Hour)
		fresh := models.NewCachedResource("http://h/fresh", "item", 200, []byte(`{}`))

		for _, res := range []*models.CachedResource{old, fresh} {
			if err := repo.Create(res); err != nil {
				t.Fatalf("failed to create: %v", err)
			}
		}

		fresh.Status = 203
		if err := repo.Update(fresh); err != nil {
			t.Fatalf("failed to update: %v", err)
		}
		if got, _ := repo.Get(fresh.ID()); got.Status != 203 {
			t.Errorf("expected updated status, got %d", got.Status)
		}

		purged, err := repo.Purge(time.Now().Add(-24 * time.Hour))
		if err != nil {
			t.Fatalf("failed to purge: %v", err)
		}
		if purged != 1 {
			t.Errorf("expected 1 purged resource, got %d", purged)
		}

		if err := repo.Delete(fresh.ID()); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete(fresh.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}

		if err := repo.Create(models.NewCachedResource("http://h/x", "item", 200, []byte(`{}`))); err != nil {
			t.Fatalf("failed to create: %v", err)
		}
		cleared, err := repo.Clear()
		if err != nil || cleared != 1 {
			t.Errorf("Clear() = %d, %v", cleared, err)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		repo := NewResourceRepository(setupTestDB(t))

		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.GetByHref("http://h/missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := repo.Create(models.NewCachedResource("", "item", 200, []byte(`{}`))); err == nil {
			t.Error("expected validation error for empty href")
		}
		if err := repo.Update(models.NewCachedResource("http://h/x", "item", 200, []byte(`{}`))); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound updating unsaved resource, got %v", err)
		}
	})
}

func TestResourceCacheAdapter(t *testing.T) {
	repo := NewResourceRepository(setupTestDB(t))
	adapter := NewResourceCacheAdapter(repo)
	href := "http://h/api/members"

	if err := adapter.CacheResource(href, "collection", 200, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("failed to cache resource: %v", err)
	}
	first, _ := repo.GetByHref(href)

	if err := adapter.CacheResource(href, "collection", 200, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("failed to cache identical resource: %v", err)
	}
	again, _ := repo.GetByHref(href)
	if !again.UpdatedAt().Equal(first.UpdatedAt()) {
		t.Error("identical body should not be rewritten")
	}

	if err := adapter.CacheResource(href, "collection", 200, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("failed to cache changed resource: %v", err)
	}
	body, ok := adapter.CachedBody(href)
	if !ok || string(body) != `{"a":2}` {
		t.Errorf("CachedBody() = %s, %v", body, ok)
	}

	if _, ok := adapter.CachedBody("http://h/missing"); ok {
		t.Error("expected miss for unknown href")
	}

	if err := adapter.CacheResource(href, "collection", 200, []byte(`{`)); err == nil {
		t.Error("expected error for invalid body")
	}
}

func TestHistoryRepository(t *testing.T) {
	t.Run("Create And List In Order", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))

		for _, href := range []string{"/api", "/api/members", "/api/members/1"} {
			if err := repo.Create(models.NewHistoryEntry("s1", href, "")); err != nil {
				t.Fatalf("failed to create entry: %v", err)
			}
		}
		if err := repo.Create(models.NewHistoryEntry("s2", "/api/events", "Events")); err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}

		entries, err := repo.List(map[string]any{"session_id": "s1"})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for i, want := range []string{"/api", "/api/members", "/api/members/1"} {
			if entries[i].Href != want {
				t.Errorf("entry %d = %s, want %s", i, entries[i].Href, want)
			}
		}
		if entries[0].Sequence >= entries[2].Sequence {
			t.Error("sequence should increase with navigation order")
		}

		recent, err := repo.List(map[string]any{"limit": 2})
		if err != nil {
			t.Fatalf("failed to list with limit: %v", err)
		}
		if len(recent) != 2 || recent[1].Href != "/api/events" {
			t.Errorf("expected the two most recent entries, got %+v", recent)
		}
	})

	t.Run("Update Delete Clear", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		entry := models.NewHistoryEntry("s1", "/api", "")
		if err := repo.Create(entry); err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}

		entry.Title = "Root"
		if err := repo.Update(entry); err != nil {
			t.Fatalf("failed to update: %v", err)
		}
		got, err := repo.Get(entry.ID())
		if err != nil || got.Title != "Root" {
			t.Errorf("Get() = %+v, %v", got, err)
		}

		if err := repo.Delete(entry.ID()); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get(entry.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		for _, s := range []string{"s1", "s1", "s2"} {
			if err := repo.Create(models.NewHistoryEntry(s, "/api", "")); err != nil {
				t.Fatalf("failed to create: %v", err)
			}
		}
		n, err := repo.Clear("s1")
		if err != nil || n != 2 {
			t.Errorf("Clear(s1) = %d, %v", n, err)
		}
		n, err = repo.Clear("")
		if err != nil || n != 1 {
			t.Errorf("Clear() = %d, %v", n, err)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		if err := repo.Create(models.NewHistoryEntry("", "/api", "")); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestSessionRepository(t *testing.T) {
	t.Run("Save And Current", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if _, err := repo.Current(); !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound without sessions, got %v", err)
		}

		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		session := models.NewSession("access", "refresh", "Bearer", "id.token.sig", expiry)
		session.Subject = "member-5"
		if err := repo.Save(session); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		current, err := repo.Current()
		if err != nil {
			t.Fatalf("failed to get current session: %v", err)
		}
		if current.ID() != session.ID() || current.Subject != "member-5" || current.RefreshToken != "refresh" {
			t.Errorf("unexpected current session %+v", current)
		}
		if !current.ExpiresAt.Equal(expiry) {
			t.Errorf("ExpiresAt = %s, want %s", current.ExpiresAt, expiry)
		}

		session.AccessToken = "renewed"
		if err := repo.Save(session); err != nil {
			t.Fatalf("failed to update session: %v", err)
		}
		current, _ = repo.Current()
		if current.AccessToken != "renewed" {
			t.Errorf("expected renewed token, got %s", current.AccessToken)
		}
	})

	t.Run("No Expiry", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		if err := repo.Create(models.NewSession("access", "", "", "", time.Time{})); err != nil {
			t.Fatalf("failed to create: %v", err)
		}
		current, err := repo.Current()
		if err != nil {
			t.Fatalf("Current() error = %v", err)
		}
		if !current.ExpiresAt.IsZero() {
			t.Errorf("expected zero expiry, got %s", current.ExpiresAt)
		}
	})

	t.Run("Clear Soft Deletes", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		session := models.NewSession("access", "", "", "", time.Time{})
		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create: %v", err)
		}

		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if _, err := repo.Current(); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected no current session after clear, got %v", err)
		}
		if _, err := repo.Get(session.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected soft deleted session to be hidden, got %v", err)
		}
		if err := repo.Delete(session.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting cleared session, got %v", err)
		}
	})

	t.Run("List By Subject", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		for _, subject := range []string{"a", "b", "a"} {
			s := models.NewSession("access", "", "", "", time.Time{})
			s.Subject = subject
			if err := repo.Create(s); err != nil {
				t.Fatalf("failed to create: %v", err)
			}
		}
		got, err := repo.List(map[string]any{"subject": "a"})
		if err != nil || len(got) != 2 {
			t.Errorf("List(subject=a) = %d, %v", len(got), err)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		if err := repo.Create(models.NewSession("", "", "", "", time.Time{})); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	seq1, err := NextSequence(db, "history")
	if err != nil {
		t.Fatalf("failed to get first sequence: %v", err)
	}
	if seq1 != 1 {
		t.Errorf("expected first sequence to be 1, got %d", seq1)
	}

	seq2, err := NextSequence(db, "history")
	if err != nil {
		t.Fatalf("failed to get second sequence: %v", err)
	}
	if seq2 != 2 {
		t.Errorf("expected second sequence to be 2, got %d", seq2)
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without a sequence")
	}
}
