package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/surveytriage/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		s, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer s.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if s.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", s.Path())
		}
	})

	t.Run("CreateIfNotExists=false requires existing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		s, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := s.SaveRun(context.Background(), model.NewRunSummary("01HZZZZZZZZZZZZZZZZZZZZZZZ", "a.csv")); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		_ = s.Close()

		s, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer s.Close()
		runs, err := s.ListRuns(context.Background(), 0)
		if err != nil || len(runs) != 1 {
			t.Errorf("expected 1 run after reopen, got %d (%v)", len(runs), err)
		}
	})
}

func TestPageCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetched := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("round trip and expiry", func(t *testing.T) {
		t.Parallel()

		s := setupTestDB(t)
		now := fetched.Add(time.Hour)
		s.now = func() time.Time { return now }
		cache := s.PageCache(24 * time.Hour)

		if _, ok, err := cache.Get(ctx, "/tax"); err != nil || ok {
			t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
		}

		info := model.PageInfo{
			Page:      "/tax",
			Orgs:      []string{"HM Revenue & Customs"},
			Sections:  []string{"/browse/tax"},
			Status:    200,
			FetchedAt: fetched,
		}
		if err := cache.Put(ctx, info); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, ok, err := cache.Get(ctx, "/tax")
		if err != nil || !ok {
			t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
		}
		if !slices.Equal(got.Orgs, info.Orgs) || !got.FetchedAt.Equal(fetched) {
			t.Errorf("got %+v", got)
		}

		now = fetched.Add(25 * time.Hour)
		if _, ok, _ := cache.Get(ctx, "/tax"); ok {
			t.Error("expected expired entry to miss")
		}
	})

	t.Run("put replaces entry", func(t *testing.T) {
		t.Parallel()

		s := setupTestDB(t)
		cache := s.PageCache(0)
		for _, org := range []string{"old", "new"} {
			if err := cache.Put(ctx, model.PageInfo{Page: "/p", Orgs: []string{org}, Status: 200, FetchedAt: fetched}); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
		}
		got, ok, err := cache.Get(ctx, "/p")
		if err != nil || !ok || got.Orgs[0] != "new" {
			t.Errorf("expected replaced entry, got %+v ok=%v err=%v", got, ok, err)
		}
	})

	t.Run("invalidate removes one page", func(t *testing.T) {
		t.Parallel()

		s := setupTestDB(t)
		cache := s.PageCache(0)
		_ = cache.Put(ctx, model.PageInfo{Page: "/tax", Status: 200, FetchedAt: fetched})
		_ = cache.Put(ctx, model.PageInfo{Page: "/visas", Status: 200, FetchedAt: fetched})

		if err := cache.Invalidate(ctx, "/tax"); err != nil {
			t.Fatalf("Invalidate() error = %v", err)
		}
		if _, ok, _ := cache.Get(ctx, "/tax"); ok {
			t.Error("expected miss after invalidate")
		}
		if _, ok, _ := cache.Get(ctx, "/visas"); !ok {
			t.Error("expected other entry to survive")
		}
		if err := cache.Invalidate(ctx, "/absent"); err != nil {
			t.Errorf("Invalidate() of absent page error = %v", err)
		}
	})

	t.Run("purge removes expired entries", func(t *testing.T) {
		t.Parallel()

		s := setupTestDB(t)
		s.now = func() time.Time { return fetched.Add(48 * time.Hour) }
		cache := s.PageCache(24 * time.Hour)

		_ = cache.Put(ctx, model.PageInfo{Page: "/old", Status: 200, FetchedAt: fetched})
		_ = cache.Put(ctx, model.PageInfo{Page: "/new", Status: 200, FetchedAt: fetched.Add(47 * time.Hour)})

		n, err := cache.Purge(ctx)
		if err != nil {
			t.Fatalf("Purge() error = %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 purged entry, got %d", n)
		}
		if _, ok, _ := cache.Get(ctx, "/new"); !ok {
			t.Error("expected fresh entry to survive")
		}
	})
}

func TestURLRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := setupTestDB(t)
	lookedUp := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	records := []model.URLRecord{
		{
			FullURL:    "/government/world/france",
			Page:       "/government/world",
			Orgs:       []string{"Foreign & Commonwealth Office", "Other"},
			Status:     200,
			LookedUpAt: lookedUp,
		},
		{FullURL: "/government/world/spain", Page: "/government/world", Orgs: []string{"Foreign & Commonwealth Office"}},
		{FullURL: "", Page: "/"},
	}
	if err := s.SaveURLRecords(ctx, "run-1", records); err != nil {
		t.Fatalf("SaveURLRecords() error = %v", err)
	}

	got, err := s.GetURLRecord(ctx, "/government/world/france")
	if err != nil {
		t.Fatalf("GetURLRecord() error = %v", err)
	}
	if !slices.Equal(got.Orgs, records[0].Orgs) || got.Status != 200 || !got.LookedUpAt.Equal(lookedUp) {
		t.Errorf("got %+v", got)
	}
	if got.Sections != nil {
		t.Errorf("expected nil sections, got %v", got.Sections)
	}

	spain, err := s.GetURLRecord(ctx, "/government/world/spain")
	if err != nil {
		t.Fatalf("GetURLRecord() error = %v", err)
	}
	if !spain.LookedUpAt.IsZero() || spain.Status != model.StatusNotAttempted {
		t.Errorf("expected not-attempted record, got %+v", spain)
	}

	byPage, err := s.ListURLRecordsByPage(ctx, "/government/world")
	if err != nil || len(byPage) != 2 {
		t.Fatalf("expected 2 records, got %d (%v)", len(byPage), err)
	}

	if _, err := s.GetURLRecord(ctx, "/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	records[1].Status = 200
	if err := s.SaveURLRecords(ctx, "run-2", records[1:2]); err != nil {
		t.Fatalf("SaveURLRecords() error = %v", err)
	}
	spain, _ = s.GetURLRecord(ctx, "/government/world/spain")
	if spain.Status != 200 {
		t.Errorf("expected upsert to update status, got %d", spain.Status)
	}
}

func TestRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := setupTestDB(t)

	first := model.NewRunSummary("01HAAAAAAAAAAAAAAAAAAAAAAA", "a.csv")
	second := model.NewRunSummary("01HBBBBBBBBBBBBBBBBBBBBBBB", "b.csv")
	second.AddRedactions(map[string]int{"email": 2})
	second.FinishedAt = second.StartedAt.Add(time.Second)

	for _, run := range []*model.RunSummary{first, second} {
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID {
		t.Fatalf("expected newest run first, got %+v", runs)
	}

	limited, _ := s.ListRuns(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("expected 1 run, got %d", len(limited))
	}

	got, err := s.GetRun(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Redactions["email"] != 2 || got.Input != "b.csv" {
		t.Errorf("got %+v", got)
	}

	if _, err := s.GetRun(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.SaveRun(ctx, &model.RunSummary{}); err == nil {
		t.Error("expected error for run without id")
	}
}

func TestAudit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := setupTestDB(t)

	entries := []AuditEntry{
		{RunID: "run-1", Row: 2, Column: "comment", Digest: "bbb", Kinds: []string{"email"}},
		{RunID: "run-1", Row: 0, Column: "comment", Digest: "aaa", Kinds: []string{"phone", "date"}},
		{RunID: "run-2", Row: 0, Column: "comment", Digest: "aaa"},
	}
	if err := s.SaveAudit(ctx, entries); err != nil {
		t.Fatalf("SaveAudit() error = %v", err)
	}
	if err := s.SaveAudit(ctx, nil); err != nil {
		t.Errorf("expected empty save to succeed, got %v", err)
	}

	got, err := s.ListAudit(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if len(got) != 2 || got[0].Row != 0 || !slices.Equal(got[0].Kinds, []string{"phone", "date"}) {
		t.Errorf("got %+v", got)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	matches, err := s.FindDigest(ctx, "aaa")
	if err != nil || len(matches) != 2 {
		t.Errorf("expected 2 matches, got %d (%v)", len(matches), err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  time.Time
	}{
		{input: "2024-01-02 03:04:05", want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{input: "2024-01-02T03:04:05Z", want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{input: "2024-01-02T03:04:05.5Z", want: time.Date(2024, 1, 2, 3, 4, 5, 500000000, time.UTC)},
		{input: "garbage", want: time.Time{}},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, expected %v", tt.input, got, tt.want)
		}
	}

	ts := time.Date(2024, 1, 2, 3, 4, 5, 123, time.UTC)
	if got := parseTimestamp(formatTimestamp(ts).String); !got.Equal(ts) {
		t.Errorf("round trip = %v", got)
	}
	if formatTimestamp(time.Time{}).Valid {
		t.Error("expected zero time to format as NULL")
	}
}
