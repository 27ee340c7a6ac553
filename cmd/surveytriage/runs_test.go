package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nao1215/surveytriage/internal/cache"
	"github.com/nao1215/surveytriage/internal/database"
	"github.com/nao1215/surveytriage/internal/model"
)

func TestNewRunsCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRunsCmd()
	for _, name := range []string{"limit", "format", "audit", "digest", "page",
		"purge-cache", "invalidate", "cache", "redis-addr", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestRunsInvalidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	info := model.PageInfo{Page: "/browse/tax", Status: 200, FetchedAt: time.Now()}

	t.Run("sqlite page cache", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		store, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := store.PageCache(0).Put(ctx, info); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := store.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		stdout, _, err := executeCmd(t, nil, "runs", "--db-dir", dbDir, "--invalidate", "/browse/tax")
		if err != nil {
			t.Fatalf("runs --invalidate failed: %v", err)
		}
		if !strings.Contains(stdout, "Removed /browse/tax from the sqlite page cache") {
			t.Errorf("unexpected output %q", stdout)
		}

		store, err = database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		if _, ok, err := store.PageCache(0).Get(ctx, "/browse/tax"); err != nil || ok {
			t.Errorf("expected miss after invalidate, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("redis page cache", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client, err := cache.NewClient(ctx, cache.Config{Address: mr.Addr()})
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}
		rc := cache.NewRedis(client)
		t.Cleanup(func() { _ = rc.Close() })
		if err := rc.Put(ctx, info); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		// No database exists in db-dir; the redis backend must not need one.
		stdout, _, err := executeCmd(t, nil, "runs", "--db-dir", t.TempDir(),
			"--cache", "redis", "--redis-addr", mr.Addr(), "--invalidate", "/browse/tax")
		if err != nil {
			t.Fatalf("runs --invalidate failed: %v", err)
		}
		if !strings.Contains(stdout, "redis page cache") {
			t.Errorf("unexpected output %q", stdout)
		}
		if mr.Exists(rc.Key("/browse/tax")) {
			t.Error("expected redis key to be removed")
		}
	})

	t.Run("sqlite without database", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCmd(t, nil, "runs", "--db-dir", t.TempDir(), "--invalidate", "/browse/tax")
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("disabled cache", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCmd(t, nil, "runs", "--db-dir", t.TempDir(), "--cache", "none", "--invalidate", "/browse/tax")
		if err == nil || !strings.Contains(err.Error(), "no page cache") {
			t.Errorf("expected disabled cache error, got %v", err)
		}
	})
}
