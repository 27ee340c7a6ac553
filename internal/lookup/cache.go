package lookup

import (
	"context"

	"github.com/nao1215/surveytriage/internal/model"
)

// Cache stores content API results keyed by page.
// Implementations handle expiry: Get reports a miss for expired entries.
type Cache interface {
	// Get returns the cached info for page. ok is false on a miss.
	Get(ctx context.Context, page string) (info model.PageInfo, ok bool, err error)

	// Put stores info under info.Page.
	Put(ctx context.Context, info model.PageInfo) error
}

// Fetcher fetches page metadata. FromClient adapts a *contentapi.Client.
type Fetcher interface {
	Fetch(ctx context.Context, page string) (model.PageInfo, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, page string) (model.PageInfo, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, page string) (model.PageInfo, error) {
	return f(ctx, page)
}

// Observer is notified of every lookup outcome.
type Observer interface {
	// LookupDone is called once per distinct path that was scheduled.
	// outcome is "ok", "cached", "canceled" or a contentapi.Reason label.
	LookupDone(outcome string, seconds float64)
}
