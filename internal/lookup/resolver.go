package lookup

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/surveytriage/internal/contentapi"
	"github.com/nao1215/surveytriage/internal/model"
	"github.com/nao1215/surveytriage/internal/urlclass"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the default number of concurrent lookups.
const DefaultConcurrency = 8

// Lookup outcomes reported to the Observer.
const (
	OutcomeOK       = "ok"
	OutcomeCached   = "cached"
	OutcomeCanceled = "canceled"
)

// FromClient adapts a content API client to Fetcher.
func FromClient(c *contentapi.Client) Fetcher {
	return FetcherFunc(func(ctx context.Context, page string) (model.PageInfo, error) {
		res, err := c.Lookup(ctx, page)
		if err != nil {
			return model.PageInfo{}, err
		}
		return model.PageInfo{
			Page:      page,
			Orgs:      res.Orgs,
			Sections:  res.Sections,
			Status:    res.Status,
			FetchedAt: res.FetchedAt,
		}, nil
	})
}

// Stats summarizes one Resolve call.
type Stats struct {
	// Total is the number of paths passed in, including duplicates and blanks.
	Total int `json:"total"`

	// Unique is the number of distinct non-empty paths.
	Unique int `json:"unique"`

	// OK counts successful API lookups.
	OK int `json:"ok"`

	// Cached counts records served from the cache.
	Cached int `json:"cached"`

	// Degraded counts records returned as classified because the lookup
	// failed or was never scheduled.
	Degraded int `json:"degraded"`
}

// Resolver classifies and enriches page paths. It is safe for concurrent use.
type Resolver struct {
	fetcher     Fetcher
	classifier  *urlclass.Classifier
	cache       Cache
	observer    Observer
	concurrency int
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency sets the maximum number of concurrent lookups.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithCache enables the persistent page cache.
func WithCache(c Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithClassifier replaces the default rule table.
func WithClassifier(c *urlclass.Classifier) Option {
	return func(r *Resolver) {
		if c != nil {
			r.classifier = c
		}
	}
}

// WithObserver registers an observer for lookup outcomes.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

// WithLogger sets the logger. nil means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver. A nil fetcher disables lookups: every
// record is returned as classified.
func NewResolver(fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:     fetcher,
		classifier:  urlclass.New(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Classify classifies a single path without a lookup.
func (r *Resolver) Classify(path string) model.URLRecord {
	return r.classifier.Classify(path)
}

// Resolve deduplicates paths, classifies every distinct path and looks each
// one up. The result is keyed by the original path. Empty paths are absent
// values and are skipped.
//
// Cancelling ctx stops scheduling new lookups. Records that were not looked
// up are returned as classified and counted as degraded.
func (r *Resolver) Resolve(ctx context.Context, paths []string) (map[string]model.URLRecord, Stats) {
	unique := Dedupe(paths)
	stats := Stats{Total: len(paths), Unique: len(unique)}

	records := make([]model.URLRecord, len(unique))
	for i, path := range unique {
		records[i] = r.classifier.Classify(path)
	}

	if r.fetcher != nil && len(unique) > 0 {
		r.logger.Debug("starting lookups",
			"unique_paths", len(unique),
			"concurrency", r.concurrency,
		)
		outcomes := r.lookupAll(ctx, records)
		for _, o := range outcomes {
			switch o {
			case OutcomeOK:
				stats.OK++
			case OutcomeCached:
				stats.Cached++
			default:
				stats.Degraded++
			}
		}
	}

	out := make(map[string]model.URLRecord, len(unique))
	for _, rec := range records {
		out[rec.FullURL] = rec
	}
	return out, stats
}

// lookupAll updates records in place. Each worker owns one index, so the
// slices need no locking.
func (r *Resolver) lookupAll(ctx context.Context, records []model.URLRecord) []string {
	outcomes := make([]string, len(records))
	for i := range outcomes {
		outcomes[i] = OutcomeCanceled
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i := range records {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				r.observe(OutcomeCanceled, 0)
				return nil
			}
			records[i], outcomes[i] = r.lookupOne(ctx, records[i])
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	if err := ctx.Err(); err != nil {
		r.logger.Warn("lookups interrupted, remaining records keep classified data",
			"error", err,
		)
	}
	return outcomes
}

func (r *Resolver) lookupOne(ctx context.Context, rec model.URLRecord) (model.URLRecord, string) {
	start := time.Now()

	if r.cache != nil {
		info, ok, err := r.cache.Get(ctx, rec.Page)
		switch {
		case err != nil:
			r.logger.Warn("page cache read failed", "page", rec.Page, "error", err)
		case ok:
			r.observe(OutcomeCached, time.Since(start).Seconds())
			return info.Apply(rec), OutcomeCached
		}
	}

	info, err := r.fetcher.Fetch(ctx, rec.Page)
	if err != nil {
		outcome := contentapi.Reason(err)
		if ctx.Err() != nil {
			outcome = OutcomeCanceled
		}
		r.observe(outcome, time.Since(start).Seconds())
		r.logger.Warn("content lookup failed, keeping classified record",
			"page", rec.Page,
			"reason", outcome,
			"error", err,
		)
		return rec, outcome
	}
	info.Page = rec.Page
	r.observe(OutcomeOK, time.Since(start).Seconds())

	if r.cache != nil {
		if err := r.cache.Put(ctx, info); err != nil {
			r.logger.Warn("page cache write failed", "page", rec.Page, "error", err)
		}
	}
	return info.Apply(rec), OutcomeOK
}

func (r *Resolver) observe(outcome string, seconds float64) {
	if r.observer != nil {
		r.observer.LookupDone(outcome, seconds)
	}
}

// Dedupe returns the distinct non-empty paths in first-seen order.
func Dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Reassemble maps batch results back onto the full row set by equality on
// the original path. Rows with an empty path get a zero record.
func Reassemble(paths []string, records map[string]model.URLRecord) []model.URLRecord {
	out := make([]model.URLRecord, len(paths))
	for i, p := range paths {
		if rec, ok := records[p]; ok {
			out[i] = rec.Clone()
		}
	}
	return out
}
