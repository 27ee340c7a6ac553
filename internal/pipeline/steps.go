package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/nao1215/surveytriage/internal/database"
	"github.com/nao1215/surveytriage/internal/dataset"
	"github.com/nao1215/surveytriage/internal/lookup"
	"github.com/nao1215/surveytriage/internal/scrub"
)

// ErrNoDataset is returned when a step runs on a job without a dataset.
var ErrNoDataset = errors.New("job has no dataset")

// RedactionObserver is notified of every scrubbed cell.
type RedactionObserver interface {
	Redacted(counts map[scrub.Kind]int)
}

// ScrubStep replaces PII in every comment column.
type ScrubStep struct {
	scrubber *scrub.Scrubber
	marker   string
	columns  []string
	audit    bool
	observer RedactionObserver
	logger   *slog.Logger
}

// ScrubStepOption configures a ScrubStep.
type ScrubStepOption func(*ScrubStep)

// WithCommentMarker selects comment columns whose name contains marker.
func WithCommentMarker(marker string) ScrubStepOption {
	return func(s *ScrubStep) {
		s.marker = marker
	}
}

// WithScrubColumns scrubs exactly the named columns instead of matching by marker.
func WithScrubColumns(columns ...string) ScrubStepOption {
	return func(s *ScrubStep) {
		s.columns = columns
	}
}

// WithAudit records a SHA3-256 digest of every changed cell on the job.
func WithAudit(enabled bool) ScrubStepOption {
	return func(s *ScrubStep) {
		s.audit = enabled
	}
}

// WithRedactionObserver registers an observer for redaction counts.
func WithRedactionObserver(o RedactionObserver) ScrubStepOption {
	return func(s *ScrubStep) {
		s.observer = o
	}
}

// WithScrubLogger sets a custom logger for the scrub step.
func WithScrubLogger(logger *slog.Logger) ScrubStepOption {
	return func(s *ScrubStep) {
		s.logger = logger
	}
}

// NewScrubStep creates a scrub step. A nil scrubber means scrub.Default().
func NewScrubStep(scrubber *scrub.Scrubber, opts ...ScrubStepOption) *ScrubStep {
	if scrubber == nil {
		scrubber = scrub.Default()
	}
	s := &ScrubStep{
		scrubber: scrubber,
		marker:   dataset.DefaultCommentMarker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ScrubStep) Name() string {
	return "scrub"
}

// Do scrubs the comment columns in place. Empty cells are left alone.
func (s *ScrubStep) Do(_ context.Context, job *Job) error {
	if job.Dataset == nil {
		return ErrNoDataset
	}
	cols := s.columns
	if len(cols) == 0 {
		cols = dataset.CommentColumns(job.Dataset, s.marker)
	} else if err := dataset.RequireColumns(job.Dataset, cols...); err != nil {
		return err
	}
	if len(cols) == 0 {
		s.logger.Warn("no comment columns found", "marker", s.marker, "input", job.Input)
		return nil
	}

	totals := make(map[string]int)
	changed := 0
	for _, col := range cols {
		values := job.Dataset.Column(col)
		for i, cell := range values {
			if cell == "" {
				continue
			}
			r := s.scrubber.Redact(cell)
			if !r.Changed() {
				continue
			}
			changed++
			values[i] = r.Text
			kinds := make([]string, 0, len(r.Counts))
			for kind, n := range r.Counts {
				totals[string(kind)] += n
				kinds = append(kinds, string(kind))
			}
			if s.observer != nil {
				s.observer.Redacted(r.Counts)
			}
			if s.audit {
				job.Audit = append(job.Audit, database.AuditEntry{
					RunID:  job.Summary.ID,
					Row:    i,
					Column: col,
					Digest: scrub.Digest(cell),
					Kinds:  sortedStrings(kinds),
				})
			}
		}
		job.Dataset.SetColumn(col, values)
	}
	job.Summary.AddRedactions(totals)

	s.logger.Info("scrubbed comment columns",
		"columns", len(cols),
		"cells_changed", changed,
		"redactions", job.Summary.TotalRedactions(),
	)
	return nil
}

// LookupStep classifies and enriches the URL column and joins the results
// onto every row.
type LookupStep struct {
	resolver  *lookup.Resolver
	urlColumn string
	logger    *slog.Logger
}

// LookupStepOption configures a LookupStep.
type LookupStepOption func(*LookupStep)

// WithURLColumn sets the column holding page paths.
func WithURLColumn(name string) LookupStepOption {
	return func(s *LookupStep) {
		if name != "" {
			s.urlColumn = name
		}
	}
}

// WithLookupLogger sets a custom logger for the lookup step.
func WithLookupLogger(logger *slog.Logger) LookupStepOption {
	return func(s *LookupStep) {
		s.logger = logger
	}
}

// NewLookupStep creates a lookup step backed by resolver.
func NewLookupStep(resolver *lookup.Resolver, opts ...LookupStepOption) *LookupStep {
	s := &LookupStep{
		resolver:  resolver,
		urlColumn: dataset.DefaultURLColumn,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *LookupStep) Name() string {
	return "lookup"
}

// Do resolves the URL column. Lookup failures degrade single records and
// never fail the step.
func (s *LookupStep) Do(ctx context.Context, job *Job) error {
	if job.Dataset == nil {
		return ErrNoDataset
	}
	if err := dataset.RequireColumns(job.Dataset, s.urlColumn); err != nil {
		return err
	}

	paths := job.Dataset.Column(s.urlColumn)
	records, stats := s.resolver.Resolve(ctx, paths)
	job.Records = lookup.Reassemble(paths, records)
	if replaced := dataset.JoinRecords(job.Dataset, job.Records); len(replaced) > 0 {
		s.logger.Warn("input columns overwritten by lookup results",
			"input", job.Input,
			"columns", replaced,
		)
	}

	job.Summary.UniqueURLs = stats.Unique
	job.Summary.LookupsOK = stats.OK
	job.Summary.LookupsDegraded = stats.Degraded
	job.Summary.CacheHits = stats.Cached

	s.logger.Info("resolved page paths",
		"rows", stats.Total,
		"unique", stats.Unique,
		"ok", stats.OK,
		"cached", stats.Cached,
		"degraded", stats.Degraded,
	)
	return nil
}

// EasyNoneStep flags rows whose comment columns are all empty or "none".
type EasyNoneStep struct {
	marker  string
	columns []string
}

// NewEasyNoneStep creates the step. An empty marker means the default comment
// marker. When columns are given they are checked instead of the marker match,
// mirroring WithScrubColumns so both steps look at the same cells.
func NewEasyNoneStep(marker string, columns ...string) *EasyNoneStep {
	return &EasyNoneStep{marker: marker, columns: columns}
}

// Name returns the step name.
func (s *EasyNoneStep) Name() string {
	return "easy_none"
}

// Do adds the easy_none column.
func (s *EasyNoneStep) Do(_ context.Context, job *Job) error {
	if job.Dataset == nil {
		return ErrNoDataset
	}
	cols := s.columns
	if len(cols) == 0 {
		cols = dataset.CommentColumns(job.Dataset, s.marker)
	}
	flags := dataset.EasyNones(job.Dataset, cols)
	values := make([]string, len(flags))
	count := 0
	for i, f := range flags {
		values[i] = strconv.FormatBool(f)
		if f {
			count++
		}
	}
	job.Dataset.SetColumn(dataset.EasyNoneColumn, values)
	job.Summary.EasyNones = count
	return nil
}

// PersistStep stores URL records, audit entries and the run summary.
type PersistStep struct {
	store *database.Store
}

// NewPersistStep creates a persist step writing to store.
func NewPersistStep(store *database.Store) *PersistStep {
	return &PersistStep{store: store}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do writes the job to the store.
func (s *PersistStep) Do(ctx context.Context, job *Job) error {
	if err := s.store.SaveURLRecords(ctx, job.Summary.ID, job.UniqueRecords()); err != nil {
		return fmt.Errorf("failed to persist url records: %w", err)
	}
	if err := s.store.SaveAudit(ctx, job.Audit); err != nil {
		return fmt.Errorf("failed to persist audit entries: %w", err)
	}

	summary := *job.Summary
	summary.Steps = append(append([]string(nil), job.Summary.Steps...), s.Name())
	if summary.FinishedAt.IsZero() {
		summary.FinishedAt = time.Now()
	}
	if err := s.store.SaveRun(ctx, &summary); err != nil {
		return fmt.Errorf("failed to persist run: %w", err)
	}
	job.Summary.FinishedAt = summary.FinishedAt
	return nil
}

// WriteStep writes the cleaned dataset to a .csv or .xlsx file.
type WriteStep struct {
	path string
}

// NewWriteStep creates a step that writes to path.
func NewWriteStep(path string) *WriteStep {
	return &WriteStep{path: path}
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return "write"
}

// Do writes the dataset.
func (s *WriteStep) Do(_ context.Context, job *Job) error {
	if job.Dataset == nil {
		return ErrNoDataset
	}
	return dataset.WriteFile(s.path, job.Dataset)
}

func sortedStrings(s []string) []string {
	out := append([]string(nil), s...)
	slices.Sort(out)
	return out
}

var _ = []Step{
	(*ScrubStep)(nil),
	(*LookupStep)(nil),
	(*EasyNoneStep)(nil),
	(*PersistStep)(nil),
	(*WriteStep)(nil),
}
