package model

import (
	"maps"
	"slices"
	"time"
)

// RunSummary describes one execution of the clean pipeline over one input.
type RunSummary struct {
	// ID is the run identifier (a ULID string).
	ID string `json:"id"`

	// Input is the name of the processed input, usually a file path.
	Input string `json:"input"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Rows is the number of dataset rows processed.
	Rows int `json:"rows"`

	// UniqueURLs is the number of distinct page paths after deduplication.
	UniqueURLs int `json:"unique_urls"`

	// LookupsOK counts successful content API lookups.
	LookupsOK int `json:"lookups_ok"`

	// LookupsDegraded counts lookups that failed and kept classified data only.
	LookupsDegraded int `json:"lookups_degraded"`

	// CacheHits counts records served from the persistent page cache.
	CacheHits int `json:"cache_hits"`

	// Redactions counts placeholder substitutions per PII kind.
	Redactions map[string]int `json:"redactions,omitempty"`

	// EasyNones counts rows whose comment columns were all empty.
	EasyNones int `json:"easy_nones"`

	// Steps lists the pipeline steps that ran, in order.
	Steps []string `json:"steps,omitempty"`

	// Error holds the message of the step that failed, if any.
	Error string `json:"error,omitempty"`
}

// NewRunSummary creates a summary for the given run and input.
func NewRunSummary(id, input string) *RunSummary {
	return &RunSummary{
		ID:         id,
		Input:      input,
		StartedAt:  time.Now(),
		Redactions: make(map[string]int),
	}
}

// AddRedactions adds per-kind counts to the summary.
func (s *RunSummary) AddRedactions(counts map[string]int) {
	if s.Redactions == nil {
		s.Redactions = make(map[string]int)
	}
	for kind, n := range counts {
		s.Redactions[kind] += n
	}
}

// TotalRedactions returns the number of substitutions across all kinds.
func (s *RunSummary) TotalRedactions() int {
	total := 0
	for _, n := range s.Redactions {
		total += n
	}
	return total
}

// RedactionKinds returns the kinds with at least one redaction, sorted.
func (s *RunSummary) RedactionKinds() []string {
	return slices.Sorted(maps.Keys(s.Redactions))
}

// Duration returns how long the run took, or zero when it has not finished.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
