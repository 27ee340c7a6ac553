package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/surveytriage/internal/model"
)

// SimpleWriter outputs human-readable text.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints redaction kinds with zero count.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty lists a "none" line when nothing was redacted.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one run.
func (w *SimpleWriter) Write(run *model.RunSummary) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Run:        %s\n", run.ID)
	fmt.Fprintf(&sb, "Input:      %s\n", run.Input)
	fmt.Fprintf(&sb, "Started:    %s\n", run.StartedAt.Format(timeLayout))
	if d := run.Duration(); d > 0 {
		fmt.Fprintf(&sb, "Duration:   %s\n", d.Round(time.Millisecond))
	}
	fmt.Fprintf(&sb, "Status:     %s\n", status(run))
	if run.Error != "" {
		fmt.Fprintf(&sb, "Error:      %s\n", run.Error)
	}
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Rows:             %d\n", run.Rows)
	fmt.Fprintf(&sb, "Unique URLs:      %d\n", run.UniqueURLs)
	fmt.Fprintf(&sb, "Lookups OK:       %d\n", run.LookupsOK)
	fmt.Fprintf(&sb, "Cache hits:       %d\n", run.CacheHits)
	fmt.Fprintf(&sb, "Lookups degraded: %d\n", run.LookupsDegraded)
	fmt.Fprintf(&sb, "Easy nones:       %d\n", run.EasyNones)

	sb.WriteString("\nRedactions:\n")
	kinds := run.RedactionKinds()
	if len(kinds) == 0 {
		if w.showEmpty {
			sb.WriteString("  none\n")
		}
	}
	for _, kind := range kinds {
		fmt.Fprintf(&sb, "  %-10s %d\n", kind, run.Redactions[kind])
	}
	if len(run.Steps) > 0 {
		fmt.Fprintf(&sb, "\nSteps: %s\n", strings.Join(run.Steps, " -> "))
	}
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// WriteRuns outputs one line per run.
func (w *SimpleWriter) WriteRuns(runs []*model.RunSummary) (int, error) {
	if len(runs) == 0 {
		return io.WriteString(w.output, "No runs recorded.\n")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-26s  %-20s  %-9s  %6s  %10s  %s\n",
		"RUN", "STARTED", "STATUS", "ROWS", "REDACTIONS", "INPUT")
	for _, run := range runs {
		fmt.Fprintf(&sb, "%-26s  %-20s  %-9s  %6d  %10d  %s\n",
			run.ID,
			run.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			status(run),
			run.Rows,
			run.TotalRedactions(),
			run.Input,
		)
	}
	return io.WriteString(w.output, sb.String())
}
