package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/surveytriage/internal/model"
)

// JSONWriter outputs runs as JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one run.
func (w *JSONWriter) Write(run *model.RunSummary) (int, error) {
	return w.writeJSON(newRunReport(run))
}

// WriteRuns outputs the runs as a JSON array.
func (w *JSONWriter) WriteRuns(runs []*model.RunSummary) (int, error) {
	out := make([]runReport, len(runs))
	for i, run := range runs {
		out[i] = newRunReport(run)
	}
	return w.writeJSON(out)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

// runReport adds derived fields to a summary.
type runReport struct {
	*model.RunSummary

	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
	TotalRedactions int     `json:"total_redactions"`
}

func newRunReport(run *model.RunSummary) runReport {
	return runReport{
		RunSummary:      run,
		Status:          status(run),
		DurationSeconds: run.Duration().Seconds(),
		TotalRedactions: run.TotalRedactions(),
	}
}

// VersionedWriter wraps every document with the tool version.
type VersionedWriter struct {
	*JSONWriter

	version string
}

// NewVersionedWriter creates a JSON writer that records version.
func NewVersionedWriter(output io.Writer, version string, opts ...JSONWriterOption) *VersionedWriter {
	return &VersionedWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs one run wrapped with the version.
func (w *VersionedWriter) Write(run *model.RunSummary) (int, error) {
	return w.writeJSON(struct {
		Version string    `json:"version"`
		Run     runReport `json:"run"`
	}{w.version, newRunReport(run)})
}
