package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/surveytriage/internal/model"
)

// Writer renders run summaries.
type Writer interface {
	// Write outputs one run. It returns the number of bytes written.
	Write(run *model.RunSummary) (int, error)

	// WriteRuns outputs a list of runs, newest first.
	WriteRuns(runs []*model.RunSummary) (int, error)
}

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = fmt.Errorf("unknown report format")

// ParseFormat parses a format name. The empty string means FormatText.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// NewWriter returns the writer for format.
func NewWriter(format Format, output io.Writer) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to every writer and stops at the first error.
func (m *MultiWriter) Write(run *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteRuns outputs the runs to every writer and stops at the first error.
func (m *MultiWriter) WriteRuns(runs []*model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteRuns(runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const timeLayout = "2006-01-02 15:04:05 MST"

// status returns a short run status.
func status(run *model.RunSummary) string {
	switch {
	case run.Error != "":
		return "failed"
	case run.FinishedAt.IsZero():
		return "running"
	case run.LookupsDegraded > 0:
		return "degraded"
	default:
		return "complete"
	}
}
