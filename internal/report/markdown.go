package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/surveytriage/internal/model"
)

// MarkdownWriter outputs runs as GitHub-flavoured Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs one run.
func (w *MarkdownWriter) Write(run *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Survey Triage Run")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + run.ID + "`"},
			{"Input", "`" + run.Input + "`"},
			{"Started", run.StartedAt.Format(timeLayout)},
			{"Duration", run.Duration().Round(time.Millisecond).String()},
			{"Status", statusText(run)},
		},
	})
	md.PlainText("")

	md.H2("Lookups")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Rows", strconv.Itoa(run.Rows)},
			{"Unique URLs", strconv.Itoa(run.UniqueURLs)},
			{"Lookups OK", strconv.Itoa(run.LookupsOK)},
			{"Cache hits", strconv.Itoa(run.CacheHits)},
			{"Degraded", strconv.Itoa(run.LookupsDegraded)},
			{"Easy nones", strconv.Itoa(run.EasyNones)},
		},
	})
	md.PlainText("")
	w.writeAlert(md, run)

	w.writeRedactions(md, run)

	if len(run.Steps) > 0 {
		md.H2("Steps")
		md.PlainText("")
		md.OrderedList(run.Steps...)
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by surveytriage*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeRedactions(md *markdown.Markdown, run *model.RunSummary) {
	md.H2("Redactions")
	md.PlainText("")

	kinds := run.RedactionKinds()
	if len(kinds) == 0 {
		md.PlainText("No PII was found in the comment columns.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(kinds)+1)
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Redactions by kind"),
		piechart.WithShowData(true),
	)
	for _, kind := range kinds {
		n := run.Redactions[kind]
		rows = append(rows, []string{kind, strconv.Itoa(n)})
		if n > 0 {
			chart.LabelAndIntValue(kind, uint64(n))
		}
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(run.TotalRedactions()) + "**"})

	md.Table(markdown.TableSet{Header: []string{"Kind", "Count"}, Rows: rows})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.RunSummary) {
	switch {
	case run.Error != "":
		md.Cautionf("The run failed: %s", run.Error)
	case run.LookupsDegraded > 0:
		md.Warningf("%d page(s) could not be looked up and carry classification data only.", run.LookupsDegraded)
	default:
		md.Tip("Every page was classified and looked up.")
	}
	md.PlainText("")
}

// WriteRuns outputs a table of runs.
func (w *MarkdownWriter) WriteRuns(runs []*model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Survey Triage Runs")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			"`" + run.ID + "`",
			run.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			statusText(run),
			strconv.Itoa(run.Rows),
			strconv.Itoa(run.TotalRedactions()),
			run.Input,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Started", "Status", "Rows", "Redactions", "Input"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

func statusText(run *model.RunSummary) string {
	switch status(run) {
	case "failed":
		return "❌ Failed"
	case "running":
		return "⏳ Running"
	case "degraded":
		return "⚠️ Degraded"
	default:
		return "✅ Complete"
	}
}
