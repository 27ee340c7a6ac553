// Package report renders pipeline run summaries.
//
// Writers:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured JSON for other tools
//   - MarkdownWriter: GitHub-flavoured Markdown for sharing a run
//
// Writers implement the Writer interface and can be combined with MultiWriter.
package report
