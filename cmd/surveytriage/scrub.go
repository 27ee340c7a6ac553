package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/nao1215/surveytriage/internal/scrub"
	"github.com/spf13/cobra"
)

// NewScrubCmd creates the scrub command.
func NewScrubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrub [text...]",
		Short: "Replace PII in free text with placeholder tokens",
		Long: `Scrub replaces personal information with placeholder tokens such as
{{ EMAIL }} or {{ NI NUMBER }}. Each argument is scrubbed separately; with no
argument, stdin is scrubbed line by line.

Patterns run in precedence order (passport, date, phone, ni, vrp, email by
default). Text already replaced by one pattern is never matched again.

Examples:
  surveytriage scrub "my number is 07911 123456"

  # Mask every remaining digit as well
  surveytriage scrub --profile masked "flat 12, 3 Main Street"

  # JSON output with per-kind counts and the SHA3-256 digest of each input
  surveytriage scrub --json < comments.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrubCmd,
	}

	addScrubFlags(cmd)
	cmd.Flags().BoolP("json", "j", false,
		"Output one JSON object per input")
	cmd.Flags().BoolP("stats", "s", false,
		"Print redaction counts per kind to stderr")

	return cmd
}

// scrubbedText is one JSON line of scrub output.
type scrubbedText struct {
	Text       string         `json:"text"`
	Redactions map[string]int `json:"redactions,omitempty"`
	Digest     string         `json:"digest,omitempty"`
}

// runScrubCmd executes the scrub command.
func runScrubCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	stats, err := cmd.Flags().GetBool("stats")
	if err != nil {
		return err
	}

	scrubber, err := cfg.NewScrubber()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	texts := args
	if len(texts) == 0 {
		if texts, err = readLines(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	encoder := json.NewEncoder(out)
	totals := make(map[string]int)
	for _, text := range texts {
		red := scrubber.Redact(text)
		counts := kindCounts(red.Counts)
		for kind, n := range counts {
			totals[kind] += n
		}

		if !asJSON {
			fmt.Fprintln(out, red.Text)
			continue
		}
		line := scrubbedText{Text: red.Text, Redactions: counts}
		if red.Changed() {
			line.Digest = scrub.Digest(text)
		}
		if err := encoder.Encode(line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if stats {
		errOut := cmd.ErrOrStderr()
		for _, kind := range slices.Sorted(maps.Keys(totals)) {
			fmt.Fprintf(errOut, "%-8s %d\n", kind, totals[kind])
		}
	}
	return nil
}

// kindCounts converts scrubber counts to string keys. It returns nil for no redactions.
func kindCounts(counts map[scrub.Kind]int) map[string]int {
	if len(counts) == 0 {
		return nil
	}
	out := make(map[string]int, len(counts))
	for kind, n := range counts {
		out[string(kind)] = n
	}
	return out
}
