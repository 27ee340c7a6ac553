package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nao1215/surveytriage/internal/lookup"
	"github.com/nao1215/surveytriage/internal/model"
	"github.com/nao1215/surveytriage/internal/urlclass"
	"github.com/spf13/cobra"
)

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [path...]",
		Short: "Classify GOV.UK page paths",
		Long: `Classify maps page paths to page, organisations and sections using the
built-in rules. Paths are read from the arguments, or one per line from
stdin when no argument is given.

With --lookup every distinct page is also looked up in the content API and
the result is merged into the rule-based classification.

Examples:
  # Show which rule classifies a path
  surveytriage classify /browse/tax/vat/rates

  # Enrich paths from a file and print JSON
  surveytriage classify --lookup --json < paths.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runClassifyCmd,
	}

	addLookupFlags(cmd)
	cmd.Flags().BoolP("lookup", "l", false,
		"Look pages up in the content API")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON")

	return cmd
}

// classifiedPath is one line of classify output.
type classifiedPath struct {
	model.URLRecord
	Rule string `json:"rule,omitempty"`
}

// runClassifyCmd executes the classify command.
func runClassifyCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	doLookup, err := cmd.Flags().GetBool("lookup")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		if paths, err = readLines(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	classifier := urlclass.New()
	results := make([]classifiedPath, len(paths))
	for i, p := range paths {
		rec, rule := classifier.Explain(p)
		results[i] = classifiedPath{URLRecord: rec, Rule: rule}
	}

	if doLookup {
		logger := setupLogger(cmd, cfg.Verbose)
		ctx, cancel := signalContext(cmd.Context(), logger)
		defer cancel()

		cfg.NoLookup = false
		a := newApp(cfg, logger, nil)
		defer a.Close() //nolint:errcheck // nothing to report after output

		resolver, err := a.Resolver(ctx)
		if err != nil {
			return err
		}
		records, stats := resolver.Resolve(ctx, paths)
		for i, rec := range lookup.Reassemble(paths, records) {
			results[i].URLRecord = rec
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d unique, %d looked up, %d cached, %d degraded\n",
			stats.Unique, stats.OK, stats.Cached, stats.Degraded)
	}

	if asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}
	return writeClassified(cmd.OutOrStdout(), results, doLookup)
}

// writeClassified prints results as an aligned table.
func writeClassified(w io.Writer, results []classifiedPath, withStatus bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "PATH\tPAGE\tORGS\tSECTIONS\tRULE"
	if withStatus {
		header += "\tSTATUS"
	}
	fmt.Fprintln(tw, header)

	for _, r := range results {
		line := strings.Join([]string{
			orDash(r.FullURL),
			orDash(r.Page),
			orDash(strings.Join(r.Orgs, ", ")),
			orDash(strings.Join(r.Sections, ", ")),
			orDash(r.Rule),
		}, "\t")
		if withStatus {
			status := "-"
			if r.LookedUp() {
				status = strconv.Itoa(r.Status)
			}
			line += "\t" + status
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// readLines returns the non-blank lines of r, trimmed.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return lines, nil
}
