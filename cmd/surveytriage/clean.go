package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/surveytriage/internal/config"
	"github.com/nao1215/surveytriage/internal/dataset"
	"github.com/nao1215/surveytriage/internal/database"
	"github.com/nao1215/surveytriage/internal/lookup"
	"github.com/nao1215/surveytriage/internal/metrics"
	"github.com/nao1215/surveytriage/internal/pipeline"
	"github.com/nao1215/surveytriage/internal/report"
	"github.com/nao1215/surveytriage/internal/scrub"
	"github.com/spf13/cobra"
)

// cleanSuffix is appended to the base name of every cleaned file.
const cleanSuffix = "_clean"

// errOutputCollision is returned when two inputs would be cleaned into the
// same file, or when a cleaned file would overwrite another input.
var errOutputCollision = errors.New("cleaned output collides")

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [file...]",
		Short: "Scrub PII from survey exports and enrich them with page metadata",
		Long: `Clean runs the triage pipeline over one or more survey exports (.csv or .xlsx).

For every input file it:
- Replaces PII in comment columns with placeholders such as {{ PHONE NUMBER }}
- Classifies the page path of every response and looks it up in the content API
- Adds page, org0..N, section0..N, status, lookup_date and easy_none columns
- Writes <name>_clean.<ext> next to the input or into --output-dir
- Stores URL records and a run summary in the local database

A failed lookup never drops a row: the row keeps its rule-based classification.

Examples:
  # Clean a single export
  surveytriage clean responses.csv

  # Clean several exports, four at a time, into ./cleaned
  surveytriage clean -b 4 -o cleaned week1.csv week2.xlsx

  # Scrub only, without calling the content API
  surveytriage clean --no-lookup responses.csv

  # Mask residual digits and print a Markdown summary
  surveytriage clean --profile masked -f markdown responses.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCleanCmd,
	}

	addLookupFlags(cmd)
	addScrubFlags(cmd)

	cmd.Flags().Bool("no-lookup", false,
		"Classify paths with the built-in rules only")

	cmd.Flags().String("url-column", dataset.DefaultURLColumn,
		"Column holding the page path of each response")
	cmd.Flags().String("comment-marker", dataset.DefaultCommentMarker,
		"Columns whose header contains this marker are scrubbed")
	cmd.Flags().StringSlice("columns", nil,
		"Explicit columns to scrub (replaces --comment-marker selection)")
	cmd.Flags().Bool("audit", false,
		"Store a SHA3-256 digest of every changed cell")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of files cleaned concurrently")
	cmd.Flags().StringP("output-dir", "o", "",
		"Directory for cleaned files (default: next to each input)")
	cmd.Flags().Bool("no-db", false,
		"Do not persist URL records and run summaries")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")
	cmd.Flags().StringP("format", "f", string(report.FormatText),
		"Summary format: text, json or markdown")
	cmd.Flags().StringP("report", "r", "",
		"Write the summary to this file instead of stdout")

	return cmd
}

// runCleanCmd executes the clean command.
func runCleanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}
	reportPath, err := cmd.Flags().GetString("report")
	if err != nil {
		return err
	}
	if err := checkCleanedPaths(args, cfg.OutputDir); err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	scrubber, err := cfg.NewScrubber()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	a := newApp(cfg, logger, metrics.New())
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to release resources", "error", err)
		}
	}()

	resolver, err := a.Resolver(ctx)
	if err != nil {
		return err
	}

	var store *database.Store
	if cfg.SaveToDB {
		if store, err = a.Store(); err != nil {
			return err
		}
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out, closeOut, err := openReport(cmd.OutOrStdout(), reportPath)
	if err != nil {
		return err
	}
	defer closeOut()

	c := &cleaner{
		cfg:      cfg,
		scrubber: scrubber,
		resolver: resolver,
		store:    store,
		metrics:  a.metrics,
		logger:   logger,
	}
	return c.run(ctx, args, report.NewWriter(format, out), cmd.ErrOrStderr())
}

// cleaner builds one clean pipeline per input and reports the results.
type cleaner struct {
	cfg      *config.Config
	scrubber *scrub.Scrubber
	resolver *lookup.Resolver
	store    *database.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// newPipeline creates the pipeline for one input file.
func (c *cleaner) newPipeline(input string) *pipeline.Pipeline {
	scrubOpts := []pipeline.ScrubStepOption{
		pipeline.WithCommentMarker(c.cfg.CommentMarker),
		pipeline.WithAudit(c.cfg.Audit),
		pipeline.WithScrubLogger(c.logger),
	}
	if len(c.cfg.ScrubColumns) > 0 {
		scrubOpts = append(scrubOpts, pipeline.WithScrubColumns(c.cfg.ScrubColumns...))
	}
	if c.metrics != nil {
		scrubOpts = append(scrubOpts, pipeline.WithRedactionObserver(c.metrics))
	}

	p := pipeline.New(pipeline.WithLogger(c.logger))
	p.AddSteps(
		pipeline.NewScrubStep(c.scrubber, scrubOpts...),
		pipeline.NewLookupStep(c.resolver,
			pipeline.WithURLColumn(c.cfg.URLColumn),
			pipeline.WithLookupLogger(c.logger),
		),
		pipeline.NewEasyNoneStep(c.cfg.CommentMarker, c.cfg.ScrubColumns...),
		pipeline.NewWriteStep(cleanedPath(input, c.cfg.OutputDir)),
	)
	if c.store != nil {
		p.AddStep(pipeline.NewPersistStep(c.store))
	}
	return p
}

// run cleans inputs concurrently. Summaries are written to w as runs
// finish; progress goes to progress.
func (c *cleaner) run(ctx context.Context, inputs []string, w report.Writer, progress io.Writer) error {
	fmt.Fprintf(progress, "Cleaning %d file(s) (concurrency: %d)...\n", len(inputs), c.cfg.BatchSize)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(c.newPipeline,
		pipeline.WithConcurrency(c.cfg.BatchSize),
		pipeline.WithBatchLogger(c.logger),
	)

	var (
		mu     sync.Mutex
		done   int
		failed int
	)
	err := bp.ProcessBatchWithCallback(ctx, inputs, func(job *pipeline.Job, _ int) {
		mu.Lock()
		defer mu.Unlock()

		done++
		runFailed := job.Summary.Error != ""
		if runFailed {
			failed++
		}
		if c.metrics != nil {
			c.metrics.RunDone(job.Summary.Rows, runFailed)
		}

		fmt.Fprintf(progress, "[%d/%d] %s: %d rows, %d redactions\n",
			done, len(inputs), job.Input, job.Summary.Rows, job.Summary.TotalRedactions())
		if _, err := w.Write(job.Summary); err != nil {
			c.logger.Error("report failed", "input", job.Input, "error", err)
		}
	})

	fmt.Fprintf(progress, "Cleaning completed in %s\n", elapsedString(time.Since(startTime)))

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d input(s) failed", failed, len(inputs))
	}
	return nil
}

// cleanedPath returns where the cleaned copy of input is written.
func cleanedPath(input, outputDir string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext) + cleanSuffix + ext

	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name)
}

// checkCleanedPaths rejects inputs whose cleaned files would overwrite each
// other or another input. Inputs run concurrently, so a shared output file
// would silently lose one of them.
func checkCleanedPaths(inputs []string, outputDir string) error {
	owners := make(map[string]string, 2*len(inputs))
	for _, input := range inputs {
		owners[filepath.Clean(input)] = input
	}
	for _, input := range inputs {
		out := filepath.Clean(cleanedPath(input, outputDir))
		if other, ok := owners[out]; ok {
			if filepath.Clean(other) == out {
				return fmt.Errorf("%w: cleaning %s would overwrite input %s", errOutputCollision, input, other)
			}
			return fmt.Errorf("%w: %s and %s both clean into %s", errOutputCollision, other, input, out)
		}
		owners[out] = input
	}
	return nil
}

// openReport returns the summary destination: stdout, or the file at path
// created with owner-only permissions.
func openReport(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
