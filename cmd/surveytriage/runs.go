package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nao1215/surveytriage/internal/cache"
	"github.com/nao1215/surveytriage/internal/config"
	"github.com/nao1215/surveytriage/internal/database"
	"github.com/nao1215/surveytriage/internal/model"
	"github.com/nao1215/surveytriage/internal/report"
	"github.com/spf13/cobra"
)

// defaultRunsLimit is the number of runs listed when --limit is not set.
const defaultRunsLimit = 20

// NewRunsCmd creates the runs command.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Inspect recorded clean runs, URL records and scrub audit entries",
		Long: `Runs reads the local database written by 'surveytriage clean'.

Without arguments it lists the most recent runs. With a run ID it shows that
run's summary, and with --audit the digests of every cell the run scrubbed.

Examples:
  # List the last 20 runs
  surveytriage runs

  # Show one run as Markdown
  surveytriage runs -f markdown 01JB6Z3W4V9Q8N2M7K5H3G1F0E

  # Show the scrub audit trail of a run
  surveytriage runs --audit 01JB6Z3W4V9Q8N2M7K5H3G1F0E

  # Find where a comment was scrubbed, by its SHA3-256 digest
  surveytriage runs --digest 3a985da74fe225b2...

  # Show stored URL records for a page
  surveytriage runs --page /browse/tax

  # Remove expired page cache entries
  surveytriage runs --purge-cache

  # Force the next clean to look a page up again
  surveytriage runs --invalidate /browse/tax
  surveytriage runs --cache redis --redis-addr localhost:6379 --invalidate /browse/tax`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunsCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultRunsLimit,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().StringP("format", "f", string(report.FormatText),
		"Output format: text, json or markdown")
	cmd.Flags().BoolP("audit", "a", false,
		"List the scrub audit entries of the given run")
	cmd.Flags().String("digest", "",
		"Find audit entries by SHA3-256 digest")
	cmd.Flags().String("page", "",
		"List stored URL records classified to this page")
	cmd.Flags().Bool("purge-cache", false,
		"Delete page cache entries older than the cache TTL")
	cmd.Flags().String("invalidate", "",
		"Remove this page from the configured page cache")
	cmd.Flags().String("cache", config.CacheSQLite,
		"Page cache backend used by --invalidate: sqlite or redis")
	cmd.Flags().String("redis-addr", "",
		"Redis address for the redis cache backend (host:port)")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runRunsCmd executes the runs command.
func runRunsCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
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
	showAudit, err := cmd.Flags().GetBool("audit")
	if err != nil {
		return err
	}
	digest, err := cmd.Flags().GetString("digest")
	if err != nil {
		return err
	}
	page, err := cmd.Flags().GetString("page")
	if err != nil {
		return err
	}
	purge, err := cmd.Flags().GetBool("purge-cache")
	if err != nil {
		return err
	}
	invalidate, err := cmd.Flags().GetString("invalidate")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	if showAudit && len(args) == 0 {
		return errors.New("run ID is required with --audit (run 'surveytriage runs' to list runs)")
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// The redis backend needs no database, so this runs before opening it.
	if invalidate != "" {
		return invalidatePage(ctx, cfg, invalidate, out)
	}

	store, err := openExistingStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case purge:
		n, err := store.PageCache(cfg.CacheTTL).Purge(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d expired page cache entries\n", n)
		return nil
	case digest != "":
		entries, err := store.FindDigest(ctx, strings.ToLower(digest))
		if err != nil {
			return err
		}
		return writeAudit(out, entries)
	case page != "":
		records, err := store.ListURLRecordsByPage(ctx, page)
		if err != nil {
			return err
		}
		return writeRecords(out, records)
	case len(args) == 1 && showAudit:
		entries, err := store.ListAudit(ctx, args[0])
		if err != nil {
			return err
		}
		return writeAudit(out, entries)
	case len(args) == 1:
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = report.NewWriter(format, out).Write(run)
		return err
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet. Use 'surveytriage clean' to process a survey export.")
		return nil
	}
	_, err = report.NewWriter(format, out).WriteRuns(runs)
	return err
}

// openExistingStore opens the database without creating it.
func openExistingStore(cfg *config.Config) (*database.Store, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	store, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("no database in %s (run 'surveytriage clean' first): %w", cfg.DBDir, err)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// pageInvalidator removes a single page from a page cache.
type pageInvalidator interface {
	Invalidate(ctx context.Context, page string) error
}

// invalidatePage removes page from the configured cache backend.
func invalidatePage(ctx context.Context, cfg *config.Config, page string, w io.Writer) error {
	var pc pageInvalidator
	switch cfg.CacheBackend {
	case config.CacheRedis:
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		rc := cache.NewRedis(client, cache.WithTTL(cfg.CacheTTL))
		defer rc.Close()
		pc = rc
	case config.CacheSQLite:
		store, err := openExistingStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		pc = store.PageCache(cfg.CacheTTL)
	default:
		return fmt.Errorf("no page cache to invalidate (cache backend: %s)", cfg.CacheBackend)
	}

	if err := pc.Invalidate(ctx, page); err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed %s from the %s page cache\n", page, cfg.CacheBackend)
	return nil
}

// writeAudit prints audit entries as an aligned table.
func writeAudit(w io.Writer, entries []database.AuditEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No audit entries found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tROW\tCOLUMN\tKINDS\tDIGEST")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			e.RunID, e.Row, e.Column, strings.Join(e.Kinds, ","), e.Digest)
	}
	return tw.Flush()
}

// writeRecords prints stored URL records as an aligned table.
func writeRecords(w io.Writer, records []model.URLRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No URL records found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tORGS\tSECTIONS\tSTATUS\tLOOKED UP")
	for _, r := range records {
		status, lookedUp := "-", "-"
		if r.LookedUp() {
			status = strconv.Itoa(r.Status)
			lookedUp = r.LookedUpAt.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.FullURL,
			orDash(strings.Join(r.Orgs, ", ")),
			orDash(strings.Join(r.Sections, ", ")),
			status, lookedUp)
	}
	return tw.Flush()
}
