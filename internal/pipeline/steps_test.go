package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/surveytriage/internal/database"
	"github.com/nao1215/surveytriage/internal/dataset"
	"github.com/nao1215/surveytriage/internal/lookup"
	"github.com/nao1215/surveytriage/internal/model"
	"github.com/nao1215/surveytriage/internal/scrub"
)

var fetchedAt = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func surveyDataset() *model.Dataset {
	return model.NewDataset(
		[]string{"respondent_id", "full_url", "comment_why_you_came", "comment_further_comments", "notes"},
		[][]string{
			{"1", "/browse/tax/income-tax", "Call me on 07911 123456", "none", "07911 123456"},
			{"2", "/government/world/france", "", "", ""},
			{"3", "/browse/tax/income-tax", "email jo@example.com", "born 12/03/1980", ""},
			{"4", "", "none", "None", ""},
		},
	)
}

func okFetcher() lookup.Fetcher {
	return lookup.FetcherFunc(func(_ context.Context, page string) (model.PageInfo, error) {
		if page == "/government/world" {
			return model.PageInfo{}, errors.New("unavailable")
		}
		return model.PageInfo{
			Page:      page,
			Orgs:      []string{"HM Revenue & Customs"},
			Sections:  []string{"/browse/tax/income-tax"},
			Status:    http.StatusOK,
			FetchedAt: fetchedAt,
		}, nil
	})
}

type redactionCounter struct {
	mu     sync.Mutex
	counts map[scrub.Kind]int
}

func (r *redactionCounter) Redacted(counts map[scrub.Kind]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[scrub.Kind]int)
	}
	for k, n := range counts {
		r.counts[k] += n
	}
}

func TestScrubStep(t *testing.T) {
	t.Parallel()

	t.Run("scrubs comment columns only", func(t *testing.T) {
		t.Parallel()

		obs := &redactionCounter{}
		step := NewScrubStep(nil,
			WithAudit(true),
			WithRedactionObserver(obs),
			WithScrubLogger(discardLogger()),
		)
		job := NewJob("survey.csv", surveyDataset())

		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		why := job.Dataset.Column("comment_why_you_came")
		if why[0] != "Call me on {{ PHONE NUMBER }}" || why[2] != "email {{ EMAIL }}" {
			t.Errorf("comment_why_you_came = %q", why)
		}
		further := job.Dataset.Column("comment_further_comments")
		if further[2] != "born {{ DATE }}" || further[0] != "none" {
			t.Errorf("comment_further_comments = %q", further)
		}
		if got := job.Dataset.Column("notes")[0]; got != "07911 123456" {
			t.Errorf("expected non-comment column untouched, got %q", got)
		}

		wantCounts := map[string]int{"phone": 1, "email": 1, "date": 1}
		for kind, n := range wantCounts {
			if job.Summary.Redactions[kind] != n {
				t.Errorf("redactions[%s] = %d, expected %d", kind, job.Summary.Redactions[kind], n)
			}
		}
		if obs.counts[scrub.KindPhone] != 1 {
			t.Errorf("observer counts = %v", obs.counts)
		}

		if len(job.Audit) != 3 {
			t.Fatalf("expected 3 audit entries, got %d", len(job.Audit))
		}
		first := job.Audit[0]
		if first.Digest != scrub.Digest("Call me on 07911 123456") || first.Row != 0 || first.RunID != job.Summary.ID {
			t.Errorf("unexpected audit entry %+v", first)
		}
		if !slices.Equal(first.Kinds, []string{"phone"}) {
			t.Errorf("kinds = %v", first.Kinds)
		}
	})

	t.Run("explicit columns must exist", func(t *testing.T) {
		t.Parallel()

		step := NewScrubStep(nil, WithScrubColumns("free_text"), WithScrubLogger(discardLogger()))
		err := step.Do(context.Background(), NewJob("x", surveyDataset()))
		if !errors.Is(err, dataset.ErrMissingColumn) {
			t.Errorf("expected ErrMissingColumn, got %v", err)
		}
	})

	t.Run("explicit columns override the marker", func(t *testing.T) {
		t.Parallel()

		step := NewScrubStep(nil, WithScrubColumns("notes"), WithScrubLogger(discardLogger()))
		job := NewJob("x", surveyDataset())
		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if got := job.Dataset.Column("notes")[0]; got != "{{ PHONE NUMBER }}" {
			t.Errorf("notes = %q", got)
		}
		if got := job.Dataset.Column("comment_why_you_came")[0]; got != "Call me on 07911 123456" {
			t.Errorf("expected comment column untouched, got %q", got)
		}
	})

	t.Run("masked profile", func(t *testing.T) {
		t.Parallel()

		s := scrub.New(scrub.DefaultPatterns(), scrub.WithProfile(scrub.ProfileMasked))
		step := NewScrubStep(s, WithCommentMarker("why"), WithScrubLogger(discardLogger()))
		ds := model.NewDataset([]string{"why"}, [][]string{{"room 101"}})
		job := NewJob("x", ds)
		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if got := ds.Rows[0][0]; got != "room XXX" {
			t.Errorf("got %q", got)
		}
		if job.Summary.Redactions["digits"] != 3 {
			t.Errorf("redactions = %v", job.Summary.Redactions)
		}
	})

	t.Run("no dataset", func(t *testing.T) {
		t.Parallel()

		if err := NewScrubStep(nil).Do(context.Background(), NewJob("x", nil)); !errors.Is(err, ErrNoDataset) {
			t.Errorf("expected ErrNoDataset, got %v", err)
		}
	})
}

func TestLookupStep(t *testing.T) {
	t.Parallel()

	t.Run("joins records onto every row", func(t *testing.T) {
		t.Parallel()

		resolver := lookup.NewResolver(okFetcher(), lookup.WithLogger(discardLogger()))
		step := NewLookupStep(resolver, WithLookupLogger(discardLogger()))
		job := NewJob("survey.csv", surveyDataset())

		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		if len(job.Records) != 4 {
			t.Fatalf("expected one record per row, got %d", len(job.Records))
		}
		if job.Summary.UniqueURLs != 2 || job.Summary.LookupsOK != 1 || job.Summary.LookupsDegraded != 1 {
			t.Errorf("unexpected summary %+v", job.Summary)
		}

		pages := job.Dataset.Column(dataset.ColumnPage)
		if !slices.Equal(pages, []string{"/browse/tax", "/government/world", "/browse/tax", ""}) {
			t.Errorf("page = %q", pages)
		}
		org0 := job.Dataset.Column("org0")
		if org0[0] != "HM Revenue & Customs" || org0[1] != "Foreign & Commonwealth Office" {
			t.Errorf("org0 = %q", org0)
		}
		section0 := job.Dataset.Column("section0")
		if section0[0] != "tax" {
			t.Errorf("expected rule-set section to win, got %q", section0[0])
		}
		if job.Dataset.ColumnIndex("section1") >= 0 {
			t.Error("expected a single section column")
		}
		status := job.Dataset.Column(dataset.ColumnStatus)
		if !slices.Equal(status, []string{"200", "", "200", ""}) {
			t.Errorf("status = %q", status)
		}
	})

	t.Run("warns about overwritten input columns", func(t *testing.T) {
		t.Parallel()

		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, nil))
		resolver := lookup.NewResolver(okFetcher(), lookup.WithLogger(discardLogger()))
		step := NewLookupStep(resolver, WithLookupLogger(logger))
		job := NewJob("survey.csv", model.NewDataset(
			[]string{"full_url", "status"},
			[][]string{{"/browse/tax/income-tax", "complete"}},
		))

		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if got := job.Dataset.Column(dataset.ColumnStatus)[0]; got != "200" {
			t.Errorf("status = %q", got)
		}
		if !strings.Contains(logs.String(), "input columns overwritten") ||
			!strings.Contains(logs.String(), "status") {
			t.Errorf("expected overwrite warning, got %q", logs.String())
		}
	})

	t.Run("missing URL column", func(t *testing.T) {
		t.Parallel()

		step := NewLookupStep(lookup.NewResolver(nil), WithURLColumn("url"))
		err := step.Do(context.Background(), NewJob("x", surveyDataset()))
		if !errors.Is(err, dataset.ErrMissingColumn) {
			t.Errorf("expected ErrMissingColumn, got %v", err)
		}
	})
}

func TestEasyNoneStep(t *testing.T) {
	t.Parallel()

	job := NewJob("x", surveyDataset())
	if err := NewEasyNoneStep("").Do(context.Background(), job); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	got := job.Dataset.Column(dataset.EasyNoneColumn)
	if !slices.Equal(got, []string{"false", "true", "false", "true"}) {
		t.Errorf("easy_none = %q", got)
	}
	if job.Summary.EasyNones != 2 {
		t.Errorf("EasyNones = %d", job.Summary.EasyNones)
	}
}

func TestEasyNoneStepExplicitColumns(t *testing.T) {
	t.Parallel()

	job := NewJob("x", surveyDataset())
	step := NewEasyNoneStep("no-such-marker", "notes")
	if err := step.Do(context.Background(), job); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	got := job.Dataset.Column(dataset.EasyNoneColumn)
	if !slices.Equal(got, []string{"false", "true", "true", "true"}) {
		t.Errorf("easy_none = %q", got)
	}
	if job.Summary.EasyNones != 3 {
		t.Errorf("EasyNones = %d", job.Summary.EasyNones)
	}
}

func TestCancelDuringLookupWritesNothing(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := lookup.FetcherFunc(func(ctx context.Context, _ string) (model.PageInfo, error) {
		cancel()
		return model.PageInfo{}, ctx.Err()
	})
	out := filepath.Join(t.TempDir(), "clean.csv")

	p := New(WithLogger(discardLogger()))
	p.AddSteps(
		NewLookupStep(lookup.NewResolver(fetcher, lookup.WithLogger(discardLogger())),
			WithLookupLogger(discardLogger())),
		NewWriteStep(out),
	)

	job := NewJob("survey.csv", surveyDataset())
	if err := p.Execute(ctx, job); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !slices.Equal(job.Summary.Steps, []string{"lookup"}) {
		t.Errorf("steps = %v", job.Summary.Steps)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("expected no cleaned file after cancellation")
	}
}

func TestPersistAndWriteSteps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	out := filepath.Join(dir, "clean.csv")
	resolver := lookup.NewResolver(okFetcher(), lookup.WithLogger(discardLogger()))

	p := New(WithLogger(discardLogger()))
	p.AddSteps(
		NewScrubStep(nil, WithAudit(true), WithScrubLogger(discardLogger())),
		NewLookupStep(resolver, WithLookupLogger(discardLogger())),
		NewEasyNoneStep(""),
		NewPersistStep(store),
		NewWriteStep(out),
	)

	job := NewJob("survey.csv", surveyDataset())
	if err := p.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	ctx := context.Background()
	rec, err := store.GetURLRecord(ctx, "/browse/tax/income-tax")
	if err != nil {
		t.Fatalf("GetURLRecord() error = %v", err)
	}
	if rec.Page != "/browse/tax" || rec.Status != http.StatusOK {
		t.Errorf("unexpected stored record %+v", rec)
	}

	run, err := store.GetRun(ctx, job.Summary.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if !slices.Contains(run.Steps, "persist") || run.FinishedAt.IsZero() {
		t.Errorf("unexpected stored run %+v", run)
	}
	if run.TotalRedactions() != 3 {
		t.Errorf("stored redactions = %v", run.Redactions)
	}

	audit, err := store.ListAudit(ctx, job.Summary.ID)
	if err != nil || len(audit) != 3 {
		t.Errorf("expected 3 audit entries, got %d (%v)", len(audit), err)
	}

	written, err := dataset.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if written.ColumnIndex(dataset.EasyNoneColumn) < 0 || written.ColumnIndex("org0") < 0 {
		t.Errorf("written header = %v", written.Header)
	}
	if got := written.Column("comment_why_you_came")[0]; got != "Call me on {{ PHONE NUMBER }}" {
		t.Errorf("written comment = %q", got)
	}
}
