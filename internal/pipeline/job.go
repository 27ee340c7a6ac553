package pipeline

import (
	"slices"
	"strings"

	"github.com/nao1215/surveytriage/internal/database"
	"github.com/nao1215/surveytriage/internal/model"
	"github.com/oklog/ulid/v2"
)

// Job is the state a pipeline works on: one input dataset and everything
// the steps learn about it.
type Job struct {
	// Input names the source, usually a file path.
	Input string

	// Dataset is modified in place by the steps.
	Dataset *model.Dataset

	// Records holds one URL record per dataset row once LookupStep ran.
	Records []model.URLRecord

	// Audit collects digests of scrubbed cells until PersistStep stores them.
	Audit []database.AuditEntry

	// Summary counts what the run did.
	Summary *model.RunSummary
}

// NewRunID returns a new lexicographically sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// NewJob creates a job with a fresh run ID.
func NewJob(input string, ds *model.Dataset) *Job {
	summary := model.NewRunSummary(NewRunID(), input)
	if ds != nil {
		summary.Rows = ds.Len()
	}
	return &Job{
		Input:   input,
		Dataset: ds,
		Summary: summary,
	}
}

// UniqueRecords returns the distinct records of the job, sorted by FullURL.
// Rows without a path are skipped.
func (j *Job) UniqueRecords() []model.URLRecord {
	seen := make(map[string]struct{}, len(j.Records))
	var out []model.URLRecord
	for _, rec := range j.Records {
		if rec.FullURL == "" {
			continue
		}
		if _, ok := seen[rec.FullURL]; ok {
			continue
		}
		seen[rec.FullURL] = struct{}{}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b model.URLRecord) int {
		return strings.Compare(a.FullURL, b.FullURL)
	})
	return out
}
