package dataset

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/surveytriage/internal/model"
)

// Default column names.
const (
	// DefaultURLColumn holds the page path the survey was triggered on.
	DefaultURLColumn = "full_url"

	// DefaultCommentMarker selects comment columns by substring.
	DefaultCommentMarker = "comment"

	// EasyNoneColumn flags rows whose comments are all empty or "none".
	EasyNoneColumn = "easy_none"
)

// Join column names.
const (
	ColumnPage       = "page"
	ColumnStatus     = "status"
	ColumnLookupDate = "lookup_date"
	orgPrefix        = "org"
	sectionPrefix    = "section"
)

// CommentColumns returns the header names containing marker, case-insensitively,
// in header order. An empty marker means DefaultCommentMarker.
func CommentColumns(ds *model.Dataset, marker string) []string {
	if marker == "" {
		marker = DefaultCommentMarker
	}
	marker = strings.ToLower(marker)

	var cols []string
	for _, name := range ds.Header {
		if strings.Contains(strings.ToLower(name), marker) {
			cols = append(cols, name)
		}
	}
	return cols
}

// RequireColumns returns ErrMissingColumn for the first name not in the header.
func RequireColumns(ds *model.Dataset, names ...string) error {
	for _, name := range names {
		if ds.ColumnIndex(name) < 0 {
			return fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	return nil
}

// JoinRecords left-joins records onto ds row by row: records[i] belongs to
// row i. It adds page, org0..N, section0..N, status and lookup_date, where N
// is the widest record. Absent values are written as empty cells.
//
// Input columns that share a join column's name are overwritten; their names
// are returned in header order so the caller can report the collision.
func JoinRecords(ds *model.Dataset, records []model.URLRecord) []string {
	orgWidth, sectionWidth := 1, 1
	for _, rec := range records {
		orgWidth = max(orgWidth, len(rec.Orgs))
		sectionWidth = max(sectionWidth, len(rec.Sections))
	}

	n := ds.Len()
	pages := make([]string, n)
	statuses := make([]string, n)
	dates := make([]string, n)
	orgs := makeColumns(orgWidth, n)
	sections := makeColumns(sectionWidth, n)

	for i := 0; i < n && i < len(records); i++ {
		rec := records[i]
		pages[i] = rec.Page
		for j := range orgWidth {
			orgs[j][i] = rec.Org(j)
		}
		for j := range sectionWidth {
			sections[j][i] = rec.Section(j)
		}
		if rec.LookedUp() {
			statuses[i] = strconv.Itoa(rec.Status)
		}
		if !rec.LookedUpAt.IsZero() {
			dates[i] = rec.LookedUpAt.UTC().Format(time.RFC3339)
		}
	}

	type column struct {
		name   string
		values []string
	}
	joined := make([]column, 0, orgWidth+sectionWidth+3)
	joined = append(joined, column{ColumnPage, pages})
	for j, col := range orgs {
		joined = append(joined, column{orgPrefix + strconv.Itoa(j), col})
	}
	for j, col := range sections {
		joined = append(joined, column{sectionPrefix + strconv.Itoa(j), col})
	}
	joined = append(joined,
		column{ColumnStatus, statuses},
		column{ColumnLookupDate, dates},
	)

	var replaced []string
	for _, name := range ds.Header {
		if slices.ContainsFunc(joined, func(c column) bool { return c.name == name }) {
			replaced = append(replaced, name)
		}
	}
	for _, c := range joined {
		ds.SetColumn(c.name, c.values)
	}
	return replaced
}

func makeColumns(width, rows int) [][]string {
	cols := make([][]string, width)
	for i := range cols {
		cols[i] = make([]string, rows)
	}
	return cols
}

// IsNone reports whether a comment cell carries no content: empty,
// whitespace, or the literal "none" in any case.
func IsNone(cell string) bool {
	v := strings.TrimSpace(cell)
	return v == "" || strings.EqualFold(v, "none")
}

// EasyNones reports, per row, whether every one of cols is empty or "none".
// Rows are never easy nones when cols is empty.
func EasyNones(ds *model.Dataset, cols []string) []bool {
	out := make([]bool, ds.Len())
	if len(cols) == 0 {
		return out
	}
	idx := make([]int, 0, len(cols))
	for _, c := range cols {
		if i := ds.ColumnIndex(c); i >= 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return out
	}
	for r, row := range ds.Rows {
		none := true
		for _, i := range idx {
			if !IsNone(row[i]) {
				none = false
				break
			}
		}
		out[r] = none
	}
	return out
}
