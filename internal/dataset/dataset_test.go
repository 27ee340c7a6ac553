package dataset

import (
	"bytes"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/surveytriage/internal/model"
)

const sampleCSV = "\ufeffrespondent_id,full_url,comment_why_you_came,comment_further_comments\n" +
	"1,/browse/tax/income-tax,\"Call me on 07911 123456, thanks\",none\n" +
	"2,/government/world/france,,\n" +
	"3,,\"multi\nline\",NONE\n"

func TestReadCSV(t *testing.T) {
	t.Parallel()

	ds, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if ds.Header[0] != "respondent_id" {
		t.Errorf("expected BOM to be stripped, got %q", ds.Header[0])
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", ds.Len())
	}
	if got := ds.Column("comment_why_you_came"); got[0] != "Call me on 07911 123456, thanks" || got[2] != "multi\nline" {
		t.Errorf("unexpected comments %q", got)
	}

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, ErrNoHeader) {
			t.Errorf("expected ErrNoHeader, got %v", err)
		}
	})

	t.Run("ragged rows are padded", func(t *testing.T) {
		t.Parallel()

		ds, err := ReadCSV(strings.NewReader("a,b,c\n1\n1,2,3,4\n"))
		if err != nil {
			t.Fatalf("ReadCSV() error = %v", err)
		}
		if !slices.Equal(ds.Rows[0], []string{"1", "", ""}) || len(ds.Rows[1]) != 3 {
			t.Errorf("unexpected rows %q", ds.Rows)
		}
	})
}

func TestWriteCSVRoundTrip(t *testing.T) {
	t.Parallel()

	ds, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	again, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if !slices.Equal(again.Header, ds.Header) || !slices.EqualFunc(again.Rows, ds.Rows, slices.Equal) {
		t.Errorf("round trip changed the dataset:\n%q\n%q", ds.Rows, again.Rows)
	}
}

func TestFiles(t *testing.T) {
	t.Parallel()

	ds := model.NewDataset(
		[]string{"full_url", "comment"},
		[][]string{{"/tax", "hello"}, {"/", ""}, {"/help", "ok"}},
	)

	for _, name := range []string{"out.csv", "out.xlsx", "OUT.XLSX"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), name)
			if err := WriteFile(path, ds); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if !slices.Equal(got.Header, ds.Header) {
				t.Errorf("header = %q", got.Header)
			}
			if !slices.EqualFunc(got.Rows, ds.Rows, slices.Equal) {
				t.Errorf("rows = %q", got.Rows)
			}
		})
	}

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()

		if _, err := ReadFile("data.json"); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
		if err := WriteFile(filepath.Join(t.TempDir(), "x.txt"), ds); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})
}

func TestCommentColumns(t *testing.T) {
	t.Parallel()

	ds := model.NewDataset([]string{"id", "Comment_Why", "full_url", "comment_where", "comments"}, nil)

	if got := CommentColumns(ds, ""); !slices.Equal(got, []string{"Comment_Why", "comment_where", "comments"}) {
		t.Errorf("got %v", got)
	}
	if got := CommentColumns(ds, "where"); !slices.Equal(got, []string{"comment_where"}) {
		t.Errorf("got %v", got)
	}
	if err := RequireColumns(ds, "id", "full_url"); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if err := RequireColumns(ds, "id", "page"); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestJoinRecords(t *testing.T) {
	t.Parallel()

	ds := model.NewDataset([]string{"full_url"}, [][]string{{"/government/world/france"}, {""}, {"/help"}})
	lookedUp := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	records := []model.URLRecord{
		{
			FullURL:    "/government/world/france",
			Page:       "/government/world",
			Orgs:       []string{"Foreign & Commonwealth Office", "Second"},
			Sections:   []string{"/browse/abroad"},
			Status:     200,
			LookedUpAt: lookedUp,
		},
		{},
		{FullURL: "/help", Page: "/help", Sections: []string{"site-nav", "site-nav"}},
	}

	if replaced := JoinRecords(ds, records); replaced != nil {
		t.Errorf("unexpected replaced columns %v", replaced)
	}

	wantHeader := []string{"full_url", "page", "org0", "org1", "section0", "section1", "status", "lookup_date"}
	if !slices.Equal(ds.Header, wantHeader) {
		t.Fatalf("header = %v", ds.Header)
	}
	wantRows := [][]string{
		{"/government/world/france", "/government/world", "Foreign & Commonwealth Office", "Second", "/browse/abroad", "", "200", "2024-05-01T09:00:00Z"},
		{"", "", "", "", "", "", "", ""},
		{"/help", "/help", "", "", "site-nav", "site-nav", "", ""},
	}
	if !slices.EqualFunc(ds.Rows, wantRows, slices.Equal) {
		t.Errorf("rows =\n%q\nexpected\n%q", ds.Rows, wantRows)
	}
}

func TestJoinRecordsReplacedColumns(t *testing.T) {
	t.Parallel()

	ds := model.NewDataset(
		[]string{"status", "full_url", "page", "org0", "organisation"},
		[][]string{{"submitted", "/tax", "2", "mine", "keep"}},
	)
	replaced := JoinRecords(ds, []model.URLRecord{{FullURL: "/tax", Page: "/tax", Orgs: []string{"HMRC"}}})

	if !slices.Equal(replaced, []string{"status", "page", "org0"}) {
		t.Errorf("replaced = %v", replaced)
	}
	if got := ds.Column("page")[0]; got != "/tax" {
		t.Errorf("page = %q", got)
	}
	if got := ds.Column("org0")[0]; got != "HMRC" {
		t.Errorf("org0 = %q", got)
	}
	if got := ds.Column("organisation")[0]; got != "keep" {
		t.Errorf("organisation = %q", got)
	}
	if ds.ColumnIndex("section0") < 0 || ds.ColumnIndex("lookup_date") < 0 {
		t.Errorf("header = %v", ds.Header)
	}
}

func TestJoinRecordsMinimumWidth(t *testing.T) {
	t.Parallel()

	ds := model.NewDataset([]string{"full_url"}, [][]string{{"/tax"}})
	JoinRecords(ds, []model.URLRecord{{FullURL: "/tax", Page: "/tax"}})

	if ds.ColumnIndex("org0") < 0 || ds.ColumnIndex("section0") < 0 {
		t.Errorf("expected org0 and section0 columns, got %v", ds.Header)
	}
	if ds.ColumnIndex("org1") >= 0 {
		t.Errorf("unexpected org1 column in %v", ds.Header)
	}
}

func TestEasyNones(t *testing.T) {
	t.Parallel()

	ds, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	cols := CommentColumns(ds, "")

	got := EasyNones(ds, cols)
	if !slices.Equal(got, []bool{false, true, false}) {
		t.Errorf("got %v", got)
	}
	if got := EasyNones(ds, nil); slices.Contains(got, true) {
		t.Errorf("expected no easy nones without comment columns, got %v", got)
	}

	for _, cell := range []string{"", "  ", "none", "None", " NONE "} {
		if !IsNone(cell) {
			t.Errorf("IsNone(%q) = false", cell)
		}
	}
	if IsNone("nonetheless") {
		t.Error(`IsNone("nonetheless") = true`)
	}
}
