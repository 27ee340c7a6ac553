package main

import (
	"encoding/json"
	"strings"
	"testing"
)

type classifyLine struct {
	FullURL  string   `json:"full_url"`
	Page     string   `json:"page"`
	Orgs     []string `json:"orgs"`
	Sections []string `json:"sections"`
	Status   int      `json:"status"`
	Rule     string   `json:"rule"`
}

func TestClassifyCmd(t *testing.T) {
	t.Parallel()

	t.Run("json output from arguments", func(t *testing.T) {
		t.Parallel()
		stdout, _, err := executeCmd(t, nil, "classify", "--json", "/browse/tax/vat", "/vat-rates")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got []classifyLine
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("failed to decode %q: %v", stdout, err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d records, want 2", len(got))
		}
		if got[0].Rule != "browse" || len(got[0].Sections) == 0 || got[0].Sections[0] != "tax" {
			t.Errorf("browse record = %+v", got[0])
		}
		if got[1].Rule != "top-level" || got[1].Page != "/vat-rates" {
			t.Errorf("top-level record = %+v", got[1])
		}
		if got[1].Status != 0 {
			t.Errorf("expected no lookup, got status %d", got[1].Status)
		}
	})

	t.Run("table output from stdin", func(t *testing.T) {
		t.Parallel()
		stdin := strings.NewReader("/government/world/france\n\n/contact/hmrc\n")
		stdout, _, err := executeCmd(t, stdin, "classify")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and two rows, got %q", stdout)
		}
		if !strings.HasPrefix(lines[0], "PATH") {
			t.Errorf("expected header, got %q", lines[0])
		}
		if !strings.Contains(lines[1], "government-world") {
			t.Errorf("expected government-world rule, got %q", lines[1])
		}
		if !strings.Contains(lines[2], "contact") {
			t.Errorf("expected contact rule, got %q", lines[2])
		}
	})

	t.Run("lookup merges content API results", func(t *testing.T) {
		t.Parallel()
		api, calls := newContentAPI(t)
		stdout, stderr, err := executeCmd(t, nil, "classify", "--json", "--lookup",
			"--base-url", api.URL, "--cache", "none", "/vat-rates", "/vat-rates")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got []classifyLine
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("failed to decode %q: %v", stdout, err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d records, want 2", len(got))
		}
		for _, rec := range got {
			if rec.Status != 200 || len(rec.Orgs) != 1 || rec.Orgs[0] != "HM Revenue & Customs" {
				t.Errorf("record = %+v", rec)
			}
		}
		if calls.Load() != 1 {
			t.Errorf("content API calls = %d, want 1", calls.Load())
		}
		if !strings.Contains(stderr, "1 unique") {
			t.Errorf("expected stats on stderr, got %q", stderr)
		}
	})
}
