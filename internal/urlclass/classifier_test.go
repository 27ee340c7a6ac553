package urlclass

import (
	"slices"
	"testing"

	"github.com/nao1215/surveytriage/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		page     string
		orgs     []string
		sections []string
	}{
		{
			name:     "home page is site navigation",
			path:     "/",
			page:     "/",
			sections: []string{SectionSiteNav, SectionSiteNav},
		},
		{
			name: "government world page is truncated and owned by the foreign office",
			path: "/government/world/turkey",
			page: "/government/world",
			orgs: []string{ForeignOffice},
		},
		{
			name: "government publication keeps the full path",
			path: "/government/publications/crown-commercial-service-customer-update-september-2016/crown-commercial-service-update-september-2016",
			page: "/government/publications/crown-commercial-service-customer-update-september-2016/crown-commercial-service-update-september-2016",
		},
		{
			name: "guidance keeps the full path",
			path: "/guidance/foo/bar",
			page: "/guidance/foo/bar",
		},
		{
			name:     "search is site navigation",
			path:     "/search/this-is/a-search/url",
			page:     "/search/this-is/a-search/url",
			sections: []string{SectionSiteNav, SectionSiteNav},
		},
		{
			name:     "help is site navigation",
			path:     "/help/this/is/a/help/url",
			page:     "/help/this/is/a/help/url",
			sections: []string{SectionSiteNav, SectionSiteNav},
		},
		{
			name:     "contact pages get the contact tag",
			path:     "/contact/this/is/a/contact/url",
			page:     "/contact/this/is/a/contact/url",
			sections: []string{SectionContact, SectionContact},
		},
		{
			name:     "browse is truncated to two segments",
			path:     "/browse/driving/learner-and-new-drivers",
			page:     "/browse/driving",
			sections: []string{"driving"},
		},
		{
			name:     "browse without a trailing segment keeps the path",
			path:     "/browse",
			page:     "/browse",
			sections: []string{"/browse"},
		},
		{
			name:     "browse with only a trailing slash",
			path:     "/browse/",
			page:     "/browse/",
			sections: []string{""},
		},
		{
			name: "default keeps the first segment",
			path: "/vehicle-tax/rate-tables/2019",
			page: "/vehicle-tax",
		},
		{
			name: "single segment",
			path: "/x",
			page: "/x",
		},
		{
			name: "path without slash",
			path: "x",
			page: "/x",
		},
		{
			name:     "empty path is site navigation",
			path:     "",
			page:     "/",
			sections: []string{SectionSiteNav, SectionSiteNav},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Classify(tt.path)

			if got.FullURL != tt.path {
				t.Errorf("FullURL: got %q, expected %q", got.FullURL, tt.path)
			}
			if got.Page != tt.page {
				t.Errorf("Page: got %q, expected %q", got.Page, tt.page)
			}
			if !slices.Equal(got.Orgs, tt.orgs) {
				t.Errorf("Orgs: got %v, expected %v", got.Orgs, tt.orgs)
			}
			if !slices.Equal(got.Sections, tt.sections) {
				t.Errorf("Sections: got %v, expected %v", got.Sections, tt.sections)
			}
			if got.Status != model.StatusNotAttempted {
				t.Errorf("Status: got %d, expected not attempted", got.Status)
			}
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		rule string
	}{
		{name: "world wins over government", path: "/government/world/france", rule: "government-world"},
		{name: "world wins anywhere in the path", path: "/browse/government/world/x", rule: "government-world"},
		{name: "government wins over browse", path: "/government/browse/x", rule: "guidance-government"},
		{name: "guidance wins over search", path: "/search/guidance", rule: "guidance-government"},
		{name: "browse wins over help", path: "/help/browse/x", rule: "browse"},
		{name: "browse wins over contact", path: "/contact/browse/x", rule: "browse"},
		{name: "help prefix only", path: "/helpful-things", rule: "site-nav"},
		{name: "search must be a prefix", path: "/foo/search", rule: "top-level"},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, rule := c.Explain(tt.path)
			if rule != tt.rule {
				t.Errorf("got rule %q, expected %q", rule, tt.rule)
			}
		})
	}
}

func TestClassifyGovernmentWorldProperty(t *testing.T) {
	t.Parallel()

	prefixes := []string{"", "/", "/browse", "/contact", "/search", "/a/b/c"}
	suffixes := []string{"", "/turkey", "/organisations/embassy", "/x/y/z/w", "?q=1"}

	for _, prefix := range prefixes {
		for _, suffix := range suffixes {
			path := prefix + "/government/world" + suffix
			got := Classify(path)
			if got.Page != WorldPage {
				t.Errorf("%q: got page %q, expected %q", path, got.Page, WorldPage)
			}
			if !slices.Contains(got.Orgs, ForeignOffice) {
				t.Errorf("%q: expected orgs to contain %q, got %v", path, ForeignOffice, got.Orgs)
			}
		}
	}
}

func TestClassifySiteNavProperty(t *testing.T) {
	t.Parallel()

	paths := []string{"/", "/search", "/search/", "/search?q=tax", "/help", "/help/cookies", "/helpdesk"}
	for _, path := range paths {
		got := Classify(path)
		if len(got.Sections) != 2 || got.Section(0) != SectionSiteNav || got.Section(1) != SectionSiteNav {
			t.Errorf("%q: expected two site-nav sections, got %v", path, got.Sections)
		}
	}
}

func TestClassifyIsTotal(t *testing.T) {
	t.Parallel()

	paths := []string{"", "/", "a", "//", "///", "/\x00", "browse/", "browse", "é", "/browse/", "/a//b"}
	for _, path := range paths {
		got := Classify(path)
		if got.FullURL != path {
			t.Errorf("%q: FullURL not preserved", path)
		}
		if got.Page == "" && path != "" {
			t.Errorf("%q: expected page to be set", path)
		}
	}
}

func TestNewWithRules(t *testing.T) {
	t.Parallel()

	t.Run("empty table keeps the path as page", func(t *testing.T) {
		t.Parallel()

		c := NewWithRules(nil)
		got, rule := c.Explain("/vehicle-tax/foo")
		if got.Page != "/vehicle-tax/foo" {
			t.Errorf("got page %q", got.Page)
		}
		if rule != "" {
			t.Errorf("expected no rule, got %q", rule)
		}
	})

	t.Run("reordering rules changes the outcome", func(t *testing.T) {
		t.Parallel()

		rules := DefaultRules()
		// Move the browse rule ahead of government-world.
		reordered := []Rule{rules[2], rules[0], rules[1], rules[3], rules[4], rules[5]}
		c := NewWithRules(reordered)

		path := "/browse/government/world/x"
		_, rule := c.Explain(path)
		if rule != "browse" {
			t.Errorf("expected browse to win after reordering, got %q", rule)
		}
		if _, def := New().Explain(path); def != "government-world" {
			t.Errorf("expected default order to pick government-world, got %q", def)
		}
	})

	t.Run("rule names follow table order", func(t *testing.T) {
		t.Parallel()

		expected := []string{"government-world", "guidance-government", "browse", "site-nav", "contact", "top-level"}
		if got := New().RuleNames(); !slices.Equal(got, expected) {
			t.Errorf("got %v, expected %v", got, expected)
		}
	})
}
