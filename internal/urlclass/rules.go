package urlclass

import (
	"strings"

	"github.com/nao1215/surveytriage/internal/model"
)

// Tags assigned by the classification rules.
const (
	// ForeignOffice is the organisation of every /government/world page.
	ForeignOffice = "Foreign & Commonwealth Office"

	// WorldPage is the page all /government/world/... paths are truncated to.
	WorldPage = "/government/world"

	// SectionSiteNav tags top-level navigation pages (home, search, help).
	SectionSiteNav = "site-nav"

	// SectionContact tags contact pages.
	SectionContact = "contact"
)

// Rule is one entry of the classification table.
type Rule struct {
	// Name identifies the rule in logs and tests.
	Name string

	// Match reports whether the rule applies to path.
	Match func(path string) bool

	// Apply fills rec, which arrives with FullURL and Page set to the path.
	Apply func(path string, rec *model.URLRecord)
}

// DefaultRules returns the classification table in precedence order.
// A fresh slice is returned on each call so callers may reorder or extend it.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  "government-world",
			Match: func(p string) bool { return strings.Contains(p, "/government/world") },
			Apply: func(_ string, rec *model.URLRecord) {
				rec.Orgs = []string{ForeignOffice}
				rec.Page = WorldPage
			},
		},
		{
			Name: "guidance-government",
			Match: func(p string) bool {
				return strings.Contains(p, "/guidance") || strings.Contains(p, "/government")
			},
			Apply: func(string, *model.URLRecord) {},
		},
		{
			Name:  "browse",
			Match: func(p string) bool { return strings.Contains(p, "/browse") },
			Apply: func(p string, rec *model.URLRecord) {
				rec.Page = browsePage(p)
				rec.Sections = []string{browseSection(p)}
			},
		},
		{
			Name: "site-nav",
			Match: func(p string) bool {
				return p == "" || p == "/" ||
					strings.HasPrefix(p, "/search") || strings.HasPrefix(p, "/help")
			},
			Apply: func(p string, rec *model.URLRecord) {
				if p == "" {
					rec.Page = "/"
				}
				rec.Sections = []string{SectionSiteNav, SectionSiteNav}
			},
		},
		{
			Name:  "contact",
			Match: func(p string) bool { return strings.HasPrefix(p, "/contact") },
			Apply: func(_ string, rec *model.URLRecord) {
				rec.Sections = []string{SectionContact, SectionContact}
			},
		},
		{
			Name:  "top-level",
			Match: func(string) bool { return true },
			Apply: func(p string, rec *model.URLRecord) {
				rec.Page = "/" + topSegment(p)
			},
		},
	}
}

// maxSplit bounds segment splitting: at most three cuts, so the tail of a
// deep path stays in the last part.
const maxSplit = 4

// segments splits path on "/" with at most three cuts.
// A leading slash yields an empty first element.
func segments(path string) []string {
	return strings.SplitN(path, "/", maxSplit)
}

// browsePage truncates a browse path to its first two segments.
// The path is returned unchanged when it has no "browse/" marker or is too short.
func browsePage(path string) string {
	if !strings.Contains(path, "browse/") {
		return path
	}
	parts := segments(path)
	if len(parts) < 3 {
		return path
	}
	return "/" + parts[1] + "/" + parts[2]
}

// browseSection returns the segment following the first one,
// e.g. "driving" for /browse/driving/learner.
func browseSection(path string) string {
	if !strings.Contains(path, "browse/") {
		return path
	}
	parts := segments(path)
	if len(parts) < 3 {
		return path
	}
	return parts[2]
}

// topSegment returns the first path segment, or path itself when it has no slash.
func topSegment(path string) string {
	if !strings.Contains(path, "/") {
		return path
	}
	return segments(path)[1]
}
