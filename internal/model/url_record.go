package model

import "time"

// StatusNotAttempted is the Status of a record that was never looked up,
// or whose lookup failed and was degraded back to the classified record.
const StatusNotAttempted = 0

// URLRecord is one distinct visited page path together with everything the
// classifier and the content API lookup learned about it.
//
// Orgs and Sections are ordered. Entries set by classification rules occupy
// the low indices; lookup results only fill indices that are not present yet.
type URLRecord struct {
	// FullURL is the original path string. It is the unique key of the record.
	FullURL string `json:"full_url"`

	// Page is the normalized path used as the content API lookup key.
	// It is always set and defaults to FullURL when no rule rewrites it.
	Page string `json:"page"`

	// Orgs holds organisation names, rule-set first, then API results.
	Orgs []string `json:"orgs,omitempty"`

	// Sections holds section identifiers, rule-set first, then API browse pages.
	Sections []string `json:"sections,omitempty"`

	// Status is the HTTP status code of the lookup, or StatusNotAttempted.
	Status int `json:"status"`

	// LookedUpAt is when the lookup result was fetched. Zero when not looked up.
	LookedUpAt time.Time `json:"lookup_date,omitzero"`
}

// Clone returns a deep copy of the record.
func (r URLRecord) Clone() URLRecord {
	c := r
	if r.Orgs != nil {
		c.Orgs = append([]string(nil), r.Orgs...)
	}
	if r.Sections != nil {
		c.Sections = append([]string(nil), r.Sections...)
	}
	return c
}

// LookedUp reports whether the record carries a successful lookup result.
func (r URLRecord) LookedUp() bool {
	return r.Status != StatusNotAttempted
}

// Org returns the i-th organisation or an empty string.
func (r URLRecord) Org(i int) string {
	if i < 0 || i >= len(r.Orgs) {
		return ""
	}
	return r.Orgs[i]
}

// Section returns the i-th section or an empty string.
func (r URLRecord) Section(i int) string {
	if i < 0 || i >= len(r.Sections) {
		return ""
	}
	return r.Sections[i]
}

// MergeAdditive appends the entries of fetched whose index is not already
// present in existing. existing is never modified in place.
func MergeAdditive(existing, fetched []string) []string {
	if len(fetched) <= len(existing) {
		if existing == nil {
			return nil
		}
		return append([]string(nil), existing...)
	}
	out := make([]string, 0, len(fetched))
	out = append(out, existing...)
	return append(out, fetched[len(existing):]...)
}
