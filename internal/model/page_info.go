package model

import "time"

// PageInfo is the content API metadata of one page, as stored in the
// persistent page cache.
type PageInfo struct {
	// Page is the lookup key.
	Page string `json:"page"`

	// Orgs holds the organisation titles returned by the API.
	Orgs []string `json:"orgs,omitempty"`

	// Sections holds the mainstream browse pages returned by the API.
	Sections []string `json:"sections,omitempty"`

	// Status is the HTTP status of the lookup.
	Status int `json:"status"`

	// FetchedAt is when the API answered.
	FetchedAt time.Time `json:"fetched_at"`
}

// Expired reports whether the info is older than ttl at now.
// A non-positive ttl never expires.
func (p PageInfo) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(p.FetchedAt) >= ttl
}

// Apply merges the info into rec additively and records the lookup status.
func (p PageInfo) Apply(rec URLRecord) URLRecord {
	rec.Orgs = MergeAdditive(rec.Orgs, p.Orgs)
	rec.Sections = MergeAdditive(rec.Sections, p.Sections)
	rec.Status = p.Status
	rec.LookedUpAt = p.FetchedAt
	return rec
}
