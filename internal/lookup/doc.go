// Package lookup classifies page paths and enriches them from the content API.
//
// A Resolver takes the URL column of a survey export, deduplicates it,
// classifies every distinct path with the rule table in urlclass, and looks
// up each classified page through a bounded pool of workers. A failed lookup
// never fails the batch: the record is returned exactly as classified and the
// failure is logged.
//
// Results are merged additively. Organisations and sections set by the rules
// keep their positions; API values only fill positions that are still empty.
package lookup
