// Package model defines the core data structures shared by surveytriage.
//
// This package contains the following main types:
//   - URLRecord: One classified (and possibly enriched) page path
//   - Dataset: A header plus string rows read from a survey export
//   - RunSummary: Counters describing one clean run
//
// The models live in their own package because the classifier, the lookup
// resolver, the pipeline and the report writers all exchange them.
// They are serializable to JSON for report output and database storage.
package model
