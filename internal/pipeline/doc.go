// Package pipeline runs the clean process over survey exports.
//
// A Pipeline executes ordered Steps over a Job. The standard steps are:
//   - ScrubStep: replaces PII in every comment column
//   - LookupStep: classifies and enriches the URL column, then joins the
//     page, org, section, status and lookup_date columns onto every row
//   - EasyNoneStep: flags rows whose comments are all empty or "none"
//   - PersistStep: stores URL records, audit digests and the run summary
//   - WriteStep: writes the cleaned dataset to disk
//
// BatchProcessor runs one fresh pipeline per input file with bounded
// concurrency, using errgroup.
package pipeline
