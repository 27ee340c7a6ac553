// Package scrub removes personally identifiable information from free text.
//
// A Scrubber holds an ordered list of Patterns. Each pattern is applied once
// across the whole text and every non-overlapping match is replaced with the
// pattern's placeholder token, for example {{ PHONE NUMBER }}. The order of the
// list is the precedence contract: whichever pattern runs first claims an
// ambiguous span, and a span that has been replaced is never shown to later
// patterns again.
//
// Two profiles are supported:
//   - typed:  placeholders only
//   - masked: placeholders, then every remaining digit replaced with "X"
//
// Placeholders contain no digits, so the digit mask cannot corrupt them even
// if span protection were bypassed.
//
// # Usage
//
//	s := scrub.New(scrub.DefaultPatterns(), scrub.WithDigitMask(""))
//	clean := s.String("Call 07911 123456 on 12/03/2019")
//	// clean == "Call {{ PHONE NUMBER }} on {{ DATE }}"
package scrub
