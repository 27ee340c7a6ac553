package scrub

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMask replaces each residual digit in the masked profile.
const DefaultMask = "X"

// Profile selects between placeholder-only and placeholder-plus-mask scrubbing.
type Profile string

const (
	// ProfileTyped replaces detected PII with typed placeholders only.
	ProfileTyped Profile = "typed"

	// ProfileMasked additionally replaces every remaining digit with the mask.
	ProfileMasked Profile = "masked"
)

// ParseProfile parses a profile name. The empty string means ProfileTyped.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProfileTyped:
		return ProfileTyped, nil
	case ProfileMasked:
		return ProfileMasked, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProfile, s)
	}
}

var digitExpr = regexp.MustCompile(`[0-9]`)

// Scrubber replaces PII in text. It is immutable after construction and
// safe for concurrent use.
type Scrubber struct {
	// patterns is the ordered cascade.
	patterns []Pattern

	// maskDigits enables the catch-all digit pass.
	maskDigits bool

	// mask replaces each residual digit.
	mask string
}

// Option configures a Scrubber.
type Option func(*Scrubber)

// WithDigitMask enables the catch-all pass that replaces every digit left
// after the typed patterns. An empty mask means DefaultMask.
func WithDigitMask(mask string) Option {
	return func(s *Scrubber) {
		s.maskDigits = true
		if mask != "" {
			s.mask = mask
		}
	}
}

// WithProfile enables or disables the digit mask according to p.
func WithProfile(p Profile) Option {
	return func(s *Scrubber) {
		s.maskDigits = p == ProfileMasked
	}
}

// New creates a Scrubber that applies patterns in the given order.
func New(patterns []Pattern, opts ...Option) *Scrubber {
	s := &Scrubber{
		patterns: append([]Pattern(nil), patterns...),
		mask:     DefaultMask,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Default creates a Scrubber with DefaultPatterns and the typed profile.
func Default() *Scrubber {
	return New(DefaultPatterns())
}

// Kinds returns the configured pattern kinds in precedence order.
func (s *Scrubber) Kinds() []Kind {
	kinds := make([]Kind, len(s.patterns))
	for i, p := range s.patterns {
		kinds[i] = p.Kind
	}
	return kinds
}

// MasksDigits reports whether the catch-all digit pass is enabled.
func (s *Scrubber) MasksDigits() bool {
	return s.maskDigits
}

// Scrub scrubs v when it is a string and returns any other value unchanged,
// including nil. This lets callers pass absent or non-text cells through.
func (s *Scrubber) Scrub(v any) any {
	text, ok := v.(string)
	if !ok {
		return v
	}
	return s.String(text)
}

// String returns text with all configured PII replaced.
func (s *Scrubber) String(text string) string {
	return s.Redact(text).Text
}

// Redaction is the result of scrubbing one text.
type Redaction struct {
	// Text is the scrubbed text.
	Text string

	// Counts holds the number of replacements per kind.
	// Digits replaced by the mask are counted under KindDigits.
	Counts map[Kind]int
}

// Changed reports whether anything was replaced.
func (r Redaction) Changed() bool {
	for _, n := range r.Counts {
		if n > 0 {
			return true
		}
	}
	return false
}

// Total returns the number of replacements across all kinds.
func (r Redaction) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// segment is a piece of the text being scrubbed. Placeholder segments are
// final and hidden from later patterns.
type segment struct {
	text        string
	placeholder bool
}

// Redact scrubs text and reports what was replaced.
func (s *Scrubber) Redact(text string) Redaction {
	counts := make(map[Kind]int)
	if text == "" {
		return Redaction{Text: text, Counts: counts}
	}

	segs := []segment{{text: text}}
	for _, p := range s.patterns {
		segs = replace(segs, p, counts)
	}
	if s.maskDigits {
		segs = s.maskResidualDigits(segs, counts)
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, sg := range segs {
		b.WriteString(sg.text)
	}
	return Redaction{Text: b.String(), Counts: counts}
}

// replace applies one pattern to every plain segment, splitting it around matches.
func replace(segs []segment, p Pattern, counts map[Kind]int) []segment {
	out := make([]segment, 0, len(segs))
	for _, sg := range segs {
		if sg.placeholder || sg.text == "" {
			out = append(out, sg)
			continue
		}
		locs := p.Expr.FindAllStringIndex(sg.text, -1)
		if len(locs) == 0 {
			out = append(out, sg)
			continue
		}
		last := 0
		for _, loc := range locs {
			if loc[0] == loc[1] {
				continue
			}
			if loc[0] > last {
				out = append(out, segment{text: sg.text[last:loc[0]]})
			}
			out = append(out, segment{text: p.Placeholder, placeholder: true})
			counts[p.Kind]++
			last = loc[1]
		}
		if last < len(sg.text) {
			out = append(out, segment{text: sg.text[last:]})
		}
	}
	return out
}

func (s *Scrubber) maskResidualDigits(segs []segment, counts map[Kind]int) []segment {
	for i, sg := range segs {
		if sg.placeholder {
			continue
		}
		n := len(digitExpr.FindAllStringIndex(sg.text, -1))
		if n == 0 {
			continue
		}
		segs[i].text = digitExpr.ReplaceAllLiteralString(sg.text, s.mask)
		counts[KindDigits] += n
	}
	return segs
}
