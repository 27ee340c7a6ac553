package scrub

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind names a category of PII.
type Kind string

// Built-in PII kinds.
const (
	KindPassport Kind = "passport"
	KindPhone    Kind = "phone"
	KindNI       Kind = "ni"
	KindDate     Kind = "date"
	KindVRP      Kind = "vrp"
	KindEmail    Kind = "email"

	// KindDigits counts digits replaced by the catch-all mask.
	KindDigits Kind = "digits"
)

// Pattern is one entry of the scrub cascade.
type Pattern struct {
	// Kind is the PII category this pattern detects.
	Kind Kind

	// Expr matches the PII. It is applied with leftmost-first semantics.
	Expr *regexp.Regexp

	// Placeholder replaces every match, e.g. "{{ EMAIL }}".
	Placeholder string
}

// Placeholder formats a category label as a placeholder token.
// The label is upper-cased: "phone number" becomes "{{ PHONE NUMBER }}".
func Placeholder(label string) string {
	upper := cases.Upper(language.English).String(strings.TrimSpace(label))
	return "{{ " + upper + " }}"
}

// NewPattern compiles expr into a Pattern whose placeholder is built from label.
func NewPattern(kind Kind, expr, label string) (Pattern, error) {
	if strings.TrimSpace(expr) == "" {
		return Pattern{}, fmt.Errorf("%w: kind %q", ErrEmptyPattern, kind)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("failed to compile pattern %q: %w", kind, err)
	}
	if label == "" {
		label = string(kind)
	}
	return Pattern{Kind: kind, Expr: re, Placeholder: Placeholder(label)}, nil
}

// Built-in expressions. Sources: passport from regexlib.com #2390,
// email from emailregex.com, the rest cover UK formats.
const (
	passportExpr = `[0-9]{9,10}GBR[0-9]{7}[U,M,F][0-9]{7}`

	phoneExpr = `(?:(?:(?:\+44\s?\d{4}|\(?0\d{4}\)?)\s?\d{3}\s?\d{3})|` +
		`(?:(?:\+44\s?\d{3}|\(?0\d{3}\)?)\s?\d{3}\s?\d{4})|` +
		`(?:(?:\+44\s?\d{2}|\(?0\d{2}\)?)\s?\d{4}\s?\d{4}))` +
		`(?:\s?#(?:\d{4}|\d{3}))?`

	niExpr = `[a-zA-Z]{2}(?:\s*\d\s*){6}[a-zA-Z]?`

	dateExpr = `\d{1,2}(?:rd|nd|th)?[/.\- ]` +
		`(?:[0-9]{1,2}|\D{3}|January|February|March|April|May|June|July|August|September|October|November|December)` +
		`[/.\- ]\d{2,4}`

	vrpExpr = `(?:[a-zA-Z]{2}\s?[0-9]{2}\s?[a-zA-Z]{3})|(?:[a-zA-Z]{3}\s?\d{4})`

	emailExpr = `[a-zA-Z0-9_.+\-]+@[a-zA-Z0-9\-]+\.[a-zA-Z0-9.\-]+`
)

var builtins = map[Kind]Pattern{
	KindPassport: mustPattern(KindPassport, passportExpr, "passport number"),
	KindPhone:    mustPattern(KindPhone, phoneExpr, "phone number"),
	KindNI:       mustPattern(KindNI, niExpr, "ni number"),
	KindDate:     mustPattern(KindDate, dateExpr, "date"),
	KindVRP:      mustPattern(KindVRP, vrpExpr, "vehicle registration plate"),
	KindEmail:    mustPattern(KindEmail, emailExpr, "email"),
}

func mustPattern(kind Kind, expr, label string) Pattern {
	p, err := NewPattern(kind, expr, label)
	if err != nil {
		panic(err)
	}
	return p
}

// DefaultKinds returns the recommended precedence: most specific first, and
// dates ahead of phone numbers so a phone match cannot swallow a date.
func DefaultKinds() []Kind {
	return []Kind{KindPassport, KindDate, KindPhone, KindNI, KindVRP, KindEmail}
}

// LegacyKinds returns the precedence used by the first survey pipeline,
// which ran phone and NI numbers before dates.
func LegacyKinds() []Kind {
	return []Kind{KindPassport, KindPhone, KindNI, KindDate, KindVRP, KindEmail}
}

// Builtin returns the built-in pattern for kind.
func Builtin(kind Kind) (Pattern, bool) {
	p, ok := builtins[kind]
	return p, ok
}

// PatternsFor returns the built-in patterns for kinds, in the given order.
func PatternsFor(kinds []Kind) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(kinds))
	seen := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		p, ok := builtins[k]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
		}
		if seen[k] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKind, k)
		}
		seen[k] = true
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// DefaultPatterns returns the built-in patterns in DefaultKinds order.
func DefaultPatterns() []Pattern {
	patterns, _ := PatternsFor(DefaultKinds()) //nolint:errcheck // built-in kinds always resolve
	return patterns
}

// LegacyPatterns returns the built-in patterns in LegacyKinds order.
func LegacyPatterns() []Pattern {
	patterns, _ := PatternsFor(LegacyKinds()) //nolint:errcheck // built-in kinds always resolve
	return patterns
}
