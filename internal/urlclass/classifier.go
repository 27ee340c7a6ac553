package urlclass

import "github.com/nao1215/surveytriage/internal/model"

// Classifier applies an ordered rule table to page paths.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// New creates a Classifier with the default rule table.
func New() *Classifier {
	return NewWithRules(DefaultRules())
}

// NewWithRules creates a Classifier that evaluates rules in the given order.
// An empty table classifies every path as itself.
func NewWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// Classify maps path to a partial record. It never fails: a path that no
// rule matches keeps Page equal to the path.
func (c *Classifier) Classify(path string) model.URLRecord {
	rec, _ := c.classify(path)
	return rec
}

// Explain classifies path and also returns the name of the rule that matched,
// or an empty string when none did.
func (c *Classifier) Explain(path string) (model.URLRecord, string) {
	return c.classify(path)
}

// RuleNames returns the rule names in evaluation order.
func (c *Classifier) RuleNames() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

func (c *Classifier) classify(path string) (model.URLRecord, string) {
	rec := model.URLRecord{
		FullURL: path,
		Page:    path,
		Status:  model.StatusNotAttempted,
	}
	for _, r := range c.rules {
		if r.Match(path) {
			r.Apply(path, &rec)
			return rec, r.Name
		}
	}
	return rec, ""
}

var defaultClassifier = New()

// Classify classifies path with the default rule table.
func Classify(path string) model.URLRecord {
	return defaultClassifier.Classify(path)
}
