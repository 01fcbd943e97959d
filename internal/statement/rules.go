package statement

import (
	"fmt"
	"strings"
)

// Outcome of applying Rules to one title.
type Outcome int

const (
	Kept Outcome = iota
	Replaced
	Ignored
)

// Apply normalizes a transaction title. A title containing any ignore word
// (exact, case-sensitive substring) is dropped. Otherwise the first replace
// rule, in the order supplied, whose Before is a substring of the title
// yields After as the whole new title. Empty tokens never match.
func (r Rules) Apply(title string) (string, Outcome) {
	for _, w := range r.IgnoreWords {
		if w != "" && strings.Contains(title, w) {
			return "", Ignored
		}
	}
	for _, rule := range r.ReplaceWords {
		if rule.Before != "" && strings.Contains(title, rule.Before) {
			return rule.After, Replaced
		}
	}
	return title, Kept
}

// Validate rejects replace rules that would turn a matching title into an
// empty supplier.
func (r Rules) Validate() error {
	for i, rule := range r.ReplaceWords {
		if rule.Before != "" && strings.TrimSpace(rule.After) == "" {
			return fmt.Errorf("replace rule %d (%q): %w", i, rule.Before, ErrEmptyReplacement)
		}
	}
	return nil
}

// Empty reports whether the rules change nothing.
func (r Rules) Empty() bool {
	return len(r.IgnoreWords) == 0 && len(r.ReplaceWords) == 0
}
