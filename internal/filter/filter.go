// Package filter scans text against a harmful-content pattern set. The same
// filter is applied to inbound user text and to upstream response text.
package filter

import "regexp"

// SafeReplacement is the fixed text returned whenever any pattern matches.
// Which pattern matched is intentionally not reported.
const SafeReplacement = "I cannot provide information that could be harmful or dangerous. If you have legitimate questions, please rephrase your request."

// defaultPatterns is the ordered disallowed-topic list. Kept as data so
// deployments can extend it through configuration without touching control
// flow.
var defaultPatterns = []string{
	`bomb`,
	`explosive`,
	`weapon`,
	`hack`,
	`exploit`,
	`understood:`,
	`illegal`,
	`harmful`,
}

// Result is the outcome of one filter invocation: either the original text
// untouched, or SafeReplacement when flagged.
type Result struct {
	Flagged bool
	Text    string
}

// Filter holds the compiled pattern list. It is stateless per invocation and
// safe for concurrent use.
type Filter struct {
	patterns []*regexp.Regexp
}

// New compiles the default pattern set plus any extra patterns. Extra
// patterns that fail to compile are rejected rather than silently skipped.
func New(extra ...string) (*Filter, error) {
	raw := make([]string, 0, len(defaultPatterns)+len(extra))
	raw = append(raw, defaultPatterns...)
	raw = append(raw, extra...)

	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, re)
	}
	return &Filter{patterns: patterns}, nil
}

// Apply checks text against the pattern list in order and stops on the first
// match. Matching yields the fixed safe replacement; otherwise the text is
// returned unchanged.
func (f *Filter) Apply(text string) Result {
	for _, re := range f.patterns {
		if re.MatchString(text) {
			return Result{Flagged: true, Text: SafeReplacement}
		}
	}
	return Result{Flagged: false, Text: text}
}
