package tags

import (
	"fmt"
	"regexp"
)

// Matcher tests tag type names against a caller-supplied regular expression.
// Matching is prefix-style: the pattern is anchored at the start of the type
// name but not at the end, so "Table" also matches "TableOfContents". Both
// the raw and the role-mapped type name are checked.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles the tag pattern.
func NewMatcher(pattern string) (*Matcher, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("tags: invalid tag pattern %q: %w", pattern, err)
	}
	return &Matcher{re: re}, nil
}

// Matches reports whether either type-name view matches the pattern.
func (m *Matcher) Matches(raw, mapped string) bool {
	return m.re.MatchString(mapped) || m.re.MatchString(raw)
}
