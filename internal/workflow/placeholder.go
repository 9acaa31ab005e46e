package workflow

import (
	"errors"
	"regexp"
)

// placeholderPattern matches a single-line ((...)) region, shortest first
var placeholderPattern = regexp.MustCompile(`\(\(.*?\)\)`)

// ErrNoPlaceholder is returned when the file has no ((...)) region
var ErrNoPlaceholder = errors.New("no ((...)) placeholder found")

// ReplacePlaceholder swaps the first ((...)) region in content for
// "(( value ))". Every byte outside that region is kept as is.
func ReplacePlaceholder(content, value string) (string, error) {
	start, end, ok := placeholderSpan(content)
	if !ok {
		return content, ErrNoPlaceholder
	}
	return content[:start] + "(( " + value + " ))" + content[end:], nil
}

// placeholderSpan locates the first region. Balanced parentheses inside it
// extend the region, so ((())) is replaced whole.
func placeholderSpan(content string) (int, int, bool) {
	loc := placeholderPattern.FindStringIndex(content)
	if loc == nil {
		return 0, 0, false
	}

	depth := 0
	for i := loc[0]; i < len(content) && content[i] != '\n'; i++ {
		switch content[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth > 0 {
				continue
			}
			if i+1 >= loc[1] && content[i-1] == ')' {
				return loc[0], i + 1, true
			}
			return loc[0], loc[1], true
		}
	}
	return loc[0], loc[1], true
}
