// Package glob compiles shell-style wildcard patterns into whole-string,
// case-insensitive matchers for rule evaluation.
package glob

import (
	"regexp"
	"strings"
)

// Matcher is a compiled glob pattern. A Matcher whose pattern failed to
// compile never matches anything; rule evaluation stays robust against
// operator typos.
type Matcher struct {
	re      *regexp.Regexp
	pattern string
}

// Compile expands brace alternation in the pattern and compiles the result
// into a single anchored, case-insensitive regular expression. Compile
// never fails: an invalid pattern yields a matcher that rejects every name.
func Compile(pattern string) *Matcher {
	alts := expandBraces(pattern)

	parts := make([]string, len(alts))
	for i, alt := range alts {
		parts[i] = toRegex(alt)
	}

	var expr string
	if len(parts) == 1 {
		expr = "^" + parts[0] + "$"
	} else {
		expr = "^(" + strings.Join(parts, "|") + ")$"
	}

	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		// Fail closed: the matcher exists but never matches.
		return &Matcher{pattern: pattern}
	}

	return &Matcher{re: re, pattern: pattern}
}

// Match reports whether the whole name matches the pattern. Substring hits
// do not count: "STAR*" does not match "MY STARBUCKS".
func (m *Matcher) Match(name string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(name)
}

// Valid reports whether the pattern compiled successfully.
func (m *Matcher) Valid() bool {
	return m.re != nil
}

// Pattern returns the original pattern string.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// expandBraces rewrites the first non-nested {a,b,...} span into one pattern
// per alternative, recursing so nested braces expand too. Patterns without
// braces, or with an unbalanced brace, expand to themselves.
func expandBraces(pattern string) []string {
	start := strings.IndexByte(pattern, '{')
	if start < 0 {
		return []string{pattern}
	}

	depth := 0
	end := -1
scan:
	for i := start; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
				break scan
			}
		}
	}
	if end < 0 {
		return []string{pattern}
	}

	prefix := pattern[:start]
	body := pattern[start+1 : end]
	suffix := pattern[end+1:]

	var expanded []string
	for _, alt := range splitAlternatives(body) {
		expanded = append(expanded, expandBraces(prefix+alt+suffix)...)
	}
	return expanded
}

// splitAlternatives splits brace contents on top-level commas; commas inside
// nested braces are not split points.
func splitAlternatives(body string) []string {
	var alts []string
	depth := 0
	last := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				alts = append(alts, body[last:i])
				last = i + 1
			}
		}
	}
	return append(alts, body[last:])
}

// toRegex translates one brace-free glob string into regex source. Bracket
// character classes pass through verbatim (backslash excepted), which means
// a literal bracket is not round-trippable; invalid classes are caught at
// compile time and fail closed.
func toRegex(glob string) string {
	var b strings.Builder
	inClass := false

	for i := 0; i < len(glob); i++ {
		c := glob[i]

		if inClass {
			if c == '\\' {
				b.WriteString(`\\`)
			} else {
				b.WriteByte(c)
			}
			if c == ']' {
				inClass = false
			}
			continue
		}

		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			inClass = true
			b.WriteByte('[')
		case '.', '+', '^', '$', '{', '}', '(', ')', '|', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}
