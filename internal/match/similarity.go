package match

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// CommonPrefix returns the longest leading substring shared by a and b,
// compared rune-wise.
func CommonPrefix(a, b string) string {
	ra := []rune(a)
	rb := []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	i := 0
	for i < n && ra[i] == rb[i] {
		i++
	}
	return string(ra[:i])
}

// LCPLength returns the rune length of the longest common prefix of a and b.
func LCPLength(a, b string) int {
	return utf8.RuneCountInString(CommonPrefix(a, b))
}

// LCPSimilarity scores two strings by shared-prefix length relative to the
// shorter string, in [0,1]. A shorter string that is entirely a prefix of
// the longer one scores 1.0 ("uber" vs "uber eats"). Empty input scores 0.
// Callers must pass normalized forms, not raw names: the denominator makes
// the ratio sensitive to case and punctuation noise otherwise.
func LCPSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	shorter := la
	if lb < la {
		shorter = lb
	}

	return float64(LCPLength(a, b)) / float64(shorter)
}

// EditSimilarity scores two strings by Levenshtein distance relative to the
// longer string, in [0,1]. It is a stricter, order-insensitive complement to
// LCPSimilarity, used by the category audit rather than the grouping engine.
func EditSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}

	longer := utf8.RuneCountInString(a)
	if lb := utf8.RuneCountInString(b); lb > longer {
		longer = lb
	}
	if longer == 0 {
		return 1
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longer)
}
