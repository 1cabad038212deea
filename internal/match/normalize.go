// Package match provides merchant-name normalization and cheap string
// similarity scoring used by rule classification and entity grouping.
package match

import (
	"strings"
	"unicode"
)

// punctReplacer maps the punctuation and symbol characters that commonly
// decorate statement descriptors to single spaces.
var punctReplacer = strings.NewReplacer(
	"*", " ", "#", " ", "-", " ", "_", " ", "@", " ", "&", " ",
	"'", " ", `"`, " ", ".", " ", ",", " ", ":", " ", ";", " ",
	"!", " ", "(", " ", ")", " ", "[", " ", "]", " ", "{", " ",
	"}", " ", "/", " ", `\`, " ",
)

// Normalize canonicalizes a raw counterparty string into a comparison key:
// lowercase, punctuation replaced by spaces, whitespace collapsed, and every
// token containing a digit dropped (transaction ids, store numbers, dates).
// Normalize is total and idempotent; it is used for matching only, never for
// display or storage.
func Normalize(name string) string {
	s := punctReplacer.Replace(strings.ToLower(name))

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, tok := range fields {
		if !containsDigit(tok) {
			kept = append(kept, tok)
		}
	}

	return strings.Join(kept, " ")
}

func containsDigit(tok string) bool {
	for _, r := range tok {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// FirstWord returns the normalized string up to the first space, or the
// whole string when it has no space.
func FirstWord(normalized string) string {
	if i := strings.IndexByte(normalized, ' '); i >= 0 {
		return normalized[:i]
	}
	return normalized
}

// CanonicalName title-cases each token of a normalized string. Used to
// synthesize a display name for a newly proposed parent entity.
func CanonicalName(normalized string) string {
	fields := strings.Fields(normalized)
	for i, tok := range fields {
		r := []rune(tok)
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}
