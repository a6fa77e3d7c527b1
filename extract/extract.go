// Package extract pulls quoted fragments out of free-form model output.
//
// Chat models are asked to wrap their answer in quotation marks but are not
// guaranteed to. Extraction is best effort:
//
//   - A fragment opened by a straight quote (") ends at the next straight
//     quote. A fragment opened by a left curly quote (“) ends at the next
//     right curly quote (”).
//   - An opener with no matching closer is not a fragment; scanning resumes
//     after it.
//   - Fragments are trimmed of surrounding whitespace. Fragments may span
//     line breaks.
//   - Text with no fragment at all yields no match. Callers decide what a
//     missing match means.
package extract

import (
	"strings"
	"unicode/utf8"
)

// closerFor returns the closing quote for an opening quote rune.
func closerFor(r rune) (rune, bool) {
	switch r {
	case '"':
		return '"', true
	case '“':
		return '”', true
	}
	return 0, false
}

// scan calls yield for each quoted fragment in order until yield returns false.
func scan(text string, yield func(string) bool) {
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		closer, ok := closerFor(r)
		if !ok {
			i += size
			continue
		}

		start := i + size
		end := strings.IndexRune(text[start:], closer)
		if end < 0 {
			i = start
			continue
		}

		if !yield(strings.TrimSpace(text[start : start+end])) {
			return
		}
		i = start + end + utf8.RuneLen(closer)
	}
}

// Quoted returns every non-empty quoted fragment in order of appearance.
func Quoted(text string) []string {
	var fragments []string
	scan(text, func(s string) bool {
		if s != "" {
			fragments = append(fragments, s)
		}
		return true
	})
	return fragments
}

// FirstQuoted returns the first quoted fragment, which may be empty for a
// pair of adjacent quotes. ok is false when text has no fragment.
func FirstQuoted(text string) (fragment string, ok bool) {
	scan(text, func(s string) bool {
		fragment, ok = s, true
		return false
	})
	return fragment, ok
}
