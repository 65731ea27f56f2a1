package filtergraph

import (
	"strings"
	"unicode"
)

// Option values are unescaped twice by the transcoder: once when the graph
// string is split into filters and once when a filter splits its key=value
// list. Text is escaped for the option level first, then for the graph level.
const (
	optionSpecials = `\':"!,`
	graphSpecials  = `\'[],;`
)

// EscapeText makes s safe to embed as a drawtext option value inside a
// filter graph. Tabs and newlines become spaces; other control characters
// are dropped.
func EscapeText(s string) string {
	return escapeSet(escapeSet(StripControl(s), optionSpecials), graphSpecials)
}

// UnescapeText reverses EscapeText for text without control characters.
func UnescapeText(s string) string {
	return unescapeOnce(unescapeOnce(s))
}

// StripControl removes control characters, mapping line breaks and tabs to spaces.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func escapeSet(s, set string) string {
	if !strings.ContainsAny(s, set) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if strings.ContainsRune(set, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unescapeOnce(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
