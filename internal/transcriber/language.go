package transcriber

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// spoken are the languages offered for transcription. whisper.cpp accepts
// more, but these are the ones callers may name in English.
var spoken = []language.Tag{
	language.English, language.Spanish, language.French, language.German,
	language.Italian, language.Portuguese, language.Dutch, language.Russian,
	language.Japanese, language.Korean, language.Chinese, language.Arabic,
	language.Hindi, language.Turkish, language.Polish, language.Swedish,
	language.Indonesian, language.Vietnamese, language.Ukrainian,
}

var byName = func() map[string]language.Tag {
	names := display.English.Languages()
	m := make(map[string]language.Tag, len(spoken))
	for _, t := range spoken {
		m[strings.ToLower(names.Name(t))] = t
	}
	return m
}()

// NormalizeLanguage turns a hint such as "English", "en-US" or "auto" into
// the base code whisper.cpp expects. An empty result means auto-detect.
// ok is false when the hint was not recognised; the result is then empty too.
func NormalizeLanguage(hint string) (code string, ok bool) {
	h := strings.TrimSpace(hint)
	if h == "" || strings.EqualFold(h, "auto") {
		return "", true
	}
	if t, found := byName[strings.ToLower(h)]; found {
		return baseCode(t), true
	}
	t, err := language.Parse(h)
	if err != nil {
		return "", false
	}
	return baseCode(t), true
}

// DisplayName returns the English name for a language code, or the code
// itself when unknown.
func DisplayName(code string) string {
	if code == "" {
		return "auto"
	}
	t, err := language.Parse(code)
	if err != nil {
		return code
	}
	if n := display.English.Languages().Name(t); n != "" {
		return n
	}
	return code
}

// Languages lists the English names of the offered languages.
func Languages() []string {
	names := display.English.Languages()
	out := make([]string, 0, len(spoken))
	for _, t := range spoken {
		out = append(out, names.Name(t))
	}
	return out
}

func baseCode(t language.Tag) string {
	b, _ := t.Base()
	return b.String()
}
