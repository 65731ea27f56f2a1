package subtitle

import (
	"strings"

	"clipforge/internal/model"
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'", "‚", "'",
	"…", "...",
)

// NormalizeText trims the text, folds typographic quotes to ASCII and
// collapses internal whitespace.
func NormalizeText(s string) string {
	s = quoteReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Clean normalizes segment text and drops segments that end up empty or
// have no positive length. Order is preserved.
func Clean(cues []model.SubtitleCue) []model.SubtitleCue {
	out := make([]model.SubtitleCue, 0, len(cues))
	for _, c := range cues {
		c.Text = NormalizeText(c.Text)
		if c.Text == "" || !c.Valid() {
			continue
		}
		out = append(out, c)
	}
	return out
}
