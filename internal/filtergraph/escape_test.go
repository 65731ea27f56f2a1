package filtergraph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/model"
)

var trickyTexts = []string{
	`It's`,
	`say "hi"`,
	`a:b:c`,
	`one, two, three`,
	`wow!`,
	`back\slash`,
	`[in]out;next`,
	`mixed 'q' "d" : , ! \ [ ] ;`,
	`100% done`,
	`emoji 🎬 ünïcødé`,
	`\'`,
}

func TestEscapeRoundTrip(t *testing.T) {
	for _, s := range trickyTexts {
		esc := EscapeText(s)
		assert.Equal(t, s, UnescapeText(esc), "round trip of %q via %q", s, esc)
	}
}

func TestEscapeLeavesNoBareDelimiters(t *testing.T) {
	for _, s := range trickyTexts {
		esc := EscapeText(s)
		for i, r := range esc {
			if !strings.ContainsRune(`'":,!;[]`, r) {
				continue
			}
			require.Greater(t, i, 0, "%q starts with a delimiter", esc)
			assert.Equal(t, byte('\\'), esc[i-1], "unescaped %q at %d in %q", r, i, esc)
		}
	}
}

func TestEscapeStripsControlCharacters(t *testing.T) {
	assert.Equal(t, "a b c", EscapeText("a\nb\tc"))
	assert.Equal(t, "ab", EscapeText("a\x00\x1bb"))
}

func TestEscapeLevels(t *testing.T) {
	// ' -> \' for the option parser, then both characters escaped for the graph parser.
	assert.Equal(t, `It\\\'s`, EscapeText("It's"))
	assert.Equal(t, `a\\:b`, EscapeText("a:b"))
	assert.Equal(t, `a\\\,b`, EscapeText("a,b"))
	assert.Equal(t, `plain text`, EscapeText("plain text"))
}

func TestCaptionPayloadIsEscaped(t *testing.T) {
	text := `Don't stop: "now", go!`
	cues := []model.SubtitleCue{{Start: 0, End: 1, Text: text}}
	stage := drawtextStages(Compile(model.DefaultEditingParameters(), cues, Options{}))[0]

	require.True(t, strings.HasPrefix(stage, "drawtext=text="))
	start := len("drawtext=text=")
	end := strings.Index(stage, ":expansion=none")
	require.Greater(t, end, start)
	payload := stage[start:end]

	assert.Equal(t, text, UnescapeText(payload))
	for i, r := range payload {
		if strings.ContainsRune(`'":,!`, r) {
			assert.Equal(t, byte('\\'), payload[i-1], "unescaped %q in %q", r, payload)
		}
	}
}
