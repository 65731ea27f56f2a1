package model

// SubtitleCue is one timed caption. Start and End are seconds from the
// start of the source.
type SubtitleCue struct {
	Start float64 `toml:"start" json:"start"`
	End   float64 `toml:"end" json:"end"`
	Text  string  `toml:"text" json:"text"`
}

// Valid reports whether the cue has a non-negative start and positive length.
func (c SubtitleCue) Valid() bool {
	return c.Start >= 0 && c.End > c.Start
}
