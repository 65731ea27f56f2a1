package encoder

import (
	"math"
	"regexp"
	"strconv"

	"clipforge/internal/errs"
	"clipforge/internal/model"
)

var (
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	timeRe     = regexp.MustCompile(`time=\s*(-?)(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// ProgressParser turns ffmpeg's diagnostic lines into a stage-local
// percentage. The first "Duration:" declaration fixes the total; later
// "time=" markers report the position. Percentages only ever increase.
type ProgressParser struct {
	ceiling float64
	total   float64
	known   bool
	last    int
	early   int // time markers seen before the duration
}

// NewProgressParser returns a parser. A positive ceiling caps the total,
// so an output shortened by -t or a trim window still reaches 100.
func NewProgressParser(ceiling float64) *ProgressParser {
	return &ProgressParser{ceiling: ceiling}
}

// Duration returns the effective total in seconds once known.
func (p *ProgressParser) Duration() (float64, bool) {
	return p.total, p.known
}

// Last returns the highest percentage emitted so far.
func (p *ProgressParser) Last() int {
	return p.last
}

// Feed consumes one line. It returns the new percentage and true only when
// the value is strictly greater than anything emitted before.
func (p *ProgressParser) Feed(line string) (int, bool) {
	if !p.known {
		if m := durationRe.FindStringSubmatch(line); m != nil {
			if sec, ok := hms(m[1], m[2], m[3]); ok && sec > 0 {
				p.total = sec
				if p.ceiling > 0 && p.ceiling < sec {
					p.total = p.ceiling
				}
				p.known = true
			}
			return 0, false
		}
	}
	m := timeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	if !p.known {
		p.early++
		return 0, false
	}
	cur, ok := hms(m[2], m[3], m[4])
	if !ok || m[1] == "-" {
		cur = 0
	}
	pct := int(math.Floor(cur / p.total * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct <= p.last {
		return p.last, false
	}
	p.last = pct
	return pct, true
}

// Err reports a recoverable parse problem for logging, or nil. It never
// makes a stage fail.
func (p *ProgressParser) Err(stage model.Stage) error {
	switch {
	case !p.known && p.early > 0:
		return errs.StreamParse(stage, "position markers arrived but no duration was declared")
	case !p.known:
		return errs.StreamParse(stage, "no duration declared")
	}
	return nil
}

func hms(h, m, s string) (float64, bool) {
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	ss, err3 := strconv.ParseFloat(s, 64)
	if err1 != nil || err2 != nil || err3 != nil || mm > 59 || ss >= 60 {
		return 0, false
	}
	return float64(hh*3600+mm*60) + ss, true
}

// StageRange is the slice of overall progress owned by one pipeline stage.
type StageRange struct {
	Lo, Hi int
}

// Scale maps a stage-local 0..100 value into the range.
func (r StageRange) Scale(local int) int {
	if local < 0 {
		local = 0
	}
	if local > 100 {
		local = 100
	}
	return r.Lo + local*(r.Hi-r.Lo)/100
}
