package encoder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/errs"
	"clipforge/internal/model"
)

func feedAll(p *ProgressParser, lines []string) []int {
	var out []int
	for _, l := range lines {
		if pct, ok := p.Feed(l); ok {
			out = append(out, pct)
		}
	}
	return out
}

func TestProgressParserFeed(t *testing.T) {
	tests := []struct {
		name    string
		ceiling float64
		lines   []string
		want    []int
	}{
		{
			name: "half way",
			lines: []string{
				"  Duration: 00:01:30.00, start: 0.000000, bitrate: 1205 kb/s",
				"frame=  100 fps= 50 q=28.0 size=     512kB time=00:00:45.00 bitrate= 93.2kbits/s speed=1.5x",
			},
			want: []int{50},
		},
		{
			name: "time before duration is ignored",
			lines: []string{
				"time=00:00:30.00",
				"Duration: 00:01:00.00",
				"time=00:00:15.00",
			},
			want: []int{25},
		},
		{
			name: "duplicates and regressions suppressed",
			lines: []string{
				"Duration: 00:00:10.00",
				"time=00:00:01.00",
				"time=00:00:01.05",
				"time=00:00:00.50",
				"time=00:00:02.00",
			},
			want: []int{10, 20},
		},
		{
			name: "second duration line does not reset total",
			lines: []string{
				"Duration: 00:00:10.00",
				"Duration: 00:00:00.04",
				"time=00:00:05.00",
			},
			want: []int{50},
		},
		{
			name: "clamped at 100",
			lines: []string{
				"Duration: 00:00:10.00",
				"time=00:00:12.00",
				"time=00:00:13.00",
			},
			want: []int{100},
		},
		{
			name:    "ceiling shortens total",
			ceiling: 30,
			lines: []string{
				"Duration: 00:02:00.00",
				"time=00:00:15.00",
				"time=00:00:30.00",
			},
			want: []int{50, 100},
		},
		{
			name: "unparsable duration suppresses progress",
			lines: []string{
				"Duration: N/A, bitrate: N/A",
				"time=00:00:05.00",
			},
			want: nil,
		},
		{
			name: "negative start time counts as zero",
			lines: []string{
				"Duration: 00:00:10.00",
				"time=-00:00:00.02",
				"time=00:00:01.00",
			},
			want: []int{10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := feedAll(NewProgressParser(tt.ceiling), tt.lines)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgressParserMonotonic(t *testing.T) {
	p := NewProgressParser(0)
	p.Feed("Duration: 00:03:00.00")
	prev := 0
	for cs := 0; cs < 18000; cs += 37 {
		sec := float64(cs) / 100
		line := "time=" + formatHMS(sec)
		if pct, ok := p.Feed(line); ok {
			require.Greater(t, pct, prev)
			require.LessOrEqual(t, pct, 100)
			prev = pct
		}
	}
	assert.Equal(t, p.Last(), prev)
	assert.GreaterOrEqual(t, prev, 99)
}

func TestProgressParserErr(t *testing.T) {
	p := NewProgressParser(0)
	p.Feed("time=00:00:01.00")
	err := p.Err(model.StageTranscoding)
	require.Error(t, err)
	assert.Equal(t, errs.KindStreamParse, errs.KindOf(err))

	p.Feed("Duration: 00:00:02.00")
	assert.NoError(t, p.Err(model.StageTranscoding))
	d, ok := p.Duration()
	assert.True(t, ok)
	assert.Equal(t, 2.0, d)
}

func TestStageRangeScale(t *testing.T) {
	r := StageRange{Lo: 50, Hi: 95}
	assert.Equal(t, 50, r.Scale(0))
	assert.Equal(t, 72, r.Scale(50))
	assert.Equal(t, 95, r.Scale(100))
	assert.Equal(t, 95, r.Scale(150))
	assert.Equal(t, 50, r.Scale(-5))

	thirds := StageRange{Lo: 33, Hi: 67}
	assert.Equal(t, 67, thirds.Scale(100))
}

func formatHMS(sec float64) string {
	h := int(sec) / 3600
	m := int(sec) / 60 % 60
	s := sec - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", h, m, s)
}
