package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"clipforge/internal/model"
)

// ParseTimestamp parses "HH:MM:SS,mmm" (a '.' separator is accepted too).
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil || minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// FormatTimestamp renders seconds as "HH:MM:SS,mmm".
func FormatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int64(math.Round(sec * 1000))
	ms := total % 1000
	s := (total / 1000) % 60
	m := (total / 60000) % 60
	h := total / 3600000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseSRT reads SRT blocks. Malformed blocks are skipped; the error is
// non-nil only when reading fails.
func ParseSRT(r io.Reader) ([]model.SubtitleCue, error) {
	sc := bufio.NewScanner(r)
	var (
		cues  []model.SubtitleCue
		block []string
	)
	flush := func() {
		if c, ok := parseBlock(block); ok {
			cues = append(cues, c)
		}
		block = block[:0]
	}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, strings.TrimPrefix(line, "\ufeff"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	flush()
	return cues, nil
}

func parseBlock(lines []string) (model.SubtitleCue, bool) {
	if len(lines) == 0 {
		return model.SubtitleCue{}, false
	}
	i := 0
	if !strings.Contains(lines[0], "-->") {
		i = 1
	}
	if i >= len(lines) {
		return model.SubtitleCue{}, false
	}
	start, end, ok := strings.Cut(lines[i], "-->")
	if !ok {
		return model.SubtitleCue{}, false
	}
	endFields := strings.Fields(end)
	if len(endFields) == 0 {
		return model.SubtitleCue{}, false
	}
	s, err1 := ParseTimestamp(start)
	e, err2 := ParseTimestamp(endFields[0])
	if err1 != nil || err2 != nil {
		return model.SubtitleCue{}, false
	}
	return model.SubtitleCue{Start: s, End: e, Text: strings.Join(lines[i+1:], "\n")}, true
}

// WriteSRT writes cues as numbered SRT blocks.
func WriteSRT(w io.Writer, cues []model.SubtitleCue) error {
	bw := bufio.NewWriter(w)
	for i, c := range cues {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", i+1, FormatTimestamp(c.Start), FormatTimestamp(c.End), c.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}
