package downloader

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/model"
	"clipforge/internal/progress"
)

// yt-dlp --newline prints one of these per tick:
//
//	[download]  45.2% of 10.00MiB at  1.50MiB/s ETA 00:04
//	[download]   0.0% of ~  3.00MiB at  Unknown B/s ETA Unknown
var (
	dlPercentRe = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)
	dlSpeedRe   = regexp.MustCompile(`\bat\s+(\S+)`)
	dlETARe     = regexp.MustCompile(`\bETA\s+(\d+(?::\d+){0,2})\b`)
)

// ParseProgress turns a yt-dlp progress line into a stage-local update.
// Lines without a percentage (destination, merger, errors) are rejected.
// The pipeline maps StagePercent into the overall range.
func ParseProgress(line string) (progress.Update, bool) {
	line = strings.TrimSpace(line)
	m := dlPercentRe.FindStringSubmatch(line)
	if m == nil {
		return progress.Update{}, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return progress.Update{}, false
	}

	u := progress.Update{
		Stage:        model.StageDownloading,
		StagePercent: pct,
		Message:      "Downloading",
	}
	if s := dlSpeedRe.FindStringSubmatch(line); s != nil && !strings.HasPrefix(s[1], "Unknown") {
		speed := s[1]
		u.Speed = &speed
	}
	if e := dlETARe.FindStringSubmatch(line); e != nil {
		if d, ok := clockDuration(e[1]); ok {
			u.ETA = &d
		}
	}
	return u, true
}

// clockDuration reads "SS", "MM:SS" or "HH:MM:SS".
func clockDuration(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	var secs int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, false
		}
		secs = secs*60 + n
	}
	return time.Duration(secs) * time.Second, true
}
