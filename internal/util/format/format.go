// Package format renders sizes and durations for people.
package format

import (
	"fmt"
	"time"
)

var byteUnits = []string{"KB", "MB", "GB", "TB", "PB"}

// HumanizeBytes renders b in binary units with one decimal, e.g. "1.5 MB".
func HumanizeBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	v := float64(b) / 1024
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[i])
}

// Duration renders seconds as "m:ss" or "h:mm:ss".
func Duration(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	d := time.Duration(sec * float64(time.Second)).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
