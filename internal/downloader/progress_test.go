package downloader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/model"
)

func TestParseProgress(t *testing.T) {
	u, ok := ParseProgress("[download]  45.2% of 10.00MiB at  1.50MiB/s ETA 00:04")
	require.True(t, ok)
	assert.Equal(t, model.StageDownloading, u.Stage)
	assert.InDelta(t, 45.2, u.StagePercent, 1e-9)
	assert.Equal(t, "Downloading", u.Message)
	require.NotNil(t, u.Speed)
	assert.Equal(t, "1.50MiB/s", *u.Speed)
	require.NotNil(t, u.ETA)
	assert.Equal(t, 4*time.Second, *u.ETA)
}

func TestParseProgressLongETA(t *testing.T) {
	u, ok := ParseProgress("[download]  10.5% of 100.00MiB at  1.00MiB/s ETA 01:23:45")
	require.True(t, ok)
	require.NotNil(t, u.ETA)
	assert.Equal(t, time.Hour+23*time.Minute+45*time.Second, *u.ETA)
}

func TestParseProgressUnknownFields(t *testing.T) {
	u, ok := ParseProgress("[download]   0.0% of ~  3.00MiB at  Unknown B/s ETA Unknown")
	require.True(t, ok)
	assert.Zero(t, u.StagePercent)
	assert.Nil(t, u.Speed)
	assert.Nil(t, u.ETA)
}

func TestParseProgressWithoutETA(t *testing.T) {
	u, ok := ParseProgress("[download] 100% of 5.00MiB in 00:02")
	require.True(t, ok)
	assert.Equal(t, 100.0, u.StagePercent)
	assert.Nil(t, u.ETA)
}

func TestParseProgressRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"[download] Destination: /tmp/abc.mp4",
		"[Merger] Merging formats into \"abc.mp4\"",
		"ERROR: [generic] Unable to download webpage",
		"[info] 45% done",
	} {
		_, ok := ParseProgress(line)
		assert.False(t, ok, line)
	}
}

func TestClockDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"45":       45 * time.Second,
		"04:30":    4*time.Minute + 30*time.Second,
		"00:00":    0,
		"01:00:00": time.Hour,
	}
	for in, want := range cases {
		got, ok := clockDuration(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := clockDuration("1:2:3:4")
	assert.False(t, ok)
	_, ok = clockDuration("soon")
	assert.False(t, ok)
}
