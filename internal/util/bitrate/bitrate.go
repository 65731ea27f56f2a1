// Package bitrate sizes bitrate-mode encodes for a target file size.
package bitrate

const (
	MinVideoKbps = 300
	MaxVideoKbps = 20000
	MinAudioKbps = 64
)

// Plan is the rate budget handed to the encoder in bitrate mode.
type Plan struct {
	VideoKbps   int
	AudioKbps   int
	MaxrateKbps int
	BufsizeKbps int
}

// ForSize budgets a clip of durationSec seconds to fit maxSizeMB. The
// duration should be the capped output length, not the source length.
// Video gets whatever the audio track leaves, within [MinVideoKbps,
// MaxVideoKbps]; an unknown duration gets the ceiling.
func ForSize(maxSizeMB int, durationSec float64, audioKbps int) Plan {
	audio := SafeAudioKbps(audioKbps)
	video := MaxVideoKbps
	if durationSec > 0 {
		bits := float64(int64(maxSizeMB) * 1024 * 1024 * 8)
		totalKbps := int(bits / durationSec / 1000)
		video = min(max(totalKbps-audio, MinVideoKbps), MaxVideoKbps)
	}
	return Plan{VideoKbps: video, AudioKbps: audio, MaxrateKbps: video, BufsizeKbps: 2 * video}
}

// SafeAudioKbps raises v to MinAudioKbps.
func SafeAudioKbps(v int) int {
	return max(v, MinAudioKbps)
}
