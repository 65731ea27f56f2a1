package model

// DownloadedVideo represents the media and metadata returned by the remote source.
type DownloadedVideo struct {
	InputPath    string  // Full path to the downloaded media file, empty for metadata-only.
	DurationSec  float64 // Seconds; may be 0 if unknown.
	Title        string
	Uploader     string
	ID           string
	Width        int // 0 if unknown
	Height       int // 0 if unknown
	ThumbnailURL string
	URL          string
}

// SourceInfo is what is known about the primary input before transcoding.
// Zero values mean unknown.
type SourceInfo struct {
	DurationSec float64
	Width       int
	Height      int
	HasAudio    bool
	Probed      bool // false when probing was skipped or failed; HasAudio is then assumed
}

// EncodeSettings are the codec knobs that are not part of the edit itself.
type EncodeSettings struct {
	CRF       int    // quality mode when MaxSizeMB is 0
	Preset    string // x264 preset
	AudioKbps int
	MaxSizeMB int // >0 switches to bitrate mode sized for the clip length
}

// DefaultEncodeSettings mirrors the CLI defaults.
func DefaultEncodeSettings() EncodeSettings {
	return EncodeSettings{CRF: 23, Preset: "veryfast", AudioKbps: 128}
}

// OutputVideo captures transcoding results.
type OutputVideo struct {
	OutputPath      string
	Bytes           int64
	UsedCRF         int // 0 if bitrate mode
	UsedBitrateKbps int // 0 if CRF mode
}

// QualityPreset picks a default CRF when none is given explicitly.
type QualityPreset string

const (
	PresetLow    QualityPreset = "low"
	PresetMedium QualityPreset = "medium"
	PresetHigh   QualityPreset = "high"
)

// ParseQualityPreset maps user input to a preset. Unknown input yields
// PresetMedium and ok=false.
func ParseQualityPreset(s string) (QualityPreset, bool) {
	switch s {
	case "low":
		return PresetLow, true
	case "", "medium":
		return PresetMedium, true
	case "high":
		return PresetHigh, true
	default:
		return PresetMedium, false
	}
}
