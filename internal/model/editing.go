package model

import "strings"

// AspectRatio selects the shape of the output frame.
type AspectRatio string

const (
	Aspect9x16 AspectRatio = "9:16"
	Aspect16x9 AspectRatio = "16:9"
	Aspect1x1  AspectRatio = "1:1"
)

// DefaultAspectRatio applies when no ratio was chosen or the value is unknown.
const DefaultAspectRatio = Aspect16x9

// ParseAspectRatio maps user input to an AspectRatio. Unknown input yields
// DefaultAspectRatio and ok=false.
func ParseAspectRatio(s string) (AspectRatio, bool) {
	switch strings.TrimSpace(strings.ReplaceAll(s, "x", ":")) {
	case "9:16":
		return Aspect9x16, true
	case "16:9":
		return Aspect16x9, true
	case "1:1":
		return Aspect1x1, true
	case "":
		return DefaultAspectRatio, true
	default:
		return DefaultAspectRatio, false
	}
}

// Dimensions returns the pixel box for the ratio.
func (a AspectRatio) Dimensions() (int, int) {
	switch a {
	case Aspect9x16:
		return 1080, 1920
	case Aspect1x1:
		return 1080, 1080
	case Aspect16x9:
		return 1920, 1080
	default:
		return DefaultAspectRatio.Dimensions()
	}
}

// Resolution is an optional override of the output box.
type Resolution string

const (
	ResolutionNone  Resolution = ""
	Resolution480p  Resolution = "480p"
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution2K    Resolution = "2K"
	Resolution4K    Resolution = "4K"
)

// ParseResolution maps user input to a Resolution. Empty input and "none"
// mean no override. Unknown input yields 1080p and ok=false.
func ParseResolution(s string) (Resolution, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "auto":
		return ResolutionNone, true
	case "480p", "480":
		return Resolution480p, true
	case "720p", "720":
		return Resolution720p, true
	case "1080p", "1080":
		return Resolution1080p, true
	case "2k", "1440p", "1440":
		return Resolution2K, true
	case "4k", "2160p", "2160":
		return Resolution4K, true
	default:
		return Resolution1080p, false
	}
}

// Dimensions returns the override box. ok is false for ResolutionNone.
func (r Resolution) Dimensions() (w, h int, ok bool) {
	switch r {
	case ResolutionNone:
		return 0, 0, false
	case Resolution480p:
		return 854, 480, true
	case Resolution720p:
		return 1280, 720, true
	case Resolution2K:
		return 2560, 1440, true
	case Resolution4K:
		return 3840, 2160, true
	case Resolution1080p:
		return 1920, 1080, true
	default:
		return 1920, 1080, true
	}
}

// DurationCap bounds the length of the exported clip.
type DurationCap string

const (
	CapAuto     DurationCap = "auto"
	CapUnder30  DurationCap = "<30s"
	Cap30to60   DurationCap = "30-60s"
	Cap60to90   DurationCap = "60-90s"
	Cap90to180  DurationCap = "90-180s"
	autoCapSecs             = 60
)

// ParseDurationCap maps user input to a DurationCap. Unknown input yields
// CapAuto and ok=false.
func ParseDurationCap(s string) (DurationCap, bool) {
	v := strings.ToLower(strings.Join(strings.Fields(s), ""))
	switch v {
	case "", "auto":
		return CapAuto, true
	case "<30s", "<30", "30", "30s":
		return CapUnder30, true
	case "30-60s", "30s-60s", "30-60", "60", "60s":
		return Cap30to60, true
	case "60-90s", "60s-90s", "60-90", "90", "90s":
		return Cap60to90, true
	case "90-180s", "90s-180s", "90s-3min", "90-180", "180", "180s", "3min":
		return Cap90to180, true
	default:
		return CapAuto, false
	}
}

// Seconds returns the hard ceiling for the cap. Every value resolves to a
// finite number; there is no uncapped mode.
func (c DurationCap) Seconds() int {
	switch c {
	case CapUnder30:
		return 30
	case Cap30to60:
		return 60
	case Cap60to90:
		return 90
	case Cap90to180:
		return 180
	case CapAuto:
		return autoCapSecs
	default:
		return autoCapSecs
	}
}

// CaptionTemplate selects caption position and box styling.
type CaptionTemplate string

const (
	TemplateDefault CaptionTemplate = "default"
	TemplateModern  CaptionTemplate = "modern"
	TemplateClassic CaptionTemplate = "classic"
	TemplateMinimal CaptionTemplate = "minimal"
)

// ParseCaptionTemplate maps user input to a template. Unknown input yields
// TemplateDefault and ok=false.
func ParseCaptionTemplate(s string) (CaptionTemplate, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return TemplateDefault, true
	case "modern":
		return TemplateModern, true
	case "classic":
		return TemplateClassic, true
	case "minimal":
		return TemplateMinimal, true
	default:
		return TemplateDefault, false
	}
}

// CaptionEffect modifies a caption on top of its template.
type CaptionEffect string

const (
	EffectNone   CaptionEffect = "none"
	EffectFade   CaptionEffect = "fade"
	EffectMove   CaptionEffect = "move"
	EffectShadow CaptionEffect = "shadow"
)

// ParseCaptionEffect maps user input to an effect. Unknown input yields
// EffectNone and ok=false.
func ParseCaptionEffect(s string) (CaptionEffect, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return EffectNone, true
	case "fade":
		return EffectFade, true
	case "move":
		return EffectMove, true
	case "shadow":
		return EffectShadow, true
	default:
		return EffectNone, false
	}
}

// ColorFilter is a named tone preset. Presets never combine.
type ColorFilter string

const (
	ColorNone      ColorFilter = "none"
	ColorBright    ColorFilter = "bright"
	ColorContrast  ColorFilter = "contrast"
	ColorVintage   ColorFilter = "vintage"
	ColorCinematic ColorFilter = "cinematic"
)

// ParseColorFilter maps user input to a preset. Unknown input yields
// ColorNone and ok=false.
func ParseColorFilter(s string) (ColorFilter, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ColorNone, true
	case "bright":
		return ColorBright, true
	case "contrast":
		return ColorContrast, true
	case "vintage":
		return ColorVintage, true
	case "cinematic":
		return ColorCinematic, true
	default:
		return ColorNone, false
	}
}

// AudioEffect is applied after the volume stage.
type AudioEffect string

const (
	AudioNone   AudioEffect = "none"
	AudioEcho   AudioEffect = "echo"
	AudioReverb AudioEffect = "reverb"
)

// ParseAudioEffect maps user input to an effect. Unknown input yields
// AudioNone and ok=false.
func ParseAudioEffect(s string) (AudioEffect, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return AudioNone, true
	case "echo":
		return AudioEcho, true
	case "reverb":
		return AudioReverb, true
	default:
		return AudioNone, false
	}
}

// OverlayIcon is an image placed over the video for a time window.
// When Normalized is set, X and Y are fractions of the frame size.
// End <= 0 means "until the duration cap".
type OverlayIcon struct {
	Path       string  `toml:"path" json:"path"`
	X          float64 `toml:"x" json:"x"`
	Y          float64 `toml:"y" json:"y"`
	Normalized bool    `toml:"normalized,omitempty" json:"normalized,omitempty"`
	Width      int     `toml:"width,omitempty" json:"width,omitempty"`
	Start      float64 `toml:"start,omitempty" json:"start,omitempty"`
	End        float64 `toml:"end,omitempty" json:"end,omitempty"`
}

// StackedIcon places the i-th icon down the left edge of the frame.
func StackedIcon(path string, i int) OverlayIcon {
	return OverlayIcon{Path: path, X: 10, Y: float64(10 + i*60)}
}

const (
	DefaultFontSize = 24
	MinFontSize     = 16
	MaxFontSize     = 48
	DefaultFont     = "Arial"
	MaxVolume       = 2.0
)

// EditingParameters is the full declarative description of one export.
// It is passed by value into the compiler; nothing reads it from globals.
type EditingParameters struct {
	AspectRatio AspectRatio `toml:"aspect_ratio" json:"aspect_ratio"`
	Resolution  Resolution  `toml:"resolution,omitempty" json:"resolution,omitempty"`
	DurationCap DurationCap `toml:"duration_cap" json:"duration_cap"`
	TrimStart   float64     `toml:"trim_start,omitempty" json:"trim_start,omitempty"`
	TrimEnd     float64     `toml:"trim_end,omitempty" json:"trim_end,omitempty"`

	Font            string          `toml:"font" json:"font"`
	FontSize        int             `toml:"font_size" json:"font_size"`
	TextColor       RGB             `toml:"text_color" json:"text_color"`
	CaptionTemplate CaptionTemplate `toml:"caption_template" json:"caption_template"`
	CaptionEffect   CaptionEffect   `toml:"caption_effect" json:"caption_effect"`

	ColorFilter ColorFilter `toml:"color_filter" json:"color_filter"`

	Volume          float64     `toml:"volume" json:"volume"`
	AudioEffect     AudioEffect `toml:"audio_effect" json:"audio_effect"`
	BackgroundMusic string      `toml:"background_music,omitempty" json:"background_music,omitempty"`
	MusicVolume     float64     `toml:"music_volume" json:"music_volume"`

	OverlayIcons []OverlayIcon `toml:"overlay,omitempty" json:"overlay_icons,omitempty"`
	FPS          int           `toml:"fps,omitempty" json:"fps,omitempty"`
}

// DefaultEditingParameters returns the values used when nothing was chosen.
func DefaultEditingParameters() EditingParameters {
	return EditingParameters{
		AspectRatio:     DefaultAspectRatio,
		Resolution:      ResolutionNone,
		DurationCap:     CapAuto,
		Font:            DefaultFont,
		FontSize:        DefaultFontSize,
		TextColor:       White,
		CaptionTemplate: TemplateDefault,
		CaptionEffect:   EffectNone,
		ColorFilter:     ColorNone,
		Volume:          1.0,
		AudioEffect:     AudioNone,
		MusicVolume:     1.0,
	}
}

// Normalized returns a copy with every enum mapped through its default arm
// and numeric fields clamped to their ranges.
func (p EditingParameters) Normalized() EditingParameters {
	out := p
	out.AspectRatio, _ = ParseAspectRatio(string(p.AspectRatio))
	if p.Resolution != ResolutionNone {
		out.Resolution, _ = ParseResolution(string(p.Resolution))
	}
	out.DurationCap, _ = ParseDurationCap(string(p.DurationCap))
	out.CaptionTemplate, _ = ParseCaptionTemplate(string(p.CaptionTemplate))
	out.CaptionEffect, _ = ParseCaptionEffect(string(p.CaptionEffect))
	out.ColorFilter, _ = ParseColorFilter(string(p.ColorFilter))
	out.AudioEffect, _ = ParseAudioEffect(string(p.AudioEffect))

	if strings.TrimSpace(out.Font) == "" {
		out.Font = DefaultFont
	}
	out.FontSize = clampInt(out.FontSize, DefaultFontSize, MinFontSize, MaxFontSize)
	out.Volume = clampFloat(out.Volume, 0, MaxVolume)
	out.MusicVolume = clampFloat(out.MusicVolume, 0, MaxVolume)
	if out.FPS < 0 {
		out.FPS = 0
	}
	if out.TrimStart < 0 {
		out.TrimStart = 0
	}
	if out.TrimEnd < 0 {
		out.TrimEnd = 0
	}
	out.OverlayIcons = append([]OverlayIcon(nil), p.OverlayIcons...)
	return out
}

// ClipSeconds is the longest the output can be: the duration cap, shortened
// by the trim window when one is set.
func (p EditingParameters) ClipSeconds() float64 {
	limit := float64(p.DurationCap.Seconds())
	if p.TrimEnd > p.TrimStart {
		if span := p.TrimEnd - p.TrimStart; span < limit {
			return span
		}
	}
	return limit
}

func clampInt(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
