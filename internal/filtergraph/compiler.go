// Package filtergraph compiles editing parameters and caption cues into
// ordered transcoder filter stages.
package filtergraph

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"clipforge/internal/model"
)

const defaultIconWidth = 50

// Options carries what the compiler needs besides the edit itself.
type Options struct {
	// FontFile is the resolved font path. Empty leaves font selection to the transcoder.
	FontFile string
	// Source describes the primary input; zero values mean unknown.
	Source model.SourceInfo
	// FileExists checks overlay images. Defaults to os.Stat.
	FileExists func(path string) bool
	Logger     hclog.Logger
}

// Overlay is one icon stage. Prepare scales the icon input; Stage places it
// over the running video.
type Overlay struct {
	Path    string
	Prepare string
	Stage   string
}

// Graph is the compiler output.
type Graph struct {
	Width, Height int
	VideoStages   []string
	AudioStages   []string
	Overlays      []Overlay
	Warnings      []string
}

// TargetSize resolves the output box. A resolution override replaces the
// aspect-ratio box entirely.
func TargetSize(p model.EditingParameters) (int, int) {
	if w, h, ok := p.Resolution.Dimensions(); ok {
		return w, h
	}
	return p.AspectRatio.Dimensions()
}

// Compile turns p and cues into filter stages. The same input always
// produces the same output.
func Compile(p model.EditingParameters, cues []model.SubtitleCue, opts Options) Graph {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	exists := opts.FileExists
	if exists == nil {
		exists = fileExists
	}

	p = p.Normalized()
	w, h := TargetSize(p)
	g := Graph{Width: w, Height: h}
	limit := ClipLimit(p, opts.Source)

	g.VideoStages = append(g.VideoStages, scalePadStage(w, h, opts.Source.Width, opts.Source.Height))
	if c, ok := colorStage(p.ColorFilter); ok {
		g.VideoStages = append(g.VideoStages, c)
	}
	for _, cue := range cues {
		stage, ok := captionStage(p, cue, opts.FontFile, limit)
		if ok {
			g.VideoStages = append(g.VideoStages, stage)
		}
	}

	for i, icon := range p.OverlayIcons {
		if icon.Path == "" || !exists(icon.Path) {
			msg := fmt.Sprintf("overlay icon %d not found: %q", i, icon.Path)
			logger.Warn("skipping overlay icon", "index", i, "path", icon.Path)
			g.Warnings = append(g.Warnings, msg)
			continue
		}
		g.Overlays = append(g.Overlays, overlayStage(icon, limit))
	}

	g.AudioStages = append(g.AudioStages, "volume="+formatNumber(p.Volume))
	if a, ok := audioEffectStage(p.AudioEffect); ok {
		g.AudioStages = append(g.AudioStages, a)
	}
	return g
}

// ClipLimit is the output length in seconds that cue and icon windows are
// clamped to.
func ClipLimit(p model.EditingParameters, src model.SourceInfo) float64 {
	limit := p.ClipSeconds()
	if src.DurationSec > 0 {
		if rest := src.DurationSec - p.TrimStart; rest > 0 && rest < limit {
			limit = rest
		}
	}
	return limit
}

// scalePadStage fits the source inside w x h and centres it on black bars.
// With known source dimensions the offsets are computed here as integers;
// otherwise the transcoder evaluates the same formula.
func scalePadStage(w, h, srcW, srcH int) string {
	if srcW > 0 && srcH > 0 {
		sw, sh := w, h
		if srcW*h > srcH*w {
			sh = srcH * w / srcW
		} else {
			sw = srcW * h / srcH
		}
		sw, sh = even(sw), even(sh)
		x, y := (w-sw)/2, (h-sh)/2
		return fmt.Sprintf("scale=%d:%d,pad=%d:%d:%d:%d:color=black,setsar=1", sw, sh, w, h, x, y)
	}
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease:force_divisible_by=2,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1", w, h, w, h)
}

func even(v int) int {
	if v < 2 {
		return 2
	}
	return v &^ 1
}

// captionStage renders one drawtext stage, or ok=false when the cue has no
// visible text or falls outside the clip.
func captionStage(p model.EditingParameters, cue model.SubtitleCue, fontFile string, limit float64) (string, bool) {
	text := strings.TrimSpace(StripControl(cue.Text))
	if text == "" {
		return "", false
	}
	start, end := cue.Start-p.TrimStart, cue.End-p.TrimStart
	if start < 0 {
		start = 0
	}
	if end > limit {
		end = limit
	}
	if end <= start {
		return "", false
	}

	st, effect := applyEffect(templateStyle(p.CaptionTemplate), p.CaptionEffect, start, end)

	parts := make([]string, 0, 10)
	if fontFile != "" {
		parts = append(parts, "fontfile="+EscapeText(fontFile))
	}
	parts = append(parts,
		"text="+EscapeText(text),
		"expansion=none",
		"fontcolor="+p.TextColor.Engine(),
		fmt.Sprintf("fontsize=%d", p.FontSize),
		"x="+st.x,
		"y="+st.y,
		st.deco,
	)
	if effect != "" {
		parts = append(parts, effect)
	}
	parts = append(parts, enableBetween(start, end))
	return "drawtext=" + strings.Join(parts, ":"), true
}

func overlayStage(icon model.OverlayIcon, limit float64) Overlay {
	width := icon.Width
	if width <= 0 {
		width = defaultIconWidth
	}
	start := icon.Start
	if start < 0 {
		start = 0
	}
	end := icon.End
	if end <= 0 || end > limit {
		end = limit
	}
	x, y := coord(icon.X, icon.Normalized, "main_w"), coord(icon.Y, icon.Normalized, "main_h")
	return Overlay{
		Path:    icon.Path,
		Prepare: fmt.Sprintf("scale=%d:-1", width),
		Stage:   fmt.Sprintf("overlay=x=%s:y=%s:%s", x, y, enableBetween(start, end)),
	}
}

func coord(v float64, normalized bool, axis string) string {
	if normalized {
		return axis + "*" + formatNumber(v)
	}
	return formatNumber(v)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
