package filtergraph

import (
	"fmt"
	"strconv"
	"strings"

	"clipforge/internal/model"
)

// colorStage returns the single tone fragment for a preset.
func colorStage(c model.ColorFilter) (string, bool) {
	switch c {
	case model.ColorBright:
		return "eq=brightness=0.1", true
	case model.ColorContrast:
		return "eq=contrast=1.5", true
	case model.ColorVintage:
		return "curves=preset=vintage", true
	case model.ColorCinematic:
		return "colorbalance=rs=0.1:bs=-0.1", true
	case model.ColorNone:
		return "", false
	default:
		return "", false
	}
}

// audioEffectStage returns the single effect fragment. The transcoder has
// no native reverb filter, so reverb is a dense multi-tap echo.
func audioEffectStage(e model.AudioEffect) (string, bool) {
	switch e {
	case model.AudioEcho:
		return "aecho=0.8:0.9:1000:0.3", true
	case model.AudioReverb:
		return "aecho=0.8:0.88:40|60|90:0.4|0.3|0.2", true
	case model.AudioNone:
		return "", false
	default:
		return "", false
	}
}

type captionStyle struct {
	x, y string
	deco string
}

func templateStyle(t model.CaptionTemplate) captionStyle {
	const centered = "(w-text_w)/2"
	switch t {
	case model.TemplateModern:
		return captionStyle{x: centered, y: "h*3/4-text_h/2", deco: "box=1:boxcolor=black@0.35:boxborderw=16"}
	case model.TemplateClassic:
		return captionStyle{x: centered, y: "h-text_h-20", deco: "box=1:boxcolor=black@0.8:boxborderw=8"}
	case model.TemplateMinimal:
		return captionStyle{x: centered, y: "h-text_h-80", deco: "borderw=2:bordercolor=black@0.8"}
	case model.TemplateDefault:
		fallthrough
	default:
		return captionStyle{x: centered, y: "h-text_h-50", deco: "box=1:boxcolor=black@0.5:boxborderw=5"}
	}
}

const (
	fadeSeconds = 0.3
	moveSeconds = 0.4
	movePixels  = 40
)

// applyEffect layers the effect on top of the template. Position is kept;
// Move only adds a decaying offset to the template's y.
func applyEffect(st captionStyle, e model.CaptionEffect, start, end float64) (captionStyle, string) {
	switch e {
	case model.EffectFade:
		f := fadeSeconds
		if half := (end - start) / 2; half < f {
			f = half
		}
		s, en, fs := formatSeconds(start), formatSeconds(end), formatSeconds(f)
		alpha := fmt.Sprintf("alpha='if(lt(t,%s+%s),(t-%s)/%s,if(gt(t,%s-%s),(%s-t)/%s,1))'", s, fs, s, fs, en, fs, en, fs)
		return st, alpha
	case model.EffectMove:
		st.y = fmt.Sprintf("'%s+max(0,(%s+%s-t)/%s*%d)'", st.y, formatSeconds(start), formatSeconds(moveSeconds), formatSeconds(moveSeconds), movePixels)
		return st, ""
	case model.EffectShadow:
		return st, "shadowcolor=black@0.6:shadowx=2:shadowy=2"
	case model.EffectNone:
		return st, ""
	default:
		return st, ""
	}
}

// formatSeconds renders a time with at least one decimal: 0 -> "0.0", 2.5 -> "2.5".
func formatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// formatNumber renders a multiplier without trailing zeros: 1 -> "1", 0.5 -> "0.5".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func enableBetween(start, end float64) string {
	return fmt.Sprintf("enable='between(t,%s,%s)'", formatSeconds(start), formatSeconds(end))
}
