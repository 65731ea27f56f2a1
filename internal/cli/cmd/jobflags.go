package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"clipforge/internal/config"
	"clipforge/internal/model"
	"clipforge/internal/pipeline"
	"clipforge/internal/project"
	"clipforge/internal/subtitle"
)

func bindEditFlags(fs *pflag.FlagSet) {
	fs.String("aspect", string(model.DefaultAspectRatio), "Aspect ratio: 9:16, 16:9, 1:1")
	fs.String("resolution", "", "Resolution override: 480p, 720p, 1080p, 2K, 4K (replaces the aspect box)")
	fs.String("duration", string(model.CapAuto), "Duration cap: <30s, 30-60s, 60-90s, 90-180s, auto")
	fs.String("trim-start", "", "Start of the trim window (seconds or HH:MM:SS,mmm)")
	fs.String("trim-end", "", "End of the trim window (seconds or HH:MM:SS,mmm)")
	fs.String("font", model.DefaultFont, "Caption font name or font file")
	fs.Int("font-size", model.DefaultFontSize, "Caption font size (16-48)")
	fs.String("text-color", model.White.Hex(), "Caption colour (#rrggbb or a name)")
	fs.String("template", string(model.TemplateDefault), "Caption template: default, modern, classic, minimal")
	fs.String("effect", string(model.EffectNone), "Caption effect: none, fade, move, shadow")
	fs.String("color-filter", string(model.ColorNone), "Colour filter: none, bright, contrast, vintage, cinematic")
	fs.Float64("volume", 1.0, "Source volume multiplier (0-2)")
	fs.String("audio-effect", string(model.AudioNone), "Audio effect: none, echo, reverb")
	fs.String("music", "", "Background music file")
	fs.Float64("music-volume", 1.0, "Background music volume multiplier (0-2)")
	fs.StringArray("icon", nil, "Overlay icon as PATH or PATH@X,Y (repeatable)")
	fs.Int("fps", 0, "Output frame rate (0 keeps the source rate)")
}

func bindJobFlags(fs *pflag.FlagSet) {
	bindEditFlags(fs)
	fs.String("project", "", "Load source, edit and cues from a TOML project file")
	fs.String("output", "", "Output file (derived from the source when empty)")
	fs.String("quality-preset", "medium", "Quality preset: low, medium, high")
	fs.Int("crf", 0, "x264 CRF; 0 uses the preset default")
	fs.String("preset", "veryfast", "x264 speed preset")
	fs.Int("audio-kbps", 128, "AAC bitrate")
	fs.Int("max-size-mb", 0, "Target max size (MB); 0 uses CRF mode")
	fs.Bool("captions", false, "Transcribe speech into captions when no cues are given")
	fs.String("lang", "auto", "Spoken language hint for transcription")
	fs.String("cues", "", "Import caption cues from an SRT file")
	fs.StringArray("cue", nil, "Caption cue as START-END=TEXT (repeatable)")
	fs.Bool("srt", false, "Write an SRT sidecar next to the output")
	fs.Bool("keep-temp", false, "Keep the scratch directory")
}

// buildJob assembles a job from an optional project, positional source and
// flags. Flags given explicitly override the project.
func buildJob(cmd *cobra.Command, args []string, s config.Settings) (pipeline.Job, error) {
	fs := cmd.Flags()
	job := pipeline.Job{OutDir: s.OutDir, Encode: model.DefaultEncodeSettings(), Params: model.DefaultEditingParameters()}

	if path, _ := fs.GetString("project"); path != "" {
		p, err := project.Load(path)
		if err != nil {
			return job, err
		}
		job.Source = p.Source
		job.Output = p.Output
		job.Captions = p.Captions
		job.Language = p.Language
		job.Params = p.Edit
		job.Cues = p.Cues
	}
	if len(args) > 0 {
		job.Source = args[0]
	}
	if job.Source == "" {
		return job, fmt.Errorf("no source given: pass a file, a URL or --project")
	}

	if err := applyEditFlags(fs, &job.Params); err != nil {
		return job, err
	}

	if fs.Changed("output") {
		job.Output, _ = fs.GetString("output")
	}
	if fs.Changed("captions") {
		job.Captions, _ = fs.GetBool("captions")
	}
	if fs.Changed("lang") || job.Language == "" {
		job.Language, _ = fs.GetString("lang")
	}
	job.WriteSRT, _ = fs.GetBool("srt")
	job.KeepTemp, _ = fs.GetBool("keep-temp")

	q, _ := fs.GetString("quality-preset")
	preset, ok := model.ParseQualityPreset(strings.ToLower(q))
	if !ok {
		return job, fmt.Errorf("invalid --quality-preset %q (use low, medium or high)", q)
	}
	job.Encode.CRF = pipeline.DefaultCRF(preset)
	if crf, _ := fs.GetInt("crf"); crf > 0 {
		if crf > 51 {
			return job, fmt.Errorf("invalid --crf %d (0-51)", crf)
		}
		job.Encode.CRF = crf
	}
	job.Encode.Preset, _ = fs.GetString("preset")
	job.Encode.AudioKbps, _ = fs.GetInt("audio-kbps")
	job.Encode.MaxSizeMB, _ = fs.GetInt("max-size-mb")
	if job.Encode.MaxSizeMB < 0 {
		return job, fmt.Errorf("--max-size-mb must be >= 0")
	}

	if path, _ := fs.GetString("cues"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return job, fmt.Errorf("open cues: %w", err)
		}
		defer f.Close()
		cues, err := subtitle.ParseSRT(f)
		if err != nil {
			return job, fmt.Errorf("parse cues %s: %w", path, err)
		}
		job.Cues = append(job.Cues, cues...)
	}
	raw, _ := fs.GetStringArray("cue")
	for _, r := range raw {
		c, err := parseCue(r)
		if err != nil {
			return job, err
		}
		job.Cues = append(job.Cues, c)
	}
	return job, nil
}

func applyEditFlags(fs *pflag.FlagSet, p *model.EditingParameters) error {
	type enumFlag struct {
		name  string
		apply func(string) bool
	}
	enums := []enumFlag{
		{"aspect", func(v string) (ok bool) { p.AspectRatio, ok = model.ParseAspectRatio(v); return }},
		{"resolution", func(v string) (ok bool) { p.Resolution, ok = model.ParseResolution(v); return }},
		{"duration", func(v string) (ok bool) { p.DurationCap, ok = model.ParseDurationCap(v); return }},
		{"template", func(v string) (ok bool) { p.CaptionTemplate, ok = model.ParseCaptionTemplate(v); return }},
		{"effect", func(v string) (ok bool) { p.CaptionEffect, ok = model.ParseCaptionEffect(v); return }},
		{"color-filter", func(v string) (ok bool) { p.ColorFilter, ok = model.ParseColorFilter(v); return }},
		{"audio-effect", func(v string) (ok bool) { p.AudioEffect, ok = model.ParseAudioEffect(v); return }},
	}
	for _, e := range enums {
		if !fs.Changed(e.name) {
			continue
		}
		v, _ := fs.GetString(e.name)
		if !e.apply(v) {
			return fmt.Errorf("invalid --%s %q", e.name, v)
		}
	}

	for _, name := range []string{"trim-start", "trim-end"} {
		if !fs.Changed(name) {
			continue
		}
		v, _ := fs.GetString(name)
		sec, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		if name == "trim-start" {
			p.TrimStart = sec
		} else {
			p.TrimEnd = sec
		}
	}

	if fs.Changed("font") {
		p.Font, _ = fs.GetString("font")
	}
	if fs.Changed("font-size") {
		p.FontSize, _ = fs.GetInt("font-size")
	}
	if fs.Changed("text-color") {
		v, _ := fs.GetString("text-color")
		c, err := model.ParseRGB(v)
		if err != nil {
			return fmt.Errorf("invalid --text-color: %w", err)
		}
		p.TextColor = c
	}
	if fs.Changed("volume") {
		p.Volume, _ = fs.GetFloat64("volume")
	}
	if fs.Changed("music") {
		p.BackgroundMusic, _ = fs.GetString("music")
	}
	if fs.Changed("music-volume") {
		p.MusicVolume, _ = fs.GetFloat64("music-volume")
	}
	if fs.Changed("fps") {
		p.FPS, _ = fs.GetInt("fps")
	}
	if fs.Changed("icon") {
		raw, _ := fs.GetStringArray("icon")
		p.OverlayIcons = p.OverlayIcons[:0]
		for i, r := range raw {
			icon, err := parseIcon(r, i)
			if err != nil {
				return err
			}
			p.OverlayIcons = append(p.OverlayIcons, icon)
		}
	}
	return nil
}

// parseSeconds accepts plain seconds ("12.5") or "HH:MM:SS,mmm".
func parseSeconds(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if strings.Contains(v, ":") {
		return subtitle.ParseTimestamp(v)
	}
	sec, err := strconv.ParseFloat(v, 64)
	if err != nil || sec < 0 {
		return 0, fmt.Errorf("invalid time %q", v)
	}
	return sec, nil
}

// parseIcon reads PATH or PATH@X,Y. Icons without coordinates stack down the
// left edge.
func parseIcon(v string, i int) (model.OverlayIcon, error) {
	path, pos, found := strings.Cut(v, "@")
	if path == "" {
		return model.OverlayIcon{}, fmt.Errorf("invalid --icon %q", v)
	}
	icon := model.StackedIcon(path, i)
	if !found {
		return icon, nil
	}
	xs, ys, ok := strings.Cut(pos, ",")
	x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if !ok || errX != nil || errY != nil {
		return model.OverlayIcon{}, fmt.Errorf("invalid --icon position %q (want X,Y)", pos)
	}
	icon.X, icon.Y = x, y
	return icon, nil
}

// parseCue reads START-END=TEXT.
func parseCue(v string) (model.SubtitleCue, error) {
	span, text, ok := strings.Cut(v, "=")
	if !ok {
		return model.SubtitleCue{}, fmt.Errorf("invalid --cue %q (want START-END=TEXT)", v)
	}
	startS, endS, ok := strings.Cut(span, "-")
	if !ok {
		return model.SubtitleCue{}, fmt.Errorf("invalid --cue %q (want START-END=TEXT)", v)
	}
	start, err := parseSeconds(startS)
	if err != nil {
		return model.SubtitleCue{}, fmt.Errorf("invalid --cue start: %w", err)
	}
	end, err := parseSeconds(endS)
	if err != nil {
		return model.SubtitleCue{}, fmt.Errorf("invalid --cue end: %w", err)
	}
	c := model.SubtitleCue{Start: start, End: end, Text: strings.TrimSpace(text)}
	if !c.Valid() || c.Text == "" {
		return model.SubtitleCue{}, fmt.Errorf("invalid --cue %q: end must follow start and text must not be empty", v)
	}
	return c, nil
}
