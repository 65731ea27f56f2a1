package encoder

import (
	"path/filepath"
	"strings"

	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/util"
	"clipforge/internal/util/deps"
)

// validated is what preconditions resolved: the real binary and font paths.
type validated struct {
	binary   string
	fontFile string
}

// validate checks every precondition before a descriptor is built. Each
// failure is a validation error naming what is missing; nothing is
// substituted silently except the documented fallback font.
func (a *Assembler) validate(req Request) (validated, error) {
	const stage = model.StageTranscoding
	var v validated

	bin, err := deps.FindFFmpeg(a.FFmpegPath)
	if err != nil {
		return v, errs.Validation(stage, "transcoder binary not found: %v", err)
	}
	v.binary = bin

	if req.Input == "" {
		return v, errs.Validation(stage, "no input given")
	}
	if !util.IsRemote(req.Input) && !a.exists(req.Input) {
		return v, errs.Validation(stage, "input file not found: %s", req.Input)
	}

	if req.Output == "" {
		return v, errs.Validation(stage, "no output path given")
	}
	outDir := filepath.Dir(req.Output)
	if err := util.EnsureDir(outDir); err != nil {
		return v, errs.Validation(stage, "cannot create output directory %s: %v", outDir, err)
	}
	if err := util.CheckWritableDir(outDir); err != nil {
		return v, errs.Validation(stage, "output directory not writable: %v", err)
	}

	p := req.Params
	if p.TrimEnd > 0 && p.TrimEnd <= p.TrimStart {
		return v, errs.Validation(stage, "trim end %.3fs must be after trim start %.3fs", p.TrimEnd, p.TrimStart)
	}
	if p.BackgroundMusic != "" && !a.exists(p.BackgroundMusic) {
		return v, errs.Validation(stage, "background music not found: %s", p.BackgroundMusic)
	}

	if hasVisibleCue(req.Cues) {
		fonts := a.Fonts
		fonts.exists = a.exists
		path, fellBack, ok := fonts.Resolve(p.Font)
		if !ok {
			return v, errs.Validation(stage, "font %q not found and fallback font is missing", p.Font)
		}
		if fellBack {
			a.logger().Warn("font not found, using fallback", "font", p.Font, "fallback", path)
		}
		v.fontFile = path
	}
	return v, nil
}

func hasVisibleCue(cues []model.SubtitleCue) bool {
	for _, c := range cues {
		if c.Valid() && strings.TrimSpace(c.Text) != "" {
			return true
		}
	}
	return false
}
