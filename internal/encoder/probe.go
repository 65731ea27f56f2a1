package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clipforge/internal/model"
	"clipforge/internal/util"
)

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

// Prober reads source facts with ffprobe.
type Prober struct {
	Binary string
	Runner util.CmdRunner
}

// Probe inspects path. Callers treat failure as "unknown" and carry on.
func (p Prober) Probe(ctx context.Context, path string) (model.SourceInfo, error) {
	bin := strings.TrimSpace(p.Binary)
	if bin == "" {
		bin = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return model.SourceInfo{}, errors.New("ffprobe: empty path")
	}
	runner := p.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	res, err := runner.Run(ctx, util.CmdSpec{
		Path:          bin,
		Args:          []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path},
		CaptureStdout: true,
	})
	if err != nil {
		return model.SourceInfo{}, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(res.Stderr)))
	}
	return parseProbe(res.Stdout)
}

func parseProbe(data []byte) (model.SourceInfo, error) {
	var r probeResult
	if err := json.Unmarshal(data, &r); err != nil {
		return model.SourceInfo{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	info := model.SourceInfo{Probed: true, DurationSec: parseSeconds(r.Format.Duration)}
	for _, s := range r.Streams {
		switch strings.ToLower(s.CodecType) {
		case "video":
			if info.Width == 0 && s.Width > 0 {
				info.Width, info.Height = s.Width, s.Height
			}
			if info.DurationSec == 0 {
				info.DurationSec = parseSeconds(s.Duration)
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

func parseSeconds(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
