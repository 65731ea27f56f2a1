package encoder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"clipforge/internal/filtergraph"
	"clipforge/internal/model"
	"clipforge/internal/util/bitrate"
)

const (
	videoOut = "[vout]"
	audioOut = "[aout]"
)

// Request is everything one transcode needs.
type Request struct {
	Input  string // local path or remote stream URL
	Output string
	Params model.EditingParameters
	Cues   []model.SubtitleCue
	Source model.SourceInfo
	Encode model.EncodeSettings
}

// Assembled is a validated, ready-to-run transcode.
type Assembled struct {
	Command         model.CommandDescriptor
	Graph           filtergraph.Graph
	FontFile        string
	UsedCRF         int // 0 in bitrate mode
	UsedBitrateKbps int // 0 in CRF mode
	// Ceiling is the expected output length in seconds, used to scale progress.
	Ceiling float64
}

// Assembler validates preconditions and builds one CommandDescriptor.
type Assembler struct {
	FFmpegPath string
	Fonts      FontResolver
	Logger     hclog.Logger
	// FileExists is used for inputs, music, icons and fonts. Defaults to os.Stat.
	FileExists func(string) bool
}

func (a *Assembler) logger() hclog.Logger {
	if a.Logger == nil {
		return hclog.NewNullLogger()
	}
	return a.Logger
}

func (a *Assembler) exists(p string) bool {
	if a.FileExists != nil {
		return a.FileExists(p)
	}
	return isFile(p)
}

// Assemble validates req and compiles it into a descriptor. Validation
// failures are returned before anything is compiled.
func (a *Assembler) Assemble(req Request) (Assembled, error) {
	v, err := a.validate(req)
	if err != nil {
		return Assembled{}, err
	}

	p := req.Params.Normalized()
	graph := filtergraph.Compile(p, req.Cues, filtergraph.Options{
		FontFile:   v.fontFile,
		Source:     req.Source,
		FileExists: a.exists,
		Logger:     a.logger(),
	})

	cmd := model.CommandDescriptor{
		Binary:      v.binary,
		VideoStages: graph.VideoStages,
		AudioStages: graph.AudioStages,
		DurationCap: p.DurationCap.Seconds(),
		FPS:         p.FPS,
		Container:   "mp4",
		Output:      req.Output,
	}

	cmd.Inputs = append(cmd.Inputs, model.Input{Path: req.Input, Role: model.RolePrimary, PreArgs: trimArgs(p)})
	for _, ov := range graph.Overlays {
		cmd.Inputs = append(cmd.Inputs, model.Input{Path: ov.Path, Role: model.RoleOverlay})
		cmd.OverlayRefs = append(cmd.OverlayRefs, ov.Stage)
	}
	musicIdx := -1
	if p.BackgroundMusic != "" {
		musicIdx = len(cmd.Inputs)
		cmd.Inputs = append(cmd.Inputs, model.Input{Path: p.BackgroundMusic, Role: model.RoleMusic})
	}

	chains := []string{videoChain(graph)}
	hasAudio := !req.Source.Probed || req.Source.HasAudio
	if ac, ok := audioChain(graph.AudioStages, hasAudio, musicIdx, p.MusicVolume); ok {
		chains = append(chains, ac)
		cmd.Maps = []string{videoOut, audioOut}
	} else {
		cmd.Maps = []string{videoOut}
		cmd.NoAudio = true
	}
	cmd.FilterComplex = strings.Join(chains, ";")

	out := Assembled{
		Graph:    graph,
		FontFile: v.fontFile,
		Ceiling:  filtergraph.ClipLimit(p, req.Source),
	}
	cmd.CodecArgs, out.UsedCRF, out.UsedBitrateKbps = codecArgs(req.Encode, out.Ceiling, cmd.NoAudio)
	out.Command = cmd
	return out, nil
}

// videoChain labels the primary video chain and stacks each icon on top.
// Icon inputs start at index 1, in overlay order.
func videoChain(g filtergraph.Graph) string {
	var b strings.Builder
	b.WriteString("[0:v]")
	b.WriteString(strings.Join(g.VideoStages, ","))
	if len(g.Overlays) == 0 {
		b.WriteString(videoOut)
		return b.String()
	}
	b.WriteString("[v0]")
	for i, ov := range g.Overlays {
		fmt.Fprintf(&b, ";[%d:v]%s[ic%d]", i+1, ov.Prepare, i)
		next := fmt.Sprintf("[v%d]", i+1)
		if i == len(g.Overlays)-1 {
			next = videoOut
		}
		fmt.Fprintf(&b, ";[v%d][ic%d]%s%s", i, i, ov.Stage, next)
	}
	return b.String()
}

// audioChain builds the audio side. Music is mixed with the primary track
// for the primary's duration; a source without audio uses the music alone.
// ok is false when there is no audio at all.
func audioChain(stages []string, hasAudio bool, musicIdx int, musicVolume float64) (string, bool) {
	fx := strings.Join(stages, ",")
	mv := "volume=" + strconv.FormatFloat(musicVolume, 'f', -1, 64)
	switch {
	case hasAudio && musicIdx < 0:
		return "[0:a]" + fx + audioOut, true
	case hasAudio:
		return fmt.Sprintf("[0:a]%s[a0];[%d:a]%s[music];[a0][music]amix=inputs=2:duration=first:dropout_transition=2%s",
			fx, musicIdx, mv, audioOut), true
	case musicIdx >= 0:
		return fmt.Sprintf("[%d:a]%s,%s%s", musicIdx, mv, fx, audioOut), true
	default:
		return "", false
	}
}

func trimArgs(p model.EditingParameters) []string {
	var args []string
	if p.TrimStart > 0 {
		args = append(args, "-ss", formatSec(p.TrimStart))
	}
	if p.TrimEnd > p.TrimStart {
		args = append(args, "-to", formatSec(p.TrimEnd))
	}
	return args
}

// codecArgs selects CRF or size-targeted bitrate mode. clipSec is the
// expected output length, so a capped clip gets the full size budget.
func codecArgs(enc model.EncodeSettings, clipSec float64, noAudio bool) (args []string, usedCRF, usedKbps int) {
	args = []string{
		"-c:v", "libx264",
		"-preset", valueOr(enc.Preset, "veryfast"),
		"-pix_fmt", "yuv420p",
	}
	audioKbps := bitrate.SafeAudioKbps(nonZero(enc.AudioKbps, 128))
	if enc.MaxSizeMB > 0 {
		plan := bitrate.ForSize(enc.MaxSizeMB, clipSec, audioKbps)
		usedKbps = plan.VideoKbps
		audioKbps = plan.AudioKbps
		args = append(args,
			"-b:v", fmt.Sprintf("%dk", plan.VideoKbps),
			"-maxrate", fmt.Sprintf("%dk", plan.MaxrateKbps),
			"-bufsize", fmt.Sprintf("%dk", plan.BufsizeKbps),
		)
	} else {
		usedCRF = nonZero(enc.CRF, 23)
		args = append(args, "-crf", strconv.Itoa(usedCRF))
	}
	if !noAudio {
		args = append(args, "-c:a", "aac", "-b:a", fmt.Sprintf("%dk", audioKbps))
	}
	args = append(args, "-movflags", "+faststart")
	return args, usedCRF, usedKbps
}

func formatSec(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonZero(v int, def int) int {
	if v == 0 {
		return def
	}
	return v
}
