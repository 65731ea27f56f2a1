package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"clipforge/internal/encoder"
	"clipforge/internal/model"
	"clipforge/internal/transcriber"
	"clipforge/internal/util"
)

// DefaultCRF maps a quality preset to a default CRF.
func DefaultCRF(q model.QualityPreset) int {
	switch q {
	case model.PresetLow:
		return 28
	case model.PresetHigh:
		return 19
	case model.PresetMedium:
		fallthrough
	default:
		return 23
	}
}

// Plan is what a job would run, for dry runs and introspection.
type Plan struct {
	Source      string
	Input       string
	OutputPath  string
	Width       int
	Height      int
	DV          model.DownloadedVideo
	Assembled   encoder.Assembled
	CommandLine string
	Captions    string
}

// Plan resolves job into a command without running anything but metadata
// lookups. Remote sources are planned against their URL; transcribed cues
// are unknown at this point, so only supplied cues appear in the graph.
func (s *Service) Plan(ctx context.Context, job Job) (Plan, error) {
	if err := s.precheck(job); err != nil {
		return Plan{}, err
	}
	st := &state{job: job, input: job.Source}
	if util.IsRemote(job.Source) {
		dv, err := s.downloader.Metadata(ctx, job.Source)
		if err != nil {
			return Plan{}, err
		}
		st.dv = dv
	}
	_ = skipTranscribe(st)
	st.source = s.probe(ctx, st)

	out := s.outputPath(st)
	a, err := s.assembler.Assemble(encoder.Request{
		Input:  st.input,
		Output: out,
		Params: job.Params,
		Cues:   st.cues,
		Source: st.source,
		Encode: job.Encode,
	})
	if err != nil {
		return Plan{}, err
	}

	pl := Plan{
		Source:      job.Source,
		Input:       st.input,
		OutputPath:  out,
		Width:       a.Graph.Width,
		Height:      a.Graph.Height,
		DV:          st.dv,
		Assembled:   a,
		CommandLine: util.ShellQuote(a.Command.Binary, a.Command.Args()),
	}
	switch {
	case len(job.Cues) > 0:
		pl.Captions = fmt.Sprintf("%d supplied cues", len(job.Cues))
	case job.Captions:
		code, _ := transcriber.NormalizeLanguage(job.Language)
		pl.Captions = "transcribe (" + transcriber.DisplayName(code) + ")"
	default:
		pl.Captions = "off"
	}
	return pl, nil
}

// Describe is a one-line summary of the plan.
func (p Plan) Describe() string {
	mode := fmt.Sprintf("CRF %d", p.Assembled.UsedCRF)
	if p.Assembled.UsedBitrateKbps > 0 {
		mode = fmt.Sprintf("%d kbps", p.Assembled.UsedBitrateKbps)
	}
	return fmt.Sprintf("%s -> %s (%dx%d, %s, captions %s)", p.Source, filepath.Base(p.OutputPath), p.Width, p.Height, mode, p.Captions)
}
