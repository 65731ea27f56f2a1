package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"clipforge/internal/encoder"
	"clipforge/internal/errs"
	"clipforge/internal/filtergraph"
	"clipforge/internal/model"
	"clipforge/internal/progress"
	"clipforge/internal/subtitle"
	"clipforge/internal/transcriber"
	"clipforge/internal/util"
	"clipforge/internal/util/format"
	"clipforge/internal/util/media"
)

// eventBuffer bounds the worker to orchestrator channel.
const eventBuffer = 16

// Slices of overall progress owned by each stage.
var (
	DownloadRange   = encoder.StageRange{Lo: 0, Hi: 25}
	TranscribeRange = encoder.StageRange{Lo: 25, Hi: 50}
	TranscodeRange  = encoder.StageRange{Lo: 50, Hi: 95}
	ExportRange     = encoder.StageRange{Lo: 95, Hi: 100}
)

// state is owned by the running stage worker. The orchestrator reads it
// only after the worker has finished.
type state struct {
	job     Job
	workdir string
	input   string

	dv        model.DownloadedVideo
	source    model.SourceInfo
	cues      []model.SubtitleCue
	assembled encoder.Assembled
	staged    model.OutputVideo
	out       model.OutputVideo
	srtPath   string
}

type stageFunc func(ctx context.Context, st *state, report func(local float64)) error

type stageDef struct {
	stage model.Stage
	rng   encoder.StageRange
	// skip reports why the stage does no work, or "" to run it.
	skip func(st *state) string
	run  stageFunc
}

// event crosses from a stage worker to the orchestrator.
type event struct {
	local float64
	done  bool
	err   error
}

func (s *Service) stages() []stageDef {
	return []stageDef{
		{stage: model.StageDownloading, rng: DownloadRange, skip: skipDownload, run: s.download},
		{stage: model.StageTranscribing, rng: TranscribeRange, skip: skipTranscribe, run: s.transcribe},
		{stage: model.StageTranscoding, rng: TranscodeRange, run: s.transcode},
		{stage: model.StageExporting, rng: ExportRange, run: s.export},
	}
}

// runStages drives the state machine. Each stage runs in its own worker
// goroutine, strictly one after another; progress and completion arrive
// over a bounded channel, so reporter calls all happen on this goroutine.
func (s *Service) runStages(ctx context.Context, logger hclog.Logger, run *model.PipelineRun, st *state) error {
	for _, def := range s.stages() {
		if err := run.Advance(def.stage); err != nil {
			return errs.Validation(def.stage, "%v", err)
		}
		s.publish(run)

		if def.skip != nil {
			if why := def.skip(st); why != "" {
				logger.Debug("stage skipped", "stage", def.stage, "reason", why)
				run.SetProgress(def.rng.Hi)
				s.emit(run, def.stage, -1, "skipped: "+why)
				continue
			}
		}
		s.emit(run, def.stage, 0, stageMessage(def.stage))
		if err := ctx.Err(); err != nil {
			return errs.Cancelled(def.stage, err)
		}

		events := make(chan event, eventBuffer)
		go func(def stageDef) {
			defer close(events)
			err := def.run(ctx, st, func(local float64) {
				events <- event{local: local}
			})
			events <- event{done: true, err: err}
		}(def)

		var stageErr error
		for ev := range events {
			if ev.done {
				stageErr = ev.err
				continue
			}
			if run.SetProgress(def.rng.Scale(int(ev.local))) {
				s.emit(run, def.stage, ev.local, "")
			}
		}
		if stageErr != nil {
			if ctx.Err() != nil && !errs.Is(stageErr, errs.KindCancelled) {
				stageErr = errs.Cancelled(def.stage, ctx.Err())
			}
			err := errs.Tag(def.stage, stageErr)
			logger.Error("stage failed", "stage", def.stage, "error", err)
			return err
		}
		if run.SetProgress(def.rng.Hi) {
			s.emit(run, def.stage, 100, "")
		}
	}
	if err := run.Advance(model.StageDone); err != nil {
		return errs.Validation(model.StageExporting, "%v", err)
	}
	s.emit(run, model.StageDone, 100, fmt.Sprintf("Saved: %s (%s)", filepath.Base(st.out.OutputPath), format.HumanizeBytes(st.out.Bytes)))
	return nil
}

func (s *Service) emit(run *model.PipelineRun, stage model.Stage, local float64, msg string) {
	s.publish(run)
	s.reporter.Update(progress.Update{
		RunID:        run.ID,
		Stage:        stage,
		Percent:      run.Progress,
		StagePercent: local,
		Message:      msg,
	})
}

func stageMessage(stage model.Stage) string {
	switch stage {
	case model.StageDownloading:
		return "Downloading source"
	case model.StageTranscribing:
		return "Transcribing speech"
	case model.StageTranscoding:
		return "Transcoding"
	case model.StageExporting:
		return "Exporting"
	}
	return ""
}

func skipDownload(st *state) string {
	if !util.IsRemote(st.job.Source) {
		return "local source"
	}
	return ""
}

func skipTranscribe(st *state) string {
	if len(st.job.Cues) > 0 {
		st.cues = append([]model.SubtitleCue(nil), st.job.Cues...)
		return "cues supplied"
	}
	if !st.job.Captions {
		return "captions disabled"
	}
	return ""
}

func (s *Service) download(ctx context.Context, st *state, report func(float64)) error {
	dv, err := s.downloader.Download(ctx, st.job.Source, st.workdir, func(u progress.Update) {
		if u.StagePercent >= 0 {
			report(u.StagePercent)
		}
	})
	if err != nil {
		return err
	}
	st.dv = dv
	st.input = dv.InputPath
	return nil
}

func (s *Service) transcribe(ctx context.Context, st *state, report func(float64)) error {
	p := st.job.Params.Normalized()
	cues, err := s.transcriber.Transcribe(ctx, transcriber.Request{
		Input:      st.input,
		Workdir:    filepath.Join(st.workdir, "transcribe"),
		Language:   st.job.Language,
		MaxSeconds: p.TrimStart + p.ClipSeconds(),
	}, report)
	if err != nil {
		return err
	}
	st.cues = cues
	return nil
}

func (s *Service) transcode(ctx context.Context, st *state, report func(float64)) error {
	s.store.Replace(st.cues)
	st.source = s.probe(ctx, st)

	final := s.outputPath(st)
	staged := filepath.Join(st.workdir, "out", filepath.Base(final))
	a, err := s.assembler.Assemble(encoder.Request{
		Input:  st.input,
		Output: staged,
		Params: st.job.Params,
		Cues:   s.store.Snapshot(),
		Source: st.source,
		Encode: st.job.Encode,
	})
	if err != nil {
		return err
	}
	for _, w := range a.Graph.Warnings {
		s.reporter.Log(progress.Log{RunID: st.job.ID, Stage: model.StageTranscoding, Stream: progress.StreamStderr, Line: "warning: " + w})
	}
	st.assembled = a
	out, err := s.transcoder.Transcode(ctx, a, func(pct int) { report(float64(pct)) })
	if err != nil {
		return err
	}
	st.staged = out
	st.out.OutputPath = final
	return nil
}

// export moves the finished file into place and writes the SRT sidecar.
func (s *Service) export(ctx context.Context, st *state, report func(float64)) error {
	const stage = model.StageExporting
	if st.staged.OutputPath == "" {
		return errs.Collaborator(stage, "transcode produced no output", errNoOutput)
	}
	final := st.out.OutputPath
	if err := util.MoveFile(st.staged.OutputPath, final); err != nil {
		return errs.Collaborator(stage, "move output into place", err)
	}
	report(50)

	fi, err := os.Stat(final)
	if err != nil {
		return errs.Collaborator(stage, "verify output", err)
	}
	st.out = st.staged
	st.out.OutputPath = final
	st.out.Bytes = fi.Size()

	if st.job.WriteSRT && len(st.cues) > 0 {
		var b strings.Builder
		if err := subtitle.WriteSRT(&b, st.cues); err != nil {
			return errs.Collaborator(stage, "render subtitles", err)
		}
		path, err := util.WriteSidecar(final, ".srt", b.String())
		if err != nil {
			return errs.Collaborator(stage, "write subtitle sidecar", err)
		}
		st.srtPath = path
	}
	return ctx.Err()
}

// probe asks the prober about the input, falling back to what the
// downloader reported. Failure leaves the source unprobed.
func (s *Service) probe(ctx context.Context, st *state) model.SourceInfo {
	fallback := model.SourceInfo{DurationSec: st.dv.DurationSec, Width: st.dv.Width, Height: st.dv.Height}
	if s.prober == nil {
		return fallback
	}
	info, err := s.prober.Probe(ctx, st.input)
	if err != nil {
		s.logger.Debug("probe failed, continuing unprobed", "input", st.input, "error", err)
		return fallback
	}
	return info
}

func (s *Service) outputPath(st *state) string {
	if st.job.Output != "" {
		return st.job.Output
	}
	w, h := filtergraph.TargetSize(st.job.Params.Normalized())
	base := media.OutputBasename(st.dv, st.job.Source, w, h, st.job.Encode)
	return filepath.Join(st.job.OutDir, base+".mp4")
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func removeAll(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
