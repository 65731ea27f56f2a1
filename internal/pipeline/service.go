// Package pipeline sequences the download, transcribe, transcode and
// export stages of one clip export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"clipforge/internal/encoder"
	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/progress"
	"clipforge/internal/subtitle"
	"clipforge/internal/transcriber"
	"clipforge/internal/util"
)

// Downloader fetches remote sources.
type Downloader interface {
	Download(ctx context.Context, url, workdir string, onProgress func(progress.Update)) (model.DownloadedVideo, error)
	Metadata(ctx context.Context, url string) (model.DownloadedVideo, error)
}

// Transcriber turns speech into cues.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcriber.Request, onProgress func(float64)) ([]model.SubtitleCue, error)
}

// Transcoder runs an assembled command.
type Transcoder interface {
	Transcode(ctx context.Context, a encoder.Assembled, onProgress func(int)) (model.OutputVideo, error)
}

// Prober inspects a source before transcoding.
type Prober interface {
	Probe(ctx context.Context, path string) (model.SourceInfo, error)
}

// Recorder stores terminal runs.
type Recorder interface {
	Record(ctx context.Context, run model.PipelineRun) error
}

// Job is one export request.
type Job struct {
	ID     string // run id; generated when empty
	Source string // URL or local path
	OutDir string
	Output string // explicit output path; derived from the source when empty

	Params model.EditingParameters
	// Cues are used as-is when non-empty; transcription is then skipped.
	Cues     []model.SubtitleCue
	Captions bool // transcribe when no cues are supplied
	Language string
	Encode   model.EncodeSettings

	WriteSRT bool
	KeepTemp bool
}

// Result is the outcome of Run.
type Result struct {
	Run            model.PipelineRun
	Output         *model.OutputVideo
	DV             model.DownloadedVideo
	Cues           []model.SubtitleCue
	SRTPath        string
	TempDir        string // set when kept: on request, or after a cancel
	Overshot       bool
	OvershootRatio float64
}

// Service orchestrates export runs. One run is active at a time; starting
// another supersedes it.
type Service struct {
	logger      hclog.Logger
	reporter    progress.Reporter
	runner      util.CmdRunner
	downloader  Downloader
	transcriber Transcriber
	transcoder  Transcoder
	prober      Prober
	assembler   *encoder.Assembler
	recorder    Recorder
	store       *subtitle.Store
	workRoot    string
	lockPath    string

	mu      sync.Mutex
	active  *activeRun
	current *model.PipelineRun
}

type activeRun struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithReporter attaches a progress reporter (used by TUI and the API).
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) { s.reporter = rp }
}

// WithRunner injects a custom command runner used by default collaborators.
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) { s.runner = r }
}

// WithDownloader sets the remote source collaborator.
func WithDownloader(d Downloader) Option {
	return func(s *Service) { s.downloader = d }
}

// WithTranscriber sets the transcription collaborator.
func WithTranscriber(t Transcriber) Option {
	return func(s *Service) { s.transcriber = t }
}

// WithTranscoder overrides the transcoder.
func WithTranscoder(t Transcoder) Option {
	return func(s *Service) { s.transcoder = t }
}

// WithProber sets the source prober. Without one, sources are unprobed.
func WithProber(p Prober) Option {
	return func(s *Service) { s.prober = p }
}

// WithAssembler sets the command assembler.
func WithAssembler(a *encoder.Assembler) Option {
	return func(s *Service) { s.assembler = a }
}

// WithRecorder stores every terminal run.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithWorkRoot sets where per-run scratch directories are created.
func WithWorkRoot(dir string) Option {
	return func(s *Service) { s.workRoot = dir }
}

// WithLockPath enables a cross-process lock so two exports never share a
// scratch root.
func WithLockPath(p string) Option {
	return func(s *Service) { s.lockPath = p }
}

// NewService constructs a Service. Missing components get defaults.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = hclog.NewNullLogger()
	}
	if s.reporter == nil {
		s.reporter = progress.Nop{}
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner(util.WithRunnerLogger(s.logger.Named("exec")))
	}
	if s.assembler == nil {
		s.assembler = &encoder.Assembler{Logger: s.logger.Named("assembler")}
	}
	if s.transcoder == nil {
		s.transcoder = &encoder.Transcoder{Runner: s.runner, Logger: s.logger.Named("transcoder")}
	}
	s.store = subtitle.NewStore(nil)
	return s
}

// Cues is the store holding the cues of the latest run.
func (s *Service) Cues() *subtitle.Store { return s.store }

// Snapshot returns a copy of the latest run, if any.
func (s *Service) Snapshot() (model.PipelineRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return model.PipelineRun{}, false
	}
	return *s.current, true
}

// Cancel aborts the active run and waits for it to stop. It reports
// whether a run was active.
func (s *Service) Cancel() bool {
	s.mu.Lock()
	a := s.active
	s.mu.Unlock()
	if a == nil {
		return false
	}
	a.cancel()
	<-a.done
	return true
}

// Active returns the id of the active run, or "".
func (s *Service) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.id
}

// Run executes job from Idle to a terminal stage and blocks until then.
// A run already in progress is cancelled, and Run waits for it to exit
// before starting. The returned error is the run's failure, if any.
func (s *Service) Run(ctx context.Context, job Job) (Result, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cur := &activeRun{id: job.ID, cancel: cancel, done: make(chan struct{})}
	s.mu.Lock()
	prev := s.active
	s.active = cur
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.active == cur {
			s.active = nil
		}
		s.mu.Unlock()
		close(cur.done)
	}()
	if prev != nil {
		s.logger.Info("superseding active run", "run_id", prev.id, "by", job.ID)
		prev.cancel()
		<-prev.done
	}

	run := model.NewPipelineRun(job.ID, job.Source)
	logger := s.logger.With("run_id", job.ID)
	s.publish(run)

	res, err := s.execute(runCtx, logger, run, job)

	if err != nil {
		run.Fail(err)
	}
	if res.Output != nil {
		run.Output = res.Output.OutputPath
	}
	res.Run = *run
	s.publish(run)
	s.record(logger, run)

	pr := progress.Result{RunID: run.ID, Stage: run.Stage, Err: run.Err}
	if res.Output != nil {
		pr.OutputPath = res.Output.OutputPath
		pr.Bytes = res.Output.Bytes
	}
	s.reporter.Result(pr)
	return res, run.Err
}

func (s *Service) execute(ctx context.Context, logger hclog.Logger, run *model.PipelineRun, job Job) (res Result, err error) {
	if err := ctx.Err(); err != nil {
		return res, errs.Cancelled(model.StageIdle, err)
	}
	if err := s.precheck(job); err != nil {
		return res, err
	}

	if s.lockPath != "" {
		lock := flock.New(s.lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return res, errs.Validation(model.StageIdle, "lock %s: %v", s.lockPath, err)
		}
		if !ok {
			return res, errs.Validation(model.StageIdle, "another export is running (lock %s)", s.lockPath)
		}
		defer func() { _ = lock.Unlock() }()
	}

	workdir, err := util.MakeTempWorkdir(s.workRoot, "run")
	if err != nil {
		return res, errs.Validation(model.StageIdle, "create scratch dir: %v", err)
	}
	st := &state{job: job, workdir: workdir, input: job.Source}
	keep := job.KeepTemp
	defer func() {
		if keep {
			res.TempDir = workdir
			return
		}
		_ = removeAll(workdir)
	}()

	runErr := s.runStages(ctx, logger, run, st)

	res.DV = st.dv
	res.Cues = st.cues
	res.SRTPath = st.srtPath
	if runErr != nil {
		if errs.Is(runErr, errs.KindCancelled) {
			// Partial output stays for the caller.
			keep = true
		}
		return res, runErr
	}
	out := st.out
	res.Output = &out
	res.Overshot, res.OvershootRatio = checkOvershoot(job.Encode.MaxSizeMB, out.Bytes)
	if res.Overshot {
		logger.Warn("output exceeds size target", "ratio", fmt.Sprintf("%.2f", res.OvershootRatio))
	}
	return res, nil
}

// precheck validates what can be known before any stage starts.
func (s *Service) precheck(job Job) error {
	const stage = model.StageIdle
	if job.Source == "" {
		return errs.Validation(stage, "no source given")
	}
	if util.IsRemote(job.Source) {
		if s.downloader == nil {
			return errs.Validation(stage, "remote source given but no downloader is configured")
		}
	} else if !isFile(job.Source) {
		return errs.Validation(stage, "source file not found: %s", job.Source)
	}
	if len(job.Cues) == 0 && job.Captions && s.transcriber == nil {
		return errs.Validation(stage, "captions requested but no transcriber is configured")
	}
	outDir := job.OutDir
	if job.Output != "" {
		outDir = filepath.Dir(job.Output)
	}
	if outDir == "" {
		return errs.Validation(stage, "no output directory given")
	}
	if err := util.EnsureDir(outDir); err != nil {
		return errs.Validation(stage, "cannot create output directory %s: %v", outDir, err)
	}
	if err := util.CheckWritableDir(outDir); err != nil {
		return errs.Validation(stage, "output directory not writable: %v", err)
	}
	return nil
}

// publish stores a copy of run for Snapshot.
func (s *Service) publish(run *model.PipelineRun) {
	cp := *run
	s.mu.Lock()
	s.current = &cp
	s.mu.Unlock()
}

func (s *Service) record(logger hclog.Logger, run *model.PipelineRun) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.recorder.Record(ctx, *run); err != nil {
		logger.Warn("failed to record run history", "error", err)
	}
}

// checkOvershoot determines whether the output size exceeds the max target by >10%.
func checkOvershoot(maxSizeMB int, outBytes int64) (bool, float64) {
	if maxSizeMB <= 0 {
		return false, 0
	}
	maxBytes := int64(maxSizeMB) * 1024 * 1024
	ratio := float64(outBytes) / float64(maxBytes)
	return ratio > 1.10, ratio
}

var errNoOutput = errors.New("no output produced")
