package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/encoder"
	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/progress"
	"clipforge/internal/transcriber"
	"clipforge/internal/util"
)

type recordingReporter struct {
	mu      sync.Mutex
	updates []progress.Update
	results []progress.Result
	logs    []progress.Log
}

func (r *recordingReporter) Update(u progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}
func (r *recordingReporter) Log(l progress.Log) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
}
func (r *recordingReporter) Result(res progress.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingReporter) forRun(id string) []progress.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []progress.Update
	for _, u := range r.updates {
		if u.RunID == id {
			out = append(out, u)
		}
	}
	return out
}

// fakeFFmpeg simulates the transcoder. With block set, the first call
// writes a partial file and waits for cancellation.
type fakeFFmpeg struct {
	mu      sync.Mutex
	calls   int
	args    [][]string
	fail    bool
	block   bool
	started chan struct{}
	once    sync.Once
}

func (f *fakeFFmpeg) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.args = append(f.args, spec.Args)
	f.mu.Unlock()

	out := spec.Args[len(spec.Args)-1]
	emit := func(line string) {
		if spec.StderrLine != nil {
			spec.StderrLine(line)
		}
	}
	emit("  Duration: 00:01:00.00, start: 0.000000, bitrate: 1000 kb/s")

	if f.block && call == 1 {
		if err := os.WriteFile(out, []byte("partial"), 0o644); err != nil {
			return util.CmdResult{Code: -1}, err
		}
		f.once.Do(func() { close(f.started) })
		<-ctx.Done()
		return util.CmdResult{Code: -1, Canceled: true}, fmt.Errorf("command canceled: %w", ctx.Err())
	}
	if f.fail {
		emit("[h264 @ 0x1] Invalid argument")
		emit("Conversion failed!")
		return util.CmdResult{Code: 1, Tail: []string{"[h264 @ 0x1] Invalid argument", "Conversion failed!"}}, errors.New("exit status 1")
	}
	emit("frame=10 time=00:00:30.00 speed=2x")
	emit("frame=20 time=00:01:00.00 speed=2x")
	if err := os.WriteFile(out, make([]byte, 2048), 0o644); err != nil {
		return util.CmdResult{Code: -1}, err
	}
	return util.CmdResult{}, nil
}

func (f *fakeFFmpeg) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDownloader struct {
	fail bool
}

func (d *fakeDownloader) Download(ctx context.Context, url, workdir string, onProgress func(progress.Update)) (model.DownloadedVideo, error) {
	if d.fail {
		return model.DownloadedVideo{}, errs.Collaborator(model.StageDownloading, "download failed: ERROR: Video unavailable", nil)
	}
	p := filepath.Join(workdir, "vid42.mp4")
	if err := os.WriteFile(p, []byte("video"), 0o644); err != nil {
		return model.DownloadedVideo{}, err
	}
	onProgress(progress.Update{StagePercent: 40})
	onProgress(progress.Update{StagePercent: 100})
	return model.DownloadedVideo{InputPath: p, ID: "vid42", Title: "Best Moments", Uploader: "chan", DurationSec: 60, URL: url}, nil
}

func (d *fakeDownloader) Metadata(ctx context.Context, url string) (model.DownloadedVideo, error) {
	return model.DownloadedVideo{ID: "vid42", Title: "Best Moments", Uploader: "chan", DurationSec: 60, Width: 1280, Height: 720, URL: url}, nil
}

type fakeTranscriber struct {
	req transcriber.Request
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req transcriber.Request, onProgress func(float64)) ([]model.SubtitleCue, error) {
	f.req = req
	onProgress(60)
	return []model.SubtitleCue{
		{Start: 0, End: 2.5, Text: "Hello"},
		{Start: 2.5, End: 5, Text: "World"},
	}, nil
}

type fakeProber struct{}

func (fakeProber) Probe(ctx context.Context, path string) (model.SourceInfo, error) {
	return model.SourceInfo{DurationSec: 60, Width: 1920, Height: 1080, HasAudio: true, Probed: true}, nil
}

type memRecorder struct {
	mu   sync.Mutex
	runs []model.PipelineRun
}

func (m *memRecorder) Record(ctx context.Context, run model.PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

type fixture struct {
	source string
	outDir string
	work   string
	ff     *fakeFFmpeg
	rep    *recordingReporter
	rec    *memRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		source: filepath.Join(dir, "clip.mp4"),
		outDir: filepath.Join(dir, "out"),
		work:   filepath.Join(dir, "work"),
		ff:     &fakeFFmpeg{started: make(chan struct{})},
		rep:    &recordingReporter{},
		rec:    &memRecorder{},
	}
	require.NoError(t, os.WriteFile(f.source, []byte("video"), 0o644))
	return f
}

func (f *fixture) service(t *testing.T, extra ...Option) *Service {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	font := filepath.Join(dir, "font.ttf")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(font, []byte("font"), 0o644))

	opts := []Option{
		WithReporter(f.rep),
		WithRecorder(f.rec),
		WithWorkRoot(f.work),
		WithProber(fakeProber{}),
		WithAssembler(&encoder.Assembler{FFmpegPath: bin, Fonts: encoder.FontResolver{Fallback: font}}),
		WithTranscoder(&encoder.Transcoder{Runner: f.ff}),
	}
	return NewService(append(opts, extra...)...)
}

func (f *fixture) job() Job {
	return Job{
		Source: f.source,
		OutDir: f.outDir,
		Params: model.DefaultEditingParameters(),
		Encode: model.DefaultEncodeSettings(),
	}
}

func percents(us []progress.Update) []int {
	out := make([]int, 0, len(us))
	for _, u := range us {
		out = append(out, u.Percent)
	}
	return out
}

func TestRunLocalSource(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)

	res, err := svc.Run(context.Background(), f.job())
	require.NoError(t, err)
	assert.Equal(t, model.StageDone, res.Run.Stage)
	assert.Equal(t, 100, res.Run.Progress)
	require.NotNil(t, res.Output)
	assert.Equal(t, filepath.Join(f.outDir, "clip_1920x1080_CRF23.mp4"), res.Output.OutputPath)
	assert.Equal(t, int64(2048), res.Output.Bytes)
	assert.FileExists(t, res.Output.OutputPath)

	ups := f.rep.forRun(res.Run.ID)
	pcts := percents(ups)
	for i := 1; i < len(pcts); i++ {
		assert.GreaterOrEqual(t, pcts[i], pcts[i-1], "progress went backwards: %v", pcts)
	}
	assert.Contains(t, pcts, 72, "transcode at 50%% maps into its slice")
	assert.Equal(t, 100, pcts[len(pcts)-1])
	assert.Equal(t, "skipped: local source", ups[0].Message)
	assert.Equal(t, 25, ups[0].Percent)

	entries, err := os.ReadDir(f.work)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch dirs are removed after a successful run")

	require.Len(t, f.rec.runs, 1)
	assert.Equal(t, model.StageDone, f.rec.runs[0].Stage)
	require.Len(t, f.rep.results, 1)
	assert.NoError(t, f.rep.results[0].Err)

	snap, ok := svc.Snapshot()
	require.True(t, ok)
	assert.Equal(t, model.StageDone, snap.Stage)
	assert.Equal(t, "", svc.Active())
}

func TestRunRemoteWithTranscription(t *testing.T) {
	f := newFixture(t)
	tr := &fakeTranscriber{}
	svc := f.service(t, WithDownloader(&fakeDownloader{}), WithTranscriber(tr))

	job := f.job()
	job.Source = "https://youtu.be/vid42"
	job.Captions = true
	job.Language = "English"
	job.WriteSRT = true
	job.Params.DurationCap = model.CapUnder30

	res, err := svc.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, model.StageDone, res.Run.Stage)
	assert.Equal(t, "Best Moments", res.DV.Title)
	assert.Len(t, res.Cues, 2)
	assert.Equal(t, 2, svc.Cues().Len())
	assert.Equal(t, 30.0, tr.req.MaxSeconds)
	assert.Equal(t, "English", tr.req.Language)

	require.NotEmpty(t, res.SRTPath)
	srt, err := os.ReadFile(res.SRTPath)
	require.NoError(t, err)
	assert.Contains(t, string(srt), "00:00:02,500 --> 00:00:05,000\nWorld")

	require.Len(t, f.ff.args, 1)
	args := strings.Join(f.ff.args[0], " ")
	assert.Contains(t, args, "-t 30")
	assert.Contains(t, args, "between(t,0.0,2.5)")
	assert.Contains(t, args, "between(t,2.5,5.0)")

	var stages []model.Stage
	for _, u := range f.rep.forRun(res.Run.ID) {
		if len(stages) == 0 || stages[len(stages)-1] != u.Stage {
			stages = append(stages, u.Stage)
		}
	}
	assert.Equal(t, []model.Stage{
		model.StageDownloading, model.StageTranscribing, model.StageTranscoding, model.StageExporting, model.StageDone,
	}, stages)
}

func TestRunEngineFailureStopsPipeline(t *testing.T) {
	f := newFixture(t)
	f.ff.fail = true
	svc := f.service(t)

	res, err := svc.Run(context.Background(), f.job())
	require.Error(t, err)
	assert.Equal(t, model.StageFailed, res.Run.Stage)
	assert.Equal(t, errs.KindEngine, errs.KindOf(err))
	assert.Equal(t, model.StageTranscoding, errs.StageOf(err))
	assert.Contains(t, err.Error(), "Conversion failed!")
	assert.Contains(t, err.Error(), "Invalid argument")
	assert.Nil(t, res.Output)

	for _, u := range f.rep.forRun(res.Run.ID) {
		assert.NotEqual(t, model.StageExporting, u.Stage, "no stage may start after a failure")
	}
	entries, _ := os.ReadDir(f.outDir)
	assert.Empty(t, entries)
	require.Len(t, f.rec.runs, 1)
	assert.Equal(t, model.StageFailed, f.rec.runs[0].Stage)
}

func TestRunCollaboratorFailure(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, WithDownloader(&fakeDownloader{fail: true}))
	job := f.job()
	job.Source = "https://youtu.be/vid42"

	_, err := svc.Run(context.Background(), job)
	assert.Equal(t, errs.KindCollaborator, errs.KindOf(err))
	assert.Equal(t, model.StageDownloading, errs.StageOf(err))
	assert.Contains(t, err.Error(), "Video unavailable")
	assert.Zero(t, f.ff.callCount())
}

func TestRunValidationStartsNothing(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	job := f.job()
	job.Source = filepath.Join(t.TempDir(), "missing.mp4")

	res, err := svc.Run(context.Background(), job)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	assert.Equal(t, model.StageFailed, res.Run.Stage)
	assert.Zero(t, f.ff.callCount())

	job = f.job()
	job.Captions = true
	_, err = svc.Run(context.Background(), job)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err), "captions without a transcriber")
}

func TestCancelKeepsPartialOutput(t *testing.T) {
	f := newFixture(t)
	f.ff.block = true
	svc := f.service(t)

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := svc.Run(context.Background(), f.job())
		done <- outcome{res, err}
	}()

	select {
	case <-f.ff.started:
	case <-time.After(5 * time.Second):
		t.Fatal("transcode never started")
	}
	assert.True(t, svc.Cancel())

	o := <-done
	assert.Equal(t, errs.KindCancelled, errs.KindOf(o.err))
	assert.Equal(t, model.StageFailed, o.res.Run.Stage)
	require.NotEmpty(t, o.res.TempDir)
	assert.FileExists(t, filepath.Join(o.res.TempDir, "out", "clip_1920x1080_CRF23.mp4"))
	assert.False(t, svc.Cancel(), "nothing left to cancel")
}

func TestRunSupersedesActiveRun(t *testing.T) {
	f := newFixture(t)
	f.ff.block = true
	svc := f.service(t)

	first := make(chan error, 1)
	go func() {
		job := f.job()
		job.ID = "first"
		_, err := svc.Run(context.Background(), job)
		first <- err
	}()
	select {
	case <-f.ff.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never started transcoding")
	}
	assert.Equal(t, "first", svc.Active())

	job := f.job()
	job.ID = "second"
	res, err := svc.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, model.StageDone, res.Run.Stage)
	assert.Equal(t, errs.KindCancelled, errs.KindOf(<-first))
	assert.Equal(t, 2, f.ff.callCount())
}

func TestRunRespectsProcessLock(t *testing.T) {
	f := newFixture(t)
	lockPath := filepath.Join(t.TempDir(), "clipforge.lock")
	held := flock.New(lockPath)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	svc := f.service(t, WithLockPath(lockPath))
	_, err = svc.Run(context.Background(), f.job())
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	assert.Contains(t, err.Error(), "another export is running")
	assert.Zero(t, f.ff.callCount())
}

func TestPlanDoesNotRun(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, WithDownloader(&fakeDownloader{}))
	job := f.job()
	job.Source = "https://youtu.be/vid42"
	job.Captions = true
	job.Language = "fr"

	pl, err := svc.Plan(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 1920, pl.Width)
	assert.Equal(t, "transcribe (French)", pl.Captions)
	assert.Contains(t, pl.CommandLine, "-filter_complex")
	assert.Contains(t, pl.Describe(), "CRF 23")
	assert.Equal(t, "Best Moments", pl.DV.Title)
	assert.Zero(t, f.ff.callCount())
}

func TestCheckOvershoot(t *testing.T) {
	o, _ := checkOvershoot(50, 54*1024*1024)
	assert.False(t, o)
	o, _ = checkOvershoot(50, 55*1024*1024)
	assert.False(t, o, "exactly 10%% over is allowed")
	o, r := checkOvershoot(50, 56*1024*1024)
	assert.True(t, o)
	assert.Greater(t, r, 1.1)
	o, _ = checkOvershoot(0, 1<<40)
	assert.False(t, o)
}

func TestDefaultCRF(t *testing.T) {
	assert.Equal(t, 28, DefaultCRF(model.PresetLow))
	assert.Equal(t, 23, DefaultCRF(model.PresetMedium))
	assert.Equal(t, 19, DefaultCRF(model.PresetHigh))
}
