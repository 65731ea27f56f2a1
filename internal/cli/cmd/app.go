package cmd

import (
	"context"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/dirs"
	"clipforge/internal/downloader"
	"clipforge/internal/encoder"
	"clipforge/internal/history"
	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/progress"
	"clipforge/internal/transcriber"
	"clipforge/internal/util"
	"clipforge/internal/util/deps"
)

// app holds what every command builds its collaborators from.
type app struct {
	settings config.Settings
	logger   hclog.Logger
	runner   util.CmdRunner
	ffmpeg   string
}

func newApp(cmd *cobra.Command) (*app, error) {
	s := config.Load(nil)
	level := s.LogLevel
	if s.Verbose && (level == "" || level == "info") {
		level = "debug"
	}
	logger := logging.New(logging.Options{Level: level, JSON: s.LogJSON, Output: cmd.ErrOrStderr()})
	ff, err := deps.FindFFmpeg(s.FFmpeg)
	if err != nil {
		return nil, &ExitError{Code: ExitMissingDep, Err: err}
	}
	return &app{
		settings: s,
		logger:   logger,
		runner:   util.NewDefaultRunner(util.WithRunnerLogger(logger.Named("exec"))),
		ffmpeg:   ff,
	}, nil
}

func (a *app) fonts() encoder.FontResolver {
	return encoder.FontResolver{Dirs: a.settings.FontDirs}
}

func (a *app) assembler() *encoder.Assembler {
	return &encoder.Assembler{FFmpegPath: a.ffmpeg, Fonts: a.fonts(), Logger: a.logger.Named("assembler")}
}

// prober returns nil when ffprobe is not installed; sources then stay unprobed.
func (a *app) prober() pipeline.Prober {
	p, err := deps.FindFFprobe(a.settings.FFprobe)
	if err != nil {
		a.logger.Debug("ffprobe not found, sources will not be probed", "error", err)
		return nil
	}
	return encoder.Prober{Binary: p, Runner: a.runner}
}

// downloader returns nil when yt-dlp is missing; remote sources then fail
// validation.
func (a *app) downloader() *downloader.Client {
	p, err := deps.FindDownloader(a.settings.DLBinary)
	if err != nil {
		a.logger.Debug("downloader not found", "error", err)
		return nil
	}
	return downloader.New(downloader.Options{
		DownloaderPath: p,
		Verbose:        a.settings.Verbose,
		Runner:         a.runner,
		Logger:         a.logger.Named("downloader"),
	})
}

// requireDownloader is downloader for commands that cannot work without one.
func (a *app) requireDownloader() (*downloader.Client, error) {
	if _, err := deps.FindDownloader(a.settings.DLBinary); err != nil {
		return nil, &ExitError{Code: ExitMissingDep, Err: err}
	}
	return a.downloader(), nil
}

// transcriber returns nil when whisper.cpp or its model is missing.
func (a *app) transcriber() *transcriber.Client {
	p, err := deps.FindWhisper(a.settings.WhisperBinary)
	if err != nil || a.settings.WhisperModel == "" {
		a.logger.Debug("transcription unavailable", "whisper", p, "model", a.settings.WhisperModel)
		return nil
	}
	return transcriber.New(transcriber.Options{
		FFmpegPath:  a.ffmpeg,
		WhisperPath: p,
		ModelPath:   a.settings.WhisperModel,
		Verbose:     a.settings.Verbose,
		Runner:      a.runner,
		Logger:      a.logger.Named("transcriber"),
	})
}

// openHistory opens the run history, or returns nil when it is disabled or
// unavailable. Failure to open is logged, never fatal.
func (a *app) openHistory(ctx context.Context) *history.Store {
	if a.settings.HistoryDB == "" {
		return nil
	}
	st, err := history.Open(ctx, a.settings.HistoryDB)
	if err != nil {
		a.logger.Warn("run history unavailable", "path", a.settings.HistoryDB, "error", err)
		return nil
	}
	return st
}

// service builds the orchestrator with every collaborator that is installed.
func (a *app) service(rep progress.Reporter, rec pipeline.Recorder) *pipeline.Service {
	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger.Named("pipeline")),
		pipeline.WithReporter(rep),
		pipeline.WithRunner(a.runner),
		pipeline.WithAssembler(a.assembler()),
		pipeline.WithTranscoder(&encoder.Transcoder{Runner: a.runner, Logger: a.logger.Named("transcoder"), Verbose: a.settings.Verbose}),
		pipeline.WithWorkRoot(a.settings.WorkDir),
	}
	if d := a.downloader(); d != nil {
		opts = append(opts, pipeline.WithDownloader(d))
	}
	if t := a.transcriber(); t != nil {
		opts = append(opts, pipeline.WithTranscriber(t))
	}
	if p := a.prober(); p != nil {
		opts = append(opts, pipeline.WithProber(p))
	}
	if rec != nil {
		opts = append(opts, pipeline.WithRecorder(rec))
	}
	if lock, err := dirs.LockPath(); err == nil && dirs.Ensure(filepath.Dir(lock)) == nil {
		opts = append(opts, pipeline.WithLockPath(lock))
	}
	return pipeline.NewService(opts...)
}
