package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"

	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/util"
)

// Transcoder runs assembled commands and reports stage-local progress.
type Transcoder struct {
	Runner    util.CmdRunner
	Logger    hclog.Logger
	TailLines int
	Verbose   bool
}

// Transcode runs the descriptor to completion. onProgress receives
// strictly increasing stage-local percentages from the runner's reader
// goroutines. Success is decided by the exit status alone.
//
// A non-zero exit removes the incomplete output and returns an engine
// error carrying the last diagnostic lines. A cancelled run returns a
// cancelled error and leaves any partial output in place.
func (t *Transcoder) Transcode(ctx context.Context, a Assembled, onProgress func(int)) (model.OutputVideo, error) {
	const stage = model.StageTranscoding
	logger := t.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	runner := t.Runner
	if runner == nil {
		runner = util.NewDefaultRunner(util.WithRunnerLogger(logger))
	}
	cmd := a.Command
	if cmd.Output == "" {
		return model.OutputVideo{}, errs.Validation(stage, "output path is required")
	}
	if err := util.EnsureDir(filepath.Dir(cmd.Output)); err != nil {
		return model.OutputVideo{}, errs.Validation(stage, "ensure output dir: %v", err)
	}

	parser := NewProgressParser(a.Ceiling)
	var mu sync.Mutex
	feed := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		if pct, ok := parser.Feed(line); ok && onProgress != nil {
			onProgress(pct)
		}
	}

	logger.Info("transcoding", "output", cmd.Output, "inputs", len(cmd.Inputs), "cap", cmd.DurationCap)
	res, runErr := runner.Run(ctx, util.CmdSpec{
		Path:       cmd.Binary,
		Args:       cmd.Args(),
		Verbose:    t.Verbose,
		StdoutLine: feed,
		StderrLine: feed,
		TailLines:  t.TailLines,
	})

	if perr := parser.Err(stage); perr != nil {
		logger.Warn("progress unavailable", "error", perr)
	}

	if res.Canceled || errors.Is(runErr, context.Canceled) || (runErr != nil && ctx.Err() != nil) {
		return model.OutputVideo{}, errs.Cancelled(stage, context.Canceled)
	}
	if runErr != nil {
		_ = util.RemoveIfExists(cmd.Output)
		msg := fmt.Sprintf("ffmpeg exited with code %d", res.Code)
		return model.OutputVideo{}, errs.Engine(stage, msg, res.Tail, runErr)
	}

	fi, err := os.Stat(cmd.Output)
	if err != nil {
		return model.OutputVideo{}, errs.Engine(stage, "output missing after transcode", res.Tail, err)
	}
	if onProgress != nil && parser.Last() < 100 {
		onProgress(100)
	}
	return model.OutputVideo{
		OutputPath:      cmd.Output,
		Bytes:           fi.Size(),
		UsedCRF:         a.UsedCRF,
		UsedBitrateKbps: a.UsedBitrateKbps,
	}, nil
}
