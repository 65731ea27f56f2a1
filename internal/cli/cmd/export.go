package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"clipforge/internal/model"
	"clipforge/internal/pipeline"
	"clipforge/internal/progress"
	"clipforge/internal/ui"
	"clipforge/internal/util/format"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export [source]",
		Aliases: []string{"run"},
		Short:   "Download, transcribe, transcode and export one clip",
		Example: `  clipforge export talk.mp4 --aspect 9:16 --duration "<30s" --captions
  clipforge export https://youtu.be/abc --trim-start 12 --trim-end 40 --music bed.mp3 --music-volume 0.3
  clipforge export --project clip.toml --srt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExport,
	}
	bindJobFlags(cmd.Flags())
	cmd.Flags().Bool("no-ui", false, "Disable TUI; use plain textual output")
	completeFlagChoices(cmd)
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	job, err := buildJob(cmd, args, a.settings)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	var rec pipeline.Recorder
	if hist := a.openHistory(cmd.Context()); hist != nil {
		defer hist.Close()
		rec = hist
	}

	noUI, _ := cmd.Flags().GetBool("no-ui")
	var res pipeline.Result
	if !noUI && isTerminal() {
		// Log lines would tear the TUI apart.
		level := a.logger.GetLevel()
		a.logger.SetLevel(hclog.Off)
		err = ui.Run(cmd.Context(), job.Source, a.settings.Verbose, func(ctx context.Context, rep progress.Reporter) error {
			var runErr error
			res, runErr = a.service(rep, rec).Run(ctx, job)
			return runErr
		})
		a.logger.SetLevel(level)
	} else {
		rep := progress.Multi(newTextReporter(cmd.OutOrStdout()), progress.NewLogReporter(a.logger.Named("progress")))
		res, err = a.service(rep, rec).Run(cmd.Context(), job)
	}

	errOut := cmd.ErrOrStderr()
	if res.TempDir != "" {
		fmt.Fprintf(errOut, "scratch kept at %s\n", res.TempDir)
	}
	if err != nil {
		return exitErr(err)
	}
	if res.Overshot {
		fmt.Fprintf(errOut, "warning: output size (%s) exceeds target (%d MB) by %.0f%%. Consider a lower --crf or shorter clip.\n",
			format.HumanizeBytes(res.Output.Bytes), job.Encode.MaxSizeMB, (res.OvershootRatio-1)*100)
	}
	if res.SRTPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Subtitles: %s\n", res.SRTPath)
	}
	return nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// textReporter prints stage changes and the final result as plain lines.
type textReporter struct {
	w     io.Writer
	mu    sync.Mutex
	stage model.Stage
}

func newTextReporter(w io.Writer) *textReporter {
	return &textReporter{w: w}
}

func (r *textReporter) Update(u progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.Stage == r.stage || u.Message == "" {
		return
	}
	r.stage = u.Stage
	if u.Stage == model.StageDone {
		return
	}
	fmt.Fprintf(r.w, "[%3d%%] %s\n", u.Percent, u.Message)
}

func (r *textReporter) Log(progress.Log) {}

func (r *textReporter) Result(res progress.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage = ""
	if res.Err != nil {
		return
	}
	fmt.Fprintf(r.w, "Saved: %s (%s)\n", res.OutputPath, format.HumanizeBytes(res.Bytes))
}
