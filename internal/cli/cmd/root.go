package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/errs"
)

const (
	ExitOK           = 0
	ExitCLIError     = 1
	ExitMissingDep   = 2
	ExitCollaborator = 3
	ExitEngine       = 4
	ExitCancelled    = 5
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitErr maps err to an exit code by its kind.
func exitErr(err error) error {
	if err == nil {
		return nil
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee
	}
	code := ExitCLIError
	switch errs.KindOf(err) {
	case errs.KindCollaborator:
		code = ExitCollaborator
	case errs.KindEngine, errs.KindStreamParse:
		code = ExitEngine
	case errs.KindCancelled:
		code = ExitCancelled
	}
	return &ExitError{Code: code, Err: err}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clipforge",
		Short: "Compose short social clips with ffmpeg",
		Long: "clipforge turns a local file or a YouTube link into a short-form clip: trim, caption " +
			"(with whisper.cpp transcription), reframe, overlay and mix audio, all compiled into a single ffmpeg run.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all subcommands; each maps to a config key.
	pf := root.PersistentFlags()
	pf.StringP("out-dir", "o", "", "Output directory")
	pf.String("work-dir", "", "Scratch directory for downloads and intermediate files")
	pf.String("ffmpeg", "", "Path to ffmpeg")
	pf.String("ffprobe", "", "Path to ffprobe")
	pf.String("dl-binary", "", "Path to yt-dlp or youtube-dl")
	pf.String("whisper", "", "Path to the whisper.cpp binary")
	pf.String("whisper-model", "", "Whisper model file or directory")
	pf.StringSlice("font-dir", nil, "Extra directories searched for caption fonts")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error, off")
	pf.Bool("log-json", false, "Log as JSON")
	pf.BoolP("verbose", "v", false, "Show full subprocess commands/output")
	pf.String("history-db", "", "Run history database (empty disables history)")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := config.Init(root); err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		return nil
	}

	root.AddCommand(newExportCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTranscribeCmd())
	root.AddCommand(newThumbnailCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newProjectCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())
	return root
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return exitErr(root.ExecuteContext(ctx))
}
