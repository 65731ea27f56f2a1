package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/subtitle"
	"clipforge/internal/transcriber"
	"clipforge/internal/util"
	"clipforge/internal/util/media"
)

func newTranscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <source>",
		Short: "Transcribe speech into an SRT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			tr := a.transcriber()
			if tr == nil {
				return &ExitError{Code: ExitMissingDep, Err: fmt.Errorf("transcription needs whisper.cpp and a model (see clipforge doctor)")}
			}
			source := args[0]
			lang, _ := cmd.Flags().GetString("lang")
			if _, ok := transcriber.NormalizeLanguage(lang); !ok {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("unknown language %q", lang)}
			}
			maxSec, _ := cmd.Flags().GetFloat64("max-seconds")
			out, _ := cmd.Flags().GetString("output")

			input := source
			var dv model.DownloadedVideo
			if util.IsRemote(source) {
				dl, err := a.requireDownloader()
				if err != nil {
					return err
				}
				if dv, err = dl.Metadata(cmd.Context(), source); err != nil {
					return exitErr(err)
				}
				if input, err = dl.ResolveStream(cmd.Context(), source); err != nil {
					return exitErr(err)
				}
			}
			if out == "" {
				out = filepath.Join(a.settings.OutDir, util.SanitizeFilename(media.SourceName(dv, source))+".srt")
			}

			workdir, err := util.MakeTempWorkdir(a.settings.WorkDir, "transcribe")
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer os.RemoveAll(workdir)

			last := -1
			cues, err := tr.Transcribe(cmd.Context(), transcriber.Request{
				Input:      input,
				Workdir:    workdir,
				Language:   lang,
				MaxSeconds: maxSec,
			}, func(p float64) {
				if b := int(p) / 10; b > last {
					last = b
					fmt.Fprintf(cmd.ErrOrStderr(), "\rtranscribing %3.0f%%", p)
				}
			})
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return exitErr(err)
			}

			var buf bytes.Buffer
			if err := subtitle.WriteSRT(&buf, cues); err != nil {
				return exitErr(err)
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := util.EnsureDir(filepath.Dir(out)); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return errs.Validation(model.StageExporting, "write %s: %v", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s (%d cues)\n", out, len(cues))
			return nil
		},
	}
	cmd.Flags().String("lang", "auto", "Spoken language hint (name or code)")
	cmd.Flags().Float64("max-seconds", 0, "Transcribe at most this many seconds (0 = all)")
	cmd.Flags().String("output", "", `SRT file to write ("-" for stdout)`)
	completeFlagChoices(cmd)
	return cmd
}
