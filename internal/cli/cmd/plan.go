package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"clipforge/internal/pipeline"
	"clipforge/internal/util/format"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [source]",
		Short: "Show the ffmpeg command an export would run, without running it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			job, err := buildJob(cmd, args, a.settings)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			pl, err := a.service(nil, nil).Plan(cmd.Context(), job)
			if err != nil {
				return exitErr(err)
			}
			printPlan(cmd.OutOrStdout(), job, pl)
			return nil
		},
	}
	bindJobFlags(cmd.Flags())
	completeFlagChoices(cmd)
	return cmd
}

// printPlan outputs a dry-run plan of actions without executing them.
func printPlan(w io.Writer, job pipeline.Job, pl pipeline.Plan) {
	fmt.Fprintln(w, "Dry-run plan:")
	fmt.Fprintf(w, "- Source:         %s\n", pl.Source)
	if pl.DV.Title != "" {
		fmt.Fprintf(w, "- Title:          %s\n", pl.DV.Title)
	}
	if pl.DV.DurationSec > 0 {
		fmt.Fprintf(w, "- Duration:       %s\n", format.Duration(pl.DV.DurationSec))
	}
	fmt.Fprintf(w, "- Output path:    %s\n", pl.OutputPath)
	fmt.Fprintf(w, "- Frame:          %dx%d\n", pl.Width, pl.Height)
	fmt.Fprintf(w, "- Clip length:    <= %s\n", format.Duration(pl.Assembled.Ceiling))
	if pl.Assembled.UsedBitrateKbps > 0 {
		fmt.Fprintf(w, "- Mode:           Size-constrained (target %d MB), video ~ %d kbps\n", job.Encode.MaxSizeMB, pl.Assembled.UsedBitrateKbps)
	} else {
		fmt.Fprintf(w, "- Mode:           CRF %d\n", pl.Assembled.UsedCRF)
	}
	fmt.Fprintf(w, "- Captions:       %s\n", pl.Captions)
	if pl.Assembled.FontFile != "" {
		fmt.Fprintf(w, "- Font file:      %s\n", pl.Assembled.FontFile)
	}
	for _, warn := range pl.Assembled.Graph.Warnings {
		fmt.Fprintf(w, "- Warning:        %s\n", warn)
	}
	fmt.Fprintf(w, "- Command:\n  %s\n", pl.CommandLine)
}
