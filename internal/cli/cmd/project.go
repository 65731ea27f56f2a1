package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipforge/internal/filtergraph"
	"clipforge/internal/project"
	"clipforge/internal/subtitle"
	"clipforge/internal/util/format"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect TOML export projects",
	}

	initCmd := &cobra.Command{
		Use:   "init <file.toml> [source]",
		Short: "Write a project from flags (defaults for everything not given)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("%s exists (use --force to overwrite)", path)}
			}
			source := ""
			if len(args) > 1 {
				source = args[1]
			}
			p := project.New(source)
			if err := applyEditFlags(cmd.Flags(), &p.Edit); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			p.Edit = p.Edit.Normalized()
			p.Captions, _ = cmd.Flags().GetBool("captions")
			p.Language, _ = cmd.Flags().GetString("lang")
			raw, _ := cmd.Flags().GetStringArray("cue")
			for _, r := range raw {
				c, err := parseCue(r)
				if err != nil {
					return &ExitError{Code: ExitCLIError, Err: err}
				}
				p.Cues = append(p.Cues, c)
			}
			if err := project.Save(path, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	bindEditFlags(initCmd.Flags())
	initCmd.Flags().Bool("captions", false, "Transcribe speech into captions")
	initCmd.Flags().String("lang", "", "Spoken language hint")
	initCmd.Flags().StringArray("cue", nil, "Caption cue as START-END=TEXT (repeatable)")
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")
	completeFlagChoices(initCmd)

	showCmd := &cobra.Command{
		Use:   "show <file.toml>",
		Short: "Validate a project and summarise it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := project.Load(args[0])
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			w := cmd.OutOrStdout()
			e := p.Edit
			width, height := filtergraph.TargetSize(e)
			fmt.Fprintf(w, "Source:     %s\n", p.Source)
			fmt.Fprintf(w, "Frame:      %dx%d (%s", width, height, e.AspectRatio)
			if e.Resolution != "" {
				fmt.Fprintf(w, ", override %s", e.Resolution)
			}
			fmt.Fprintln(w, ")")
			fmt.Fprintf(w, "Clip:       <= %s", format.Duration(e.ClipSeconds()))
			if e.TrimEnd > e.TrimStart || e.TrimStart > 0 {
				fmt.Fprintf(w, " (trim %s..%s)", subtitle.FormatTimestamp(e.TrimStart), subtitle.FormatTimestamp(e.TrimEnd))
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Captions:   %s %dpx %s, %s/%s\n", e.Font, e.FontSize, e.TextColor.Hex(), e.CaptionTemplate, e.CaptionEffect)
			fmt.Fprintf(w, "Look:       colour %s, volume %.2f, audio %s\n", e.ColorFilter, e.Volume, e.AudioEffect)
			if e.BackgroundMusic != "" {
				fmt.Fprintf(w, "Music:      %s at %.2f\n", e.BackgroundMusic, e.MusicVolume)
			}
			for i, icon := range e.OverlayIcons {
				fmt.Fprintf(w, "Icon %d:     %s at %.0f,%.0f\n", i+1, icon.Path, icon.X, icon.Y)
			}
			fmt.Fprintf(w, "Cues:       %d\n", len(p.Cues))
			if len(p.Cues) > 0 {
				fmt.Fprintln(w)
				if err := subtitle.WriteSRT(w, p.Cues); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
