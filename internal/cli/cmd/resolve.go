package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/util"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <url>",
		Short: "Print a direct, playable stream URL for previews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			platform, _, err := util.DetectPlatform(args[0])
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			dl, err := a.requireDownloader()
			if err != nil {
				return err
			}
			stream, err := dl.ResolveStream(cmd.Context(), util.NormalizeURL(args[0], platform))
			if err != nil {
				return exitErr(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), stream)
			return nil
		},
	}
}
