package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"clipforge/internal/util"
	"clipforge/internal/util/media"
)

func newThumbnailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thumbnail <url>",
		Short: "Download a video's thumbnail as JPEG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if !util.IsRemote(args[0]) {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("thumbnail needs a URL, got %q", args[0])}
			}
			dl, err := a.requireDownloader()
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				dv, err := dl.Metadata(cmd.Context(), args[0])
				if err != nil {
					return exitErr(err)
				}
				out = filepath.Join(a.settings.OutDir, util.SanitizeFilename(media.SourceName(dv, ""))+".jpg")
			}
			path, err := dl.Thumbnail(cmd.Context(), args[0], out)
			if err != nil {
				return exitErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", path)
			return nil
		},
	}
	cmd.Flags().String("output", "", "JPEG file to write")
	return cmd
}
