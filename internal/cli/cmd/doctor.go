package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/encoder"
	"clipforge/internal/model"
	"clipforge/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose external dependencies (ffmpeg, ffprobe, yt-dlp, whisper.cpp, fonts)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := config.Load(nil)
			statuses := deps.Check(deps.Paths{
				FFmpeg:       s.FFmpeg,
				FFprobe:      s.FFprobe,
				Downloader:   s.DLBinary,
				Whisper:      s.WhisperBinary,
				WhisperModel: s.WhisperModel,
			})

			headers := []string{"Dependency", "Status", "Path / problem"}
			rows := make([][]string, 0, len(statuses)+4)
			missingRequired := false
			for _, st := range statuses {
				status, detail := "ok", st.Path
				if !st.OK() {
					status, detail = "missing", st.Err.Error()
					if st.Required {
						status = "MISSING"
						missingRequired = true
					}
				}
				rows = append(rows, []string{st.Name, status, detail})
			}

			fonts := encoder.FontResolver{Dirs: s.FontDirs}
			for _, name := range []string{model.DefaultFont, "Times New Roman", "Helvetica"} {
				path, fellBack, ok := fonts.Resolve(name)
				status := "ok"
				switch {
				case !ok:
					status, path = "missing", "no font or fallback found"
				case fellBack:
					status = "fallback"
				}
				rows = append(rows, []string{"font " + name, status, path})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows))
			if missingRequired {
				return &ExitError{Code: ExitMissingDep, Err: fmt.Errorf("required dependencies are missing")}
			}
			return nil
		},
	}
}
