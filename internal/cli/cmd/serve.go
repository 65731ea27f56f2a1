package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"clipforge/internal/model"
	"clipforge/internal/pipeline"
	"clipforge/internal/progress"
	"clipforge/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API with a websocket progress stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
				viper.Set("listen", f.Value.String())
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			var (
				rec  pipeline.Recorder
				hist server.History
			)
			if st := a.openHistory(cmd.Context()); st != nil {
				defer st.Close()
				rec, hist = st, st
			}

			hub := server.NewHub(a.logger.Named("hub"))
			svc := a.service(progress.Multi(hub, progress.NewLogReporter(a.logger.Named("progress"))), rec)
			srv := server.New(server.Options{
				Runs:    svc,
				History: hist,
				Hub:     hub,
				Logger:  a.logger.Named("server"),
				Defaults: pipeline.Job{
					OutDir: a.settings.OutDir,
					Encode: model.DefaultEncodeSettings(),
				},
			})
			return srv.ListenAndServe(cmd.Context(), a.settings.Listen)
		},
	}
	cmd.Flags().String("listen", "", "Address to listen on (default from config, 127.0.0.1:8765)")
	return cmd
}
