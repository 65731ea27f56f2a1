package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/history"
	"clipforge/internal/util/format"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openHistoryStrict(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No exports recorded in %s\n", st.Path())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(historyRows(entries)))
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Number of runs to show (0 for all)")

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete history older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openHistoryStrict(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			age, _ := cmd.Flags().GetDuration("older-than")
			if age <= 0 {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("--older-than must be positive")}
			}
			n, err := st.Prune(cmd.Context(), time.Now().Add(-age))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", n)
			return nil
		},
	}
	prune.Flags().Duration("older-than", 30*24*time.Hour, "Remove runs that finished before now minus this")
	cmd.AddCommand(prune)
	return cmd
}

// openHistoryStrict opens the history for commands that exist only to read it.
func openHistoryStrict(cmd *cobra.Command) (*history.Store, error) {
	path := config.Load(nil).HistoryDB
	if path == "" {
		return nil, &ExitError{Code: ExitCLIError, Err: fmt.Errorf("history is disabled (history_db is empty)")}
	}
	st, err := history.Open(cmd.Context(), path)
	if err != nil {
		return nil, &ExitError{Code: ExitCLIError, Err: err}
	}
	return st, nil
}

func historyRows(entries []history.Entry) ([]string, [][]string, int) {
	headers := []string{"Started", "Source", "Output", "Stage", "Progress", "Took", "Error"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		out := ""
		if e.Output != "" {
			out = filepath.Base(e.Output)
		}
		errMsg := ""
		if e.ErrorKind != "" {
			errMsg = string(e.ErrorKind) + ": " + truncateRunes(e.ErrorMsg, 48)
		}
		rows = append(rows, []string{
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			truncateRunes(e.Source, 40),
			out,
			string(e.Stage),
			strconv.Itoa(e.Progress) + "%",
			format.Duration(e.Duration().Seconds()),
			errMsg,
		})
	}
	return headers, rows, 4
}

func truncateRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
