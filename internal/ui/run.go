package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the progress of one export started by start and returns the
// export's error. Quitting cancels the export and waits for it to stop; a
// second quit leaves immediately.
func Run(ctx context.Context, source string, verbose bool, start StartFunc) error {
	m := NewModel(ctx, source, verbose, start)
	prog := tea.NewProgram(m)
	final, err := prog.Run()
	close(m.quit)
	m.cancel()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		if fm.runErr != nil {
			return fm.runErr
		}
		if !fm.finished {
			return context.Canceled
		}
	}
	return nil
}
