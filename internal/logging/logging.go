// Package logging builds the hclog logger shared by every component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
)

// Options selects level, format and destination.
type Options struct {
	Level  string // trace, debug, info, warn, error or off
	JSON   bool
	Output io.Writer // defaults to os.Stderr
}

// New returns the root logger. Colour is used only for console output to
// a terminal.
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	color := hclog.ColorOff
	if !opts.JSON && IsTerminal(out) {
		color = hclog.AutoColor
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "clipforge",
		Level:      ParseLevel(opts.Level),
		Output:     out,
		JSONFormat: opts.JSON,
		Color:      color,
	})
}

// ParseLevel maps a level name to hclog. Unknown names mean info.
func ParseLevel(s string) hclog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "off" || s == "none" {
		return hclog.Off
	}
	if l := hclog.LevelFromString(s); l != hclog.NoLevel {
		return l
	}
	return hclog.Info
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
