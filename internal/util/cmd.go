package util

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// DefaultTailLines is how many trailing output lines are kept for
	// failure diagnostics.
	DefaultTailLines = 20
	// DefaultKillGrace is the delay between SIGTERM and SIGKILL on cancel.
	DefaultKillGrace = 3 * time.Second

	maxLineBytes   = 1024 * 1024
	maxStderrBytes = 256 * 1024
)

// CmdSpec describes a subprocess to run.
type CmdSpec struct {
	Path    string   // Binary path
	Args    []string // Arguments
	Env     []string // Optional environment variables (KEY=VALUE). If nil, inherit.
	Dir     string   // Working directory; empty = inherit.
	Verbose bool     // Log every output line at debug level

	StdoutLine    func(string) // Called for each stdout line (if non-nil)
	StderrLine    func(string) // Called for each stderr line (if non-nil)
	CaptureStdout bool         // When false, do not buffer stdout into CmdResult (still invoke StdoutLine)

	// TailLines bounds the combined stdout/stderr tail kept in CmdResult.Tail.
	// Zero means DefaultTailLines.
	TailLines int
}

// CmdResult contains captured output and exit status.
type CmdResult struct {
	Stdout   []byte
	Stderr   []byte   // last maxStderrBytes of stderr
	Tail     []string // last lines of combined output, oldest first
	Code     int
	Err      error
	Canceled bool
}

// CmdRunner runs subprocesses. Tests substitute fakes keyed on CmdSpec.Path.
type CmdRunner interface {
	Run(ctx context.Context, spec CmdSpec) (CmdResult, error)
}

// DefaultRunner runs real processes. Each child gets its own process group
// so cancellation reaches every descendant.
type DefaultRunner struct {
	Logger    hclog.Logger
	KillGrace time.Duration
}

// RunnerOption configures a DefaultRunner.
type RunnerOption func(*DefaultRunner)

// WithRunnerLogger sets the logger used for command tracing.
func WithRunnerLogger(l hclog.Logger) RunnerOption {
	return func(r *DefaultRunner) { r.Logger = l }
}

// WithKillGrace sets the SIGTERM to SIGKILL delay.
func WithKillGrace(d time.Duration) RunnerOption {
	return func(r *DefaultRunner) { r.KillGrace = d }
}

// NewDefaultRunner returns a runner with a null logger and DefaultKillGrace.
func NewDefaultRunner(opts ...RunnerOption) *DefaultRunner {
	r := &DefaultRunner{Logger: hclog.NewNullLogger(), KillGrace: DefaultKillGrace}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes the command and blocks until it exits and both output
// streams are drained. Output is decoded as UTF-8 with invalid bytes
// replaced, and split on either '\r' or '\n' so carriage-return progress
// lines arrive one at a time. On non-zero exit the returned error carries
// the exit code; on cancellation it wraps ctx.Err().
func (r *DefaultRunner) Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	logger := r.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	grace := r.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}
	tailN := spec.TailLines
	if tailN <= 0 {
		tailN = DefaultTailLines
	}

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	configureProcess(cmd, grace)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}

	logger.Debug("exec", "cmd", ShellQuote(spec.Path, spec.Args))

	if err := cmd.Start(); err != nil {
		return CmdResult{Code: -1, Err: err}, err
	}

	var (
		stdoutBuf bytes.Buffer
		stderrBuf = newTailBuffer(maxStderrBytes)
		tail      = NewTail(tailN)
		wg        sync.WaitGroup
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanLines(stdoutPipe, func(line string) {
			tail.Add(line)
			if spec.StdoutLine != nil {
				spec.StdoutLine(line)
			}
			if spec.Verbose {
				logger.Debug("stdout", "line", line)
			}
			if spec.CaptureStdout || spec.StdoutLine == nil {
				stdoutBuf.WriteString(line)
				stdoutBuf.WriteByte('\n')
			}
		}, logger)
	}()

	go func() {
		defer wg.Done()
		scanLines(stderrPipe, func(line string) {
			tail.Add(line)
			if spec.StderrLine != nil {
				spec.StderrLine(line)
			}
			if spec.Verbose {
				logger.Debug("stderr", "line", line)
			}
			stderrBuf.WriteLine(line)
		}, logger)
	}()

	// Readers must finish before Wait closes the pipes.
	wg.Wait()
	waitErr := cmd.Wait()

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	res := CmdResult{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
		Tail:     tail.Lines(),
		Code:     code,
		Err:      waitErr,
		Canceled: ctx.Err() != nil,
	}

	if res.Canceled {
		logger.Debug("command canceled", "cmd", spec.Path)
		return res, fmt.Errorf("command canceled: %w", ctx.Err())
	}
	if waitErr != nil {
		return res, fmt.Errorf("command failed (exit %d): %w", code, waitErr)
	}
	return res, nil
}

func scanLines(r io.Reader, fn func(string), logger hclog.Logger) {
	sc := bufio.NewScanner(transform.NewReader(r, unicode.UTF8.NewDecoder()))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	sc.Split(ScanCRLines)
	for sc.Scan() {
		fn(sc.Text())
	}
	if err := sc.Err(); err != nil {
		logger.Debug("output scan error", "error", err)
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

// ScanCRLines is a bufio.SplitFunc that ends a line at '\n', '\r' or "\r\n".
// Empty lines are dropped.
func ScanCRLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\r' || data[start] == '\n') {
		start++
	}
	if start == len(data) {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	if i := bytes.IndexAny(data[start:], "\r\n"); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// ShellQuote renders a command line for logs and the plan command.
func ShellQuote(path string, args []string) string {
	b := &strings.Builder{}
	b.WriteString(quote(path))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}


func quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`(){}[]*&;|<>?!") {
		return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
	}
	return s
}
