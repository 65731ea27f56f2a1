// Package progress carries run events from pipeline workers to observers.
package progress

import (
	"time"

	"clipforge/internal/model"
)

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

// Update conveys progress or stage changes for a run.
type Update struct {
	RunID string
	Stage model.Stage
	// Percent is overall progress, 0..100, never decreasing within a run.
	Percent int
	// StagePercent is the stage-local value, 0..100, or <0 if unknown.
	StagePercent float64

	ETA     *time.Duration // optional
	Speed   *string        // optional, e.g., "2.5MiB/s" or "1.2x"
	Message string         // short human-friendly status line
}

// Log is a structured log line associated with a run.
type Log struct {
	RunID  string
	Stage  model.Stage
	Stream LogStream
	Line   string
}

// Result is emitted once per run when it reaches a terminal stage.
type Result struct {
	RunID      string
	Stage      model.Stage // StageDone or StageFailed
	OutputPath string
	Bytes      int64
	Err        error // nil on success
}

// Reporter is implemented by UI or any observer interested in progress events.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Update(Update) {}
func (Nop) Log(Log)       {}
func (Nop) Result(Result) {}

// Multi fans events out to every non-nil reporter in order.
func Multi(rs ...Reporter) Reporter {
	out := make(multi, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multi []Reporter

func (m multi) Update(u Update) {
	for _, r := range m {
		r.Update(u)
	}
}

func (m multi) Log(l Log) {
	for _, r := range m {
		r.Log(l)
	}
}

func (m multi) Result(res Result) {
	for _, r := range m {
		r.Result(res)
	}
}
