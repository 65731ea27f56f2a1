package model

import (
	"fmt"
	"time"
)

// Stage is the state of a PipelineRun.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageDownloading  Stage = "downloading"
	StageTranscribing Stage = "transcribing"
	StageTranscoding  Stage = "transcoding"
	StageExporting    Stage = "exporting"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// WorkStages lists the stages that do work, in execution order.
var WorkStages = []Stage{StageDownloading, StageTranscribing, StageTranscoding, StageExporting}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

var nextStage = map[Stage]Stage{
	StageIdle:         StageDownloading,
	StageDownloading:  StageTranscribing,
	StageTranscribing: StageTranscoding,
	StageTranscoding:  StageExporting,
	StageExporting:    StageDone,
}

// CanTransition reports whether from -> to is allowed: one step forward, or
// Failed from any non-terminal state.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	return nextStage[from] == to
}

// PipelineRun tracks one export from Idle to a terminal stage.
type PipelineRun struct {
	ID         string
	Source     string
	Output     string
	Stage      Stage
	Progress   int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewPipelineRun creates a run in the Idle stage.
func NewPipelineRun(id, source string) *PipelineRun {
	return &PipelineRun{ID: id, Source: source, Stage: StageIdle, StartedAt: time.Now()}
}

// Advance moves the run to the given stage.
func (r *PipelineRun) Advance(to Stage) error {
	if !CanTransition(r.Stage, to) {
		return fmt.Errorf("invalid transition %s -> %s", r.Stage, to)
	}
	r.Stage = to
	if to.Terminal() {
		r.FinishedAt = time.Now()
	}
	return nil
}

// SetProgress records overall progress; it never moves backwards.
func (r *PipelineRun) SetProgress(p int) bool {
	if p > 100 {
		p = 100
	}
	if p <= r.Progress {
		return false
	}
	r.Progress = p
	return true
}

// Fail moves the run to Failed with the given error.
func (r *PipelineRun) Fail(err error) {
	if r.Stage.Terminal() {
		return
	}
	r.Err = err
	r.Stage = StageFailed
	r.FinishedAt = time.Now()
}
