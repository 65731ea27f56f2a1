package ui

import (
	"strings"

	"clipforge/internal/model"
	"clipforge/internal/progress"
)

const maxLogLines = 6

type stageStatus int

const (
	stagePending stageStatus = iota
	stageActive
	stageDone
	stageSkipped
	stageFailed
)

type stageRow struct {
	stage  model.Stage
	status stageStatus
	note   string
}

// runState is what the view knows about the run being watched.
type runState struct {
	id           string
	source       string
	stage        model.Stage
	percent      int
	stagePercent float64 // <0 when unknown
	status       string
	err          error
	done         bool

	outputPath string
	bytes      int64

	rows []stageRow
	logs []string
}

func newRunState(source string) runState {
	rows := make([]stageRow, 0, len(model.WorkStages))
	for _, st := range model.WorkStages {
		rows = append(rows, stageRow{stage: st})
	}
	return runState{
		source:       source,
		stage:        model.StageIdle,
		stagePercent: -1,
		status:       "Starting",
		rows:         rows,
	}
}

func (r *runState) row(st model.Stage) *stageRow {
	for i := range r.rows {
		if r.rows[i].stage == st {
			return &r.rows[i]
		}
	}
	return nil
}

// closeActive marks every active row except keep as done.
func (r *runState) closeActive(keep model.Stage) {
	for i := range r.rows {
		if r.rows[i].status == stageActive && r.rows[i].stage != keep {
			r.rows[i].status = stageDone
		}
	}
}

func (r *runState) apply(u progress.Update) {
	if u.RunID != "" {
		r.id = u.RunID
	}
	if u.Percent > r.percent {
		r.percent = u.Percent
	}
	r.stagePercent = u.StagePercent
	if u.Message != "" {
		r.status = u.Message
	}
	r.stage = u.Stage
	if u.Stage == model.StageDone {
		r.closeActive("")
		return
	}
	r.closeActive(u.Stage)
	row := r.row(u.Stage)
	if row == nil {
		return
	}
	if reason, ok := strings.CutPrefix(u.Message, "skipped: "); ok {
		row.status = stageSkipped
		row.note = reason
		return
	}
	if row.status == stagePending {
		row.status = stageActive
	}
}

func (r *runState) log(l progress.Log) {
	line := strings.TrimRight(l.Line, "\r\n")
	if line == "" {
		return
	}
	r.logs = append(r.logs, line)
	if len(r.logs) > maxLogLines {
		r.logs = r.logs[len(r.logs)-maxLogLines:]
	}
}

func (r *runState) finish(res progress.Result) {
	r.done = true
	r.err = res.Err
	r.stage = res.Stage
	if res.Err == nil {
		r.closeActive("")
		r.percent = 100
		r.outputPath = res.OutputPath
		r.bytes = res.Bytes
		return
	}
	r.status = res.Err.Error()
	for i := range r.rows {
		if r.rows[i].status == stageActive {
			r.rows[i].status = stageFailed
		}
	}
}
