package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/progress"
)

func TestRunStateStages(t *testing.T) {
	rs := newRunState("clip.mp4")
	rs.apply(progress.Update{RunID: "r1", Stage: model.StageDownloading, Percent: 25, StagePercent: 100, Message: "skipped: local source"})
	rs.apply(progress.Update{RunID: "r1", Stage: model.StageTranscribing, Percent: 30, StagePercent: 20, Message: "Transcribing"})
	rs.apply(progress.Update{RunID: "r1", Stage: model.StageTranscoding, Percent: 60, StagePercent: 22, Message: "Transcoding"})
	rs.apply(progress.Update{RunID: "r1", Stage: model.StageTranscoding, Percent: 55, StagePercent: 10})

	assert.Equal(t, "r1", rs.id)
	assert.Equal(t, 60, rs.percent, "percent never moves backwards")
	assert.Equal(t, stageSkipped, rs.row(model.StageDownloading).status)
	assert.Equal(t, "local source", rs.row(model.StageDownloading).note)
	assert.Equal(t, stageDone, rs.row(model.StageTranscribing).status)
	assert.Equal(t, stageActive, rs.row(model.StageTranscoding).status)
	assert.Equal(t, stagePending, rs.row(model.StageExporting).status)

	rs.finish(progress.Result{RunID: "r1", Stage: model.StageFailed, Err: errs.Engine(model.StageTranscoding, "ffmpeg failed", nil, nil)})
	assert.True(t, rs.done)
	assert.Equal(t, stageFailed, rs.row(model.StageTranscoding).status)
}

func TestRunStateLogsRing(t *testing.T) {
	rs := newRunState("x")
	for i := 0; i < maxLogLines+3; i++ {
		rs.log(progress.Log{Line: string(rune('a'+i)) + "\n"})
	}
	rs.log(progress.Log{Line: "\r\n"})
	require.Len(t, rs.logs, maxLogLines)
	assert.Equal(t, "d", rs.logs[0])
}

func TestModelLifecycle(t *testing.T) {
	m := NewModel(context.Background(), "clip.mp4", true, nil)

	next, _ := m.Update(updateMsg{U: progress.Update{Stage: model.StageTranscoding, Percent: 72, StagePercent: 50, Message: "Transcoding"}})
	m = next.(Model)
	next, _ = m.Update(logMsg{L: progress.Log{Line: "frame=10"}})
	m = next.(Model)
	assert.Contains(t, m.View(), "Transcoding")
	assert.Contains(t, m.View(), "72%")
	assert.Contains(t, m.View(), "frame=10")

	// Result still queued when the run returns.
	m.events <- resultMsg{R: progress.Result{Stage: model.StageDone, OutputPath: "/out/clip_1080x1920.mp4", Bytes: 2048}}
	next, cmd := m.Update(finishedMsg{})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.finished)
	assert.True(t, m.run.done)
	assert.Contains(t, m.View(), "Saved: clip_1080x1920.mp4 (2.0 KB)")
}

func TestModelQuitCancelsFirst(t *testing.T) {
	m := NewModel(context.Background(), "clip.mp4", false, nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.True(t, m.cancelling)
	assert.Error(t, m.ctx.Err())

	next, cmd = m.Update(finishedMsg{Err: errs.Cancelled(model.StageTranscoding, context.Canceled)})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.run.done)
	assert.Contains(t, m.View(), "cancelled")
}

func TestTeaReporterResultUnblocksOnQuit(t *testing.T) {
	quit := make(chan struct{})
	rep := teaReporter{ch: make(chan tea.Msg), quit: quit}
	close(quit)
	done := make(chan struct{})
	go func() {
		rep.Result(progress.Result{Err: errors.New("x")})
		close(done)
	}()
	<-done
}
