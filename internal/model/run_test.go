package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageIdle, StageDownloading, true},
		{StageDownloading, StageTranscribing, true},
		{StageTranscribing, StageTranscoding, true},
		{StageTranscoding, StageExporting, true},
		{StageExporting, StageDone, true},
		{StageIdle, StageTranscoding, false},
		{StageTranscoding, StageDownloading, false},
		{StageTranscribing, StageFailed, true},
		{StageDone, StageFailed, false},
		{StageFailed, StageIdle, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPipelineRunLifecycle(t *testing.T) {
	r := NewPipelineRun("run-1", "clip.mp4")
	for _, s := range WorkStages {
		require.NoError(t, r.Advance(s))
	}
	require.NoError(t, r.Advance(StageDone))
	assert.True(t, r.Stage.Terminal())
	assert.False(t, r.FinishedAt.IsZero())
	assert.Error(t, r.Advance(StageFailed))
}

func TestPipelineRunProgressMonotonic(t *testing.T) {
	r := NewPipelineRun("run-2", "clip.mp4")
	assert.True(t, r.SetProgress(10))
	assert.False(t, r.SetProgress(5))
	assert.False(t, r.SetProgress(10))
	assert.True(t, r.SetProgress(150))
	assert.Equal(t, 100, r.Progress)
}

func TestPipelineRunFail(t *testing.T) {
	r := NewPipelineRun("run-3", "clip.mp4")
	require.NoError(t, r.Advance(StageDownloading))
	boom := errors.New("boom")
	r.Fail(boom)
	assert.Equal(t, StageFailed, r.Stage)
	assert.Equal(t, boom, r.Err)

	r.Fail(errors.New("second"))
	assert.Equal(t, boom, r.Err)
}

func TestDescriptorArgsOutputLast(t *testing.T) {
	d := CommandDescriptor{
		Binary:        "ffmpeg",
		Inputs:        []Input{{Path: "in.mp4", Role: RolePrimary, PreArgs: []string{"-ss", "1.5"}}},
		FilterComplex: "[0:v]null[vout]",
		Maps:          []string{"[vout]"},
		NoAudio:       true,
		DurationCap:   30,
		FPS:           24,
		Container:     "mp4",
		Output:        "out.mp4",
	}
	args := d.Args()
	assert.Equal(t, "out.mp4", args[len(args)-1])
	assert.Subset(t, args, []string{"-ss", "1.5", "-i", "in.mp4", "-t", "30", "-r", "24", "-an", "-f", "mp4"})

	args[0] = "mutated"
	assert.Equal(t, "-hide_banner", d.Args()[0])
}
