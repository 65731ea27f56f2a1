package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/model"
)

func TestErrorMessageCarriesStageAndDetail(t *testing.T) {
	err := Engine(model.StageTranscoding, "ffmpeg exited with code 1", []string{"Invalid argument", "Conversion failed!"}, errors.New("exit status 1"))
	msg := err.Error()
	assert.Contains(t, msg, "transcoding: ffmpeg exited with code 1")
	assert.Contains(t, msg, "| Invalid argument")
	assert.Contains(t, msg, "| Conversion failed!")
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := Validation(model.StageTranscoding, "font %q not found", "Arial")
	wrapped := fmt.Errorf("assemble: %w", base)

	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, model.StageTranscoding, StageOf(wrapped))
	assert.True(t, Is(wrapped, KindValidation))
	assert.Equal(t, KindCancelled, KindOf(fmt.Errorf("x: %w", context.Canceled)))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestTag(t *testing.T) {
	untagged := &Error{Kind: KindValidation, Message: "missing input"}
	tagged := Tag(model.StageDownloading, untagged)
	assert.Equal(t, model.StageDownloading, StageOf(tagged))
	assert.Equal(t, model.Stage(""), untagged.Stage)

	plain := Tag(model.StageTranscribing, errors.New("whisper crashed"))
	assert.Equal(t, KindCollaborator, KindOf(plain))

	cancelled := Tag(model.StageTranscoding, context.Canceled)
	assert.Equal(t, KindCancelled, KindOf(cancelled))
	assert.ErrorIs(t, cancelled, context.Canceled)

	require.NoError(t, Tag(model.StageExporting, nil))
}
