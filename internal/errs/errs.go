// Package errs defines the error kinds surfaced by an export run.
package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"clipforge/internal/model"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation: a precondition failed before any subprocess started.
	KindValidation Kind = "validation"
	// KindEngine: the transcoder ran and exited non-zero.
	KindEngine Kind = "engine_execution"
	// KindStreamParse: progress markers were missing or malformed. Never fatal.
	KindStreamParse Kind = "stream_parse"
	// KindCollaborator: download, transcription or thumbnail failed.
	KindCollaborator Kind = "collaborator"
	// KindCancelled: the caller abandoned the run.
	KindCancelled Kind = "cancelled"
)

// Error carries the kind, the originating stage and, for engine failures,
// the last diagnostic lines of the subprocess.
type Error struct {
	Kind    Kind
	Stage   model.Stage
	Message string
	Detail  []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(string(e.Stage))
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	for _, line := range e.Detail {
		b.WriteString("\n  | ")
		b.WriteString(line)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Validation reports an unmet precondition.
func Validation(stage model.Stage, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// Engine reports a non-zero transcoder exit with its diagnostic tail.
func Engine(stage model.Stage, msg string, detail []string, err error) *Error {
	return &Error{Kind: KindEngine, Stage: stage, Message: msg, Detail: append([]string(nil), detail...), Err: err}
}

// StreamParse reports output that could not be turned into progress.
func StreamParse(stage model.Stage, msg string) *Error {
	return &Error{Kind: KindStreamParse, Stage: stage, Message: msg}
}

// Collaborator reports a failed download, transcription or thumbnail fetch.
func Collaborator(stage model.Stage, reason string, err error) *Error {
	return &Error{Kind: KindCollaborator, Stage: stage, Message: reason, Err: err}
}

// Cancelled reports a caller-initiated abort.
func Cancelled(stage model.Stage, err error) *Error {
	if err == nil {
		err = context.Canceled
	}
	return &Error{Kind: KindCancelled, Stage: stage, Message: "cancelled", Err: err}
}

// KindOf returns the Kind of err. Bare context cancellation counts as
// KindCancelled; anything else unclassified returns "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return ""
}

// Is reports whether err is of the given kind.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}

// StageOf returns the stage tag of err, or "" when it has none.
func StageOf(err error) model.Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// Tag sets the stage on err if it is an *Error without one, or wraps any
// other error as a collaborator failure of that stage.
func Tag(stage model.Stage, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Stage == "" {
			cp := *e
			cp.Stage = stage
			return &cp
		}
		return err
	}
	if errors.Is(err, context.Canceled) {
		return Cancelled(stage, err)
	}
	return Collaborator(stage, err.Error(), err)
}
