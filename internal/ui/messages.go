package ui

import "clipforge/internal/progress"

type updateMsg struct {
	U progress.Update
}

type logMsg struct {
	L progress.Log
}

type resultMsg struct {
	R progress.Result
}

// finishedMsg is sent when the run function returns.
type finishedMsg struct {
	Err error
}
