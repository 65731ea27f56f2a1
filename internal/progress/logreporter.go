package progress

import (
	"sync"

	"github.com/hashicorp/go-hclog"
)

// LogReporter writes events to an hclog logger. Progress is sampled: at
// most one line per 10% bucket per stage.
type LogReporter struct {
	logger hclog.Logger

	mu     sync.Mutex
	bucket map[string]int
}

// NewLogReporter returns a reporter logging through l.
func NewLogReporter(l hclog.Logger) *LogReporter {
	if l == nil {
		l = hclog.NewNullLogger()
	}
	return &LogReporter{logger: l, bucket: map[string]int{}}
}

func (r *LogReporter) Update(u Update) {
	key := u.RunID + "/" + string(u.Stage)
	b := u.Percent / 10

	r.mu.Lock()
	last, seen := r.bucket[key]
	if seen && b <= last {
		r.mu.Unlock()
		return
	}
	r.bucket[key] = b
	r.mu.Unlock()

	r.logger.Info("progress", "run_id", u.RunID, "stage", u.Stage, "percent", u.Percent)
}

func (r *LogReporter) Log(l Log) {
	r.logger.Trace("output", "run_id", l.RunID, "stage", l.Stage, "line", l.Line)
}

func (r *LogReporter) Result(res Result) {
	r.mu.Lock()
	for k := range r.bucket {
		if len(k) > len(res.RunID) && k[:len(res.RunID)] == res.RunID {
			delete(r.bucket, k)
		}
	}
	r.mu.Unlock()

	if res.Err != nil {
		r.logger.Error("run failed", "run_id", res.RunID, "error", res.Err)
		return
	}
	r.logger.Info("run finished", "run_id", res.RunID, "output", res.OutputPath, "bytes", res.Bytes)
}
