package errjournal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Journal is the single append activity `record_processing_errors`:
// rows in, never an error out. It is constructed once per worker and
// shared by every activity that may need to record a failure.
type Journal struct {
	CH  *chstore.Store
	Log *zap.Logger
}

// Entry is one failed task awaiting a journal row.
type Entry struct {
	Hash      blob.Ref
	TaskName  string
	StartedAt time.Time
	Err       error
}

// Record writes one row per failed entry. Entries are expected to
// already be failures; callers filter out successes before calling.
// A write failure is logged and otherwise swallowed: the journal must
// never become a reason the enclosing workflow fails.
func (j *Journal) Record(ctx context.Context, dataset string, entries []Entry) int {
	now := time.Now().UTC()
	written := 0
	for _, e := range entries {
		if e.Err == nil {
			continue
		}
		row := model.ProcessingError{
			Dataset:   dataset,
			Hash:      e.Hash,
			TaskName:  e.TaskName,
			Timestamp: now,
			RunTimeMS: runTimeMS(e.StartedAt, now),
			ErrorLogs: FormatChain(e.Err),
		}
		if err := j.CH.InsertProcessingError(ctx, row); err != nil {
			j.Log.Error("errjournal: failed to write processing_errors row",
				zap.String("dataset", dataset), zap.String("task", e.TaskName), zap.Error(err))
			continue
		}
		written++
	}
	if written > 0 {
		j.Log.Info("errjournal: recorded errors", zap.String("dataset", dataset), zap.Int("count", written))
	}
	return written
}

// RecordOne is the single-entry convenience wrapper used by activities
// that run one task per call rather than a fan-out batch.
func (j *Journal) RecordOne(ctx context.Context, dataset string, hash blob.Ref, taskName string, startedAt time.Time, err error) {
	if err == nil {
		return
	}
	j.Record(ctx, dataset, []Entry{{Hash: hash, TaskName: taskName, StartedAt: startedAt, Err: err}})
}

func runTimeMS(started, now time.Time) int64 {
	if started.IsZero() {
		return 0
	}
	d := now.Sub(started).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}
