package p3parse

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/errjournal"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/typeregistry"
)

// Activities bundles the router's type-consensus dependency. The
// registry's detectors (file and magika, as cmd/hoover4 builds it) are
// run concurrently by typeregistry.Registry.RunAll; this activity wraps
// that call plus journaling of whichever detector(s) failed. The tika
// contribution comes from parsetika, which the workflow runs alongside.
type Activities struct {
	CH       *chstore.Store
	Registry *typeregistry.Registry
	Journal  *errjournal.Journal
	Log      *zap.Logger
}

// DetectTypesInput drives the always-on type-consensus step.
type DetectTypesInput struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

// DetectTypesOutput is the union of coarse types across every detector
// that succeeded, for the router's dispatch step.
type DetectTypesOutput struct {
	CoarseTypes []string
}

// DetectTypes runs all registered detectors in parallel, persists each
// one's file_types row, journals any detector failure without aborting
// routing, and returns the coarse-type union (falling back to {other}
// if every detector failed).
func (a *Activities) DetectTypes(ctx context.Context, in DetectTypesInput) (DetectTypesOutput, error) {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return DetectTypesOutput{}, err
	}

	results := a.Registry.RunAll(ctx, in.Dataset, hash, in.LocalPath)

	var entries []errjournal.Entry
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		entries = append(entries, errjournal.Entry{
			Hash:     hash,
			TaskName: "detect_" + string(r.Detector.ExtractedBy()),
			Err:      r.Err,
		})
	}
	if len(entries) > 0 {
		a.Journal.Record(ctx, in.Dataset, entries)
	}

	union := typeregistry.CoarseUnion(results)
	out := DetectTypesOutput{}
	for c := range union {
		out.CoarseTypes = append(out.CoarseTypes, string(c))
	}
	return out, nil
}

// FailedTask is one dispatched leaf action's already-rendered failure,
// ready to become a processing_errors row. Error chains are formatted in
// workflow code (FormatChain does no I/O) since an `error` interface
// value cannot cross the activity boundary's JSON data converter.
type FailedTask struct {
	TaskName  string
	ErrorLogs string
	RunTimeMS int64
}

// JournalFailuresInput drives the post-dispatch error-journaling step.
type JournalFailuresInput struct {
	Dataset  string
	ItemHash string
	Failures []FailedTask
}

// JournalFailures writes one processing_errors row per failed dispatch
// task. A write failure is logged and swallowed, matching
// errjournal.Journal.Record's contract.
func (a *Activities) JournalFailures(ctx context.Context, in JournalFailuresInput) error {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, f := range in.Failures {
		row := model.ProcessingError{
			Dataset:   in.Dataset,
			Hash:      hash,
			TaskName:  f.TaskName,
			Timestamp: now,
			RunTimeMS: f.RunTimeMS,
			ErrorLogs: f.ErrorLogs,
		}
		if err := a.CH.InsertProcessingError(ctx, row); err != nil {
			a.Log.Error("p3parse: failed to write processing_errors row",
				zap.String("dataset", in.Dataset), zap.String("task", f.TaskName), zap.Error(err))
		}
	}
	return nil
}
