package p2execute

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/blobstore"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/scratch"
)

// Activities bundles the executor's store and scratch-disk dependencies.
// Download/cleanup activities must run on the same worker as the parse
// activities that read the scratch dir, enforced by task queue affinity
// at the caller (cmd/hoover4's worker wiring), not by this type.
type Activities struct {
	CH    *chstore.Store
	Blobs *blobstore.Store
	Log   *zap.Logger
}

// DownloadPlan resolves a plan's items and downloads each to the plan's
// scratch directory, keyed by hash with no extension. A size mismatch
// on any item is fatal (blobstore.Get returns an IntegrityError), per
// spec.md's "every downloaded file's size must equal the expected size".
func (a *Activities) DownloadPlan(ctx context.Context, in DownloadPlanInput) (DownloadPlanOutput, error) {
	items, err := a.CH.PlanItems(ctx, in.Dataset, in.PlanHash)
	if err != nil {
		return DownloadPlanOutput{}, fmt.Errorf("p2execute: list plan items: %w", err)
	}

	dir := scratch.PlanDir(in.Dataset, in.PlanHash)
	if err := scratch.Ensure(dir); err != nil {
		return DownloadPlanOutput{}, fmt.Errorf("p2execute: create scratch dir: %w", err)
	}

	out := DownloadPlanOutput{ScratchDir: dir}
	for _, item := range items {
		dest := scratch.ItemPath(in.Dataset, in.PlanHash, item.Hash.String())
		if _, err := a.Blobs.Get(ctx, in.Dataset, item.Hash, dest); err != nil {
			return out, fmt.Errorf("p2execute: download %s: %w", item.Hash, err)
		}
		out.Items = append(out.Items, DownloadedItem{Hash: item.Hash.String(), Size: item.Size})
	}
	return out, nil
}

// Cleanup removes a plan's scratch directory. A failure here is logged,
// not returned, since it must never block the plan from reaching its
// commit point.
func (a *Activities) Cleanup(ctx context.Context, in CleanupInput) error {
	if err := scratch.Cleanup(in.ScratchDir); err != nil {
		a.Log.Warn("p2execute: scratch cleanup failed", zap.String("dir", in.ScratchDir), zap.Error(err))
	}
	return nil
}

// MarkFinished writes the plan's commit-point row.
func (a *Activities) MarkFinished(ctx context.Context, in SinglePlanInput) error {
	return a.CH.MarkPlanFinished(ctx, in.Dataset, in.PlanHash)
}

// PendingPlans lists up to maxPendingPageSize plan hashes above
// afterHash, used by the top-level workflow to page through backlog.
func (a *Activities) PendingPlans(ctx context.Context, dataset, afterHash string) ([]string, error) {
	return a.CH.PendingPlans(ctx, dataset, afterHash, maxPendingPageSize)
}

// UnplannedBlobCount backs the "invoke P1 then recurse" decision at the
// tail of execute_plans.
func (a *Activities) UnplannedBlobCount(ctx context.Context, dataset string) (int64, error) {
	return a.CH.UnplannedBlobCount(ctx, dataset)
}

// PlanSize reports a plan's total byte size, used to size the download
// activity's timeout before DownloadPlan starts.
func (a *Activities) PlanSize(ctx context.Context, in SinglePlanInput) (int64, error) {
	return a.CH.PlanSizeBytes(ctx, in.Dataset, in.PlanHash)
}

// FailedParse is one item's already-rendered ParseSingleFile child
// workflow failure, ready to become a processing_errors row. Rendered in
// workflow code since an `error` value cannot cross the activity
// boundary's JSON data converter.
type FailedParse struct {
	ItemHash  string
	ErrorLogs string
}

// JournalParseFailuresInput drives the per-plan error-journaling step.
type JournalParseFailuresInput struct {
	Dataset  string
	Failures []FailedParse
}

// JournalParseFailures writes one processing_errors row per failed
// ParseSingleFile child workflow, tagged parse_single_file. A write
// failure is logged and swallowed.
func (a *Activities) JournalParseFailures(ctx context.Context, in JournalParseFailuresInput) error {
	now := time.Now().UTC()
	for _, f := range in.Failures {
		hash, err := blob.Parse(f.ItemHash)
		if err != nil {
			a.Log.Warn("p2execute: bad item hash in failure journal", zap.String("hash", f.ItemHash), zap.Error(err))
			continue
		}
		row := model.ProcessingError{
			Dataset: in.Dataset, Hash: hash, TaskName: "parse_single_file",
			Timestamp: now, ErrorLogs: f.ErrorLogs,
		}
		if err := a.CH.InsertProcessingError(ctx, row); err != nil {
			a.Log.Error("p2execute: failed to write processing_errors row", zap.String("dataset", in.Dataset), zap.Error(err))
		}
	}
	return nil
}
