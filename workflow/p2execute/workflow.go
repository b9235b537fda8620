package p2execute

import (
	"math"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/pkg/errjournal"
	"github.com/liquidinvestigations/hoover4/pkg/scratch"
	"github.com/liquidinvestigations/hoover4/pkg/wfid"
	"github.com/liquidinvestigations/hoover4/workflow/p1plan"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse"
	"github.com/liquidinvestigations/hoover4/workflow/p4index"
)

var quickActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 2 * time.Minute,
	RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
}

func downloadTimeout(totalBytes int64) time.Duration {
	return time.Duration(downloadBaseTimeoutSeconds+int(math.Ceil(float64(totalBytes)/downloadBytesPerSecond))) * time.Second
}

// ExecutePlans is execute_plans: page through pending plans, run up to
// maxPlansAtOnce concurrently, and recurse — either to the next page of
// the current backlog, or, once the backlog is empty, to freshly planned
// blobs if P1 finds any.
func ExecutePlans(ctx workflow.Context, in Input) error {
	if in.RecursionDepth >= maxRecursionDepth {
		return temporal.NewNonRetryableApplicationError("execute_plans recursion depth exceeded", "RecursionDepthExceeded", nil)
	}

	actx := workflow.WithActivityOptions(ctx, quickActivityOptions)

	var pending []string
	if err := workflow.ExecuteActivity(actx, (*Activities).PendingPlans, in.Dataset, in.StartingPlanHash).Get(ctx, &pending); err != nil {
		return err
	}

	hasMore := len(pending) > maxPendingPerBatch
	page := pending
	if hasMore {
		page = pending[:maxPendingPerBatch]
	}

	if len(page) > 0 {
		if err := runPlansBounded(ctx, in.Dataset, page); err != nil {
			return err
		}

		cursor := page[len(page)-1]
		if hasMore {
			return recurse(ctx, Input{Dataset: in.Dataset, StartingPlanHash: cursor, RecursionDepth: in.RecursionDepth + 1})
		}
		return recurse(ctx, Input{Dataset: in.Dataset, StartingPlanHash: cursor, RecursionDepth: in.RecursionDepth + 1})
	}

	var unplanned int64
	if err := workflow.ExecuteActivity(actx, (*Activities).UnplannedBlobCount, in.Dataset).Get(ctx, &unplanned); err != nil {
		return err
	}
	if unplanned == 0 {
		return nil
	}

	planAO := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, planAO), (*p1plan.Activities).ComputePlans, p1plan.ComputePlansInput{
		Dataset: in.Dataset,
	}).Get(ctx, nil); err != nil {
		return err
	}

	return recurse(ctx, Input{Dataset: in.Dataset, StartingPlanHash: "", RecursionDepth: in.RecursionDepth + 1})
}

func recurse(ctx workflow.Context, next Input) error {
	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: wfid.Of("p2execute", next),
	})
	return workflow.ExecuteChildWorkflow(cctx, ExecutePlans, next).Get(ctx, nil)
}

// runPlansBounded runs ExecuteSinglePlan for every hash in planHashes,
// maxPlansAtOnce at a time.
func runPlansBounded(ctx workflow.Context, dataset string, planHashes []string) error {
	for start := 0; start < len(planHashes); start += maxPlansAtOnce {
		end := start + maxPlansAtOnce
		if end > len(planHashes) {
			end = len(planHashes)
		}
		batch := planHashes[start:end]

		futures := make([]workflow.Future, len(batch))
		for i, h := range batch {
			args := SinglePlanInput{Dataset: dataset, PlanHash: h}
			cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
				WorkflowID: wfid.Of("p2single", args),
			})
			futures[i] = workflow.ExecuteChildWorkflow(cctx, ExecuteSinglePlan, args)
		}

		var firstErr error
		for _, f := range futures {
			if err := f.Get(ctx, nil); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if firstErr != nil {
			return firstErr
		}
	}
	return nil
}

// ExecuteSinglePlan is execute_single_plan: download, dispatch every
// item to P3 (journaling per-item failures rather than aborting the
// plan), index, clean up, and mark the plan finished as the commit
// point.
func ExecuteSinglePlan(ctx workflow.Context, in SinglePlanInput) error {
	actx := workflow.WithActivityOptions(ctx, quickActivityOptions)

	var totalBytes int64
	if err := workflow.ExecuteActivity(actx, (*Activities).PlanSize, in).Get(ctx, &totalBytes); err != nil {
		return err
	}

	dctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: downloadTimeout(totalBytes),
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var downloaded DownloadPlanOutput
	if err := workflow.ExecuteActivity(dctx, (*Activities).DownloadPlan, DownloadPlanInput{
		Dataset: in.Dataset, PlanHash: in.PlanHash,
	}).Get(ctx, &downloaded); err != nil {
		return err
	}

	if err := dispatchParseBatched(ctx, in, downloaded); err != nil {
		return err
	}

	ictx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: wfid.Of("p4index", in),
	})
	if err := workflow.ExecuteChildWorkflow(ictx, p4index.IndexDatasetPlan, p4index.Input{
		Dataset: in.Dataset, PlanHash: in.PlanHash,
	}).Get(ctx, nil); err != nil {
		return err
	}

	if err := workflow.ExecuteActivity(actx, (*Activities).Cleanup, CleanupInput{
		ScratchDir: downloaded.ScratchDir,
	}).Get(ctx, nil); err != nil {
		return err
	}

	return workflow.ExecuteActivity(actx, (*Activities).MarkFinished, SinglePlanInput{
		Dataset: in.Dataset, PlanHash: in.PlanHash,
	}).Get(ctx, nil)
}

// dispatchParseBatched fires ParseSingleFile child workflows maxParseBatch
// at a time, journaling (not rethrowing) any item's failure.
func dispatchParseBatched(ctx workflow.Context, in SinglePlanInput, downloaded DownloadPlanOutput) error {
	var failures []FailedParse

	for start := 0; start < len(downloaded.Items); start += maxParseBatch {
		end := start + maxParseBatch
		if end > len(downloaded.Items) {
			end = len(downloaded.Items)
		}
		batch := downloaded.Items[start:end]

		futures := make([]workflow.Future, len(batch))
		for i, item := range batch {
			args := p3parse.Input{
				Dataset:  in.Dataset,
				PlanHash: in.PlanHash,
				ItemHash: item.Hash,
				FilePath: scratch.ItemPath(in.Dataset, in.PlanHash, item.Hash),
				Size:     item.Size,
			}
			cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
				WorkflowID: wfid.Of("p3parse", args),
			})
			futures[i] = workflow.ExecuteChildWorkflow(cctx, p3parse.ParseSingleFile, args)
		}

		for i, f := range futures {
			if err := f.Get(ctx, nil); err != nil {
				failures = append(failures, FailedParse{
					ItemHash:  batch[i].Hash,
					ErrorLogs: errjournal.FormatChain(err),
				})
			}
		}
	}

	if len(failures) == 0 {
		return nil
	}
	jctx := workflow.WithActivityOptions(ctx, quickActivityOptions)
	return workflow.ExecuteActivity(jctx, (*Activities).JournalParseFailures, JournalParseFailuresInput{
		Dataset:  in.Dataset,
		Failures: failures,
	}).Get(ctx, nil)
}
