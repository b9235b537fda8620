package p4index

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/pkg/taskqueue"
)

var chunkActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 10 * time.Minute,
	RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
}

// indexTextActivityOptions pins IndexTextContent to the dedicated
// indexing queue, since it's the one activity that talks to the NER
// sidecar and the original keeps it on a single-concurrency worker of
// its own so a slow extraction never starves metadata indexing.
var indexTextActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 10 * time.Minute,
	RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	TaskQueue:           taskqueue.Indexing,
}

func chunkHashes(hashes []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(hashes); start += size {
		end := start + size
		if end > len(hashes) {
			end = len(hashes)
		}
		out = append(out, hashes[start:end])
	}
	return out
}

// IndexDatasetPlan is index_dataset_plan: chunk the plan's item hashes
// and, per chunk, run the text and metadata indexing activities in
// parallel. The two sub-activities per chunk are unordered with respect
// to each other, but every chunk must finish before the workflow
// returns, since P2 requires indexing complete before it marks the plan
// finished.
func IndexDatasetPlan(ctx workflow.Context, in Input) error {
	listCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var itemHashes []string
	if err := workflow.ExecuteActivity(listCtx, (*Activities).PlanItemHashes, in).Get(ctx, &itemHashes); err != nil {
		return err
	}

	chunks := chunkHashes(itemHashes, chunkSize)
	actx := workflow.WithActivityOptions(ctx, chunkActivityOptions)
	tctx := workflow.WithActivityOptions(ctx, indexTextActivityOptions)

	var futures []workflow.Future
	for _, chunk := range chunks {
		in := ChunkInput{Dataset: in.Dataset, ItemHashes: chunk}
		futures = append(futures, workflow.ExecuteActivity(tctx, (*Activities).IndexTextContent, in))
		futures = append(futures, workflow.ExecuteActivity(actx, (*Activities).IndexMetadatas, in))
	}

	for _, f := range futures {
		if err := f.Get(ctx, nil); err != nil {
			return err
		}
	}
	return nil
}
