package p1plan

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/planstore"
)

// Activities bundles the planner's store dependency. Registered on the
// "common" task queue.
type Activities struct {
	CH  *chstore.Store
	Log *zap.Logger
}

// ComputePlans streams unplanned blobs in ascending size order, batches
// them with planstore's greedy first-fit policy, and writes one
// processing_plans + processing_plan_hits row set per completed batch.
// A second run over an already-planned dataset finds nothing to stream
// and is a no-op, satisfying the idempotence requirement.
func (a *Activities) ComputePlans(ctx context.Context, in ComputePlansInput) (ComputePlansOutput, error) {
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var out ComputePlansOutput
	batcher := &planstore.Batcher{}
	sizeOf := map[blob.Ref]int64{}

	for {
		blobs, err := a.CH.UnplannedBlobs(ctx, in.Dataset, pageSize)
		if err != nil {
			return out, err
		}
		if len(blobs) == 0 {
			break
		}

		for _, b := range blobs {
			sizeOf[b.Ref] = b.Size
			plans := batcher.Add(b)
			for _, items := range plans {
				if err := a.writePlan(ctx, in.Dataset, items, sizeOf); err != nil {
					return out, err
				}
				out.PlansWritten++
			}
			out.BlobsPlanned++
		}

		// Flush and persist whatever plan the page left partially filled
		// before the next UnplannedBlobs query: that query excludes only
		// blobs with a processing_plan_hits row, so an un-flushed blob
		// held in the batcher would otherwise still look "unplanned" and
		// be fetched, and batched, a second time.
		if rest := batcher.Flush(); len(rest) > 0 {
			if err := a.writePlan(ctx, in.Dataset, rest, sizeOf); err != nil {
				return out, err
			}
			out.PlansWritten++
		}

		if len(blobs) < pageSize {
			break
		}
	}

	a.Log.Info("p1plan: computed plans",
		zap.String("dataset", in.Dataset), zap.Int("blobs", out.BlobsPlanned), zap.Int("plans", out.PlansWritten))
	return out, nil
}

func (a *Activities) writePlan(ctx context.Context, dataset string, items []blob.Ref, sizeOf map[blob.Ref]int64) error {
	return a.CH.InsertPlan(ctx, model.ProcessingPlan{
		Dataset:       dataset,
		PlanHash:      planstore.Hash(items),
		ItemHashes:    items,
		PlanSizeBytes: planstore.PlanSizeBytes(items, sizeOf),
		CreatedAt:     time.Now().UTC(),
	})
}
