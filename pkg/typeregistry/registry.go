package typeregistry

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Registry runs every configured Detector in parallel against a blob's
// local copy and persists one file_types row per detector. A failing
// detector's contribution is empty but does not abort the others, per
// the design's "any failing detector is logged, not fatal" rule; error
// journaling of the failure is the caller's (the P3 workflow's)
// responsibility since only it knows the task name to record.
type Registry struct {
	CH        *chstore.Store
	Detectors []Detector
}

// DetectResult pairs a detector with its outcome for the caller to
// journal failures against.
type DetectResult struct {
	Detector Detector
	Result   Result
	Err      error
}

// RunAll runs every detector concurrently, persists a file_types row for
// each detector that succeeded, and returns every detector's raw outcome
// so the caller can error-journal the failures.
func (r *Registry) RunAll(ctx context.Context, dataset string, hash blob.Ref, localPath string) []DetectResult {
	out := make([]DetectResult, len(r.Detectors))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range r.Detectors {
		i, d := i, d
		g.Go(func() error {
			res, err := d.Detect(gctx, localPath)
			out[i] = DetectResult{Detector: d, Result: res, Err: err}
			if err != nil {
				return nil // don't cancel sibling detectors
			}
			if err := r.CH.InsertFileType(ctx, model.FileType{
				Dataset: dataset, Hash: hash, ExtractedBy: d.ExtractedBy(),
				MimeTypes: res.MimeTypes, MimeEncodings: res.MimeEncodings,
				FileTypes: res.Coarse(), Extensions: res.Extensions,
			}); err != nil {
				out[i].Err = err
			}
			return nil
		})
	}
	_ = g.Wait() // per-detector errors are reported in out, not returned
	return out
}

// CoarseUnion unions the coarse types of every successful detector run in
// this call (rows already persisted are not read), falling back to
// {other} if nothing succeeded.
func CoarseUnion(results []DetectResult) map[model.CoarseType]bool {
	set := map[model.CoarseType]bool{}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, c := range r.Result.Coarse() {
			set[c] = true
		}
	}
	if len(set) == 0 {
		set[model.CoarseOther] = true
	}
	return set
}
