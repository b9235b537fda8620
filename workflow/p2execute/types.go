// Package p2execute implements C7: driving plans to completion one at a
// time, with bounded parallelism across plans, as two workflows —
// ExecutePlans (the continuation-paginated top level) and
// ExecuteSinglePlan (one plan's download/parse/index/commit sequence).
package p2execute

// Input is execute_plans(dataset, starting_plan_hash?)'s argument.
type Input struct {
	Dataset          string
	StartingPlanHash string
	RecursionDepth   int
}

// SinglePlanInput is execute_single_plan's argument.
type SinglePlanInput struct {
	Dataset  string
	PlanHash string
}

// DownloadPlanInput drives the plan-scratch download activity.
type DownloadPlanInput struct {
	Dataset  string
	PlanHash string
}

// DownloadedItem is one plan item's hash and size, for the parse
// dispatch stage's per-item timeout calculation.
type DownloadedItem struct {
	Hash string
	Size int64
}

// DownloadPlanOutput reports the plan scratch directory and the items
// that landed in it, for the parse-dispatch stage.
type DownloadPlanOutput struct {
	ScratchDir string
	Items      []DownloadedItem
}

// CleanupInput drives scratch-dir removal.
type CleanupInput struct {
	ScratchDir string
}

const (
	maxPendingPageSize = 1001
	maxPendingPerBatch = 1000
	maxPlansAtOnce     = 16
	maxRecursionDepth  = 100
	maxParseBatch      = 32

	// downloadBytesPerSecond implements "download ~= 900 + B/12500 s"
	// (12500 B/s is the source's 100 kbit/s-equivalent scaling rule).
	downloadBaseTimeoutSeconds = 900
	downloadBytesPerSecond     = 12_500
)
