// Package p3parse implements C8: the per-file parser router. Step 1
// always runs type consensus across three independent detectors; Step 2
// dispatches by the union of their coarse types to per-category
// sub-packages, each of which may recurse back into workflow/p0scan for
// container content.
package p3parse

// Input is parse_single_file(dataset, plan_hash, item_hash, file_path, size)'s
// argument. FilePath is the scratch-local path to the downloaded item.
type Input struct {
	Dataset  string
	PlanHash string
	ItemHash string
	FilePath string
	Size     int64
}

const (
	// dispatchBaseTimeoutSeconds and dispatchBitsPerSecond implement the
	// "900s + ceil(size / (10 kbit/s equivalent))" per-category timeout;
	// 10 kbit/s is 1250 bytes per second.
	dispatchBaseTimeoutSeconds = 900
	dispatchBitsPerSecond      = 1_250
)
