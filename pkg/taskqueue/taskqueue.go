// Package taskqueue names the Temporal task queues the worker processes
// poll and the per-queue concurrency each one runs with, grounded on
// run_worker.py's four worker entry points: one shared "common" queue
// for everything else, and three sidecar-bound queues (tika, easyocr,
// indexing) that exist so a slow or saturated sidecar never blocks the
// rest of the pipeline.
package taskqueue

const (
	Common   = "processing-common-queue"
	Tika     = "processing-tika-queue"
	EasyOCR  = "processing-easyocr-queue"
	Indexing = "processing-indexing-queue"
)

// Concurrency is the per-queue max-concurrent-activities setting.
// CommonWorkerCount is how many common-queue worker processes the
// supervisor spawns (the original runs two).
const (
	CommonConcurrency   = 8
	TikaConcurrency     = 8
	EasyOCRConcurrency  = 4
	IndexingConcurrency = 1
	CommonWorkerCount   = 2
)
