package p0scan

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/pkg/wfid"
)

var listFolderOptions = workflow.ActivityOptions{
	StartToCloseTimeout: time.Minute,
	RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
}

var writeOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 2 * time.Minute,
	RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
}

func ingestBatchOptions(fileCount int) workflow.ActivityOptions {
	// generous per-file allowance for the streaming hash + upload.
	return workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(30+fileCount*5) * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
}

// ScanDirectory is C5's public entry point: scan(dataset, dataset_path,
// folder_paths[], container_hash, root_path_prefix). It fans out across
// up to 10 folders at a time, inserts newly discovered directories,
// recurses into up to 10 child scans per batch for subdirectories, and
// dispatches one durable ingest activity per file batch.
func ScanDirectory(ctx workflow.Context, in Input) error {
	logger := workflow.GetLogger(ctx)

	var allDirs []string
	var allFiles []FileEntry

	for i := 0; i < len(in.FolderPaths); i += maxFolderFanout {
		end := i + maxFolderFanout
		if end > len(in.FolderPaths) {
			end = len(in.FolderPaths)
		}
		batch := in.FolderPaths[i:end]

		futures := make([]workflow.Future, len(batch))
		actx := workflow.WithActivityOptions(ctx, listFolderOptions)
		for j, folder := range batch {
			futures[j] = workflow.ExecuteActivity(actx, (*Activities).ListFolder, ListFolderInput{
				Dataset:       in.Dataset,
				DatasetPath:   in.DatasetPath,
				ContainerHash: in.ContainerHash,
				FolderPath:    folder,
			})
		}
		for j := range futures {
			var out ListFolderOutput
			if err := futures[j].Get(ctx, &out); err != nil {
				logger.Error("p0scan: list folder failed", "folder", batch[j], "error", err)
				return err
			}
			allDirs = append(allDirs, out.Directories...)
			allFiles = append(allFiles, out.Files...)
		}
	}

	if len(allDirs) > 0 {
		wctx := workflow.WithActivityOptions(ctx, writeOptions)
		if err := workflow.ExecuteActivity(wctx, (*Activities).InsertDirectories, InsertDirectoriesInput{
			Dataset:        in.Dataset,
			ContainerHash:  in.ContainerHash,
			RootPathPrefix: in.RootPathPrefix,
			Paths:          allDirs,
		}).Get(ctx, nil); err != nil {
			return err
		}
	}

	if err := recurseIntoChildren(ctx, in, allDirs); err != nil {
		return err
	}

	return ingestFileBatches(ctx, in, allFiles)
}

func recurseIntoChildren(ctx workflow.Context, in Input, dirs []string) error {
	for i := 0; i < len(dirs); i += maxChildScanFanout {
		end := i + maxChildScanFanout
		if end > len(dirs) {
			end = len(dirs)
		}
		batch := dirs[i:end]

		futures := make([]workflow.Future, len(batch))
		for j, dir := range batch {
			childArgs := Input{
				Dataset:        in.Dataset,
				DatasetPath:    in.DatasetPath,
				FolderPaths:    []string{dir},
				ContainerHash:  in.ContainerHash,
				RootPathPrefix: in.RootPathPrefix,
			}
			cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
				WorkflowID: wfid.Of("p0scan", childArgs),
			})
			futures[j] = workflow.ExecuteChildWorkflow(cctx, ScanDirectory, childArgs)
		}
		for _, f := range futures {
			if err := f.Get(ctx, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func ingestFileBatches(ctx workflow.Context, in Input, files []FileEntry) error {
	batches := batchFiles(files, maxBatchCount, maxBatchBytes)
	if len(batches) == 0 {
		return nil
	}

	futures := make([]workflow.Future, len(batches))
	for i, b := range batches {
		actx := workflow.WithActivityOptions(ctx, ingestBatchOptions(len(b)))
		futures[i] = workflow.ExecuteActivity(actx, (*Activities).IngestFilesBatch, IngestFilesBatchInput{
			Dataset:        in.Dataset,
			DatasetPath:    in.DatasetPath,
			ContainerHash:  in.ContainerHash,
			RootPathPrefix: in.RootPathPrefix,
			Files:          b,
		})
	}
	for i := range futures {
		var out IngestFilesBatchOutput
		if err := futures[i].Get(ctx, &out); err != nil {
			return err
		}
	}
	return nil
}

// batchFiles packs files into first-fit batches bounded by maxCount and
// maxBytes; a file larger than maxBytes on its own becomes a one-item
// overflow batch.
func batchFiles(files []FileEntry, maxCount int, maxBytes int64) [][]FileEntry {
	var out [][]FileEntry
	var cur []FileEntry
	var curBytes int64

	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
			cur, curBytes = nil, 0
		}
	}

	for _, f := range files {
		if f.Size > maxBytes {
			flush()
			out = append(out, []FileEntry{f})
			continue
		}
		if len(cur) > 0 && (len(cur) >= maxCount || curBytes+f.Size > maxBytes) {
			flush()
		}
		cur = append(cur, f)
		curBytes += f.Size
		if len(cur) >= maxCount {
			flush()
		}
	}
	flush()
	return out
}
