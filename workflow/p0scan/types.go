// Package p0scan implements C5: the scanner workflow that walks a
// directory tree (on disk, or a container's temp extraction root) into a
// deduplicated (blobs, VFS) population.
package p0scan

// Input is the scan workflow's public entry point argument, matching
// spec.md's scan(dataset, dataset_path, folder_paths[], container_hash,
// root_path_prefix). Field order here is part of the workflow-ID
// contract (pkg/wfid hashes this struct's JSON encoding), so it must not
// change without consequence for in-flight workflow history replay.
type Input struct {
	Dataset        string
	DatasetPath    string
	FolderPaths    []string
	ContainerHash  string
	RootPathPrefix string
}

// FileEntry is one discovered file, path relative to the scan root.
type FileEntry struct {
	Path string
	Size int64
}

// ListFolderInput drives one level of a non-recursive directory listing.
type ListFolderInput struct {
	Dataset       string
	DatasetPath   string
	ContainerHash string
	FolderPath    string
}

// ListFolderOutput is one folder's immediate children, already filtered
// for unpaired-surrogate names.
type ListFolderOutput struct {
	Directories []string
	Files       []FileEntry
}

// InsertDirectoriesInput carries the set-difference insert for newly
// discovered directories under one container.
type InsertDirectoriesInput struct {
	Dataset        string
	ContainerHash  string
	RootPathPrefix string
	Paths          []string
}

// IngestFilesBatchInput is one durable activity's worth of files: stream,
// hash, store, and catalog each one.
type IngestFilesBatchInput struct {
	Dataset        string
	DatasetPath    string
	ContainerHash  string
	RootPathPrefix string
	Files          []FileEntry
}

// IngestFilesBatchOutput reports how many files in the batch were newly
// ingested versus already present, for workflow-level logging.
type IngestFilesBatchOutput struct {
	Inserted int
	Skipped  int
}

const (
	maxFolderFanout  = 10
	maxChildScanFanout = 10
	maxBatchCount    = 100
	maxBatchBytes    = 50 * 1024 * 1024
)
