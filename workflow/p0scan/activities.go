package p0scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/blobstore"
	"github.com/liquidinvestigations/hoover4/pkg/errjournal"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/vfscatalog"
)

// Activities bundles the scanner's I/O boundary: the local filesystem
// (or a container's extraction root) on one side, the blob store and VFS
// catalog on the other. Registered as Temporal activities on the
// "common" task queue.
type Activities struct {
	Blobs   *blobstore.Store
	VFS     *vfscatalog.Catalog
	Journal *errjournal.Journal
	Log     *zap.Logger
}

// rootFor resolves a scan root: the dataset's on-disk path for the
// top-level tree, or the in-scope temp directory for a container
// re-entry (ContainerHash non-empty implies DatasetPath already points
// at the container's extraction root; the caller is responsible for
// that substitution).
func rootFor(in ListFolderInput) string {
	return in.DatasetPath
}

// ListFolder reads one level of entries under FolderPath, non-recursive,
// symlinks not followed. Entries whose name contains an unpaired
// surrogate code point are skipped per spec.md §4.4.
func (a *Activities) ListFolder(ctx context.Context, in ListFolderInput) (ListFolderOutput, error) {
	abs := filepath.Join(rootFor(in), filepath.FromSlash(in.FolderPath))
	entries, err := os.ReadDir(abs)
	if err != nil {
		return ListFolderOutput{}, fmt.Errorf("p0scan: list folder %s: %w", abs, err)
	}

	var out ListFolderOutput
	for _, e := range entries {
		name := e.Name()
		if vfscatalog.HasUnpairedSurrogate(name) {
			continue
		}
		childPath := in.FolderPath
		if childPath == "" || childPath == "/" {
			childPath = "/" + name
		} else {
			childPath = childPath + "/" + name
		}

		info, err := e.Info()
		if err != nil {
			// entry vanished between ReadDir and Lstat; skip, not a batch failure.
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}
		if e.IsDir() {
			out.Directories = append(out.Directories, childPath)
		} else if info.Mode().IsRegular() {
			out.Files = append(out.Files, FileEntry{Path: childPath, Size: info.Size()})
		}
	}
	return out, nil
}

// InsertDirectories performs the set-difference directory insert for one
// batch of newly discovered directories.
func (a *Activities) InsertDirectories(ctx context.Context, in InsertDirectoriesInput) error {
	if len(in.Paths) == 0 {
		return nil
	}
	containerHash, err := parseContainerHash(in.ContainerHash)
	if err != nil {
		return err
	}
	return a.VFS.InsertDirectories(ctx, in.Dataset, containerHash, in.RootPathPrefix, in.Paths)
}

// IngestFilesBatch streams, hashes, stores, and catalogs every new file
// in the batch. Internally deduplicates against already-present
// (dataset, path) rows so a retried batch is a no-op for files already
// ingested.
func (a *Activities) IngestFilesBatch(ctx context.Context, in IngestFilesBatchInput) (IngestFilesBatchOutput, error) {
	containerHash, err := parseContainerHash(in.ContainerHash)
	if err != nil {
		return IngestFilesBatchOutput{}, err
	}

	candidatePaths := make([]string, len(in.Files))
	for i, f := range in.Files {
		candidatePaths[i] = vfscatalog.NormalizePath(f.Path)
	}
	prefixedCandidates := make([]string, len(candidatePaths))
	for i, p := range candidatePaths {
		prefixedCandidates[i] = applyPrefix(in.RootPathPrefix, p)
	}
	existing, err := a.VFS.ExistingFiles(ctx, in.Dataset, containerHash, prefixedCandidates)
	if err != nil {
		return IngestFilesBatchOutput{}, err
	}

	var out IngestFilesBatchOutput
	var rows []model.VFSFile
	for i, f := range in.Files {
		if existing[prefixedCandidates[i]] {
			out.Skipped++
			continue
		}

		abs := filepath.Join(rootFor(ListFolderInput{DatasetPath: in.DatasetPath}), filepath.FromSlash(f.Path))
		put, err := a.Blobs.Put(ctx, in.Dataset, abs)
		if err != nil {
			a.Log.Warn("p0scan: failed to ingest file", zap.String("path", abs), zap.Error(err))
			continue
		}

		rows = append(rows, model.VFSFile{
			Path:          candidatePaths[i],
			Hash:          put.Hash,
			FileSizeBytes: put.Size,
		})
		out.Inserted++
	}

	if len(rows) > 0 {
		if err := a.VFS.InsertFiles(ctx, in.Dataset, containerHash, in.RootPathPrefix, rows); err != nil {
			return out, err
		}
	}
	return out, nil
}

func applyPrefix(prefix, path string) string {
	if prefix == "" {
		return vfscatalog.NormalizePath(path)
	}
	return vfscatalog.NormalizePath(prefix) + vfscatalog.NormalizePath(path)
}

func parseContainerHash(s string) (blob.Ref, error) {
	if s == "" {
		return blob.Zero, nil
	}
	return blob.Parse(s)
}
