// Package blobstore implements C1, the content-addressed blob store:
// put() is deterministic in a file's bytes and idempotent per
// (dataset, blob_hash); storage site is chosen by size, small blobs
// inlined in the columnar store and the rest sent to the object store.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/s3object"
)

// IntegrityError is returned by Get when the downloaded size doesn't
// match the blobs row.
type IntegrityError struct {
	Dataset      string
	Hash         blob.Ref
	Expected, Got int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("blobstore: integrity mismatch for %s/%s: expected %d bytes, got %d",
		e.Dataset, e.Hash, e.Expected, e.Got)
}

// Store composes the columnar store (small-blob inlining, the blobs
// index) with the object store (large-blob bytes).
type Store struct {
	CH                 *chstore.Store
	S3                 *s3object.Store
	SmallBlobThreshold int64
}

// PutResult mirrors the put() contract's return tuple.
type PutResult struct {
	Hash          blob.Ref
	Size          int64
	MD5, SHA1, SHA256 string
	Inline        bool
}

// Put streams localPath once, computing every hash, and writes the Blob
// row (plus inline value or object-store upload) if this is the first
// time (dataset, hash) has been seen. A put that finds an existing row
// does not re-upload and does not insert a duplicate blob row.
func (s *Store) Put(ctx context.Context, dataset, localPath string) (PutResult, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return PutResult{}, err
	}
	defer f.Close()

	sums, err := blob.Sum(f)
	if err != nil {
		return PutResult{}, err
	}

	res := PutResult{
		Hash: sums.Ref, Size: sums.Size,
		MD5:    fmt.Sprintf("%x", sums.MD5),
		SHA1:   fmt.Sprintf("%x", sums.SHA1),
		SHA256: fmt.Sprintf("%x", sums.SHA256),
	}

	exists, err := s.CH.BlobExists(ctx, dataset, sums.Ref)
	if err != nil {
		return res, err
	}
	if exists {
		return res, nil
	}

	row := model.Blob{
		Dataset: dataset, Hash: sums.Ref, Size: sums.Size,
		MD5: res.MD5, SHA1: res.SHA1, SHA256: res.SHA256,
	}

	if sums.Size <= s.SmallBlobThreshold {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return res, err
		}
		row.StoredInColumnar = true
		res.Inline = true
		if err := s.CH.InsertBlob(ctx, row); err != nil {
			return res, err
		}
		return res, s.CH.InsertInlineValue(ctx, model.InlineBlobValue{Dataset: dataset, Hash: sums.Ref, Value: data})
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return res, err
	}
	if err := s.S3.Put(dataset, sums.Ref, f); err != nil {
		return res, err
	}
	row.S3Path = s.S3.URI(dataset, sums.Ref)
	return res, s.CH.InsertBlob(ctx, row)
}

// Get fetches a blob's bytes to destLocalPath, verifying the downloaded
// size matches the blobs row.
func (s *Store) Get(ctx context.Context, dataset string, hash blob.Ref, destLocalPath string) (int64, error) {
	row, err := s.CH.GetBlob(ctx, dataset, hash)
	if err != nil {
		return 0, err
	}

	var n int64
	if row.StoredInColumnar {
		data, err := s.CH.GetInlineValue(ctx, dataset, hash)
		if err != nil {
			return 0, err
		}
		if err := os.WriteFile(destLocalPath, data, 0o644); err != nil {
			return 0, err
		}
		n = int64(len(data))
	} else {
		out, err := os.Create(destLocalPath)
		if err != nil {
			return 0, err
		}
		defer out.Close()
		n, err = s.S3.Get(dataset, hash, out)
		if err != nil {
			return 0, err
		}
	}

	if n != row.Size {
		return n, &IntegrityError{Dataset: dataset, Hash: hash, Expected: row.Size, Got: n}
	}
	return n, nil
}
