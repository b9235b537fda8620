// Package chstore wraps the columnar store (ClickHouse-compatible) that
// backs small-blob inline values, file-type detection rows, plans and plan
// hits, text/entity content, string-term interning maps, and the error
// journal. All writes are append-only Arrow-style INSERTs per the
// concurrency model: no UPDATE, no DELETE.
package chstore

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Store is a thin wrapper over a ClickHouse connection pool.
type Store struct {
	conn driver.Conn
}

// Open dials the columnar store using a clickhouse:// DSN.
func Open(dsn string) (*Store, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("chstore: parsing dsn: %w", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("chstore: connecting: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("chstore: ping: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// InsertBlob writes the blobs row for a newly seen (dataset, hash) pair.
// Callers must have already checked BlobExists to preserve the put()
// idempotency contract.
func (s *Store) InsertBlob(ctx context.Context, b model.Blob) error {
	return s.conn.Exec(ctx, `
		INSERT INTO blobs (dataset, blob_hash, size, md5, sha1, sha256, s3_path, stored_in_clickhouse)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Dataset, b.Hash.String(), b.Size, b.MD5, b.SHA1, b.SHA256, b.S3Path, boolToUInt8(b.StoredInColumnar))
}

// InsertInlineValue writes the companion bytes for a small blob.
func (s *Store) InsertInlineValue(ctx context.Context, v model.InlineBlobValue) error {
	return s.conn.Exec(ctx, `
		INSERT INTO blob_values (dataset, blob_hash, blob_length, blob_value)
		VALUES (?, ?, ?, ?)`,
		v.Dataset, v.Hash.String(), len(v.Value), v.Value)
}

// BlobExists reports whether a (dataset, hash) blob row already exists,
// used by the scanner to avoid re-uploading already-seen content.
func (s *Store) BlobExists(ctx context.Context, dataset string, hash blob.Ref) (bool, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT count() FROM blobs WHERE dataset = ? AND blob_hash = ?`,
		dataset, hash.String())
	var n uint64
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetBlob reads a blob's row, used by the executor to resolve a storage
// site before downloading to scratch.
func (s *Store) GetBlob(ctx context.Context, dataset string, hash blob.Ref) (model.Blob, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT size, md5, sha1, sha256, s3_path, stored_in_clickhouse
		FROM blobs WHERE dataset = ? AND blob_hash = ? LIMIT 1`,
		dataset, hash.String())
	var b model.Blob
	var stored uint8
	b.Dataset, b.Hash = dataset, hash
	if err := row.Scan(&b.Size, &b.MD5, &b.SHA1, &b.SHA256, &b.S3Path, &stored); err != nil {
		return b, err
	}
	b.StoredInColumnar = stored != 0
	return b, nil
}

// GetInlineValue reads a small blob's inline bytes.
func (s *Store) GetInlineValue(ctx context.Context, dataset string, hash blob.Ref) ([]byte, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT blob_value FROM blob_values WHERE dataset = ? AND blob_hash = ? LIMIT 1`,
		dataset, hash.String())
	var v []byte
	if err := row.Scan(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetInlineValuesBatch resolves up to 100 hashes' inline bytes in a single
// round trip, per the P2 executor's batching rule for ClickHouse items.
func (s *Store) GetInlineValuesBatch(ctx context.Context, dataset string, hashes []blob.Ref) (map[blob.Ref][]byte, error) {
	hexes := make([]string, len(hashes))
	for i, h := range hashes {
		hexes[i] = h.String()
	}
	rows, err := s.conn.Query(ctx, `
		SELECT blob_hash, blob_value FROM blob_values
		WHERE dataset = ? AND blob_hash IN (?)`, dataset, hexes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[blob.Ref][]byte, len(hashes))
	for rows.Next() {
		var hexHash string
		var v []byte
		if err := rows.Scan(&hexHash, &v); err != nil {
			return nil, err
		}
		ref, err := blob.Parse(hexHash)
		if err != nil {
			return nil, err
		}
		out[ref] = v
	}
	return out, rows.Err()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
