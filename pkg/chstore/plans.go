package chstore

import (
	"context"
	"time"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// UnplannedBlobs streams blobs for a dataset that have no processing_plan_hits
// row yet, in ascending size order, the left-anti-join the planner greedily
// consumes. Mirrors the source's "h.item_hash = ''" NOT EXISTS idiom via an
// explicit LEFT JOIN ... WHERE hits.item_hash = ''.
func (s *Store) UnplannedBlobs(ctx context.Context, dataset string, limit int) ([]blob.SizedRef, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT b.blob_hash, b.size FROM blobs b
		LEFT JOIN processing_plan_hits h
			ON h.dataset = b.dataset AND h.item_hash = b.blob_hash
		WHERE b.dataset = ? AND h.item_hash = ''
		ORDER BY b.size ASC
		LIMIT ?`, dataset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []blob.SizedRef
	for rows.Next() {
		var hexHash string
		var size int64
		if err := rows.Scan(&hexHash, &size); err != nil {
			return nil, err
		}
		ref, err := blob.Parse(hexHash)
		if err != nil {
			return nil, err
		}
		out = append(out, blob.SizedRef{Ref: ref, Size: size})
	}
	return out, rows.Err()
}

// UnplannedBlobCount is the fast-path count used by the P2 executor to
// decide whether to re-invoke P1 before recursing.
func (s *Store) UnplannedBlobCount(ctx context.Context, dataset string) (int64, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT count() FROM blobs b
		LEFT JOIN processing_plan_hits h
			ON h.dataset = b.dataset AND h.item_hash = b.blob_hash
		WHERE b.dataset = ? AND h.item_hash = ''`, dataset)
	var n int64
	return n, row.Scan(&n)
}

// InsertPlan writes a plan row plus all of its plan-hit rows. Callers must
// compute PlanHash via planstore.Hash before calling.
func (s *Store) InsertPlan(ctx context.Context, p model.ProcessingPlan) error {
	hexes := make([]string, len(p.ItemHashes))
	for i, h := range p.ItemHashes {
		hexes[i] = h.String()
	}
	if err := s.conn.Exec(ctx, `
		INSERT INTO processing_plans (dataset, plan_hash, item_hashes, plan_size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.Dataset, p.PlanHash, hexes, p.PlanSizeBytes, p.CreatedAt); err != nil {
		return err
	}
	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO processing_plan_hits (dataset, item_hash, plan_hash)`)
	if err != nil {
		return err
	}
	for _, h := range hexes {
		if err := batch.Append(p.Dataset, h, p.PlanHash); err != nil {
			return err
		}
	}
	return batch.Send()
}

// PendingPlans lists plan hashes strictly after afterPlanHash that have no
// processing_plan_finished row, up to limit+1 so the caller can detect the
// continuation cursor per the executor's pagination rule.
func (s *Store) PendingPlans(ctx context.Context, dataset, afterPlanHash string, limit int) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT p.plan_hash FROM processing_plans p
		LEFT JOIN processing_plan_finished f
			ON f.dataset = p.dataset AND f.plan_hash = p.plan_hash
		WHERE p.dataset = ? AND p.plan_hash > ? AND f.plan_hash = ''
		ORDER BY p.plan_hash ASC
		LIMIT ?`, dataset, afterPlanHash, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// PlanItems resolves a plan's item hashes joined with blob storage metadata.
func (s *Store) PlanItems(ctx context.Context, dataset, planHash string) ([]model.Blob, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT b.blob_hash, b.size, b.s3_path, b.stored_in_clickhouse
		FROM processing_plan_hits h
		JOIN blobs b ON b.dataset = h.dataset AND b.blob_hash = h.item_hash
		WHERE h.dataset = ? AND h.plan_hash = ?`, dataset, planHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Blob
	for rows.Next() {
		var hexHash, s3path string
		var size int64
		var stored uint8
		if err := rows.Scan(&hexHash, &size, &s3path, &stored); err != nil {
			return nil, err
		}
		ref, err := blob.Parse(hexHash)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Blob{Dataset: dataset, Hash: ref, Size: size, S3Path: s3path, StoredInColumnar: stored != 0})
	}
	return out, rows.Err()
}

// PlanSizeBytes returns a plan's total byte size, used by the executor
// to size the download activity's timeout before it starts.
func (s *Store) PlanSizeBytes(ctx context.Context, dataset, planHash string) (int64, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT plan_size_bytes FROM processing_plans WHERE dataset = ? AND plan_hash = ?`, dataset, planHash)
	var n int64
	return n, row.Scan(&n)
}

// MarkPlanFinished writes the plan's commit-point row.
func (s *Store) MarkPlanFinished(ctx context.Context, dataset, planHash string) error {
	return s.conn.Exec(ctx, `
		INSERT INTO processing_plan_finished (dataset, plan_hash, finished_at)
		VALUES (?, ?, ?)`, dataset, planHash, time.Now())
}

// PlanFinishedExists checks the commit-point marker, e.g. for tests
// asserting property 9 (plan finished implies indexed).
func (s *Store) PlanFinishedExists(ctx context.Context, dataset, planHash string) (bool, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT count() FROM processing_plan_finished WHERE dataset = ? AND plan_hash = ?`, dataset, planHash)
	var n uint64
	return n > 0, row.Scan(&n)
}
