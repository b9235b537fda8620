package chstore

import (
	"context"

	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// InsertDataset writes a dataset's root row. Callers must have already
// checked DatasetByName to preserve the (name, path) uniqueness
// invariant, since the columnar store itself does not enforce it.
func (s *Store) InsertDataset(ctx context.Context, d model.Dataset) error {
	return s.conn.Exec(ctx, `
		INSERT INTO datasets (name, path, created_at)
		VALUES (?, ?, ?)`, d.Name, d.Path, d.CreatedAt)
}

// DatasetByName returns the dataset row for name, or ok=false if none
// exists yet.
func (s *Store) DatasetByName(ctx context.Context, name string) (model.Dataset, bool, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT name, path, created_at FROM datasets WHERE name = ? LIMIT 1`, name)
	if err != nil {
		return model.Dataset{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return model.Dataset{}, false, nil
	}
	var d model.Dataset
	if err := rows.Scan(&d.Name, &d.Path, &d.CreatedAt); err != nil {
		return model.Dataset{}, false, err
	}
	return d, true, nil
}
