package chstore

import (
	"context"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// InsertFileType appends one detector's contribution to a blob's type rows.
// Detectors never update existing rows; downstream routing unions across
// all of them.
func (s *Store) InsertFileType(ctx context.Context, ft model.FileType) error {
	coarse := make([]string, len(ft.FileTypes))
	for i, c := range ft.FileTypes {
		coarse[i] = string(c)
	}
	return s.conn.Exec(ctx, `
		INSERT INTO file_types (dataset, hash, mime_type, mime_encoding, file_type, extensions, extracted_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ft.Dataset, ft.Hash.String(), ft.MimeTypes, ft.MimeEncodings, coarse, ft.Extensions, string(ft.ExtractedBy))
}

// FileTypeRows returns every detector's row for a blob, for the union-of-
// coarse_types routing step in the parser router.
func (s *Store) FileTypeRows(ctx context.Context, dataset string, hash blob.Ref) ([]model.FileType, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT mime_type, mime_encoding, file_type, extensions, extracted_by
		FROM file_types WHERE dataset = ? AND hash = ?`, dataset, hash.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.FileType
	for rows.Next() {
		var mt, me, ft, ext []string
		var by string
		if err := rows.Scan(&mt, &me, &ft, &ext, &by); err != nil {
			return nil, err
		}
		coarse := make([]model.CoarseType, len(ft))
		for i, c := range ft {
			coarse[i] = model.CoarseType(c)
		}
		out = append(out, model.FileType{
			Dataset: dataset, Hash: hash,
			MimeTypes: mt, MimeEncodings: me, FileTypes: coarse, Extensions: ext,
			ExtractedBy: model.ExtractedBy(by),
		})
	}
	return out, rows.Err()
}

// CoarseTypeUnion unions the coarse_types of all detector rows for a blob.
// If no detector produced a row, it falls back to {other}; callers are
// expected to also write an error-journal entry in that case.
func (s *Store) CoarseTypeUnion(ctx context.Context, dataset string, hash blob.Ref) (map[model.CoarseType]bool, error) {
	rows, err := s.FileTypeRows(ctx, dataset, hash)
	if err != nil {
		return nil, err
	}
	set := map[model.CoarseType]bool{}
	for _, r := range rows {
		for _, c := range r.FileTypes {
			set[c] = true
		}
	}
	if len(set) == 0 {
		set[model.CoarseOther] = true
	}
	return set, nil
}
