package chstore

import (
	"context"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// InsertTextPage appends one chunked text page. Re-running a parser may
// produce duplicate (file_hash, extracted_by, page_id) rows; readers
// deduplicate, so this is a plain append.
func (s *Store) InsertTextPage(ctx context.Context, t model.TextContent) error {
	return s.conn.Exec(ctx, `
		INSERT INTO text_content (dataset, file_hash, extracted_by, page_id, text)
		VALUES (?, ?, ?, ?, ?)`,
		t.Dataset, t.FileHash.String(), string(t.ExtractedBy), t.PageID, t.Text)
}

// TextPagesForHashes joins text_content rows for a chunk of file hashes,
// the read side of P4's index_text_content activity.
func (s *Store) TextPagesForHashes(ctx context.Context, dataset string, hashes []blob.Ref) ([]model.TextContent, error) {
	hexes := make([]string, len(hashes))
	for i, h := range hashes {
		hexes[i] = h.String()
	}
	rows, err := s.conn.Query(ctx, `
		SELECT file_hash, extracted_by, page_id, text FROM text_content
		WHERE dataset = ? AND file_hash IN (?)`, dataset, hexes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TextContent
	for rows.Next() {
		var hexHash, by, text string
		var page int
		if err := rows.Scan(&hexHash, &by, &page, &text); err != nil {
			return nil, err
		}
		ref, err := blob.Parse(hexHash)
		if err != nil {
			return nil, err
		}
		out = append(out, model.TextContent{Dataset: dataset, FileHash: ref, ExtractedBy: model.ExtractedBy(by), PageID: page, Text: text})
	}
	return out, rows.Err()
}

// InsertEntityHit appends one NER bucket's values for a page.
func (s *Store) InsertEntityHit(ctx context.Context, e model.EntityHit) error {
	return s.conn.Exec(ctx, `
		INSERT INTO entity_hit (dataset, file_hash, extracted_by, page_id, entity_type, entity_values)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Dataset, e.FileHash.String(), string(e.ExtractedBy), e.PageID, string(e.EntityType), e.EntityValues)
}

// InsertProcessingError appends a terminal error-journal row. Never
// returns a "this blocks the pipeline" error to the caller's workflow
// logic; callers log a failure to write but continue.
func (s *Store) InsertProcessingError(ctx context.Context, e model.ProcessingError) error {
	return s.conn.Exec(ctx, `
		INSERT INTO processing_errors (dataset, hash, task_name, timestamp, run_time_ms, error_logs)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Dataset, e.Hash.String(), e.TaskName, e.Timestamp, e.RunTimeMS, e.ErrorLogs)
}
