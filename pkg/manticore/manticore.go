// Package manticore is the search-engine client for C9's two
// index-writing activities. Manticore speaks the MySQL wire protocol, so
// this is a go-sql-driver/mysql *sql.DB underneath, grounded on the
// teacher's pkg/index/mysql storage wrapper.
//
// Manticore's driver does not bind multi-valued attribute (MVA) columns
// as query parameters, so MVA values must be inlined into the SQL text.
// Every MVA column in this package carries only interned int64 IDs
// (never user strings), and formatMVA takes []int64 and renders each
// value as a decimal integer, so the inlining path can never carry
// attacker data.
package manticore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Store wraps a connection to the Manticore SQL endpoint.
type Store struct {
	db *sql.DB
}

// Open connects to Manticore's MySQL-protocol listener at dsn, e.g.
// "tcp(127.0.0.1:9306)/".
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("manticore: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("manticore: ping: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// formatMVA renders a set of interned IDs as a Manticore MVA literal
// "(1,2,3)". It is the only place IDs are allowed to reach raw SQL text,
// so it is deliberately the only function in this package that takes
// []int64 instead of a placeholder-bound argument.
func formatMVA(ids []int64) string {
	if len(ids) == 0 {
		return "()"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// InsertDocTextPage writes one doc_text_pages row. extracted_by/page_id
// may repeat across reruns of a parser; Manticore's REPLACE semantics
// are not relied upon, this is a plain insert, matching the columnar
// store's append-only text_content rows it is derived from.
func (s *Store) InsertDocTextPage(p model.DocTextPage) error {
	query := fmt.Sprintf(
		`INSERT INTO doc_text_pages (dataset, file_hash, extracted_by, page_id, page_text, ner_per, ner_org, ner_loc, ner_misc)
		 VALUES (?, ?, ?, ?, ?, %s, %s, %s, %s)`,
		formatMVA(p.NERPer), formatMVA(p.NEROrg), formatMVA(p.NERLoc), formatMVA(p.NERMisc))
	_, err := s.db.Exec(query, p.Dataset, p.FileHash.String(), string(p.ExtractedBy), p.PageID, p.PageText)
	return err
}

// InsertDocMetadata writes one doc_metadata row for a file hash.
func (s *Store) InsertDocMetadata(m model.DocMetadata) error {
	query := fmt.Sprintf(
		`INSERT INTO doc_metadata (dataset, file_hash, filenames, metadata_values, file_types, file_mime_types, file_extensions, file_paths)
		 VALUES (?, ?, ?, ?, %s, %s, %s, %s)`,
		formatMVA(m.FileTypes), formatMVA(m.FileMimeTypes), formatMVA(m.FileExtensions), formatMVA(m.FilePaths))
	_, err := s.db.Exec(query, m.Dataset, m.FileHash.String(), m.Filenames, m.MetadataValues)
	return err
}

// InsertDocTextPagesBatch commits up to 512 rows as one statement batch,
// matching the design's per-transaction row-chunk bound for the
// single-concurrency indexing queue.
func (s *Store) InsertDocTextPagesBatch(pages []model.DocTextPage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("manticore: begin: %w", err)
	}
	for _, p := range pages {
		query := fmt.Sprintf(
			`INSERT INTO doc_text_pages (dataset, file_hash, extracted_by, page_id, page_text, ner_per, ner_org, ner_loc, ner_misc)
			 VALUES (?, ?, ?, ?, ?, %s, %s, %s, %s)`,
			formatMVA(p.NERPer), formatMVA(p.NEROrg), formatMVA(p.NERLoc), formatMVA(p.NERMisc))
		if _, err := tx.Exec(query, p.Dataset, p.FileHash.String(), string(p.ExtractedBy), p.PageID, p.PageText); err != nil {
			tx.Rollback()
			return fmt.Errorf("manticore: insert doc_text_pages: %w", err)
		}
	}
	return tx.Commit()
}

// InsertDocMetadataBatch is InsertDocTextPagesBatch's counterpart for
// doc_metadata rows.
func (s *Store) InsertDocMetadataBatch(rows []model.DocMetadata) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("manticore: begin: %w", err)
	}
	for _, m := range rows {
		query := fmt.Sprintf(
			`INSERT INTO doc_metadata (dataset, file_hash, filenames, metadata_values, file_types, file_mime_types, file_extensions, file_paths)
			 VALUES (?, ?, ?, ?, %s, %s, %s, %s)`,
			formatMVA(m.FileTypes), formatMVA(m.FileMimeTypes), formatMVA(m.FileExtensions), formatMVA(m.FilePaths))
		if _, err := tx.Exec(query, m.Dataset, m.FileHash.String(), m.Filenames, m.MetadataValues); err != nil {
			tx.Rollback()
			return fmt.Errorf("manticore: insert doc_metadata: %w", err)
		}
	}
	return tx.Commit()
}
