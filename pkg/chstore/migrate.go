package chstore

import (
	"context"
	"strings"
)

// schemaStatements is the columnar store's DDL, one statement per table,
// matching the abridged schema contracts. Migration is deliberately a
// flat list of idempotent CREATE TABLE IF NOT EXISTS statements, mirroring
// clickhouse_migrate()'s "create what's missing" behavior rather than a
// versioned migration chain, since the core pipeline owns this schema
// outright (spec.md names the migrations tool as an external collaborator
// only for the parts it shares with other consumers).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS datasets (
		name String,
		path String,
		created_at DateTime
	) ENGINE = MergeTree ORDER BY (name)`,

	`CREATE TABLE IF NOT EXISTS blobs (
		dataset String,
		blob_hash String,
		size Int64,
		md5 String,
		sha1 String,
		sha256 String,
		s3_path String,
		stored_in_clickhouse UInt8
	) ENGINE = MergeTree ORDER BY (dataset, blob_hash)`,

	`CREATE TABLE IF NOT EXISTS blob_values (
		dataset String,
		blob_hash String,
		blob_length Int64,
		blob_value String
	) ENGINE = MergeTree ORDER BY (dataset, blob_hash)`,

	`CREATE TABLE IF NOT EXISTS vfs_directories (
		dataset String,
		container_hash String,
		path String
	) ENGINE = MergeTree ORDER BY (dataset, container_hash, path)`,

	`CREATE TABLE IF NOT EXISTS vfs_files (
		dataset String,
		container_hash String,
		path String,
		hash String,
		file_size_bytes Int64
	) ENGINE = MergeTree ORDER BY (dataset, container_hash, path)`,

	`CREATE TABLE IF NOT EXISTS archives (
		dataset String,
		hash String,
		kind String,
		attributes Map(String, String)
	) ENGINE = MergeTree ORDER BY (dataset, hash)`,

	`CREATE TABLE IF NOT EXISTS file_types (
		dataset String,
		hash String,
		mime_type Array(String),
		mime_encoding Array(String),
		file_type Array(String),
		extensions Array(String),
		extracted_by String
	) ENGINE = MergeTree ORDER BY (dataset, hash, extracted_by)`,

	`CREATE TABLE IF NOT EXISTS processing_plans (
		dataset String,
		plan_hash String,
		item_hashes Array(String),
		plan_size_bytes Int64,
		created_at DateTime
	) ENGINE = MergeTree ORDER BY (dataset, plan_hash)`,

	`CREATE TABLE IF NOT EXISTS processing_plan_hits (
		dataset String,
		item_hash String,
		plan_hash String
	) ENGINE = MergeTree ORDER BY (dataset, item_hash)`,

	`CREATE TABLE IF NOT EXISTS processing_plan_finished (
		dataset String,
		plan_hash String,
		finished_at DateTime
	) ENGINE = MergeTree ORDER BY (dataset, plan_hash)`,

	`CREATE TABLE IF NOT EXISTS text_content (
		dataset String,
		file_hash String,
		extracted_by String,
		page_id Int32,
		text String
	) ENGINE = MergeTree ORDER BY (dataset, file_hash, extracted_by, page_id)`,

	`CREATE TABLE IF NOT EXISTS entity_hit (
		dataset String,
		file_hash String,
		extracted_by String,
		page_id Int32,
		entity_type String,
		entity_values Array(String)
	) ENGINE = MergeTree ORDER BY (dataset, file_hash, extracted_by, page_id, entity_type)`,

	`CREATE TABLE IF NOT EXISTS string_term_text_to_id (
		dataset String,
		field String,
		value String,
		id Int64
	) ENGINE = MergeTree ORDER BY (dataset, field, value)`,

	`CREATE TABLE IF NOT EXISTS string_term_id_to_text (
		dataset String,
		field String,
		id Int64,
		value String
	) ENGINE = MergeTree ORDER BY (dataset, field, id)`,

	`CREATE TABLE IF NOT EXISTS pdfs_image (
		dataset String,
		pdf_hash String,
		image_hash String,
		on_page UInt32
	) ENGINE = MergeTree ORDER BY (dataset, pdf_hash, on_page)`,

	`CREATE TABLE IF NOT EXISTS email_headers (
		dataset String,
		email_hash String,
		raw_headers_json String,
		subject String,
		addresses String,
		date_sent DateTime
	) ENGINE = MergeTree ORDER BY (dataset, email_hash)`,

	`CREATE TABLE IF NOT EXISTS image_metadata (
		dataset String,
		image_hash String,
		width_pixels UInt32,
		height_pixels UInt32,
		metadata_json String,
		processed_at DateTime
	) ENGINE = MergeTree ORDER BY (dataset, image_hash)`,

	`CREATE TABLE IF NOT EXISTS raw_ocr_results (
		dataset String,
		image_hash String,
		run_time_ms UInt32,
		raw_json String
	) ENGINE = MergeTree ORDER BY (dataset, image_hash)`,

	`CREATE TABLE IF NOT EXISTS audio_metadata (
		dataset String,
		hash String,
		metadata_json String,
		processed_at DateTime
	) ENGINE = MergeTree ORDER BY (dataset, hash)`,

	`CREATE TABLE IF NOT EXISTS video_metadata (
		dataset String,
		hash String,
		width_pixels UInt32,
		height_pixels UInt32,
		duration_secs Float64,
		metadata_json String,
		processed_at DateTime
	) ENGINE = MergeTree ORDER BY (dataset, hash)`,

	`CREATE TABLE IF NOT EXISTS tika_metadata (
		dataset String,
		hash String,
		tika_metadata_json String,
		processed_at DateTime
	) ENGINE = MergeTree ORDER BY (dataset, hash)`,

	`CREATE TABLE IF NOT EXISTS processing_errors (
		dataset String,
		hash String,
		task_name String,
		timestamp DateTime,
		run_time_ms Int64,
		error_logs String
	) ENGINE = MergeTree ORDER BY (dataset, hash, task_name, timestamp)`,
}

// Migrate creates every table the core pipeline owns, idempotently.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return migrateErr(stmt, err)
		}
	}
	return nil
}

func migrateErr(stmt string, err error) error {
	name := stmt
	if i := strings.Index(stmt, "EXISTS "); i >= 0 {
		name = stmt[i+len("EXISTS "):]
		if j := strings.IndexAny(name, " ("); j >= 0 {
			name = name[:j]
		}
	}
	return &migrationError{table: name, err: err}
}

type migrationError struct {
	table string
	err   error
}

func (e *migrationError) Error() string {
	return "chstore: migrating " + e.table + ": " + e.err.Error()
}

func (e *migrationError) Unwrap() error { return e.err }
