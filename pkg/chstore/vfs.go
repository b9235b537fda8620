package chstore

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Query exposes raw SELECT access for callers (vfscatalog's set-difference
// checks) that don't warrant a dedicated method on Store.
func (s *Store) Query(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	return s.conn.Query(ctx, query, args...)
}

// InsertVFSDirectories appends directory rows; dedup against existing
// rows is the caller's (vfscatalog's) responsibility.
func (s *Store) InsertVFSDirectories(ctx context.Context, dataset string, containerHash blob.Ref, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO vfs_directories (dataset, container_hash, path)`)
	if err != nil {
		return err
	}
	ch := ""
	if containerHash.Valid() {
		ch = containerHash.String()
	}
	for _, p := range paths {
		if err := batch.Append(dataset, ch, p); err != nil {
			return err
		}
	}
	return batch.Send()
}

// InsertVFSFiles appends file rows.
func (s *Store) InsertVFSFiles(ctx context.Context, rows []model.VFSFile) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO vfs_files (dataset, container_hash, path, hash, file_size_bytes)`)
	if err != nil {
		return err
	}
	for _, r := range rows {
		ch := ""
		if r.ContainerHash.Valid() {
			ch = r.ContainerHash.String()
		}
		if err := batch.Append(r.Dataset, ch, r.Path, r.Hash.String(), r.FileSizeBytes); err != nil {
			return err
		}
	}
	return batch.Send()
}

// PathsForHash returns every VFS path (in any container) pointing at
// hash, for P4's metadata aggregation.
func (s *Store) PathsForHash(ctx context.Context, dataset string, hash blob.Ref) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT path FROM vfs_files WHERE dataset = ? AND hash = ?`, dataset, hash.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertContainerMarker writes a one-row-per-container marker (archive,
// email, PDF, or video) naming the container kind and its attribute bag.
func (s *Store) InsertContainerMarker(ctx context.Context, m model.ContainerMarker) error {
	return s.conn.Exec(ctx, `
		INSERT INTO archives (dataset, hash, kind, attributes)
		VALUES (?, ?, ?, ?)`, m.Dataset, m.Hash.String(), string(m.Kind), m.Attributes)
}

// InsertPDFImageLink records one embedded image's extraction from a PDF.
func (s *Store) InsertPDFImageLink(ctx context.Context, l model.PDFImageLink) error {
	return s.conn.Exec(ctx, `
		INSERT INTO pdfs_image (dataset, pdf_hash, image_hash, on_page)
		VALUES (?, ?, ?, ?)`, l.Dataset, l.PDFHash.String(), l.ImageHash.String(), l.OnPage)
}

// InsertEmailHeaders writes one parsed .eml's header summary row.
func (s *Store) InsertEmailHeaders(ctx context.Context, h model.EmailHeaders) error {
	return s.conn.Exec(ctx, `
		INSERT INTO email_headers (dataset, email_hash, raw_headers_json, subject, addresses, date_sent)
		VALUES (?, ?, ?, ?, ?, ?)`, h.Dataset, h.EmailHash.String(), h.RawHeadersJSON, h.Subject, h.Addresses, h.DateSent)
}

// InsertImageMetadata writes one image's ffprobe dimensions/metadata row.
func (s *Store) InsertImageMetadata(ctx context.Context, m model.ImageMetadata) error {
	return s.conn.Exec(ctx, `
		INSERT INTO image_metadata (dataset, image_hash, width_pixels, height_pixels, metadata_json, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)`, m.Dataset, m.ImageHash.String(), m.WidthPixels, m.HeightPixels, m.MetadataJSON, m.ProcessedAt)
}

// InsertOCRResult writes one EasyOCR invocation's raw output row.
func (s *Store) InsertOCRResult(ctx context.Context, r model.OCRResult) error {
	return s.conn.Exec(ctx, `
		INSERT INTO raw_ocr_results (dataset, image_hash, run_time_ms, raw_json)
		VALUES (?, ?, ?, ?)`, r.Dataset, r.ImageHash.String(), r.RunTimeMS, r.RawJSON)
}

// InsertAudioMetadata writes one audio file's ffprobe metadata row.
func (s *Store) InsertAudioMetadata(ctx context.Context, m model.AudioMetadata) error {
	return s.conn.Exec(ctx, `
		INSERT INTO audio_metadata (dataset, hash, metadata_json, processed_at)
		VALUES (?, ?, ?, ?)`, m.Dataset, m.Hash.String(), m.MetadataJSON, m.ProcessedAt)
}

// InsertVideoMetadata writes one video file's ffprobe metadata row.
func (s *Store) InsertVideoMetadata(ctx context.Context, m model.VideoMetadata) error {
	return s.conn.Exec(ctx, `
		INSERT INTO video_metadata (dataset, hash, width_pixels, height_pixels, duration_secs, metadata_json, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, m.Dataset, m.Hash.String(), m.WidthPixels, m.HeightPixels, m.DurationSecs, m.MetadataJSON, m.ProcessedAt)
}

// InsertTikaMetadata writes one file's sidecar metadata document.
func (s *Store) InsertTikaMetadata(ctx context.Context, m model.TikaMetadata) error {
	return s.conn.Exec(ctx, `
		INSERT INTO tika_metadata (dataset, hash, tika_metadata_json, processed_at)
		VALUES (?, ?, ?, ?)`, m.Dataset, m.Hash.String(), m.MetadataJSON, m.ProcessedAt)
}
