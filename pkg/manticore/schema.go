package manticore

// schemaStatements creates the two search-engine tables. Manticore's SQL
// dialect differs from MySQL's DDL (engine clause, multi64 type) but is
// accepted over the same wire protocol, matching the teacher's pattern of
// keeping schema DDL as a plain string slice next to the driver that
// executes it (pkg/index/mysql paired with pkg/sorted/mysql schema).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS doc_text_pages (
		dataset string,
		file_hash string,
		extracted_by string,
		page_id int,
		page_text text,
		ner_per multi64,
		ner_org multi64,
		ner_loc multi64,
		ner_misc multi64
	)`,
	`CREATE TABLE IF NOT EXISTS doc_metadata (
		dataset string,
		file_hash string,
		filenames text,
		metadata_values text,
		file_types multi64,
		file_mime_types multi64,
		file_extensions multi64,
		file_paths multi64
	)`,
}

// Migrate creates both search-engine tables if they do not already
// exist. Manticore ignores transactions for DDL, so statements run
// sequentially and a later failure does not roll back an earlier one.
func (s *Store) Migrate() error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
