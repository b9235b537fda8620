package chstore

import (
	"context"

	"github.com/liquidinvestigations/hoover4/pkg/interning"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// GetStringTermIDs resolves a full value->id map for a field, querying
// existing mappings first and inserting only the values that are missing.
// The result is read-your-writes within this call, matching the contract
// that an activity's own inserts are immediately visible to its own reads.
func (s *Store) GetStringTermIDs(ctx context.Context, dataset string, field model.Field, values []string) (map[string]int64, error) {
	out := make(map[string]int64, len(values))
	if len(values) == 0 {
		return out, nil
	}
	unique := dedup(values)

	rows, err := s.conn.Query(ctx, `
		SELECT value, id FROM string_term_text_to_id
		WHERE dataset = ? AND field = ? AND value IN (?)`, dataset, string(field), unique)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var v string
		var id int64
		if err := rows.Scan(&v, &id); err != nil {
			rows.Close()
			return nil, err
		}
		out[v] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	var missing []string
	for _, v := range unique {
		if _, ok := out[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	fwd, err := s.conn.PrepareBatch(ctx, `INSERT INTO string_term_text_to_id (dataset, field, value, id)`)
	if err != nil {
		return nil, err
	}
	rev, err := s.conn.PrepareBatch(ctx, `INSERT INTO string_term_id_to_text (dataset, field, id, value)`)
	if err != nil {
		return nil, err
	}
	for _, v := range missing {
		id := interning.ID(v)
		out[v] = id
		if err := fwd.Append(dataset, string(field), v, id); err != nil {
			return nil, err
		}
		if err := rev.Append(dataset, string(field), id, v); err != nil {
			return nil, err
		}
	}
	if err := fwd.Send(); err != nil {
		return nil, err
	}
	if err := rev.Send(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveStringTermID looks up a single id's text; best-effort, since a
// collision may have overwritten the mapping for a different value after
// this id was first assigned.
func (s *Store) ResolveStringTermID(ctx context.Context, dataset string, field model.Field, id int64) (string, bool, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT value FROM string_term_id_to_text
		WHERE dataset = ? AND field = ? AND id = ? LIMIT 1`, dataset, string(field), id)
	var v string
	if err := row.Scan(&v); err != nil {
		return "", false, nil
	}
	return v, true, nil
}

func dedup(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
