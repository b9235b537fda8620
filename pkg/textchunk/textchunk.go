// Package textchunk implements the common UTF-8 chunking helper shared
// by every P3 text producer (raw text, email bodies, PDF text
// extraction): split bytes into <=32 MiB pages, decoding lossily so a
// truncated multi-byte sequence at a chunk boundary never aborts
// ingestion, and write them as text_content rows.
package textchunk

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// DefaultMaxBytes is the page size ceiling, 32 MiB per spec.md §4.7.
const DefaultMaxBytes = 32 * 1024 * 1024

// CleanUTF8 performs the "UTF-8 round trip with replace" cleanup the
// indexer applies to page texts before insertion: invalid sequences
// become U+FFFD rather than being dropped, matching Python's
// `.encode("utf-8", errors="ignore")`-adjacent `decode(..., "replace")`
// pair used across the source's text producers.
func CleanUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	t := unicode.UTF8.NewDecoder()
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToValidUTF8(s, "�")
	}
	return out
}

// Split breaks data into <=maxBytes UTF-8 chunks, decoding each chunk
// loosely (invalid bytes become U+FFFD) and dropping a page that is
// empty after trimming.
func Split(data []byte, maxBytes int) []string {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return nil
	}
	var chunks []string
	for i := 0; i < len(data); i += maxBytes {
		end := i + maxBytes
		if end > len(data) {
			end = len(data)
		}
		seg := strings.TrimSpace(strings.ToValidUTF8(string(data[i:end]), "�"))
		if seg != "" {
			chunks = append(chunks, seg)
		}
	}
	return chunks
}

// InsertChunks splits text_or_bytes and appends one text_content row per
// resulting page, starting at startPageID. Returns the number of pages
// written.
func InsertChunks(ctx context.Context, ch *chstore.Store, dataset string, fileHash blob.Ref, extractedBy model.ExtractedBy, data []byte, startPageID int) (int, error) {
	chunks := Split(data, DefaultMaxBytes)
	for i, c := range chunks {
		if err := ch.InsertTextPage(ctx, model.TextContent{
			Dataset:     dataset,
			FileHash:    fileHash,
			ExtractedBy: extractedBy,
			PageID:      startPageID + i,
			Text:        c,
		}); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}
