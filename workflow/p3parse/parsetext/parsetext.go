// Package parsetext implements the `text` coarse-type leaf action:
// extract_plaintext_chunks. It has no workflow of its own — a single
// activity, since raw text extraction never recurses into P0.
package parsetext

import (
	"context"
	"os"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/textchunk"
)

// Activities bundles the columnar store dependency.
type Activities struct {
	CH *chstore.Store
}

// Input drives the activity.
type Input struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

// ExtractPlaintextChunks reads the file whole and chunks it into
// text_content rows with extracted_by='raw_text'.
func (a *Activities) ExtractPlaintextChunks(ctx context.Context, in Input) (int, error) {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(in.LocalPath)
	if err != nil {
		return 0, err
	}
	return textchunk.InsertChunks(ctx, a.CH, in.Dataset, hash, model.ExtractedByRawText, data, 0)
}
