package typeregistry

import (
	"context"

	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Result is one detector's contribution to a blob's type rows. Detectors
// may disagree, and downstream routing unions across all of them.
type Result struct {
	MimeTypes     []string
	MimeEncodings []string
	Extensions    []string
}

// Coarse derives the routing categories from the detector's reported MIME
// types, applying the shared coarse-type table.
func (r Result) Coarse() []model.CoarseType {
	seen := map[model.CoarseType]bool{}
	var out []model.CoarseType
	for _, m := range r.MimeTypes {
		c := CoarseFileType(m)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Detector is implemented once per independent type-sniffer
// (`file`, `tika`, `magika`). It models the source's dynamic
// "run three detectors, persist a row each, union the result" pattern as
// a small interface, per the design's re-architecture note.
type Detector interface {
	ExtractedBy() model.ExtractedBy
	Detect(ctx context.Context, localPath string) (Result, error)
}
