// Package planstore implements C4: plan identity and the planner's
// greedy batching policy. Plans are immutable once flushed.
package planstore

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
)

// MaxPlanItems is the hard cap on a plan's item count.
const MaxPlanItems = 1000

// MaxPlanBytes is the soft cap on a plan's total size; a single item
// larger than this is permitted to be its own overflow plan.
const MaxPlanBytes int64 = 1 << 30 // 1 GB

// Hash computes the stable plan identity: sha1 of the JSON-encoded,
// lexicographically sorted hex digest list. Matches the source's
// `sha1(json.dumps(sorted(item_hashes)))` exactly, including the JSON
// encoding step, so two planner implementations agree on plan identity.
func Hash(items []blob.Ref) string {
	hexes := make([]string, len(items))
	for i, h := range items {
		hexes[i] = h.String()
	}
	sort.Strings(hexes)
	b, err := json.Marshal(hexes)
	if err != nil {
		// hexes is always valid UTF-8 ASCII; Marshal cannot fail here.
		panic(err)
	}
	sum := sha1.Sum(b)
	return fmt.Sprintf("%x", sum)
}

// Batcher accumulates sized blobs into size/count-bounded plans using
// first-fit: keep adding to the current plan until it would exceed
// MaxPlanItems or MaxPlanBytes, then flush. A lone blob over MaxPlanBytes
// becomes its own overflow plan.
type Batcher struct {
	cur      []blob.Ref
	curBytes int64
}

// Add feeds one blob into the batcher, returning every plan that item's
// arrival completed (zero, one, or — for a standalone oversized item
// arriving after a partial batch — two: the prior batch, then the
// oversized item's own one-item plan).
func (b *Batcher) Add(item blob.SizedRef) [][]blob.Ref {
	var out [][]blob.Ref

	if item.Size > MaxPlanBytes {
		if flushed := b.Flush(); flushed != nil {
			out = append(out, flushed)
		}
		out = append(out, []blob.Ref{item.Ref})
		return out
	}

	if len(b.cur) > 0 && b.curBytes+item.Size > MaxPlanBytes {
		out = append(out, b.Flush())
	}

	b.cur = append(b.cur, item.Ref)
	b.curBytes += item.Size
	if len(b.cur) >= MaxPlanItems {
		out = append(out, b.Flush())
	}
	return out
}

// Flush returns and clears any partially filled plan remaining at the
// end of a stream.
func (b *Batcher) Flush() []blob.Ref {
	if len(b.cur) == 0 {
		return nil
	}
	out := b.cur
	b.cur, b.curBytes = nil, 0
	return out
}

// PlanSizeBytes sums the sizes of a plan's items, given a lookup of each
// item's size.
func PlanSizeBytes(items []blob.Ref, sizeOf map[blob.Ref]int64) int64 {
	var total int64
	for _, it := range items {
		total += sizeOf[it]
	}
	return total
}
