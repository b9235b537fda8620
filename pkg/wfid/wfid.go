// Package wfid derives stable Temporal workflow IDs for the pipeline's
// recursive workflows (P0 child scans, P3 container re-entry, P2 plan
// children), per Design Note §9: "Child workflow IDs are derived by
// MD5-hashing the dataclass argument JSON, truncated to 32 hex." Since a
// workflow ID is an external identity (used for dedup/idempotent
// re-dispatch across worker restarts), the argument struct's JSON
// encoding is part of this package's contract: struct field order is
// fixed by the Go type definition, so encoding/json already produces a
// canonical, stable byte sequence for a given struct literal.
package wfid

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
)

// Of hashes prefix plus the JSON encoding of args into a deterministic
// workflow ID: "<prefix>-<32 hex chars>". args must be a value whose
// JSON encoding is stable across calls (a struct, not a map with
// nondeterministic key order).
func Of(prefix string, args any) string {
	buf, err := json.Marshal(args)
	if err != nil {
		panic(fmt.Sprintf("wfid: args must be JSON-encodable: %v", err))
	}
	sum := md5.Sum(buf)
	return fmt.Sprintf("%s-%x", prefix, sum)
}
