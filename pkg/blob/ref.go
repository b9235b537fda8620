// Package blob defines the content-addressed reference type used to name
// every byte sequence ingested by the pipeline.
package blob

import (
	"bytes"
	"encoding/hex"
	"errors"
)

// Size is the width in bytes of the primary digest, sha3-256.
const Size = 32

// Ref is a reference to a blob's content, keyed by sha3-256 of its bytes.
// It is a value type: it supports == and can be used as a map key.
type Ref [Size]byte

// Zero is the invalid, all-zero Ref.
var Zero Ref

// SizedRef pairs a Ref with the size of the blob it names.
type SizedRef struct {
	Ref
	Size int64
}

// Valid reports whether r is not the zero Ref.
func (r Ref) Valid() bool { return r != Zero }

// String returns the lowercase hex digest, e.g. "3a7f...".
func (r Ref) String() string {
	return hex.EncodeToString(r[:])
}

// Bytes returns the raw digest bytes.
func (r Ref) Bytes() []byte { return r[:] }

// Less orders refs by their raw bytes, for deterministic sorting of
// plan item lists.
func Less(a, b Ref) bool { return bytes.Compare(a[:], b[:]) < 0 }

// Parse decodes a hex digest into a Ref.
func Parse(s string) (Ref, error) {
	var r Ref
	b, err := hex.DecodeString(s)
	if err != nil {
		return r, err
	}
	if len(b) != Size {
		return r, errors.New("blob: wrong digest length")
	}
	copy(r[:], b)
	return r, nil
}

// MustParse is Parse but panics on error; used for constants in tests.
func MustParse(s string) Ref {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// FromDigest wraps a raw 32-byte sha3-256 digest as a Ref.
func FromDigest(d []byte) (Ref, error) {
	var r Ref
	if len(d) != Size {
		return r, errors.New("blob: wrong digest length")
	}
	copy(r[:], d)
	return r, nil
}

func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Ref) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
