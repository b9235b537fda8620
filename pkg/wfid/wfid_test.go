package wfid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type scanArgs struct {
	Dataset string
	Path    string
}

func TestOf_Deterministic(t *testing.T) {
	a := Of("scan", scanArgs{Dataset: "d1", Path: "/a/b"})
	b := Of("scan", scanArgs{Dataset: "d1", Path: "/a/b"})
	assert.Equal(t, a, b)
	assert.Regexp(t, `^scan-[0-9a-f]{32}$`, a)
}

func TestOf_DifferentArgsDifferentID(t *testing.T) {
	a := Of("scan", scanArgs{Dataset: "d1", Path: "/a/b"})
	b := Of("scan", scanArgs{Dataset: "d1", Path: "/a/c"})
	assert.NotEqual(t, a, b)
}

func TestOf_PrefixIsPartOfIdentity(t *testing.T) {
	args := scanArgs{Dataset: "d1", Path: "/a/b"}
	a := Of("scan", args)
	b := Of("plan", args)
	assert.NotEqual(t, a, b)
}

func TestOf_PanicsOnUnencodableArgs(t *testing.T) {
	assert.Panics(t, func() {
		Of("x", func() {})
	})
}
