// Package scratch manages the worker-local scratch directories that P2
// and P3 activities use to stage downloaded plan files and container
// extraction output, grounded on the teacher's osutil path-resolution
// style but fixed to the design's on-disk layout instead of a
// configurable cache root.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Base returns the scratch root for one dataset: <tmp>/hoover4/<dataset>.
func Base(dataset string) string {
	return filepath.Join(os.TempDir(), "hoover4", dataset)
}

// PlanDir returns the path to a plan's scratch directory:
// <base>/<dataset>/<plan_hash>, where downloaded items live keyed by hash
// with no extension.
func PlanDir(dataset, planHash string) string {
	return filepath.Join(Base(dataset), planHash)
}

// ItemPath returns a plan-local path for a downloaded blob.
func ItemPath(dataset, planHash, itemHash string) string {
	return filepath.Join(PlanDir(dataset, planHash), itemHash)
}

// ContainerDir allocates a fresh `<kind>_<hash>` directory under the
// dataset's scratch root for a container's extraction output (archive,
// email, PDF chunking, video), matching the design's
// `<kind>_<hash>/` convention. A random suffix (uuid) disambiguates
// repeated extraction attempts of the same container within one worker
// lifetime, since the directory is removed by Cleanup and is not itself
// part of the content-addressed namespace.
func ContainerDir(dataset, kind, hash string) string {
	return filepath.Join(Base(dataset), fmt.Sprintf("%s_%s_%s", kind, hash, uuid.NewString()))
}

// Ensure creates dir (and parents) with 0700 permissions, matching the
// teacher's cache-dir creation mode.
func Ensure(dir string) error {
	return os.MkdirAll(dir, 0700)
}

// Cleanup removes a scratch directory tree. Errors are returned, not
// swallowed, so the caller can decide whether a failed cleanup is worth
// journaling; it is never itself a reason to fail the enclosing plan.
func Cleanup(dir string) error {
	return os.RemoveAll(dir)
}
