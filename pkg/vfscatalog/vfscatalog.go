// Package vfscatalog implements C2: the mapping of logical paths, inside
// a dataset and optionally inside a container, to blob hashes. Both
// insert operations are set-difference inserts — callers query existing
// paths first, then insert only the delta — and there is no update path.
package vfscatalog

import (
	"context"
	"strings"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Catalog is the VFS catalog backed by the columnar store.
type Catalog struct {
	CH *chstore.Store
}

// NormalizePath converts an OS path into the catalog's POSIX convention:
// forward slashes, leading slash.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// HasUnpairedSurrogate reports whether name contains a lone UTF-16
// surrogate code point smuggled into UTF-8 via WTF-8-like encoding; such
// entries are skipped at scan time rather than inserted.
func HasUnpairedSurrogate(name string) bool {
	for _, r := range name {
		if r >= 0xD800 && r <= 0xDFFF {
			return true
		}
	}
	return false
}

// ExistingDirectories returns the subset of candidate paths already
// present for (dataset, containerHash).
func (c *Catalog) ExistingDirectories(ctx context.Context, dataset string, containerHash blob.Ref, candidates []string) (map[string]bool, error) {
	return c.existingPaths(ctx, "vfs_directories", dataset, containerHash, candidates)
}

// ExistingFiles returns the subset of candidate paths already present for
// (dataset, containerHash).
func (c *Catalog) ExistingFiles(ctx context.Context, dataset string, containerHash blob.Ref, candidates []string) (map[string]bool, error) {
	return c.existingPaths(ctx, "vfs_files", dataset, containerHash, candidates)
}

func (c *Catalog) existingPaths(ctx context.Context, table, dataset string, containerHash blob.Ref, candidates []string) (map[string]bool, error) {
	out := make(map[string]bool, len(candidates))
	if len(candidates) == 0 {
		return out, nil
	}
	rows, err := c.CH.Query(ctx, `SELECT path FROM `+table+` WHERE dataset = ? AND container_hash = ? AND path IN (?)`,
		dataset, containerHashString(containerHash), candidates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = true
	}
	return out, rows.Err()
}

// InsertDirectories inserts the set-difference of paths not already
// present, after normalizing and applying rootPathPrefix.
func (c *Catalog) InsertDirectories(ctx context.Context, dataset string, containerHash blob.Ref, rootPathPrefix string, paths []string) error {
	prefixed := applyPrefix(rootPathPrefix, paths)
	existing, err := c.ExistingDirectories(ctx, dataset, containerHash, prefixed)
	if err != nil {
		return err
	}
	var toInsert []string
	for _, p := range prefixed {
		if !existing[p] {
			toInsert = append(toInsert, p)
		}
	}
	return c.CH.InsertVFSDirectories(ctx, dataset, containerHash, toInsert)
}

// InsertFiles inserts the set-difference of file rows not already
// present, keyed by normalized, prefixed path.
func (c *Catalog) InsertFiles(ctx context.Context, dataset string, containerHash blob.Ref, rootPathPrefix string, rows []model.VFSFile) error {
	paths := make([]string, len(rows))
	for i, r := range rows {
		paths[i] = applyPrefixOne(rootPathPrefix, r.Path)
	}
	existing, err := c.ExistingFiles(ctx, dataset, containerHash, paths)
	if err != nil {
		return err
	}
	var toInsert []model.VFSFile
	for i, r := range rows {
		p := paths[i]
		if existing[p] {
			continue
		}
		r.Dataset, r.ContainerHash, r.Path = dataset, containerHash, p
		toInsert = append(toInsert, r)
	}
	return c.CH.InsertVFSFiles(ctx, toInsert)
}

func applyPrefix(prefix string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = applyPrefixOne(prefix, p)
	}
	return out
}

func applyPrefixOne(prefix, path string) string {
	path = NormalizePath(path)
	if prefix == "" {
		return path
	}
	prefix = strings.TrimSuffix(NormalizePath(prefix), "/")
	return prefix + path
}

// ParentPaths returns the strict ancestor chain of path, excluding "/"
// itself, e.g. "/a/b/c.txt" -> ["/a", "/a/b"].
func ParentPaths(path string) []string {
	path = NormalizePath(path)
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) <= 1 {
		return nil
	}
	var out []string
	cur := ""
	for _, part := range parts[:len(parts)-1] {
		cur += "/" + part
		out = append(out, cur)
	}
	return out
}

func containerHashString(h blob.Ref) string {
	if !h.Valid() {
		return ""
	}
	return h.String()
}
