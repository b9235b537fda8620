package p4index

import (
	"context"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/manticore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/nerclient"
	"github.com/liquidinvestigations/hoover4/pkg/textchunk"
	"github.com/liquidinvestigations/hoover4/pkg/vfscatalog"
)

// Activities bundles the columnar store, search engine, and NER sidecar
// dependencies shared by both fan-in sub-activities.
type Activities struct {
	CH        *chstore.Store
	Manticore *manticore.Store
	NER       *nerclient.Client
	Log       *zap.Logger
}

// PlanItemHashes resolves a plan's item hashes for the top-level
// workflow's chunking step.
func (a *Activities) PlanItemHashes(ctx context.Context, in Input) ([]string, error) {
	items, err := a.CH.PlanItems(ctx, in.Dataset, in.PlanHash)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Hash.String()
	}
	return out, nil
}

// ChunkInput drives both per-chunk sub-activities.
type ChunkInput struct {
	Dataset    string
	ItemHashes []string
}

func parseHashes(hexes []string) ([]blob.Ref, error) {
	out := make([]blob.Ref, len(hexes))
	for i, h := range hexes {
		ref, err := blob.Parse(h)
		if err != nil {
			return nil, err
		}
		out[i] = ref
	}
	return out, nil
}

// IndexTextContent is index_text_content: join text_content rows for the
// chunk, run NER, write entity_hit rows, and insert search-engine text
// pages with interned NER ids.
func (a *Activities) IndexTextContent(ctx context.Context, in ChunkInput) error {
	hashes, err := parseHashes(in.ItemHashes)
	if err != nil {
		return err
	}
	rows, err := a.CH.TextPagesForHashes(ctx, in.Dataset, hashes)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	cleaned := make([]string, len(rows))
	for i, r := range rows {
		cleaned[i] = strings.TrimSpace(textchunk.CleanUTF8(r.Text))
	}

	entitiesPerPage, err := a.NER.Extract(ctx, cleaned)
	if err != nil {
		return err
	}

	allValues := map[model.EntityType]map[string]bool{
		model.EntityPerson: {}, model.EntityOrg: {}, model.EntityLoc: {}, model.EntityMisc: {},
	}
	for _, page := range entitiesPerPage {
		for et, vals := range page {
			for _, v := range vals {
				allValues[et][v] = true
			}
		}
	}
	idOf := map[model.EntityType]map[string]int64{}
	for et, set := range allValues {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		ids, err := a.CH.GetStringTermIDs(ctx, in.Dataset, model.FieldNER, values)
		if err != nil {
			return err
		}
		idOf[et] = ids
	}

	var docPages []model.DocTextPage
	for i, r := range rows {
		text := cleaned[i]
		if text == "" {
			continue
		}
		page := entitiesPerPage[i]
		for et, vals := range page {
			if len(vals) == 0 {
				continue
			}
			if err := a.CH.InsertEntityHit(ctx, model.EntityHit{
				Dataset: in.Dataset, FileHash: r.FileHash, ExtractedBy: r.ExtractedBy,
				PageID: r.PageID, EntityType: et, EntityValues: vals,
			}); err != nil {
				return err
			}
		}
		docPages = append(docPages, model.DocTextPage{
			Dataset: in.Dataset, FileHash: r.FileHash, ExtractedBy: r.ExtractedBy,
			PageID: r.PageID, PageText: text,
			NERPer:  idsFor(idOf[model.EntityPerson], page[model.EntityPerson]),
			NEROrg:  idsFor(idOf[model.EntityOrg], page[model.EntityOrg]),
			NERLoc:  idsFor(idOf[model.EntityLoc], page[model.EntityLoc]),
			NERMisc: idsFor(idOf[model.EntityMisc], page[model.EntityMisc]),
		})
	}

	return commitDocTextPages(a.Manticore, docPages)
}

func idsFor(ids map[string]int64, values []string) []int64 {
	out := make([]int64, 0, len(values))
	for _, v := range values {
		if id, ok := ids[v]; ok {
			out = append(out, id)
		}
	}
	return out
}

func commitDocTextPages(m *manticore.Store, pages []model.DocTextPage) error {
	for start := 0; start < len(pages); start += commitChunkSize {
		end := start + commitChunkSize
		if end > len(pages) {
			end = len(pages)
		}
		if err := m.InsertDocTextPagesBatch(pages[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// IndexMetadatas is index_metadatas: aggregate each file hash's
// file_types and VFS paths (plus their ancestor chains), intern every
// string, and write one search-engine metadata row per hash.
func (a *Activities) IndexMetadatas(ctx context.Context, in ChunkInput) error {
	hashes, err := parseHashes(in.ItemHashes)
	if err != nil {
		return err
	}

	var rows []model.DocMetadata
	for _, h := range hashes {
		row, err := a.buildDocMetadata(ctx, in.Dataset, h)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	for start := 0; start < len(rows); start += commitChunkSize {
		end := start + commitChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := a.Manticore.InsertDocMetadataBatch(rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (a *Activities) buildDocMetadata(ctx context.Context, dataset string, hash blob.Ref) (model.DocMetadata, error) {
	types, err := a.CH.FileTypeRows(ctx, dataset, hash)
	if err != nil {
		return model.DocMetadata{}, err
	}
	paths, err := a.CH.PathsForHash(ctx, dataset, hash)
	if err != nil {
		return model.DocMetadata{}, err
	}

	coarseSet := map[string]bool{}
	mimeSet := map[string]bool{}
	extSet := map[string]bool{}
	for _, t := range types {
		for _, c := range t.FileTypes {
			coarseSet[string(c)] = true
		}
		for _, m := range t.MimeTypes {
			mimeSet[m] = true
		}
		for _, e := range t.Extensions {
			extSet[e] = true
		}
	}

	pathSet := map[string]bool{}
	var filenames []string
	for _, p := range paths {
		for _, anc := range vfscatalog.ParentPaths(p) {
			pathSet[anc] = true
		}
		filenames = append(filenames, path.Base(p))
	}

	coarseIDs, err := a.internField(ctx, dataset, model.FieldFileType, coarseSet)
	if err != nil {
		return model.DocMetadata{}, err
	}
	mimeIDs, err := a.internField(ctx, dataset, model.FieldMimeType, mimeSet)
	if err != nil {
		return model.DocMetadata{}, err
	}
	extIDs, err := a.internField(ctx, dataset, model.FieldExtension, extSet)
	if err != nil {
		return model.DocMetadata{}, err
	}
	pathIDs, err := a.internField(ctx, dataset, model.FieldParentPaths, pathSet)
	if err != nil {
		return model.DocMetadata{}, err
	}

	return model.DocMetadata{
		Dataset: dataset, FileHash: hash,
		Filenames:      strings.Join(filenames, "\n"),
		MetadataValues: "",
		FileTypes:      coarseIDs, FileMimeTypes: mimeIDs, FileExtensions: extIDs, FilePaths: pathIDs,
	}, nil
}

func (a *Activities) internField(ctx context.Context, dataset string, field model.Field, set map[string]bool) ([]int64, error) {
	if len(set) == 0 {
		return nil, nil
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	idMap, err := a.CH.GetStringTermIDs(ctx, dataset, field, values)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(idMap))
	for _, id := range idMap {
		ids = append(ids, id)
	}
	return ids, nil
}
