// Package parsetika wraps the Tika/Extractous sidecar's combined
// text-and-metadata extraction endpoint. It is dispatched unconditionally
// for every item (not gated on coarse type, since the coarse-type union
// itself depends in part on this call's own metadata), and runs on a
// dedicated task queue so a slow sidecar request never starves the rest
// of the pipeline.
package parsetika

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/textchunk"
	"github.com/liquidinvestigations/hoover4/pkg/typeregistry"
)

// Activities bundles the columnar store and sidecar HTTP dependencies.
type Activities struct {
	CH      *chstore.Store
	BaseURL string
	HTTP    *http.Client
}

func (a *Activities) httpClient() *http.Client {
	if a.HTTP != nil {
		return a.HTTP
	}
	return http.DefaultClient
}

// Input drives the activity.
type Input struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

// Output is the coarse-type union this call's own metadata implies,
// folded into the router's overall detector consensus alongside file and
// magika.
type Output struct {
	CoarseTypes []string
}

const contentKey = "X-TIKA:content"

var mimeKeys = []string{"Content-Type", "content-type", "ContentType"}
var encodingKeys = []string{"Content-Encoding", "content-encoding", "encoding"}
var filenameKeys = []string{"resourceName", "X-Parsed-By-Filename", "filename"}

// RunTikaAndStore PUTs the file to the sidecar's combined
// metadata-and-text endpoint, stores the extracted text as a
// text_content page, stores the raw metadata document, and derives a
// file_types row from whatever MIME/filename hints the metadata carries.
func (a *Activities) RunTikaAndStore(ctx context.Context, in Input) (Output, error) {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return Output{}, err
	}

	f, err := os.Open(in.LocalPath)
	if err != nil {
		return Output{}, err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, strings.TrimRight(a.BaseURL, "/")+"/rmeta/text", f)
	if err != nil {
		return Output{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return Output{}, fmt.Errorf("parsetika: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Output{}, fmt.Errorf("parsetika: status %d", resp.StatusCode)
	}

	var docs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return Output{}, fmt.Errorf("parsetika: decode: %w", err)
	}
	if len(docs) == 0 {
		return Output{}, nil
	}
	doc := docs[0]

	text, _ := doc[contentKey].(string)
	delete(doc, contentKey)

	processedAt := time.Now().UTC()
	if strings.TrimSpace(text) != "" {
		if _, err := textchunk.InsertChunks(ctx, a.CH, in.Dataset, hash, model.ExtractedByExtractous, []byte(text), 0); err != nil {
			return Output{}, err
		}
	}

	metaJSON, err := json.Marshal(doc)
	if err != nil {
		return Output{}, err
	}
	if err := a.CH.InsertTikaMetadata(ctx, model.TikaMetadata{
		Dataset: in.Dataset, Hash: hash, MetadataJSON: string(metaJSON), ProcessedAt: processedAt,
	}); err != nil {
		return Output{}, err
	}

	mimeTypes := stringValuesAt(doc, mimeKeys)
	encodings := stringValuesAt(doc, encodingKeys)
	extensions := extensionsFromFilenames(stringValuesAt(doc, filenameKeys))

	coarseSet := map[model.CoarseType]bool{}
	for _, m := range mimeTypes {
		coarseSet[typeregistry.CoarseFileType(m)] = true
	}
	var coarse []model.CoarseType
	for c := range coarseSet {
		coarse = append(coarse, c)
	}

	if len(mimeTypes) > 0 || len(encodings) > 0 || len(coarse) > 0 || len(extensions) > 0 {
		if err := a.CH.InsertFileType(ctx, model.FileType{
			Dataset: in.Dataset, Hash: hash, ExtractedBy: model.ExtractedByTika,
			MimeTypes: mimeTypes, MimeEncodings: encodings, FileTypes: coarse, Extensions: extensions,
		}); err != nil {
			return Output{}, err
		}
	}

	out := Output{}
	for _, c := range coarse {
		out.CoarseTypes = append(out.CoarseTypes, string(c))
	}
	sort.Strings(out.CoarseTypes)
	return out, nil
}

func stringValuesAt(doc map[string]interface{}, keys []string) []string {
	set := map[string]bool{}
	for _, k := range keys {
		if v, ok := doc[k].(string); ok && v != "" {
			set[strings.TrimSpace(v)] = true
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func extensionsFromFilenames(names []string) []string {
	set := map[string]bool{}
	for _, name := range names {
		if !strings.Contains(name, ".") {
			continue
		}
		parts := strings.Split(strings.ToLower(name), ".")
		if len(parts) < 2 {
			continue
		}
		set["."+parts[len(parts)-1]] = true
		set["."+strings.Join(parts[1:], ".")] = true
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
