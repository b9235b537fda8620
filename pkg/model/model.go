// Package model holds the row types shared by the columnar store (C1, C3,
// C4, text/entity/interning/error tables) and the search engine (C9),
// mirroring the schema contracts in the design's data model section.
package model

import (
	"time"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
)

// CoarseType is one of the fixed routing categories every detector's MIME
// type is coarsened into.
type CoarseType string

const (
	CoarseHTML    CoarseType = "html"
	CoarseArchive CoarseType = "archive"
	CoarseDoc     CoarseType = "doc"
	CoarseXLS     CoarseType = "xls"
	CoarsePPT     CoarseType = "ppt"
	CoarseEmail   CoarseType = "email"
	CoarseImage   CoarseType = "image"
	CoarseVideo   CoarseType = "video"
	CoarseAudio   CoarseType = "audio"
	CoarsePDF     CoarseType = "pdf"
	CoarseText    CoarseType = "text"
	CoarseOther   CoarseType = "other"
)

// EntityType is one of the four NER label buckets.
type EntityType string

const (
	EntityPerson EntityType = "PER"
	EntityOrg    EntityType = "ORG"
	EntityLoc    EntityType = "LOC"
	EntityMisc   EntityType = "MISC"
)

// ExtractedBy names the parser/detector that produced a row.
type ExtractedBy string

const (
	ExtractedByFile       ExtractedBy = "file"
	ExtractedByTika       ExtractedBy = "tika"
	ExtractedByMagika     ExtractedBy = "magika"
	ExtractedByRawText    ExtractedBy = "raw_text"
	ExtractedByExtractous ExtractedBy = "extractous"
	ExtractedByEasyOCR    ExtractedBy = "easyocr"
	ExtractedByEmail      ExtractedBy = "email_parser"
	ExtractedByQPDF       ExtractedBy = "qpdf"
)

// Field is an interned string field name, one per column that gets
// dictionary-encoded through the string-term maps.
type Field string

const (
	FieldNER         Field = "ner"
	FieldFileType    Field = "filetype"
	FieldMimeType    Field = "mime_type"
	FieldExtension   Field = "extension"
	FieldParentPaths Field = "parent_paths"
)

// Blob is a row in the blobs table: one per distinct (dataset, blob_hash).
type Blob struct {
	Dataset           string
	Hash              blob.Ref
	Size              int64
	MD5, SHA1, SHA256 string
	S3Path            string
	StoredInColumnar  bool
}

// InlineBlobValue is the companion row for small blobs, keyed the same way.
type InlineBlobValue struct {
	Dataset string
	Hash    blob.Ref
	Value   []byte
}

// VFSDirectory is a logical directory node.
type VFSDirectory struct {
	Dataset       string
	ContainerHash blob.Ref // zero value means the on-disk tree root
	Path          string
}

// VFSFile is a logical file node pointing at a blob.
type VFSFile struct {
	Dataset       string
	ContainerHash blob.Ref
	Path          string
	Hash          blob.Ref
	FileSizeBytes int64
}

// ContainerKind names what kind of container produced child VFS entries.
type ContainerKind string

const (
	ContainerArchive ContainerKind = "archive"
	ContainerEmail   ContainerKind = "email"
	ContainerPDF     ContainerKind = "pdf"
	ContainerVideo   ContainerKind = "video"
)

// ContainerMarker is one row per container blob, naming its kind and a
// small attribute bag (email headers, PDF page count, video duration...).
type ContainerMarker struct {
	Dataset    string
	Hash       blob.Ref
	Kind       ContainerKind
	Attributes map[string]string
}

// FileType is one detector's contribution to a blob's type rows.
type FileType struct {
	Dataset     string
	Hash        blob.Ref
	ExtractedBy ExtractedBy
	MimeTypes   []string
	MimeEncodings []string
	FileTypes   []CoarseType
	Extensions  []string
}

// ProcessingPlan is an immutable batch of blob hashes.
type ProcessingPlan struct {
	Dataset       string
	PlanHash      string
	ItemHashes    []blob.Ref
	PlanSizeBytes int64
	CreatedAt     time.Time
}

// PlanHit proves a blob is covered by a specific plan.
type PlanHit struct {
	Dataset  string
	ItemHash blob.Ref
	PlanHash string
}

// PlanFinished marks both P2 and P4 complete for a plan.
type PlanFinished struct {
	Dataset    string
	PlanHash   string
	FinishedAt time.Time
}

// TextContent is one page of extracted text.
type TextContent struct {
	Dataset     string
	FileHash    blob.Ref
	ExtractedBy ExtractedBy
	PageID      int
	Text        string
}

// EntityHit is one NER bucket's values for a page.
type EntityHit struct {
	Dataset      string
	FileHash     blob.Ref
	ExtractedBy  ExtractedBy
	PageID       int
	EntityType   EntityType
	EntityValues []string
}

// PDFImageLink records one embedded image extracted from a PDF, with an
// approximate page number per Design Note §9 — derived from the
// extraction index, not the true source page, until a better extractor
// is available.
type PDFImageLink struct {
	Dataset   string
	PDFHash   blob.Ref
	ImageHash blob.Ref
	OnPage    uint32
}

// EmailHeaders is one parsed .eml's header summary.
type EmailHeaders struct {
	Dataset        string
	EmailHash      blob.Ref
	RawHeadersJSON string
	Subject        string
	Addresses      string
	DateSent       time.Time
}

// ImageMetadata is one image's ffprobe-derived dimensions and raw
// metadata JSON.
type ImageMetadata struct {
	Dataset      string
	ImageHash    blob.Ref
	WidthPixels  uint32
	HeightPixels uint32
	MetadataJSON string
	ProcessedAt  time.Time
}

// OCRResult is one run_easyocr_and_store invocation's raw output.
type OCRResult struct {
	Dataset   string
	ImageHash blob.Ref
	RunTimeMS uint32
	RawJSON   string
}

// AudioMetadata is one audio file's ffprobe-derived duration and raw
// metadata JSON.
type AudioMetadata struct {
	Dataset      string
	Hash         blob.Ref
	MetadataJSON string
	ProcessedAt  time.Time
}

// VideoMetadata is one video file's ffprobe-derived dimensions, duration,
// and raw metadata JSON.
type VideoMetadata struct {
	Dataset      string
	Hash         blob.Ref
	WidthPixels  uint32
	HeightPixels uint32
	DurationSecs float64
	MetadataJSON string
	ProcessedAt  time.Time
}

// Dataset is the root entity every other row is scoped under: a slug
// name and the canonical absolute path it was ingested from.
type Dataset struct {
	Name      string
	Path      string
	CreatedAt time.Time
}

// TikaMetadata is the sidecar's raw per-file metadata document, stored
// alongside whatever text_content/file_types rows it also produced.
type TikaMetadata struct {
	Dataset      string
	Hash         blob.Ref
	MetadataJSON string
	ProcessedAt  time.Time
}

// ProcessingError is an append-only error journal row.
type ProcessingError struct {
	Dataset   string
	Hash      blob.Ref
	TaskName  string
	Timestamp time.Time
	RunTimeMS int64
	ErrorLogs string
}

// DocTextPage is one search-engine row: a text page with interned NER ids.
type DocTextPage struct {
	Dataset     string
	FileHash    blob.Ref
	ExtractedBy ExtractedBy
	PageID      int
	PageText    string
	NERPer      []int64
	NEROrg      []int64
	NERLoc      []int64
	NERMisc     []int64
}

// DocMetadata is one search-engine row per file.
type DocMetadata struct {
	Dataset         string
	FileHash        blob.Ref
	Filenames       string
	MetadataValues  string
	FileTypes       []int64
	FileMimeTypes   []int64
	FileExtensions  []int64
	FilePaths       []int64
}
