// Package parseimage implements the `image` coarse-type leaf actions:
// parse_image_metadata_and_store and run_easyocr_and_store, grounded on
// original_source's parse_image.py and parse_ocr.py (Supplemented
// Feature, SPEC_FULL.md §10).
package parseimage

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/ocrclient"
	"github.com/liquidinvestigations/hoover4/pkg/textchunk"
)

// Activities bundles the columnar store and OCR sidecar dependencies.
type Activities struct {
	CH  *chstore.Store
	OCR *ocrclient.Client
}

// Input drives both activities.
type Input struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

func runFFProbe(ctx context.Context, localPath string) (ffprobeOutput, []byte, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error", "-print_format", "json", "-show_format", "-show_streams", localPath).Output()
	if err != nil {
		return ffprobeOutput{}, nil, fmt.Errorf("parseimage: ffprobe: %w", err)
	}
	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return ffprobeOutput{}, out, nil // malformed ffprobe JSON is tolerated; raw bytes still archived.
	}
	return parsed, out, nil
}

func firstStreamResolution(probe ffprobeOutput) (width, height int) {
	for _, s := range probe.Streams {
		if s.CodecType == "video" { // ffprobe reports still images under the video codec type.
			return s.Width, s.Height
		}
	}
	return 0, 0
}

// ParseMetadataAndStore is parse_image_metadata_and_store.
func (a *Activities) ParseMetadataAndStore(ctx context.Context, in Input) error {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return err
	}

	probe, raw, err := runFFProbe(ctx, in.LocalPath)
	if err != nil {
		return err
	}
	width, height := firstStreamResolution(probe)

	return a.CH.InsertImageMetadata(ctx, model.ImageMetadata{
		Dataset: in.Dataset, ImageHash: hash,
		WidthPixels: uint32(width), HeightPixels: uint32(height),
		MetadataJSON: string(raw), ProcessedAt: time.Now().UTC(),
	})
}

// RunEasyOCRAndStore is run_easyocr_and_store: recognize text via the
// GPU-affinity OCR sidecar, archive the raw response, and insert the
// joined text as an easyocr text_content page.
func (a *Activities) RunEasyOCRAndStore(ctx context.Context, in Input) error {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return err
	}

	result, err := a.OCR.Recognize(ctx, in.LocalPath)
	if err != nil {
		return err
	}

	if err := a.CH.InsertOCRResult(ctx, model.OCRResult{
		Dataset: in.Dataset, ImageHash: hash,
		RunTimeMS: uint32(result.RunTimeMS), RawJSON: result.RawJSON,
	}); err != nil {
		return err
	}

	if result.Text == "" {
		return nil
	}
	_, err = textchunk.InsertChunks(ctx, a.CH, in.Dataset, hash, model.ExtractedByEasyOCR, []byte(result.Text), 0)
	return err
}
