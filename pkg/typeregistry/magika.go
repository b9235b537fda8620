package typeregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Magika shells out to the `magika` CLI (the Python/Rust content-type
// classifier) and parses its JSON output. Only the first result is used:
// it contributes one MIME type and, when a group is reported, its label
// as the single extension.
type Magika struct {
	// BinPath is the magika executable; defaults to "magika" on PATH.
	BinPath string
}

type magikaJSONResult struct {
	Path   string `json:"path"`
	Result struct {
		Value struct {
			MimeType string   `json:"mime_type"`
			Group    string   `json:"group"`
			Label    string   `json:"label"`
			IsText   bool     `json:"is_text"`
		} `json:"value"`
	} `json:"result"`
}

func (m Magika) ExtractedBy() model.ExtractedBy { return model.ExtractedByMagika }

func (m Magika) Detect(ctx context.Context, localPath string) (Result, error) {
	bin := m.BinPath
	if bin == "" {
		bin = "magika"
	}
	cmd := exec.CommandContext(ctx, bin, "--json", localPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("typeregistry: magika: %w: %s", err, stderr.String())
	}

	var results []magikaJSONResult
	if err := json.Unmarshal(stdout.Bytes(), &results); err != nil {
		return Result{}, fmt.Errorf("typeregistry: magika: parsing output: %w", err)
	}
	if len(results) == 0 {
		return Result{}, fmt.Errorf("typeregistry: magika: no result for %s", localPath)
	}

	v := results[0].Result.Value
	res := Result{MimeTypes: []string{v.MimeType}}
	if v.Group != "" {
		res.Extensions = []string{v.Label}
	}
	if v.IsText {
		res.MimeEncodings = []string{"utf-8"}
	} else {
		res.MimeEncodings = []string{"binary"}
	}
	return res, nil
}

// CoarseFromMagikaGroup applies the magika-specific group remap (document
// -> doc, unknown -> other) before falling back to the shared MIME table.
func CoarseFromMagikaGroup(group, mimeType string) model.CoarseType {
	if c, ok := MagikaGroupToCoarse(group); ok {
		return c
	}
	return CoarseFileType(mimeType)
}
