// Package ocrclient is a thin HTTP client for the EasyOCR GPU sidecar
// that parseimage's run_easyocr_and_store activity calls. Only the
// request/response contract is modeled here; the sidecar's internals
// (model loading, GPU scheduling) are out of scope.
package ocrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client talks to POST /ocr on the sidecar.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

type ocrRequest struct {
	ImagePath string `json:"image_path"`
	Lang      string `json:"lang"`
}

type ocrHit struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        [][]int `json:"box,omitempty"`
}

type ocrResponse struct {
	Results   []ocrHit `json:"results"`
	RunTimeMS int      `json:"run_time_ms"`
}

// Result is the caller-facing shape: the joined recognized text, the raw
// response for archival, and the sidecar-reported elapsed time.
type Result struct {
	Text      string
	RawJSON   string
	RunTimeMS int
}

// Recognize runs EasyOCR (English) on imagePath and returns the joined
// text plus the raw response JSON for the raw_ocr_results archive row.
func (c *Client) Recognize(ctx context.Context, imagePath string) (Result, error) {
	buf, err := json.Marshal(ocrRequest{ImagePath: imagePath, Lang: "en"})
	if err != nil {
		return Result{}, fmt.Errorf("ocrclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ocr", bytes.NewReader(buf))
	if err != nil {
		return Result{}, fmt.Errorf("ocrclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("ocrclient: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("ocrclient: status %d", resp.StatusCode)
	}

	rawJSON, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("ocrclient: read response: %w", err)
	}

	var parsed ocrResponse
	if err := json.Unmarshal(rawJSON, &parsed); err != nil {
		return Result{}, fmt.Errorf("ocrclient: decode response: %w", err)
	}

	var lines []string
	for _, hit := range parsed.Results {
		if hit.Text != "" {
			lines = append(lines, hit.Text)
		}
	}
	runTimeMS := parsed.RunTimeMS
	if runTimeMS < 0 {
		runTimeMS = 0
	}
	return Result{
		Text:      strings.Join(lines, "\n"),
		RawJSON:   string(rawJSON),
		RunTimeMS: runTimeMS,
	}, nil
}
