package typeregistry

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Tika detects type via the same Tika/Extractous sidecar that C8's
// run_tika_and_store activity uses for text extraction: its Content-Type
// header/filename hints double as a third, independent detector.
type Tika struct {
	BaseURL string
	Client  *http.Client
}

func (t Tika) httpClient() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

func (t Tika) ExtractedBy() model.ExtractedBy { return model.ExtractedByTika }

func (t Tika) Detect(ctx context.Context, localPath string) (Result, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, strings.TrimRight(t.BaseURL, "/")+"/meta", f)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("typeregistry: tika detect: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("typeregistry: tika detect: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mimeByExtension(localPath)
	}
	res := Result{MimeTypes: []string{strings.SplitN(contentType, ";", 2)[0]}}
	if ext := strings.TrimPrefix(filepath.Ext(localPath), "."); ext != "" {
		res.Extensions = []string{strings.ToLower(ext)}
	}
	return res, nil
}
