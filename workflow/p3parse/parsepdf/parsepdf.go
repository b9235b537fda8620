// Package parsepdf implements the `pdf` coarse-type leaf action:
// pdf_process_and_scan. Oversized PDFs are split into page-range chunks
// and re-entered through P0 rather than parsed whole, following
// original_source's parse_pdf.py page-budget formula (Supplemented
// Feature, SPEC_FULL.md §10, worked example spec.md §S4).
package parsepdf

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/blobstore"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/scratch"
	"github.com/liquidinvestigations/hoover4/pkg/textchunk"
	"github.com/liquidinvestigations/hoover4/pkg/wfid"
	"github.com/liquidinvestigations/hoover4/workflow/p0scan"
)

// Thresholds below which a PDF is parsed inline rather than split.
const (
	SmallBytes = 64 * 1024 * 1024
	SmallPages = 1000

	// MaxChunkBytes/MaxChunkPages bound a single split-off chunk.
	MaxChunkBytes = 32 * 1024 * 1024
	MaxChunkPages = 500
)

// Activities bundles the columnar store, blob store, and scratch-disk
// dependencies.
type Activities struct {
	CH    *chstore.Store
	Blobs *blobstore.Store
	Log   *zap.Logger
}

// Input drives the top-level workflow.
type Input struct {
	Dataset   string
	ItemHash  string
	LocalPath string
	Size      int64
}

// PageCountInput/Output for the `qpdf --show-npages` probe.
type PageCountInput struct {
	LocalPath string
}

type PageCountOutput struct {
	Pages int
}

// PageCount shells out to qpdf to report the page count.
func (a *Activities) PageCount(ctx context.Context, in PageCountInput) (PageCountOutput, error) {
	out, err := exec.CommandContext(ctx, "qpdf", "--show-npages", in.LocalPath).Output()
	if err != nil {
		return PageCountOutput{}, fmt.Errorf("parsepdf: qpdf --show-npages: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return PageCountOutput{}, fmt.Errorf("parsepdf: parse page count: %w", err)
	}
	return PageCountOutput{Pages: n}, nil
}

// ExtractSmallInput/Output for the inline-parse path.
type ExtractSmallInput struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

// ExtractSmall runs pdftotext for the whole document and pdfimages to
// pull embedded images, recording each under the PDF's page-approximate
// on_page heuristic.
func (a *Activities) ExtractSmall(ctx context.Context, in ExtractSmallInput) error {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return err
	}

	textPath := in.LocalPath + ".txt"
	if out, err := exec.CommandContext(ctx, "pdftotext", "-layout", in.LocalPath, textPath).CombinedOutput(); err != nil {
		return fmt.Errorf("parsepdf: pdftotext: %w: %s", err, out)
	}
	defer os.Remove(textPath)

	data, err := os.ReadFile(textPath)
	if err != nil {
		return err
	}
	if _, err := textchunk.InsertChunks(ctx, a.CH, in.Dataset, hash, model.ExtractedByQPDF, data, 0); err != nil {
		return err
	}

	return a.extractImages(ctx, in.Dataset, hash, in.LocalPath)
}

// extractImages runs pdfimages and links every extracted image to an
// approximate page number, its ordinal position in the output directory
// listing, per the approximate on_page heuristic documented on
// model.PDFImageLink.
func (a *Activities) extractImages(ctx context.Context, dataset string, hash blob.Ref, localPath string) error {
	outDir := scratch.ContainerDir(dataset, "pdf-images", hash.String())
	if err := scratch.Ensure(outDir); err != nil {
		return err
	}
	prefix := filepath.Join(outDir, "img")
	if out, err := exec.CommandContext(ctx, "pdfimages", "-all", localPath, prefix).CombinedOutput(); err != nil {
		a.Log.Warn("parsepdf: pdfimages failed", zap.Error(err), zap.ByteString("output", out))
		return nil // image extraction is best-effort; text already persisted.
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil
	}
	for i, e := range entries {
		if e.IsDir() {
			continue
		}
		imgPath := filepath.Join(outDir, e.Name())
		put, err := a.Blobs.Put(ctx, dataset, imgPath)
		if err != nil {
			a.Log.Warn("parsepdf: store image blob failed", zap.Error(err))
			continue
		}
		if err := a.CH.InsertPDFImageLink(ctx, model.PDFImageLink{
			Dataset: dataset, PDFHash: hash, ImageHash: put.Hash,
			OnPage: uint32(i), // ordinal position stands in for the true page.
		}); err != nil {
			a.Log.Warn("parsepdf: insert image link failed", zap.Error(err))
		}
	}
	return nil
}

// SplitInput/Output for the page-range splitting path.
type SplitInput struct {
	Dataset   string
	ItemHash  string
	LocalPath string
	Size      int64
	Pages     int
}

type SplitOutput struct {
	OutDir string
}

// Split computes the chunk count per the size/page budget formula and
// invokes qpdf once per range.
func (a *Activities) Split(ctx context.Context, in SplitInput) (SplitOutput, error) {
	chunks := chunkCount(in.Size, in.Pages)
	perChunk := pagesPerChunk(in.Pages, chunks)

	outDir := scratch.ContainerDir(in.Dataset, "pdf-split", in.ItemHash)
	if err := scratch.Ensure(outDir); err != nil {
		return SplitOutput{}, err
	}

	for start := 1; start <= in.Pages; start += perChunk {
		end := start + perChunk - 1
		if end > in.Pages {
			end = in.Pages
		}
		chunkPath := filepath.Join(outDir, fmt.Sprintf("chunk_%d_%d-%d.pdf", (start-1)/perChunk+1, start, end))
		args := []string{in.LocalPath, "--pages", in.LocalPath, fmt.Sprintf("%d-%d", start, end), "--", chunkPath}
		if out, err := exec.CommandContext(ctx, "qpdf", args...).CombinedOutput(); err != nil {
			return SplitOutput{}, fmt.Errorf("parsepdf: qpdf split %d-%d: %w: %s", start, end, err, out)
		}
	}
	return SplitOutput{OutDir: outDir}, nil
}

// chunkCount mirrors chunks = max(ceil(size/32MiB), ceil(pages/500)).
func chunkCount(size int64, pages int) int {
	bySize := int(math.Ceil(float64(size) / float64(MaxChunkBytes)))
	byPages := int(math.Ceil(float64(pages) / float64(MaxChunkPages)))
	if bySize > byPages {
		return bySize
	}
	return byPages
}

// pagesPerChunk mirrors pages_per_chunk = min(ceil(pages/chunks), 500).
func pagesPerChunk(pages, chunks int) int {
	if chunks < 1 {
		chunks = 1
	}
	perChunk := int(math.Ceil(float64(pages) / float64(chunks)))
	if perChunk > MaxChunkPages {
		perChunk = MaxChunkPages
	}
	if perChunk < 1 {
		perChunk = 1
	}
	return perChunk
}

// Cleanup removes a scratch directory.
func (a *Activities) Cleanup(ctx context.Context, dir string) error {
	if err := scratch.Cleanup(dir); err != nil {
		a.Log.Warn("parsepdf: cleanup failed", zap.String("dir", dir), zap.Error(err))
	}
	return nil
}

// ProcessAndScan is pdf_process_and_scan: probe the page count, then take
// the inline-extraction path for small documents or the split-and-recurse
// path for large ones.
func ProcessAndScan(ctx workflow.Context, in Input) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	actx := workflow.WithActivityOptions(ctx, ao)

	var pc PageCountOutput
	if err := workflow.ExecuteActivity(actx, (*Activities).PageCount, PageCountInput{LocalPath: in.LocalPath}).Get(ctx, &pc); err != nil {
		return err
	}

	if in.Size <= SmallBytes && pc.Pages <= SmallPages {
		return workflow.ExecuteActivity(actx, (*Activities).ExtractSmall, ExtractSmallInput{
			Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.LocalPath,
		}).Get(ctx, nil)
	}

	var split SplitOutput
	splitAO := ao
	splitAO.StartToCloseTimeout = 30 * time.Minute
	sctx := workflow.WithActivityOptions(ctx, splitAO)
	if err := workflow.ExecuteActivity(sctx, (*Activities).Split, SplitInput{
		Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.LocalPath,
		Size: in.Size, Pages: pc.Pages,
	}).Get(ctx, &split); err != nil {
		return err
	}

	scanArgs := p0scan.Input{
		Dataset:        in.Dataset,
		DatasetPath:    split.OutDir,
		FolderPaths:    []string{"/"},
		ContainerHash:  in.ItemHash,
		RootPathPrefix: "",
	}
	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: wfid.Of("p0scan-pdf", scanArgs),
	})
	if err := workflow.ExecuteChildWorkflow(cctx, p0scan.ScanDirectory, scanArgs).Get(ctx, nil); err != nil {
		return err
	}

	return workflow.ExecuteActivity(actx, (*Activities).Cleanup, split.OutDir).Get(ctx, nil)
}
