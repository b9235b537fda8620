// Package parsevideo implements the `video` coarse-type leaf action:
// video_process_and_scan, grounded on original_source's parse_video.py
// (Supplemented Feature, SPEC_FULL.md §10).
package parsevideo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/scratch"
	"github.com/liquidinvestigations/hoover4/pkg/wfid"
	"github.com/liquidinvestigations/hoover4/workflow/p0scan"
)

// ffprobeBpsDivisor/ExtractBpsDivisor scale the two activity timeouts by
// file size, per spec.md §5's scaling rules.
const (
	ffprobeBpsDivisor = 20_000
	extractBpsDivisor = 10_000
)

// Activities bundles the columnar store and scratch-disk dependencies.
type Activities struct {
	CH  *chstore.Store
	Log *zap.Logger
}

// Input drives the top-level workflow.
type Input struct {
	Dataset   string
	ItemHash  string
	LocalPath string
	Size      int64
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Index     int    `json:"index"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

func runFFProbe(ctx context.Context, localPath string) (ffprobeOutput, []byte, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error", "-print_format", "json", "-show_format", "-show_streams", localPath).Output()
	if err != nil {
		return ffprobeOutput{}, nil, fmt.Errorf("parsevideo: ffprobe: %w", err)
	}
	var parsed ffprobeOutput
	_ = json.Unmarshal(out, &parsed)
	return parsed, out, nil
}

func resolution(probe ffprobeOutput) (width, height int) {
	for _, s := range probe.Streams {
		if s.CodecType == "video" {
			return s.Width, s.Height
		}
	}
	return 0, 0
}

func durationSeconds(probe ffprobeOutput) float64 {
	var d float64
	if _, err := fmt.Sscanf(probe.Format.Duration, "%g", &d); err == nil && d > 0 {
		return d
	}
	var maxD float64
	for _, s := range probe.Streams {
		var sd float64
		if _, err := fmt.Sscanf(s.Duration, "%g", &sd); err == nil && sd > maxD {
			maxD = sd
		}
	}
	return maxD
}

// FFProbeAndStoreInput/Output for the metadata activity.
type FFProbeAndStoreInput struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

// FFProbeAndStore is video_ffprobe_and_store.
func (a *Activities) FFProbeAndStore(ctx context.Context, in FFProbeAndStoreInput) error {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return err
	}

	probe, raw, err := runFFProbe(ctx, in.LocalPath)
	if err != nil {
		return err
	}
	width, height := resolution(probe)
	duration := durationSeconds(probe)

	wrapped := struct {
		FFProbe         json.RawMessage `json:"ffprobe"`
		DurationSeconds float64         `json:"duration_seconds"`
		Width           int             `json:"width"`
		Height          int             `json:"height"`
	}{FFProbe: raw, DurationSeconds: duration, Width: width, Height: height}
	metadataJSON, err := json.Marshal(wrapped)
	if err != nil {
		return err
	}

	return a.CH.InsertVideoMetadata(ctx, model.VideoMetadata{
		Dataset: in.Dataset, Hash: hash,
		WidthPixels: uint32(width), HeightPixels: uint32(height),
		DurationSecs: duration, MetadataJSON: string(metadataJSON), ProcessedAt: time.Now().UTC(),
	})
}

// ExtractFramesAndSubtitlesInput/Output for the extraction activity.
type ExtractFramesAndSubtitlesInput struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

type ExtractFramesAndSubtitlesOutput struct {
	OutDir string
}

// ExtractFramesAndSubtitles pulls one frame every 4 seconds via
// `ffmpeg -vf fps=1/4` and every subtitle stream as a .srt via
// `ffmpeg -map 0:<idx>`.
func (a *Activities) ExtractFramesAndSubtitles(ctx context.Context, in ExtractFramesAndSubtitlesInput) (ExtractFramesAndSubtitlesOutput, error) {
	outDir := scratch.ContainerDir(in.Dataset, "video", in.ItemHash)
	framesDir := filepath.Join(outDir, "frames")
	if err := scratch.Ensure(framesDir); err != nil {
		return ExtractFramesAndSubtitlesOutput{}, err
	}

	framePattern := filepath.Join(framesDir, "frame_%06d.jpg")
	if out, err := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", in.LocalPath,
		"-vf", "fps=1/4", "-qscale:v", "2", framePattern).CombinedOutput(); err != nil {
		a.Log.Warn("parsevideo: frame extraction failed", zap.Error(err), zap.ByteString("output", out))
	}

	probe, _, err := runFFProbe(ctx, in.LocalPath)
	if err != nil {
		return ExtractFramesAndSubtitlesOutput{OutDir: outDir}, nil
	}

	var subIdx []int
	for _, s := range probe.Streams {
		if s.CodecType == "subtitle" {
			subIdx = append(subIdx, s.Index)
		}
	}
	if len(subIdx) > 0 {
		subsDir := filepath.Join(outDir, "subtitles")
		if err := scratch.Ensure(subsDir); err != nil {
			return ExtractFramesAndSubtitlesOutput{OutDir: outDir}, nil
		}
		for i, idx := range subIdx {
			outSRT := filepath.Join(subsDir, fmt.Sprintf("subtitle_%d.srt", i+1))
			if out, err := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", in.LocalPath,
				"-map", fmt.Sprintf("0:%d", idx), outSRT).CombinedOutput(); err != nil {
				a.Log.Warn("parsevideo: subtitle extraction failed", zap.Int("stream", idx), zap.Error(err), zap.ByteString("output", out))
			}
		}
	}

	return ExtractFramesAndSubtitlesOutput{OutDir: outDir}, nil
}

// InsertContainerMarker records the video container row.
func (a *Activities) InsertContainerMarker(ctx context.Context, m model.ContainerMarker) error {
	return a.CH.InsertContainerMarker(ctx, m)
}

// Cleanup removes the extraction scratch directory.
func (a *Activities) Cleanup(ctx context.Context, dir string) error {
	if err := scratch.Cleanup(dir); err != nil {
		a.Log.Warn("parsevideo: cleanup failed", zap.String("dir", dir), zap.Error(err))
	}
	return nil
}

func ffprobeTimeout(size int64) time.Duration {
	return time.Duration(90+int(math.Ceil(float64(size)/ffprobeBpsDivisor))) * time.Second
}

func extractTimeout(size int64) time.Duration {
	return time.Duration(120+int(math.Ceil(float64(size)/extractBpsDivisor))) * time.Second
}

// ProcessAndScan is video_process_and_scan: ffprobe metadata, frame and
// subtitle extraction, a container marker, recursion into P0 over the
// extracted frames/subtitles folder, then cleanup.
func ProcessAndScan(ctx workflow.Context, in Input) error {
	probeAO := workflow.ActivityOptions{
		StartToCloseTimeout: ffprobeTimeout(in.Size),
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, probeAO), (*Activities).FFProbeAndStore, FFProbeAndStoreInput{
		Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.LocalPath,
	}).Get(ctx, nil); err != nil {
		return err
	}

	extractAO := workflow.ActivityOptions{
		StartToCloseTimeout: extractTimeout(in.Size),
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	var extracted ExtractFramesAndSubtitlesOutput
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, extractAO), (*Activities).ExtractFramesAndSubtitles, ExtractFramesAndSubtitlesInput{
		Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.LocalPath,
	}).Get(ctx, &extracted); err != nil {
		return err
	}

	markerAO := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	mctx := workflow.WithActivityOptions(ctx, markerAO)
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return err
	}
	if err := workflow.ExecuteActivity(mctx, (*Activities).InsertContainerMarker, model.ContainerMarker{
		Dataset: in.Dataset, Hash: hash, Kind: model.ContainerVideo,
	}).Get(ctx, nil); err != nil {
		return err
	}

	scanArgs := p0scan.Input{
		Dataset:        in.Dataset,
		DatasetPath:    extracted.OutDir,
		FolderPaths:    []string{"/"},
		ContainerHash:  in.ItemHash,
		RootPathPrefix: "",
	}
	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: wfid.Of("p0scan-video", scanArgs),
	})
	if err := workflow.ExecuteChildWorkflow(cctx, p0scan.ScanDirectory, scanArgs).Get(ctx, nil); err != nil {
		return err
	}

	return workflow.ExecuteActivity(mctx, (*Activities).Cleanup, extracted.OutDir).Get(ctx, nil)
}
