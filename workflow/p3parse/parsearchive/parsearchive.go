// Package parsearchive implements the `archive` coarse-type leaf action:
// archive_extract_and_scan. Extraction shells out to 7z, grounded on the
// same os/exec sidecar-invocation idiom as pkg/typeregistry's magika
// detector.
package parsearchive

import (
	"context"
	"fmt"
	"os/exec"
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

// Activities bundles the columnar store and scratch-disk dependencies.
type Activities struct {
	CH  *chstore.Store
	Log *zap.Logger
}

// Input drives the extraction activity and the recursive scan.
type Input struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

// ExtractInput/Output for the 7z invocation activity.
type ExtractInput struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

type ExtractOutput struct {
	OutDir string
}

// Extract runs `7z x -y -o<tmp> <file>` and records the archive
// container marker.
func (a *Activities) Extract(ctx context.Context, in ExtractInput) (ExtractOutput, error) {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return ExtractOutput{}, err
	}

	outDir := scratch.ContainerDir(in.Dataset, "archive", in.ItemHash)
	if err := scratch.Ensure(outDir); err != nil {
		return ExtractOutput{}, err
	}

	cmd := exec.CommandContext(ctx, "7z", "x", "-y", "-o"+outDir, in.LocalPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return ExtractOutput{}, fmt.Errorf("parsearchive: 7z extract: %w: %s", err, out)
	}

	if err := a.CH.InsertContainerMarker(ctx, model.ContainerMarker{
		Dataset: in.Dataset, Hash: hash, Kind: model.ContainerArchive,
	}); err != nil {
		return ExtractOutput{}, err
	}
	return ExtractOutput{OutDir: outDir}, nil
}

// Cleanup removes the extraction scratch directory.
func (a *Activities) Cleanup(ctx context.Context, dir string) error {
	if err := scratch.Cleanup(dir); err != nil {
		a.Log.Warn("parsearchive: cleanup failed", zap.String("dir", dir), zap.Error(err))
	}
	return nil
}

// ExtractAndScan is archive_extract_and_scan: extract, recurse into P0
// at the extraction root with container_hash=item_hash, then cleanup.
func ExtractAndScan(ctx workflow.Context, in Input) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	actx := workflow.WithActivityOptions(ctx, ao)

	var extracted ExtractOutput
	if err := workflow.ExecuteActivity(actx, (*Activities).Extract, ExtractInput{
		Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.LocalPath,
	}).Get(ctx, &extracted); err != nil {
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
		WorkflowID: wfid.Of("p0scan-archive", scanArgs),
	})
	if err := workflow.ExecuteChildWorkflow(cctx, p0scan.ScanDirectory, scanArgs).Get(ctx, nil); err != nil {
		return err
	}

	return workflow.ExecuteActivity(actx, (*Activities).Cleanup, extracted.OutDir).Get(ctx, nil)
}
