package p3parse

import (
	"math"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/liquidinvestigations/hoover4/pkg/errjournal"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/taskqueue"
	"github.com/liquidinvestigations/hoover4/pkg/wfid"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parseaudio"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parsearchive"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parseemail"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parseimage"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parsepdf"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parsetext"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parsetika"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parsevideo"
)

// tikaExtraSeconds is the original's "+1000s" allowance for the Tika
// sidecar call on top of the base dispatch timeout, since OCR-backed
// extraction on large scanned documents runs far longer than every other
// detector.
const tikaExtraSeconds = 1000

// dispatchTimeout implements "900s + ceil(size / 10 kbit/s equivalent)".
func dispatchTimeout(size int64) time.Duration {
	return time.Duration(dispatchBaseTimeoutSeconds+int(math.Ceil(float64(size)/dispatchBitsPerSecond))) * time.Second
}

// pendingFuture pairs a dispatched future with the task name used for
// error journaling if it fails.
type pendingFuture struct {
	future   workflow.Future
	taskName string
}

// ParseSingleFile is parse_single_file: run type detection, then
// dispatch by the union of coarse types to every matching leaf action
// in parallel, journaling (not rethrowing) any leaf's failure.
func ParseSingleFile(ctx workflow.Context, in Input) error {
	detectAO := workflow.ActivityOptions{
		StartToCloseTimeout: dispatchTimeout(in.Size),
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	dctx := workflow.WithActivityOptions(ctx, detectAO)
	detectFuture := workflow.ExecuteActivity(dctx, (*Activities).DetectTypes, DetectTypesInput{
		Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.FilePath,
	})

	tikaAO := workflow.ActivityOptions{
		StartToCloseTimeout: dispatchTimeout(in.Size) + tikaExtraSeconds*time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
		TaskQueue:           taskqueue.Tika,
	}
	tctx := workflow.WithActivityOptions(ctx, tikaAO)
	tikaFuture := workflow.ExecuteActivity(tctx, (*parsetika.Activities).RunTikaAndStore, parsetika.Input{
		Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.FilePath,
	})

	var detected DetectTypesOutput
	detectErr := detectFuture.Get(ctx, &detected)
	var tikaOut parsetika.Output
	tikaErr := tikaFuture.Get(ctx, &tikaOut)

	coarse := map[string]bool{}
	if detectErr == nil {
		for _, c := range detected.CoarseTypes {
			coarse[c] = true
		}
	}
	if tikaErr == nil {
		for _, c := range tikaOut.CoarseTypes {
			coarse[c] = true
		}
	}
	if detectErr != nil && tikaErr != nil {
		return detectErr
	}

	started := workflow.Now(ctx)
	var failures []FailedTask
	if detectErr != nil {
		failures = append(failures, FailedTask{TaskName: "detect_types", ErrorLogs: errjournal.FormatChain(detectErr)})
	}
	if tikaErr != nil {
		failures = append(failures, FailedTask{TaskName: "run_tika_and_store", ErrorLogs: errjournal.FormatChain(tikaErr)})
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: dispatchTimeout(in.Size),
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	actx := workflow.WithActivityOptions(ctx, ao)

	var pending []pendingFuture

	if coarse[string(model.CoarseArchive)] {
		cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: wfid.Of("p3-archive", in),
		})
		f := workflow.ExecuteChildWorkflow(cctx, parsearchive.ExtractAndScan, parsearchive.Input{
			Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.FilePath,
		})
		pending = append(pending, pendingFuture{f, "archive_extract_and_scan"})
	}

	if coarse[string(model.CoarseEmail)] {
		cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: wfid.Of("p3-email", in),
		})
		f := workflow.ExecuteChildWorkflow(cctx, parseemail.ExtractAndScan, parseemail.Input{
			Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.FilePath,
		})
		pending = append(pending, pendingFuture{f, "email_extract_and_scan"})
	}

	if coarse[string(model.CoarseText)] {
		f := workflow.ExecuteActivity(actx, (*parsetext.Activities).ExtractPlaintextChunks, parsetext.Input{
			Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.FilePath,
		})
		pending = append(pending, pendingFuture{f, "extract_plaintext_chunks"})
	}

	if coarse[string(model.CoarsePDF)] {
		cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: wfid.Of("p3-pdf", in),
		})
		f := workflow.ExecuteChildWorkflow(cctx, parsepdf.ProcessAndScan, parsepdf.Input{
			Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.FilePath, Size: in.Size,
		})
		pending = append(pending, pendingFuture{f, "pdf_process_and_scan"})
	}

	if coarse[string(model.CoarseImage)] {
		imgIn := parseimage.Input{Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.FilePath}
		f1 := workflow.ExecuteActivity(actx, (*parseimage.Activities).ParseMetadataAndStore, imgIn)
		pending = append(pending, pendingFuture{f1, "parse_image_metadata_and_store"})
		ocrctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: dispatchTimeout(in.Size),
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
			TaskQueue:           taskqueue.EasyOCR,
		})
		f2 := workflow.ExecuteActivity(ocrctx, (*parseimage.Activities).RunEasyOCRAndStore, imgIn)
		pending = append(pending, pendingFuture{f2, "run_easyocr_and_store"})
	}

	if coarse[string(model.CoarseAudio)] {
		f := workflow.ExecuteActivity(actx, (*parseaudio.Activities).ParseMetadataAndStore, parseaudio.Input{
			Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.FilePath,
		})
		pending = append(pending, pendingFuture{f, "parse_audio_metadata_and_store"})
	}

	if coarse[string(model.CoarseVideo)] {
		cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: wfid.Of("p3-video", in),
		})
		f := workflow.ExecuteChildWorkflow(cctx, parsevideo.ProcessAndScan, parsevideo.Input{
			Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.FilePath, Size: in.Size,
		})
		pending = append(pending, pendingFuture{f, "video_process_and_scan"})
	}

	for _, p := range pending {
		if err := p.future.Get(ctx, nil); err != nil {
			failures = append(failures, FailedTask{
				TaskName:  p.taskName,
				ErrorLogs: errjournal.FormatChain(err),
				RunTimeMS: workflow.Now(ctx).Sub(started).Milliseconds(),
			})
		}
	}
	if len(failures) == 0 {
		return nil
	}

	jctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	return workflow.ExecuteActivity(jctx, (*Activities).JournalFailures, JournalFailuresInput{
		Dataset:  in.Dataset,
		ItemHash: in.ItemHash,
		Failures: failures,
	}).Get(ctx, nil)
}
