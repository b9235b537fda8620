package main

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/taskqueue"
	"github.com/liquidinvestigations/hoover4/pkg/vfscatalog"
	"github.com/liquidinvestigations/hoover4/workflow/p0scan"
	"github.com/liquidinvestigations/hoover4/workflow/p1plan"
	"github.com/liquidinvestigations/hoover4/workflow/p2execute"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parseaudio"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parsearchive"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parseemail"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parseimage"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parsepdf"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parsetext"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parsevideo"
	"github.com/liquidinvestigations/hoover4/workflow/p4index"
)

// registerCommon wires every workflow and every activity struct except
// the Tika one onto the shared worker, matching run_worker.py's
// run_common_worker(). The parseimage and p4index structs are registered
// whole, so RunEasyOCRAndStore and IndexTextContent are registered here
// too; P3 and P4 route those two to their own queues, so the shared
// worker never receives them.
func registerCommon(w worker.Worker, d *deps) {
	w.RegisterWorkflow(p0scan.ScanDirectory)
	w.RegisterWorkflow(p1plan.ComputeDatasetPlans)
	w.RegisterWorkflow(p2execute.ExecutePlans)
	w.RegisterWorkflow(p2execute.ExecuteSinglePlan)
	w.RegisterWorkflow(p3parse.ParseSingleFile)
	w.RegisterWorkflow(parsearchive.ExtractAndScan)
	w.RegisterWorkflow(parseemail.ExtractAndScan)
	w.RegisterWorkflow(parsepdf.ProcessAndScan)
	w.RegisterWorkflow(parsevideo.ProcessAndScan)
	w.RegisterWorkflow(p4index.IndexDatasetPlan)

	scanActivities := &p0scan.Activities{Blobs: d.blobs, VFS: &vfscatalog.Catalog{CH: d.ch}, Journal: d.journal, Log: d.log}
	w.RegisterActivity(scanActivities)

	planActivities := &p1plan.Activities{CH: d.ch, Log: d.log}
	w.RegisterActivity(planActivities)

	execActivities := &p2execute.Activities{CH: d.ch, Blobs: d.blobs, Log: d.log}
	w.RegisterActivity(execActivities)

	parseActivities := &p3parse.Activities{CH: d.ch, Registry: d.registry, Journal: d.journal, Log: d.log}
	w.RegisterActivity(parseActivities)

	w.RegisterActivity(&parsearchive.Activities{CH: d.ch, Log: d.log})
	w.RegisterActivity(&parseemail.Activities{CH: d.ch, Log: d.log})
	w.RegisterActivity(&parsetext.Activities{CH: d.ch})
	w.RegisterActivity(&parsepdf.Activities{CH: d.ch, Blobs: d.blobs, Log: d.log})
	w.RegisterActivity(&parseimage.Activities{CH: d.ch, OCR: d.ocr})
	w.RegisterActivity(&parseaudio.Activities{CH: d.ch})
	w.RegisterActivity(&parsevideo.Activities{CH: d.ch, Log: d.log})

	indexActivities := &p4index.Activities{CH: d.ch, Manticore: d.manticore, NER: d.ner, Log: d.log}
	w.RegisterActivity(indexActivities)
}

// registerTika wires only the Tika/Extractous extraction activity, which
// run_worker.py keeps on its own worker so a slow sidecar request never
// starves the common queue's detectors and leaf actions.
func registerTika(w worker.Worker, d *deps) {
	w.RegisterActivity(d.tika)
}

// registerEasyOCR wires the parseimage activity struct; only
// RunEasyOCRAndStore is routed to this queue, pinned like Tika.
func registerEasyOCR(w worker.Worker, d *deps) {
	w.RegisterActivity(&parseimage.Activities{CH: d.ch, OCR: d.ocr})
}

// registerIndexing wires the p4index activity struct; only
// IndexTextContent, the sole activity the original keeps on a
// single-concurrency worker of its own, is routed to this queue.
func registerIndexing(w worker.Worker, d *deps) {
	w.RegisterActivity(&p4index.Activities{CH: d.ch, Manticore: d.manticore, NER: d.ner, Log: d.log})
}

// queueSpec names one worker process's task queue, concurrency, and
// activity/workflow registration, mirroring run_worker.py's four
// run_*_worker() functions.
type queueSpec struct {
	Queue       string
	Concurrency int
	Register    func(worker.Worker, *deps)
}

func queueSpecFor(kind string) (queueSpec, error) {
	switch kind {
	case "common":
		return queueSpec{taskqueue.Common, taskqueue.CommonConcurrency, registerCommon}, nil
	case "tika":
		return queueSpec{taskqueue.Tika, taskqueue.TikaConcurrency, registerTika}, nil
	case "easyocr":
		return queueSpec{taskqueue.EasyOCR, taskqueue.EasyOCRConcurrency, registerEasyOCR}, nil
	case "indexing":
		return queueSpec{taskqueue.Indexing, taskqueue.IndexingConcurrency, registerIndexing}, nil
	default:
		return queueSpec{}, fmt.Errorf("hoover4: unknown worker type %q (want common, tika, easyocr, or indexing)", kind)
	}
}

// runWorker blocks serving one task queue until ctx is done or a fatal
// worker error occurs.
func runWorker(temporalClient client.Client, spec queueSpec, d *deps) error {
	w := worker.New(temporalClient, spec.Queue, worker.Options{
		MaxConcurrentActivityExecutionSize: spec.Concurrency,
	})
	spec.Register(w, d)
	d.log.Info("hoover4: starting worker", zap.String("queue", spec.Queue), zap.Int("concurrency", spec.Concurrency))
	return w.Run(worker.InterruptCh())
}
