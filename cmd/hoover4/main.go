// Command hoover4 is the processing pipeline's single entry point: schema
// migration, dataset ingestion, and the worker processes that drive the
// P0-P4 workflow pipeline, mirroring the original services' Click-based
// CLI group.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/urfave/cli/v2"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/taskqueue"
	"github.com/liquidinvestigations/hoover4/workflow/p0scan"
	"github.com/liquidinvestigations/hoover4/workflow/p1plan"
	"github.com/liquidinvestigations/hoover4/workflow/p2execute"
)

func main() {
	app := &cli.App{
		Name:  "hoover4",
		Usage: "forensic content ingestion and indexing pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the JSON config file",
				Value:   "/etc/hoover4/config.json",
				EnvVars: []string{"HOOVER4_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			migrateCommand,
			addDiskDatasetCommand,
			workerCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "hoover4:", err)
		os.Exit(1)
	}
}

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "create every table/bucket/index the pipeline owns, idempotently",
	Action: func(c *cli.Context) error {
		d, err := newDeps(c.String("config"))
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := context.Background()
		if err := d.ch.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating columnar store: %w", err)
		}
		if err := d.s3.EnsureBucket(); err != nil {
			return fmt.Errorf("ensuring object-store bucket: %w", err)
		}
		if err := d.manticore.Migrate(); err != nil {
			return fmt.Errorf("migrating search engine: %w", err)
		}
		d.log.Info("hoover4: migrations complete")
		return nil
	},
}

var datasetSlugPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

var addDiskDatasetCommand = &cli.Command{
	Name:      "add_disk_dataset",
	Usage:     "create a dataset row and start its ingestion, planning, and execution workflows",
	ArgsUsage: "<name> <path>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return cli.Exit("usage: hoover4 add_disk_dataset <name> <path>", 1)
		}
		name := c.Args().Get(0)
		rawPath := c.Args().Get(1)

		if !datasetSlugPattern.MatchString(name) {
			return cli.Exit(fmt.Sprintf("dataset name %q must match [a-z0-9_]+", name), 1)
		}
		absPath, err := filepath.Abs(rawPath)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		info, err := os.Stat(absPath)
		if err != nil || !info.IsDir() {
			return cli.Exit(fmt.Sprintf("path does not exist or is not a directory: %s", absPath), 1)
		}

		d, err := newDeps(c.String("config"))
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := context.Background()
		if _, exists, err := d.ch.DatasetByName(ctx, name); err != nil {
			return err
		} else if exists {
			return cli.Exit(fmt.Sprintf("dataset %q already exists", name), 1)
		}
		if err := d.ch.InsertDataset(ctx, model.Dataset{Name: name, Path: absPath, CreatedAt: time.Now().UTC()}); err != nil {
			return fmt.Errorf("creating dataset row: %w", err)
		}
		d.log.Info("hoover4: dataset row created", zap.String("dataset", name), zap.String("path", absPath))

		temporalClient, err := client.Dial(client.Options{HostPort: d.cfg.TemporalAddress})
		if err != nil {
			return fmt.Errorf("connecting to temporal: %w", err)
		}
		defer temporalClient.Close()

		if err := runAndWait(ctx, temporalClient, fmt.Sprintf("ingest-disk-%s", name),
			enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
			p0scan.ScanDirectory, p0scan.Input{
				Dataset:     name,
				DatasetPath: absPath,
				FolderPaths: []string{""},
			}); err != nil {
			return fmt.Errorf("scanning disk dataset: %w", err)
		}

		if err := runAndWait(ctx, temporalClient, fmt.Sprintf("compute-plans-%s", name),
			enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
			p1plan.ComputeDatasetPlans, p1plan.Input{Dataset: name}); err != nil {
			return fmt.Errorf("computing plans: %w", err)
		}

		if err := runAndWait(ctx, temporalClient, fmt.Sprintf("execute-plans-%s", name),
			enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
			p2execute.ExecutePlans, p2execute.Input{Dataset: name}); err != nil {
			return fmt.Errorf("executing plans: %w", err)
		}

		d.log.Info("hoover4: dataset ingestion finished", zap.String("dataset", name))
		return nil
	},
}

// runAndWait starts workflowFn on the common queue under id and blocks
// until it completes, matching the original CLI's synchronous
// scan-then-plan-then-execute orchestration.
func runAndWait(ctx context.Context, c client.Client, id string, reusePolicy enumspb.WorkflowIdReusePolicy, workflowFn, arg any) error {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                    id,
		TaskQueue:             taskqueue.Common,
		WorkflowIDReusePolicy: reusePolicy,
	}, workflowFn, arg)
	if err != nil {
		return err
	}
	return run.Get(ctx, nil)
}

var workerCommand = &cli.Command{
	Name:      "worker",
	Usage:     "run a single worker process, or spawn+supervise the full fleet if no type is given",
	ArgsUsage: "[common|tika|easyocr|indexing]",
	Action: func(c *cli.Context) error {
		if c.Args().Len() > 1 {
			return cli.Exit("usage: hoover4 worker [common|tika|easyocr|indexing]", 1)
		}
		cfgPath := c.String("config")
		if kind := c.Args().First(); kind != "" {
			return runSingleWorker(cfgPath, kind)
		}
		return superviseFleet(cfgPath)
	},
}

func runSingleWorker(cfgPath, kind string) error {
	spec, err := queueSpecFor(kind)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	d, err := newDeps(cfgPath)
	if err != nil {
		return err
	}
	defer d.Close()

	temporalClient, err := client.Dial(client.Options{HostPort: d.cfg.TemporalAddress})
	if err != nil {
		return fmt.Errorf("connecting to temporal: %w", err)
	}
	defer temporalClient.Close()

	return runWorker(temporalClient, spec, d)
}
