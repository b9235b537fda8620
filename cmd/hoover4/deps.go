package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/blobstore"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/config"
	"github.com/liquidinvestigations/hoover4/pkg/errjournal"
	"github.com/liquidinvestigations/hoover4/pkg/manticore"
	"github.com/liquidinvestigations/hoover4/pkg/nerclient"
	"github.com/liquidinvestigations/hoover4/pkg/ocrclient"
	"github.com/liquidinvestigations/hoover4/pkg/s3object"
	"github.com/liquidinvestigations/hoover4/pkg/typeregistry"
	"github.com/liquidinvestigations/hoover4/workflow/p3parse/parsetika"
)

// deps bundles every durable-store and sidecar client a worker process or
// CLI command might need, constructed once from the resolved Storage
// config and torn down together on exit.
type deps struct {
	cfg       config.Storage
	ch        *chstore.Store
	s3        *s3object.Store
	blobs     *blobstore.Store
	manticore *manticore.Store
	ner       *nerclient.Client
	ocr       *ocrclient.Client
	tika      *parsetika.Activities
	registry  *typeregistry.Registry
	journal   *errjournal.Journal
	log       *zap.Logger
}

func newDeps(cfgPath string) (*deps, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("hoover4: building logger: %w", err)
	}

	ch, err := chstore.Open(cfg.ClickHouseDSN)
	if err != nil {
		return nil, err
	}

	s3, err := s3object.Open(cfg.S3)
	if err != nil {
		return nil, err
	}

	blobs := &blobstore.Store{CH: ch, S3: s3, SmallBlobThreshold: cfg.SmallBlobThreshold}

	mc, err := manticore.Open(cfg.ManticoreDSN)
	if err != nil {
		return nil, err
	}

	journal := &errjournal.Journal{CH: ch, Log: log}

	registry := &typeregistry.Registry{
		CH: ch,
		// Tika is deliberately excluded here: its contribution to the
		// coarse-type consensus comes from parsetika.RunTikaAndStore's own
		// independent activity call, not from this lightweight /meta-only
		// detector.
		Detectors: []typeregistry.Detector{
			typeregistry.FileMagic{},
			typeregistry.Magika{},
		},
	}

	tika := &parsetika.Activities{CH: ch, BaseURL: cfg.TikaSidecarURL, HTTP: http.DefaultClient}

	return &deps{
		cfg:       cfg,
		ch:        ch,
		s3:        s3,
		blobs:     blobs,
		manticore: mc,
		ner:       &nerclient.Client{BaseURL: cfg.NERSidecarURL},
		ocr:       &ocrclient.Client{BaseURL: cfg.OCRSidecarURL},
		tika:      tika,
		registry:  registry,
		journal:   journal,
		log:       log,
	}, nil
}

func (d *deps) Close() {
	d.manticore.Close()
	d.ch.Close()
	_ = d.log.Sync()
}
