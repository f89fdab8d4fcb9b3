// Package facade wires the CasaHub components into one process-scoped
// application handle with an explicit init/teardown lifecycle.
//
// All storage backends are opened exactly once, in Init, and every caller
// goes through the returned App. An App that has been closed (or never
// initialized) fails loudly with ErrNotReady instead of handing out a
// degraded or mocked backend; the caller decides what degraded behavior
// looks like.
package facade

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/casahub/casahub/internal/logger"
	"github.com/casahub/casahub/internal/uploadgate"
	"github.com/casahub/casahub/pkg/blob"
	"github.com/casahub/casahub/pkg/blob/registry"
	"github.com/casahub/casahub/pkg/blob/retrieve"
	"github.com/casahub/casahub/pkg/blob/upload"
	"github.com/casahub/casahub/pkg/catalog"
	"github.com/casahub/casahub/pkg/config"
	"github.com/casahub/casahub/pkg/gc"
	"github.com/casahub/casahub/pkg/metrics"
)

// ErrNotReady indicates the App has not been initialized or has been
// closed. Callers must treat it as an outage, not as an empty result.
var ErrNotReady = errors.New("application is not ready")

// App is the process-scoped application handle. It owns the storage
// backends and exposes the wired components.
//
// Thread safety: safe for concurrent use after Init returns. Init and
// Close must not race with each other.
type App struct {
	mu    sync.RWMutex
	ready bool

	cfg *config.Config

	chunks   blob.ChunkStore
	records  registry.RecordStore
	source   catalog.MutableSource
	registry *registry.Registry

	uploader   *upload.Pipeline
	streamer   *retrieve.Streamer
	engine     *catalog.Engine
	aggregator *catalog.Aggregator
	importer   *catalog.Importer
	collector  *gc.Collector
}

// Init creates and wires all components from configuration.
//
// Opens the configured chunk, record, and listing backends, builds the
// registry, pipelines, catalog components, and the sweeper (started here if
// enabled). On any failure, everything opened so far is closed and the
// error returned; no partially-initialized App is handed out.
func Init(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{cfg: cfg}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	var err error
	defer func() {
		if err != nil {
			app.closeStores()
		}
	}()

	app.chunks, err = config.CreateChunkStore(ctx, &cfg.Chunks)
	if err != nil {
		return nil, fmt.Errorf("chunk store: %w", err)
	}

	app.records, err = config.CreateRecordStore(ctx, &cfg.Records)
	if err != nil {
		return nil, fmt.Errorf("record store: %w", err)
	}

	app.source, err = config.CreateListingSource(ctx, &cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("listing source: %w", err)
	}

	app.registry = registry.New(app.chunks, app.records, registry.Config{
		ChunkSize: cfg.Upload.ChunkSize,
	})

	gate := uploadgate.New(cfg.Upload.MaxInFlight, cfg.Upload.StartsPerSecond)
	app.uploader = upload.New(app.registry, upload.Limits{
		MaxBytes:     cfg.Upload.MaxBytes,
		AllowedTypes: cfg.Upload.AllowedTypes,
	}, gate, metrics.NewUploadMetrics())

	app.streamer = retrieve.New(app.registry)

	catalogMetrics := metrics.NewCatalogMetrics()
	app.engine = catalog.NewEngine(app.source, catalogMetrics)
	app.aggregator = catalog.NewAggregator(app.source, catalogMetrics)
	app.importer = catalog.NewImporter(app.source, catalogMetrics)

	app.collector, err = gc.NewCollector(app.registry, app.chunks, gc.Config{
		Enabled:  cfg.GC.Enabled,
		Interval: cfg.GC.Interval,
		DraftTTL: cfg.GC.DraftTTL,
		DryRun:   cfg.GC.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("garbage collector: %w", err)
	}
	app.collector.Start()

	app.ready = true
	logger.Info("Application initialized: chunks=%s records=%s catalog=%s",
		cfg.Chunks.Type, cfg.Records.Type, cfg.Catalog.Type)

	return app, nil
}

// IsReady reports whether the App is initialized and not closed.
func (a *App) IsReady() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ready
}

// checkReady returns ErrNotReady if the App cannot serve.
func (a *App) checkReady() error {
	if !a.IsReady() {
		return ErrNotReady
	}
	return nil
}

// Uploader returns the upload pipeline, or ErrNotReady.
func (a *App) Uploader() (*upload.Pipeline, error) {
	if err := a.checkReady(); err != nil {
		return nil, err
	}
	return a.uploader, nil
}

// Streamer returns the retrieval streamer, or ErrNotReady.
func (a *App) Streamer() (*retrieve.Streamer, error) {
	if err := a.checkReady(); err != nil {
		return nil, err
	}
	return a.streamer, nil
}

// Registry returns the blob registry, or ErrNotReady.
func (a *App) Registry() (*registry.Registry, error) {
	if err := a.checkReady(); err != nil {
		return nil, err
	}
	return a.registry, nil
}

// Engine returns the catalog query engine, or ErrNotReady.
func (a *App) Engine() (*catalog.Engine, error) {
	if err := a.checkReady(); err != nil {
		return nil, err
	}
	return a.engine, nil
}

// Aggregator returns the catalog aggregator, or ErrNotReady.
func (a *App) Aggregator() (*catalog.Aggregator, error) {
	if err := a.checkReady(); err != nil {
		return nil, err
	}
	return a.aggregator, nil
}

// Importer returns the bulk importer, or ErrNotReady.
func (a *App) Importer() (*catalog.Importer, error) {
	if err := a.checkReady(); err != nil {
		return nil, err
	}
	return a.importer, nil
}

// Collector returns the garbage collector, or ErrNotReady.
func (a *App) Collector() (*gc.Collector, error) {
	if err := a.checkReady(); err != nil {
		return nil, err
	}
	return a.collector, nil
}

// Config returns the configuration the App was initialized with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close tears the App down: stops the sweeper and closes every backend.
// After Close every accessor returns ErrNotReady. Safe to call more than
// once.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.ready {
		a.mu.Unlock()
		return nil
	}
	a.ready = false
	a.mu.Unlock()

	var errs []error

	if a.collector != nil {
		if err := a.collector.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop collector: %w", err))
		}
	}

	errs = append(errs, a.closeStores()...)

	logger.Info("Application closed")
	return errors.Join(errs...)
}

// closeStores closes the storage backends that have been opened, in
// reverse dependency order.
func (a *App) closeStores() []error {
	var errs []error

	if a.source != nil {
		if err := a.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close listing source: %w", err))
		}
		a.source = nil
	}
	if a.records != nil {
		if err := a.records.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close record store: %w", err))
		}
		a.records = nil
	}
	if a.chunks != nil {
		if err := a.chunks.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chunk store: %w", err))
		}
		a.chunks = nil
	}

	return errs
}
