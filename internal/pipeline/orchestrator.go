// Package pipeline sequences one download request through fetch, mux and cleanup, running each
// request on a worker pool.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/vm-affekt/ytmux/internal/app"
	"github.com/vm-affekt/ytmux/internal/logging"
	"github.com/vm-affekt/ytmux/internal/storage"
)

type Stage int

const (
	StageStart = Stage(iota)
	StageCatalogQueried
	StageFetched
	StageMuxed
	StageCleanedUp
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageCatalogQueried:
		return "catalog_queried"
	case StageFetched:
		return "fetched"
	case StageMuxed:
		return "muxed"
	case StageCleanedUp:
		return "cleaned_up"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

type Orchestrator struct {
	dir     *storage.Dir
	catalog app.Catalog
	fetcher app.Fetcher
	muxer   app.Muxer
	pool    *Pool

	// timeout bounds one run; zero means no limit
	timeout time.Duration
	now     func() time.Time
}

func New(dir *storage.Dir, catalog app.Catalog, fetcher app.Fetcher, muxer app.Muxer, pool *Pool, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		dir:     dir,
		catalog: catalog,
		fetcher: fetcher,
		muxer:   muxer,
		pool:    pool,
		timeout: timeout,
		now:     time.Now,
	}
}

// Info lists the quality options of sourceURL.
func (o *Orchestrator) Info(ctx context.Context, sourceURL string) ([]app.StreamDescriptor, error) {
	if sourceURL == "" {
		return nil, app.NewError(app.KindSourceUnavailable, "No URL provided")
	}
	options, err := o.catalog.ListQualityOptions(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	logging.FromContextS(ctx).Infow("Pipeline stage reached", "stage", StageCatalogQueried, "options", len(options))
	return options, nil
}

// Download runs the pipeline for req on the worker pool and waits for it. If ctx ends first
// the caller gets ctx.Err() while the run itself goes on to completion.
func (o *Orchestrator) Download(ctx context.Context, req app.DownloadRequest) (app.DownloadResult, error) {
	if req.SourceURL == "" {
		return app.DownloadResult{}, app.NewError(app.KindSourceUnavailable, "No URL provided")
	}

	type outcome struct {
		result app.DownloadResult
		err    error
	}
	done := make(chan outcome, 1)

	err := o.pool.Submit(ctx, func(runCtx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.FromContextS(runCtx).With("recovered_obj", r).Error("!!! A PANIC occurred while running pipeline !!!")
				done <- outcome{err: app.NewError(app.KindUnknown, "Internal error while processing download").WithCause(fmt.Errorf("panic: %v", r))}
			}
		}()
		var cancel context.CancelFunc
		if o.timeout > 0 {
			runCtx, cancel = context.WithTimeout(runCtx, o.timeout)
		} else {
			runCtx, cancel = context.WithCancel(runCtx)
		}
		defer cancel()
		res, err := o.run(runCtx, req)
		done <- outcome{result: res, err: err}
	})
	if err != nil {
		return app.DownloadResult{}, fmt.Errorf("failed to schedule pipeline: %w", err)
	}

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		logging.FromContextS(ctx).Warn("Caller stopped waiting. Pipeline keeps running in background.")
		return app.DownloadResult{}, ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context, req app.DownloadRequest) (app.DownloadResult, error) {
	log := logging.FromContextS(ctx)
	startT := time.Now()
	defer func() {
		log.Infof("Elapsed time of pipeline for %q is %v", req.SourceURL, time.Since(startT).String())
	}()
	log.Infow("Pipeline stage reached", "stage", StageStart)

	fetched, err := o.fetcher.Fetch(ctx, req, storage.NewStamp(o.now()))
	if err != nil {
		return app.DownloadResult{}, fmt.Errorf("failed to fetch streams: %w", err)
	}
	log.Infow("Pipeline stage reached", "stage", StageFetched, "video", filepath.Base(fetched.VideoPath), "audio", filepath.Base(fetched.AudioPath))

	if req.AudioOnly {
		return o.result(fetched.AudioPath, true)
	}

	muxed, err := o.muxer.Mux(ctx, fetched.VideoPath, fetched.AudioPath, fetched.Title)
	if err != nil {
		log.Warn("Mux failed. Removing downloaded streams.")
		o.dir.Cleanup(ctx, fetched.Paths()...)
		return app.DownloadResult{}, fmt.Errorf("failed to mux streams: %w", err)
	}
	log.Infow("Pipeline stage reached", "stage", StageMuxed, "output", filepath.Base(muxed))

	o.dir.Cleanup(ctx, fetched.Paths()...)
	log.Infow("Pipeline stage reached", "stage", StageCleanedUp)

	return o.result(muxed, false)
}

func (o *Orchestrator) result(path string, audioOnly bool) (app.DownloadResult, error) {
	name, err := o.dir.Rel(path)
	if err != nil {
		return app.DownloadResult{}, err
	}
	return app.DownloadResult{
		Path:      path,
		Name:      name,
		AudioOnly: audioOnly,
	}, nil
}
