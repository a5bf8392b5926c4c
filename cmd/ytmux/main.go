package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vm-affekt/ytmux/internal/config"
	"github.com/vm-affekt/ytmux/internal/downloader"
	"github.com/vm-affekt/ytmux/internal/httpapi"
	"github.com/vm-affekt/ytmux/internal/logging"
	"github.com/vm-affekt/ytmux/internal/muxer"
	"github.com/vm-affekt/ytmux/internal/pipeline"
	"github.com/vm-affekt/ytmux/internal/storage"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("ERROR! %v\n", err)
		os.Exit(1)
	}

	var outputPaths []string
	if cfg.LogFilePath != "" {
		outputPaths = append(outputPaths, cfg.LogFilePath)
	} else {
		fmt.Println("[WARN] No LOG_FILE_PATH specified! Using 'stderr' only.")
	}
	logger, err := logging.Build(!cfg.Debug(), outputPaths...)
	if err != nil {
		panic(err)
	}
	logging.SetLogger(logger)
	log := logger.Sugar()
	defer log.Sync()

	log.Infof("[YTMUX] Application is running. Environment mode=%q", cfg.Mode)
	if cfg.ConfigFileUsed != "" {
		log.Infof("Used config file path: %v", cfg.ConfigFileUsed)
	} else {
		log.Info("No config file found. Environment variables are used as config.")
	}
	if cfg.PipelineTimeout == 0 {
		log.Warn("PIPELINE_TIMEOUT is zero! Downloads are not time limited.")
	}

	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	dir, err := storage.Open(cfg.OutputDir)
	if err != nil {
		log.Fatalf("Failed to open output directory: %v", err)
	}
	log.Infof("Output directory: %s", dir.Root())

	downloadService := downloader.New(dir, cfg.Debug())
	downloadService.SetProgressInterval(cfg.ProgressLogInterval)

	pool := pipeline.NewPool(cfg.Workers, cfg.QueueSize)
	orchestrator := pipeline.New(dir, downloadService, downloadService, muxer.New(dir, cfg.FFmpegPath), pool, cfg.PipelineTimeout)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	baseURL := httpapi.ResolveBaseURL(cfg.PublicBaseURL, cfg.ListenAddr)
	api := httpapi.New(orchestrator, httpapi.Options{
		APIKey:    cfg.APIKey,
		BaseURL:   baseURL,
		OutputDir: dir.Root(),
		Limiter:   limiter,
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.Router(),
	}
	log.Infof("Listening on %s. Files are served from %s/videos", cfg.ListenAddr, baseURL)

	sigInt := make(chan os.Signal, 1)
	signal.Notify(sigInt, os.Interrupt, syscall.SIGTERM)
	exitCode := 0
	if err := serve(srv, sigInt); err != nil {
		log.Errorf("Http server failed: %v", err)
		exitCode = 1
	}
	pool.Close()
	log.Info("Shutdown work is over. Bye :-)")
	if exitCode != 0 {
		_ = log.Sync()
		os.Exit(exitCode)
	}
}

// serve runs srv until a signal arrives or the listener fails, then shuts it down.
func serve(srv *http.Server, sig <-chan os.Signal) error {
	log := logging.L().Sugar()
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	var err error
	select {
	case shutSig := <-sig:
		log.Infof("Signal received: %v. Shutdown server...", shutSig)
	case err = <-srvErr:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutErr := srv.Shutdown(ctx); shutErr != nil {
		log.Errorf("Failed to shutdown http server: %v", shutErr)
	}
	return err
}
