// Package main wires together the outreach service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcps "cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tcavaliere/coldreach/internal/api"
	"github.com/tcavaliere/coldreach/internal/archive"
	"github.com/tcavaliere/coldreach/internal/clock/system"
	"github.com/tcavaliere/coldreach/internal/config"
	"github.com/tcavaliere/coldreach/internal/contact"
	"github.com/tcavaliere/coldreach/internal/dispatcher"
	collyfetcher "github.com/tcavaliere/coldreach/internal/fetcher/colly"
	"github.com/tcavaliere/coldreach/internal/generator"
	"github.com/tcavaliere/coldreach/internal/hash/sha256"
	"github.com/tcavaliere/coldreach/internal/id/uuid"
	"github.com/tcavaliere/coldreach/internal/logging"
	"github.com/tcavaliere/coldreach/internal/orchestrator"
	"github.com/tcavaliere/coldreach/internal/outreach"
	"github.com/tcavaliere/coldreach/internal/profiler"
	"github.com/tcavaliere/coldreach/internal/progress"
	"github.com/tcavaliere/coldreach/internal/progress/sinks"
	memorypublisher "github.com/tcavaliere/coldreach/internal/publisher/memory"
	gcppublisher "github.com/tcavaliere/coldreach/internal/publisher/pubsub"
	queueMemory "github.com/tcavaliere/coldreach/internal/queue/memory"
	"github.com/tcavaliere/coldreach/internal/storage/gcs"
	"github.com/tcavaliere/coldreach/internal/storage/local"
	memoryStorage "github.com/tcavaliere/coldreach/internal/storage/memory"
	"github.com/tcavaliere/coldreach/internal/storage/postgres"
	"github.com/tcavaliere/coldreach/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()
	hasher := sha256.New()
	registry := prometheus.NewRegistry()

	jobStore := memoryStorage.NewJobStore(clock)
	queue := queueMemory.NewQueue(cfg.Pipeline.QueueDepth)

	var senders outreach.SenderStore
	var drafts outreach.DraftStore
	if cfg.DB.DSN != "" {
		senderStore, err := postgres.NewSenderStore(ctx, postgres.SenderStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.SenderTable,
			MaxConns: int32(cfg.DB.MaxOpenConns),
		})
		if err != nil {
			logger.Fatal("sender store init failed", zap.Error(err))
		}
		defer senderStore.Close()
		draftStore, err := postgres.NewDraftStore(ctx, postgres.DraftStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.DraftTable,
			MaxConns: int32(cfg.DB.MaxOpenConns),
		})
		if err != nil {
			logger.Fatal("draft store init failed", zap.Error(err))
		}
		defer draftStore.Close()
		senders = senderStore
		drafts = draftStore
	} else {
		logger.Info("db.dsn not set, using in-memory entity stores")
		senders = memoryStorage.NewSenderStore()
		drafts = memoryStorage.NewDraftStore()
	}

	var blobs outreach.BlobStore
	switch cfg.Storage.Provider {
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.Storage.BaseDir})
		if err != nil {
			logger.Fatal("local blob store init failed", zap.Error(err))
		}
		blobs = store
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("gcs client init failed", zap.Error(err))
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			logger.Fatal("gcs blob store init failed", zap.Error(err))
		}
		blobs = store
	}

	var publisher outreach.Publisher
	if cfg.PubSub.ProjectID != "" {
		client, err := gcps.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("pubsub client init failed", zap.Error(err))
		}
		publisher = gcppublisher.New(client.Topic(cfg.PubSub.TopicName))
	} else {
		logger.Info("pubsub.project_id not set, using in-memory publisher")
		publisher = memorypublisher.New()
	}

	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		logger.Fatal("prometheus sink init failed", zap.Error(err))
	}
	hub := progress.NewHub(
		progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("events")),
		promSink,
	)

	baseFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	})

	textGen, err := generator.NewOpenAI(generator.OpenAIConfig{
		APIKey:      cfg.Generator.APIKey,
		Model:       cfg.Generator.Model,
		Timeout:     cfg.GeneratorTimeout(),
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
	})
	if err != nil {
		logger.Fatal("text generator init failed", zap.Error(err))
	}

	workers := make([]dispatcher.Worker, 0, cfg.Pipeline.Workers)
	for i := 0; i < cfg.Pipeline.Workers; i++ {
		var fetch outreach.Fetcher = baseFetcher
		var scoper worker.JobScoper
		if blobs != nil {
			arch := archive.New(baseFetcher, blobs, hasher, archive.Config{
				Prefix:      cfg.Storage.Prefix,
				ContentType: cfg.Storage.ContentType,
			}, logger.Named("archive"))
			fetch = arch
			scoper = arch
		}
		prof := profiler.New(fetch, cfg.Pipeline.MaxAuxiliaryURLs, logger.Named("profiler"))
		contacts := contact.New(fetch, logger.Named("contact"))
		composer := generator.New(textGen, logger.Named("generator"))
		orch := orchestrator.New(jobStore, prof, contacts, composer, logger.Named("orchestrator"))
		workers = append(workers, worker.New(
			i,
			queue,
			jobStore,
			orch,
			drafts,
			publisher,
			hub,
			scoper,
			clock,
			worker.Config{Topic: cfg.PubSub.TopicName},
			logger.Named("worker"),
		))
	}

	dispatch := dispatcher.New(queue, jobStore, workers, clock, dispatcher.Config{
		SweepInterval: cfg.SweepInterval(),
		RetentionTTL:  cfg.RetentionTTL(),
	}, logger.Named("dispatcher"))

	apiServer := api.NewServer(jobStore, senders, dispatch, idGen, clock, registry, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	dispatchDone := make(chan struct{})
	go func() {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Pipeline.Workers))
		dispatch.Run(ctx)
		close(dispatchDone)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	<-dispatchDone
	queue.Close()
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Error("progress hub close error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
