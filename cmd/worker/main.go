package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/therealutkarshpriyadarshi/autotag/internal/cache"
	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/internal/database"
	"github.com/therealutkarshpriyadarshi/autotag/internal/detector"
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/internal/media"
	"github.com/therealutkarshpriyadarshi/autotag/internal/metrics"
	"github.com/therealutkarshpriyadarshi/autotag/internal/monitoring"
	"github.com/therealutkarshpriyadarshi/autotag/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/autotag/internal/queue"
	"github.com/therealutkarshpriyadarshi/autotag/internal/storage"
	"github.com/therealutkarshpriyadarshi/autotag/internal/tracing"
	"github.com/therealutkarshpriyadarshi/autotag/internal/webhook"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	closer, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize tracing")
	}
	defer closer.Close()

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}
	repo := database.NewRepository(db)

	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}

	q, err := queue.New(cfg.Queue, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to queue")
	}
	defer q.Close()

	det, err := detector.NewDarknet(cfg.Darknet)
	if err != nil {
		logger.WithError(err).Fatal("Failed to configure darknet")
	}

	svc := pipeline.NewService(cfg.Pipeline, media.NewFFmpeg(cfg.Pipeline.FFmpegPath, cfg.Pipeline.FFprobePath), det, logger)

	if cfg.Redis.Enabled {
		c, err := cache.NewCache(cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer c.Close()
		svc = svc.WithJobBackend(stor, repo, c)
	} else {
		svc = svc.WithJobBackend(stor, repo, nil)
	}

	if cfg.Webhook.URL != "" {
		svc = svc.WithNotifier(webhook.NewNotifier(cfg.Webhook, logger))
	}

	logger = logger.WithWorkerID(svc.WorkerID())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, logger, db.Health)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	go monitoring.NewMonitor(q, repo, logger).Run(ctx, 15*time.Second)

	if err := q.ConsumeJobs(ctx, svc.ProcessJob); err != nil {
		logger.WithError(err).Fatal("Failed to start consuming jobs")
	}

	logger.Info("Worker started, waiting for jobs")
	<-ctx.Done()
	logger.Info("Shutting down worker")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to stop metrics server")
		}
	}

	logger.Info("Worker stopped")
}
