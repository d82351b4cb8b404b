package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	logrus "github.com/sirupsen/logrus"

	"github.com/zoff-tech/go-crosspost/pkg/config"
	"github.com/zoff-tech/go-crosspost/pkg/platform"
	"github.com/zoff-tech/go-crosspost/pkg/queue"
	"github.com/zoff-tech/go-crosspost/pkg/store"
	"github.com/zoff-tech/go-crosspost/pkg/telemetry"
	"github.com/zoff-tech/go-crosspost/pkg/webhook"
	"github.com/zoff-tech/go-crosspost/pkg/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration from file or environment
	cfg, err := config.LoadFromFile("./cmd/crosspost-worker")
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}
	cfg.Worker = cfg.Worker.WithDefaults()
	cfg.Webhook = cfg.Webhook.WithDefaults()

	// Initialize telemetry (tracing and metrics)
	shutdownTelemetry, err := telemetry.Init(cfg.Observability)
	if err != nil {
		log.Fatal("Failed to initialize telemetry: ", err)
	}
	defer shutdownTelemetry() // Ensure telemetry is properly shut down on exit

	// Initialize the outcome store
	repo, err := store.NewRepository(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize repository: ", err)
	}

	// Initialize the job queue
	jobs, err := queue.NewQueue(ctx, &cfg.Queue)
	if err != nil {
		log.Fatal("Failed to initialize job queue: ", err)
	}
	defer jobs.Close()

	registry := platform.NewRegistry(cfg.Platforms)
	creds := platform.EnvCredentialSource{}
	producer := queue.NewProducer(jobs, cfg.Worker)

	publisher := worker.NewPublishWorker(repo, registry, creds)
	publisher.ScheduleMetrics(producer, cfg.Worker.MetricsDelay)
	collector := worker.NewMetricsWorker(repo, registry, creds)

	consume := queue.ConsumeOptions{
		Concurrency: cfg.Worker.Concurrency,
		JobTimeout:  cfg.Worker.JobTimeout,
	}
	if err := jobs.Consume(ctx, queue.JobPublishPosts, publisher.Handle, consume); err != nil {
		log.Fatal("Failed to start publish consumer: ", err)
	}
	if err := jobs.Consume(ctx, queue.JobCollectMetrics, collector.Handle, consume); err != nil {
		log.Fatal("Failed to start metrics consumer: ", err)
	}

	supervisor := worker.NewSupervisor(jobs, publisher)
	go supervisor.Run(ctx)

	// Inbound callback boundary
	verifier := webhook.NewVerifier(cfg.Platforms)
	limiter := webhook.NewRateLimiter(cfg.Webhook)
	defer limiter.Close()

	handler := webhook.NewHandler(verifier, limiter, webhook.SinkFunc(
		func(ctx context.Context, kind platform.Kind, body []byte) error {
			logrus.WithFields(logrus.Fields{
				"platform": kind,
				"bytes":    len(body),
			}).Info("Received platform callback")
			return nil
		}))

	server := &http.Server{
		Addr:    cfg.Webhook.ListenAddr,
		Handler: handler.Router(),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Webhook server failed: ", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Print("Webhook server shutdown error: ", err)
	}
}
