package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benjp009/loyeo/internal/awsutil"
	"github.com/benjp009/loyeo/internal/config"
	"github.com/benjp009/loyeo/internal/httpserver"
	"github.com/benjp009/loyeo/internal/ledger/pg"
	"github.com/benjp009/loyeo/internal/logging"
	"github.com/benjp009/loyeo/internal/messaging"
	"github.com/benjp009/loyeo/internal/observability"
	"github.com/benjp009/loyeo/internal/providers/factory"
	sqsqueue "github.com/benjp009/loyeo/internal/queue/sqs"
	"github.com/benjp009/loyeo/internal/worker"
)

func main() {
	cfg := config.LoadWorker()
	logging.Init("worker", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{})
	if err != nil {
		slog.Error("worker db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	provider, err := factory.New(cfg.Messaging)
	if err != nil {
		slog.Error("worker messaging provider init failed", "err", err)
		os.Exit(1)
	}
	slog.Info("messaging provider ready", "provider", provider.Name())

	sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion, cfg.LocalstackEndpoint)
	if err != nil {
		slog.Error("worker sqs client init failed", "err", err)
		os.Exit(1)
	}

	observability.Register(prometheus.DefaultRegisterer)

	engine := &messaging.Engine{
		Provider:    provider,
		Ledger:      pg.New(db),
		ContentSIDs: factory.ContentSIDs(cfg.Messaging),
		HashSecret:  cfg.Messaging.PhoneHashSecret,
	}
	proc := &worker.Processor{Engine: engine}

	s := httpserver.New()
	s.Mux.Handle("/metrics", promhttp.Handler())
	s.Mux.HandleFunc("/healthz", httpserver.Healthz())
	s.Mux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second, func(ctx context.Context) error {
		return db.Ping(ctx)
	}))
	srv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: s.Mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("worker shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	consumer := &sqsqueue.Consumer{
		SQS:               sqsClient,
		QueueURL:          cfg.SQSQueueURL,
		WaitTimeSeconds:   cfg.SQSWaitTime,
		MaxMessages:       cfg.SQSMaxMsgs,
		VisibilityTimeout: cfg.SQSVizTimeout,
	}

	slog.Info("worker polling", "queue", cfg.SQSQueueURL, "concurrency", cfg.WorkerConcurrency)
	if err := consumer.PollConcurrent(ctx, cfg.WorkerConcurrency, proc.Process); err != nil &&
		!errors.Is(err, context.Canceled) {
		slog.Error("worker poll failed", "err", err)
		os.Exit(1)
	}
}
