package main

import (
	"context"
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
)

func main() {
	cfg := config.LoadAPI()
	logging.Init("api", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{})
	if err != nil {
		slog.Error("api db connect failed", "err", err)
		os.Exit(1)
	}

	provider, err := factory.New(cfg.Messaging)
	if err != nil {
		slog.Error("api messaging provider init failed", "err", err)
		os.Exit(1)
	}
	slog.Info("messaging provider ready", "provider", provider.Name())

	sqsClient, err := awsutil.NewSQSClient(ctx, cfg.AWSRegion, cfg.LocalstackEndpoint)
	if err != nil {
		slog.Error("api sqs client init failed", "err", err)
		os.Exit(1)
	}

	observability.Register(prometheus.DefaultRegisterer)

	store := pg.New(db)
	engine := &messaging.Engine{
		Provider:    provider,
		Ledger:      store,
		ContentSIDs: factory.ContentSIDs(cfg.Messaging),
		HashSecret:  cfg.Messaging.PhoneHashSecret,
	}

	s := httpserver.New()
	api := &httpserver.API{
		Engine: engine,
		Queue:  &sqsqueue.Producer{SQS: sqsClient, QueueURL: cfg.SQSQueueURL},
		Events: store,
	}
	api.Register(s.Mux)

	s.Mux.HandleFunc("/healthz", httpserver.Healthz())
	s.Mux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second, func(ctx context.Context) error {
		return db.Ping(ctx)
	}))

	handler := httpserver.Logging(
		httpserver.CORS(cfg.AllowedOrigin)(
			httpserver.Metrics(observability.APIRequests)(s.Mux)))
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api metrics server failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("api shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	slog.Info("api listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("api server failed", "err", err)
		os.Exit(1)
	}

	db.Close()
}
