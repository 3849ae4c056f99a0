package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/benjp009/loyeo/internal/cache"
	"github.com/benjp009/loyeo/internal/config"
	"github.com/benjp009/loyeo/internal/httpserver"
	"github.com/benjp009/loyeo/internal/ledger/pg"
	"github.com/benjp009/loyeo/internal/logging"
	"github.com/benjp009/loyeo/internal/messaging"
	"github.com/benjp009/loyeo/internal/observability"
	"github.com/benjp009/loyeo/internal/providers/twilio"
)

// twilioWebhookOps exposes only the webhook half of the provider contract;
// the receiver needs no carrier credentials beyond the auth token.
type twilioWebhookOps struct {
	authToken string
}

func (t twilioWebhookOps) ParseDeliveryWebhook(form url.Values) *messaging.DeliveryStatusWebhook {
	return twilio.ParseDeliveryWebhook(form)
}

func (t twilioWebhookOps) VerifyWebhookSignature(signature, fullURL string, form url.Values) bool {
	return twilio.VerifySignature(t.authToken, fullURL, signature, form)
}

func main() {
	cfg := config.LoadWebhook()
	logging.Init("webhook", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{})
	if err != nil {
		slog.Error("webhook db connect failed", "err", err)
		os.Exit(1)
	}
	store := pg.New(db)

	observability.Register(prometheus.DefaultRegisterer)

	var dedup cache.DeliveryDedup
	if cfg.RedisEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		dedup = cache.NewRedisDedup(rdb, cfg.RedisTTL)
		slog.Info("webhook dedup cache enabled", "addr", cfg.RedisAddr)
	}

	s := httpserver.New()
	wh := &httpserver.Webhook{
		Provider:  twilioWebhookOps{authToken: cfg.TwilioAuthToken},
		Store:     store,
		Dedup:     dedup,
		PublicURL: cfg.PublicWebhookURL,
	}
	wh.Register(s.Mux)

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
			slog.Error("webhook metrics server failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("webhook shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	slog.Info("webhook listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("webhook server failed", "err", err)
		os.Exit(1)
	}
	db.Close()
}
