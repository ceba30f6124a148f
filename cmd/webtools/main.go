package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/webtools-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/webtools-service/internal/adapter/kafka"
	"github.com/couchcryptid/webtools-service/internal/adapter/nhtsa"
	"github.com/couchcryptid/webtools-service/internal/config"
	"github.com/couchcryptid/webtools-service/internal/lookup"
	"github.com/couchcryptid/webtools-service/internal/observability"
	"github.com/couchcryptid/webtools-service/internal/pipeline"
	"github.com/couchcryptid/webtools-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StorageBackend,
		Path:        cfg.StoragePath,
		DatabaseURL: cfg.DatabaseURL,
		QuotaBytes:  cfg.StorageQuotaBytes,
	})
	if err != nil {
		logger.Error("failed to open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	logger.Info("storage opened", "backend", cfg.StorageBackend)

	cache := lookup.NewCache(ctx, st, lookup.CacheConfig{TTL: cfg.VINCacheTTL, MaxItems: cfg.VINCacheSize}, clock, logger, metrics)
	history := lookup.NewHistory(st, cfg.VINHistorySize, clock, logger, metrics)
	decoder := nhtsa.NewClient(cfg.VINAPIURL, cfg.VINAPITimeout, metrics, logger)

	opts := []lookup.Option{lookup.WithStore(st)}
	checks := []httpadapter.ReadinessChecker{}

	// Batch worker and lookup events (feature-flagged via KAFKA_BROKERS).
	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
	)
	if cfg.KafkaEnabled() {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)

		// The worker resolves through its own service so its lookups are
		// published once, by the pipeline's loader.
		workerSvc := lookup.NewService(decoder, cache, history, clock, logger, metrics)
		transformer := pipeline.NewTransformer(workerSvc, clock, logger)
		p = pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

		opts = append(opts, lookup.WithPublisher(writer))
		logger.Info("batch worker enabled", "brokers", cfg.KafkaBrokers, "source", cfg.KafkaSourceTopic, "sink", cfg.KafkaSinkTopic)
	} else {
		logger.Info("batch worker disabled")
	}

	svc := lookup.NewService(decoder, cache, history, clock, logger, metrics, opts...)
	checks = append(checks, svc)
	if p != nil {
		checks = append(checks, p)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, clock, logger, metrics, checks...)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start batch worker.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logger.Error("storage close error", "error", err)
	}

	logger.Info("shutdown complete")
}
