package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/water-budget-service/internal/adapter/geodata"
	httpadapter "github.com/couchcryptid/water-budget-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/water-budget-service/internal/adapter/kafka"
	"github.com/couchcryptid/water-budget-service/internal/config"
	"github.com/couchcryptid/water-budget-service/internal/domain"
	"github.com/couchcryptid/water-budget-service/internal/observability"
	"github.com/couchcryptid/water-budget-service/internal/pipeline"
)

// alwaysReady serves readiness when no Kafka pipeline is running.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Remote inputs are feature-flagged via GEODATA_ENABLED / GEODATA_URL.
	var provider domain.InputProvider
	if cfg.GeodataEnabled {
		client := geodata.NewClient(cfg.GeodataURL, cfg.GeodataToken, geodata.Options{
			Timeout:         cfg.GeodataTimeout,
			MaxRetries:      cfg.GeodataMaxRetries,
			BreakerFailures: cfg.GeodataBreakerFailures,
			BreakerTimeout:  cfg.GeodataBreakerTimeout,
		}, metrics, logger)
		provider = geodata.NewCachedProvider(client, cfg.GeodataCacheSize, metrics)
		metrics.GeodataEnabled.Set(1)
		logger.Info("geodata inputs enabled", "url", cfg.GeodataURL, "cache_size", cfg.GeodataCacheSize, "timeout", cfg.GeodataTimeout)
	} else {
		logger.Info("geodata inputs disabled; requests must carry inputs")
	}

	planner := pipeline.NewPlanner(provider, cfg.DefaultUnits, metrics, logger)

	var (
		ready  httpadapter.ReadinessChecker = alwaysReady{}
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p = pipeline.New(reader, planner, writer, logger, metrics, pipeline.Options{
			BatchSize: cfg.BatchSize,
			Workers:   cfg.PlanWorkers,
		})
		ready = p
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, planner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if p != nil {
		g.Go(func() error {
			if err := p.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("pipeline error", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server error", "error", err)
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

	logger.Info("shutdown complete")
}
