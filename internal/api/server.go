package api

import (
	"context"
	"fmt"

	"variation-pipeline/internal/api/handler"
	"variation-pipeline/internal/config"
	"variation-pipeline/internal/metrics"
	"variation-pipeline/internal/pipeline"
	"variation-pipeline/internal/store"
	"variation-pipeline/pkg/router"

	"go.uber.org/zap"
)

// Serve opens the run store, starts the HTTP API on cfg.Server.Addr and
// blocks until ctx is cancelled. Runs in flight are cancelled and awaited
// before the store is closed.
func Serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Store.Path != "" {
		if err := store.InitDB(cfg.Store.Path); err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		defer store.Close()
	} else {
		logger.Warn("⚠️ Run history disabled; run endpoints will return 503")
	}

	collector := metrics.NewCollector("variation")
	p, err := pipeline.New(cfg, pipeline.WithLogger(logger), pipeline.WithMetrics(collector))
	if err != nil {
		return err
	}

	runs := handler.NewRunHandler(ctx, p, cfg, logger)
	defer runs.Wait()

	r := router.New(logger)
	r.Observe(collector.ObserveRequest)
	RegisterRoutes(r, runs)
	r.Handle("/metrics", collector.Handler())
	return r.Start(ctx, cfg.Server.Addr)
}
