package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"variation-pipeline/internal/config"
	"variation-pipeline/internal/metrics"
	"variation-pipeline/internal/model"
	"variation-pipeline/internal/store"
	"variation-pipeline/pkg/utils"

	"go.uber.org/zap"
)

// Pipeline runs the fetch, flatten and partition stages over the artifact folders
type Pipeline struct {
	cfg       *config.Config
	client    *http.Client
	artifacts *utils.ArtifactManager
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithHTTPClient replaces the client used by the fetcher
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.client = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records stage and fetch counters in c
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = c }
}

// New validates the configuration and builds a pipeline
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, err := cfg.FetchTimeout()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		client:    &http.Client{Timeout: timeout},
		artifacts: utils.NewArtifactManager(cfg.Paths.JSONDir, cfg.Paths.CSVDir, cfg.Paths.SortDir),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Artifacts exposes the artifact layout
func (p *Pipeline) Artifacts() *utils.ArtifactManager {
	return p.artifacts
}

// Run reads the identifiers from the configured spreadsheet and runs all stages
func (p *Pipeline) Run(ctx context.Context, runID string) (*model.RunSummary, error) {
	ids, err := ReadIdentifiers(p.cfg.Input.Path, p.cfg.Input.Column)
	if err != nil {
		summary := p.startRun(runID)
		p.finishRun(summary, err)
		return summary, err
	}
	return p.RunWithIdentifiers(ctx, runID, ids)
}

// RunWithIdentifiers runs fetch, flatten and partition in sequence. Item level
// failures are reported in the stage results and leave the run completed; only
// setup errors and cancellation fail it.
func (p *Pipeline) RunWithIdentifiers(ctx context.Context, runID string, ids []string) (summary *model.RunSummary, err error) {
	summary = p.startRun(runID)
	defer func() {
		p.finishRun(summary, err)
	}()

	if err = p.artifacts.EnsureOutputDirsExist(); err != nil {
		return summary, err
	}

	summary.Fetch = p.FetchAll(ctx, ids)
	p.saveStage(runID, summary.Fetch)
	if err = ctx.Err(); err != nil {
		return summary, fmt.Errorf("run cancelled during fetch: %w", err)
	}

	summary.Flatten = p.FlattenAll(ctx)
	p.saveStage(runID, summary.Flatten)
	if err = ctx.Err(); err != nil {
		return summary, fmt.Errorf("run cancelled during flatten: %w", err)
	}

	summary.Partition = p.PartitionAll(ctx)
	p.saveStage(runID, summary.Partition)
	if err = ctx.Err(); err != nil {
		return summary, fmt.Errorf("run cancelled during partition: %w", err)
	}

	return summary, nil
}

func (p *Pipeline) startRun(runID string) *model.RunSummary {
	p.logger.Info("🚀 Starting pipeline", zap.String("run_id", runID))
	if err := store.SaveRun(runID, p.cfg); err != nil {
		p.logger.Warn("failed to record run", zap.String("run_id", runID), zap.Error(err))
	}
	if err := store.UpdateRunStatus(runID, model.RunRunning); err != nil {
		p.logger.Warn("failed to update run status", zap.String("run_id", runID), zap.Error(err))
	}
	return &model.RunSummary{
		RunID:     runID,
		Status:    model.RunRunning,
		StartTime: time.Now(),
	}
}

func (p *Pipeline) finishRun(summary *model.RunSummary, err error) {
	summary.EndTime = time.Now()
	if err != nil {
		summary.Status = model.RunFailed
		summary.Error = err.Error()
		p.logger.Error("❌ Pipeline failed", zap.String("run_id", summary.RunID), zap.Error(err))
	} else {
		summary.Status = model.RunCompleted
		p.logger.Info("🏁 All files processed",
			zap.String("run_id", summary.RunID),
			zap.Duration("duration", summary.EndTime.Sub(summary.StartTime)),
		)
	}
	p.metrics.ObserveRun(summary.Status)
	if err := store.FinishRun(summary); err != nil {
		p.logger.Warn("failed to record run result", zap.String("run_id", summary.RunID), zap.Error(err))
	}
}

func (p *Pipeline) saveStage(runID string, res model.StageResult) {
	if err := store.SaveStageResult(runID, res); err != nil {
		p.logger.Warn("failed to record stage result",
			zap.String("run_id", runID),
			zap.String("stage", res.Stage),
			zap.Error(err),
		)
	}
}
