package pipeline

import (
	"sync"
	"time"

	"variation-pipeline/internal/metrics"
	"variation-pipeline/internal/model"

	"go.uber.org/zap"
)

// stageTracker collects per-item outcomes of one stage and logs them as they happen.
// It is safe for concurrent use by fetch workers.
type stageTracker struct {
	mu      sync.Mutex
	result  model.StageResult
	logger  *zap.Logger
	metrics *metrics.Collector
}

func newStageTracker(stage string, logger *zap.Logger, m *metrics.Collector) *stageTracker {
	return &stageTracker{
		result: model.StageResult{
			Stage:       stage,
			StartTime:   time.Now(),
			Diagnostics: make([]model.ItemDiagnostic, 0),
		},
		logger:  logger.With(zap.String("stage", stage)),
		metrics: m,
	}
}

func (st *stageTracker) record(item, level, msg string) {
	st.result.Processed++
	st.result.Diagnostics = append(st.result.Diagnostics, model.ItemDiagnostic{
		Stage:     st.result.Stage,
		Item:      item,
		Level:     level,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

func (st *stageTracker) succeed(item, msg string, fields ...zap.Field) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.record(item, "info", msg)
	st.result.Succeeded++
	st.logger.Info("✅ "+msg, append([]zap.Field{zap.String("item", item)}, fields...)...)
}

func (st *stageTracker) fail(item string, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.record(item, "error", err.Error())
	st.result.Failed++
	st.logger.Error("❌ "+err.Error(), zap.String("item", item))
}

func (st *stageTracker) skip(item, reason string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.record(item, "warning", reason)
	st.result.Skipped++
	st.logger.Warn("⚠️ "+reason, zap.String("item", item))
}

// finish stamps the end time and returns a copy of the result
func (st *stageTracker) finish() model.StageResult {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.result.EndTime = time.Now()
	res := st.result
	res.Diagnostics = append([]model.ItemDiagnostic(nil), st.result.Diagnostics...)

	st.logger.Info("🏁 stage finished",
		zap.Int("processed", res.Processed),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
		zap.Duration("duration", res.EndTime.Sub(res.StartTime)),
	)
	st.metrics.ObserveStage(res.Stage, res.Succeeded, res.Failed, res.Skipped, res.EndTime.Sub(res.StartTime))
	return res
}
