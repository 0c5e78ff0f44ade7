package model

import "time"

// Stage names
const (
	StageFetch     = "fetch"
	StageFlatten   = "flatten"
	StagePartition = "partition"
)

// Run statuses
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ItemDiagnostic records the outcome of one item (identifier or file) in a stage
type ItemDiagnostic struct {
	Stage     string    `json:"stage"`
	Item      string    `json:"item"`
	Level     string    `json:"level"` // "info", "warning", "error"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// StageResult summarises one stage of a run
type StageResult struct {
	Stage       string           `json:"stage"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	Processed   int              `json:"processed"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	Skipped     int              `json:"skipped"`
	Diagnostics []ItemDiagnostic `json:"diagnostics,omitempty"`
}

// RunSummary is the outcome of a full pipeline run
type RunSummary struct {
	RunID     string      `json:"run_id"`
	Status    string      `json:"status"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Fetch     StageResult `json:"fetch"`
	Flatten   StageResult `json:"flatten"`
	Partition StageResult `json:"partition"`
	Error     string      `json:"error,omitempty"`
}
