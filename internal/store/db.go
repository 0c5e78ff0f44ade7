package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"variation-pipeline/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrRunNotFound is returned when a run id is unknown
	ErrRunNotFound = errors.New("run not found")
	// ErrNotOpen is returned by reads when no database is open
	ErrNotOpen = errors.New("run store is not open")
)

var (
	db   *sql.DB
	dbMu sync.RWMutex
)

// InitDB opens the run history database and creates its tables
func InitDB(dbPath string) error {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return err
	}

	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		config TEXT,
		status TEXT,
		error_message TEXT,
		started_at DATETIME,
		finished_at DATETIME
	);
	`
	stageTable := `
	CREATE TABLE IF NOT EXISTS stage_results (
		run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
		stage TEXT,
		processed INTEGER,
		succeeded INTEGER,
		failed INTEGER,
		skipped INTEGER,
		started_at DATETIME,
		finished_at DATETIME,
		PRIMARY KEY (run_id, stage)
	);
	`
	eventTable := `
	CREATE TABLE IF NOT EXISTS run_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
		stage TEXT,
		item TEXT,
		level TEXT,
		message TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{runTable, stageTable, eventTable} {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return err
		}
	}

	dbMu.Lock()
	if db != nil {
		db.Close()
	}
	db = conn
	dbMu.Unlock()
	return nil
}

// Close closes the database; later calls become no-ops
func Close() error {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// Enabled reports whether a database is open
func Enabled() bool {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db != nil
}

func conn() *sql.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}

// SaveRun stores a new run with the config it was started with. Saving an
// existing id is a no-op.
func SaveRun(runID string, config interface{}) error {
	d := conn()
	if d == nil {
		return nil
	}
	configJSON, err := json.Marshal(config)
	if err != nil {
		return err
	}
	_, err = d.Exec(`INSERT OR IGNORE INTO runs (id, config, status, error_message, started_at) VALUES (?, ?, ?, '', ?)`,
		runID, string(configJSON), model.RunPending, time.Now().UTC())
	return err
}

// UpdateRunStatus updates run status
func UpdateRunStatus(runID, status string) error {
	d := conn()
	if d == nil {
		return nil
	}
	_, err := d.Exec(`UPDATE runs SET status = ? WHERE id = ?`, status, runID)
	return err
}

// FinishRun records the final status and error of a run
func FinishRun(summary *model.RunSummary) error {
	d := conn()
	if d == nil {
		return nil
	}
	_, err := d.Exec(`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		summary.Status, summary.Error, summary.EndTime.UTC(), summary.RunID)
	return err
}

// SaveStageResult stores the counters of one stage and its diagnostics
func SaveStageResult(runID string, res model.StageResult) error {
	d := conn()
	if d == nil {
		return nil
	}
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO stage_results
		(run_id, stage, processed, succeeded, failed, skipped, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, res.Stage, res.Processed, res.Succeeded, res.Failed, res.Skipped,
		res.StartTime.UTC(), res.EndTime.UTC())
	if err != nil {
		return fmt.Errorf("failed to save stage %s: %w", res.Stage, err)
	}

	for _, diag := range res.Diagnostics {
		_, err := tx.Exec(`INSERT INTO run_events (run_id, stage, item, level, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, diag.Stage, diag.Item, diag.Level, diag.Message, diag.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns all runs, newest first, with their stage counters
func ListRuns() ([]model.RunSummary, error) {
	d := conn()
	if d == nil {
		return nil, ErrNotOpen
	}
	rows, err := d.Query(`SELECT id, status, error_message, started_at, finished_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if err := loadStages(d, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// GetRun fetches one run with its stage counters
func GetRun(runID string) (*model.RunSummary, error) {
	d := conn()
	if d == nil {
		return nil, ErrNotOpen
	}
	row := d.QueryRow(`SELECT id, status, error_message, started_at, finished_at FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := loadStages(d, run); err != nil {
		return nil, err
	}
	return run, nil
}

// GetRunEvents returns up to limit diagnostics of a run in insertion order.
// A limit <= 0 returns all of them.
func GetRunEvents(runID string, limit int) ([]model.ItemDiagnostic, error) {
	d := conn()
	if d == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.Query(`SELECT stage, item, level, message, created_at FROM run_events WHERE run_id = ? ORDER BY id LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.ItemDiagnostic, 0)
	for rows.Next() {
		var ev model.ItemDiagnostic
		if err := rows.Scan(&ev.Stage, &ev.Item, &ev.Level, &ev.Message, &ev.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// DeleteRun removes a run and everything recorded for it
func DeleteRun(runID string) error {
	d := conn()
	if d == nil {
		return ErrNotOpen
	}
	res, err := d.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*model.RunSummary, error) {
	var run model.RunSummary
	var errMsg sql.NullString
	var finished sql.NullTime
	if err := row.Scan(&run.RunID, &run.Status, &errMsg, &run.StartTime, &finished); err != nil {
		return nil, err
	}
	run.Error = errMsg.String
	if finished.Valid {
		run.EndTime = finished.Time
	}
	return &run, nil
}

func loadStages(d *sql.DB, run *model.RunSummary) error {
	rows, err := d.Query(`SELECT stage, processed, succeeded, failed, skipped, started_at, finished_at FROM stage_results WHERE run_id = ?`, run.RunID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var res model.StageResult
		if err := rows.Scan(&res.Stage, &res.Processed, &res.Succeeded, &res.Failed, &res.Skipped, &res.StartTime, &res.EndTime); err != nil {
			return err
		}
		switch res.Stage {
		case model.StageFetch:
			run.Fetch = res
		case model.StageFlatten:
			run.Flatten = res
		case model.StagePartition:
			run.Partition = res
		}
	}
	return rows.Err()
}
