// internal/journal/journal.go
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // CGO-free SQLite

	"github.com/xkilldash9x/wanderer/internal/simulator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const busyTimeoutMillis = 5000

// Journal stores the history of simulation runs in SQLite. It implements
// simulator.Recorder.
type Journal struct {
	db  *sql.DB
	log *zap.Logger
}

var _ simulator.Recorder = (*Journal)(nil)

// Open creates or opens the journal database at path and makes sure the
// schema exists.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Journal, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand journal path: %w", err)
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(expanded))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One connection keeps pragmas and writes serialized.
	db.SetMaxOpenConns(1)

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, log: logger.Named("journal")}, nil
}

// dsn enables WAL and a busy timeout to avoid "database is locked". Path
// segments are percent-encoded so '?' and '#' stay part of the file name.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	q.Add("_pragma", "foreign_keys(1)")
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "file:" + strings.Join(segments, "/") + "?" + q.Encode()
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS runs(
	  id          TEXT    PRIMARY KEY,
	  target      TEXT    NOT NULL,
	  mode        TEXT    NOT NULL CHECK (mode IN ('simulate','replay')),
	  started_at  INTEGER NOT NULL,
	  finished_at INTEGER,
	  status      TEXT,
	  reason      TEXT,
	  executed    INTEGER NOT NULL DEFAULT 0,
	  skipped     INTEGER NOT NULL DEFAULT 0,
	  failed      INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS actions(
	  id          INTEGER PRIMARY KEY,
	  run_id      TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	  seq         INTEGER NOT NULL,
	  ts_utc      INTEGER NOT NULL,
	  kind        TEXT    NOT NULL,
	  detail_json TEXT    NOT NULL CHECK (json_valid(detail_json)),
	  outcome     TEXT    NOT NULL CHECK (outcome IN ('executed','skipped','failed')),
	  error       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_actions_run ON actions(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create journal tables: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// StartRun inserts the run row. Starting the same run twice is an error.
func (j *Journal) StartRun(ctx context.Context, info simulator.RunInfo) error {
	if info.RunID == "" {
		return errors.New("run id cannot be empty")
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs(id, target, mode, started_at) VALUES(?,?,?,?)`,
		info.RunID, info.Target, string(info.Mode), info.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", info.RunID, err)
	}
	j.log.Debug("Run started.", zap.String("run_id", info.RunID), zap.String("target", info.Target))
	return nil
}

// RecordAction appends one iteration to the run's action log.
func (j *Journal) RecordAction(ctx context.Context, rec simulator.ActionRecord) error {
	detail, err := json.Marshal(rec.Action)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}
	var errText sql.NullString
	if rec.Err != "" {
		errText = sql.NullString{String: rec.Err, Valid: true}
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO actions(run_id, seq, ts_utc, kind, detail_json, outcome, error) VALUES(?,?,?,?,json(?),?,?)`,
		rec.RunID, rec.Seq, rec.At.UnixMilli(), string(rec.Action.Kind), string(detail), string(rec.Outcome), errText)
	if err != nil {
		return fmt.Errorf("failed to insert action %d of run %s: %w", rec.Seq, rec.RunID, err)
	}
	return nil
}

// FinishRun stores the terminal status and counters of a run.
func (j *Journal) FinishRun(ctx context.Context, res *simulator.Result, finishedAt time.Time) error {
	if res == nil {
		return errors.New("result cannot be nil")
	}
	out, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, reason = ?, executed = ?, skipped = ?, failed = ? WHERE id = ?`,
		finishedAt.UnixMilli(), string(res.Status), res.Reason, res.ActionsExecuted, res.Skipped, res.Failed, res.RunID)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", res.RunID, err)
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s was never started", res.RunID)
	}
	j.log.Debug("Run finished.",
		zap.String("run_id", res.RunID),
		zap.String("status", string(res.Status)),
		zap.Int("executed", res.ActionsExecuted))
	return nil
}
