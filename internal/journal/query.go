// internal/journal/query.go
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/wanderer/internal/simulator"
)

// ErrRunNotFound is returned by Run for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         string
	Target     string
	Mode       simulator.Mode
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in flight
	Status     simulator.Status
	Reason     string
	Executed   int
	Skipped    int
	Failed     int
}

const runColumns = `id, target, mode, started_at, finished_at, status, reason, executed, skipped, failed`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunSummary, error) {
	var (
		r        RunSummary
		mode     string
		started  int64
		finished sql.NullInt64
		status   sql.NullString
		reason   sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Target, &mode, &started, &finished, &status, &reason, &r.Executed, &r.Skipped, &r.Failed); err != nil {
		return RunSummary{}, err
	}
	r.Mode = simulator.Mode(mode)
	r.StartedAt = time.UnixMilli(started).UTC()
	if finished.Valid {
		r.FinishedAt = time.UnixMilli(finished.Int64).UTC()
	}
	r.Status = simulator.Status(status.String)
	r.Reason = reason.String
	return r, nil
}

// Run returns a single run.
func (j *Journal) Run(ctx context.Context, id string) (RunSummary, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to read run %s: %w", id, err)
	}
	return r, nil
}

// Runs lists the most recent runs first. A limit of zero or less returns all.
func (j *Journal) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Actions returns a run's action log in sequence order.
func (j *Journal) Actions(ctx context.Context, runID string) ([]simulator.ActionRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, ts_utc, detail_json, outcome, error FROM actions WHERE run_id = ? ORDER BY seq, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []simulator.ActionRecord
	for rows.Next() {
		var (
			rec     = simulator.ActionRecord{RunID: runID}
			ts      int64
			detail  string
			outcome string
			errText sql.NullString
		)
		if err := rows.Scan(&rec.Seq, &ts, &detail, &outcome, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		if err := json.Unmarshal([]byte(detail), &rec.Action); err != nil {
			return nil, fmt.Errorf("failed to decode action %d: %w", rec.Seq, err)
		}
		rec.At = time.UnixMilli(ts).UTC()
		rec.Outcome = simulator.Outcome(outcome)
		rec.Err = errText.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
