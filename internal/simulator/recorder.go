package simulator

import (
	"context"
	"time"
)

// Mode tells a Recorder which routine produced a run.
type Mode string

const (
	ModeSimulate Mode = "simulate"
	ModeReplay   Mode = "replay"
)

// RunInfo describes a run when it starts.
type RunInfo struct {
	RunID     string
	Target    string
	Mode      Mode
	StartedAt time.Time
}

// ActionRecord is one iteration as seen by a Recorder.
type ActionRecord struct {
	RunID   string
	Seq     int
	At      time.Time
	Action  Action
	Outcome Outcome
	Err     string
}

// Recorder receives the history of a run. Recorder errors are logged by the
// simulator and never affect the run.
type Recorder interface {
	StartRun(ctx context.Context, info RunInfo) error
	RecordAction(ctx context.Context, rec ActionRecord) error
	FinishRun(ctx context.Context, res *Result, finishedAt time.Time) error
}
