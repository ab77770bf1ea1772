package simulator

import (
	"fmt"
	"strings"
	"time"
)

// ActionKind is the closed set of things the simulator can do on a page.
type ActionKind string

const (
	ActionScroll   ActionKind = "scroll"
	ActionPause    ActionKind = "pause"
	ActionClick    ActionKind = "click"
	ActionNavigate ActionKind = "navigate"
)

// AllActionKinds lists every kind in a fixed order. The policy table is built
// in this order so that sampling is reproducible for a given seed.
var AllActionKinds = []ActionKind{ActionScroll, ActionPause, ActionClick, ActionNavigate}

// ParseActionKind accepts a kind name in any case.
func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllActionKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown action kind %q", s)
}

// Direction is the vertical scroll direction.
type Direction string

const (
	DirectionDown Direction = "down"
	DirectionUp   Direction = "up"
	// DirectionTo marks an absolute scroll to Amount pixels from the top.
	DirectionTo Direction = "to"
)

// Action is a sampled action with its materialized parameters. Only the
// fields relevant to Kind are set.
type Action struct {
	Kind      ActionKind    `json:"kind"`
	Direction Direction     `json:"direction,omitempty"`
	Amount    int           `json:"amount,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Selector  string        `json:"selector,omitempty"`
	URL       string        `json:"url,omitempty"`
	// X and Y locate a coordinate click during replay.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
}

func (a Action) String() string {
	switch a.Kind {
	case ActionScroll:
		return fmt.Sprintf("scroll %s %dpx", a.Direction, a.Amount)
	case ActionClick:
		if a.Selector == "" {
			return fmt.Sprintf("click at (%.0f, %.0f)", a.X, a.Y)
		}
		return fmt.Sprintf("click %s", a.Selector)
	case ActionPause:
		return fmt.Sprintf("pause %s", a.Duration)
	case ActionNavigate:
		return fmt.Sprintf("navigate %s", a.URL)
	}
	return string(a.Kind)
}

// Status is the terminal status of a run.
type Status string

const (
	StatusCompleted       Status = "completed"
	StatusTerminatedEarly Status = "terminated_early"
)

// Termination reasons.
const (
	ReasonInterrupted       = "interrupted"
	ReasonSessionUnusable   = "session unusable"
	ReasonDurationExhausted = "duration budget exhausted"
)

// Outcome is what happened to a single iteration.
type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Result summarizes a run or a replay.
type Result struct {
	RunID           string   `json:"runId"`
	Target          string   `json:"target"`
	ActionsExecuted int      `json:"actionsExecuted"`
	Skipped         int      `json:"skipped"`
	Failed          int      `json:"failed"`
	Status          Status   `json:"status"`
	Reason          string   `json:"reason,omitempty"`
	Actions         []Action `json:"actions"`
}

// Completed reports whether every planned iteration ran.
func (r *Result) Completed() bool { return r.Status == StatusCompleted }

func (r *Result) terminate(reason string) {
	r.Status = StatusTerminatedEarly
	r.Reason = reason
}
