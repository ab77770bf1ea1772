package simulator

import (
	"fmt"
	"math"
	"time"

	"github.com/xkilldash9x/wanderer/internal/config"
)

// NavigateScope limits which links a Navigate action may follow.
type NavigateScope string

const (
	// ScopeSameSite follows links sharing the registrable domain (eTLD+1) of the target.
	ScopeSameSite NavigateScope = "same-site"
	ScopeSameHost NavigateScope = "same-host"
	ScopeAny      NavigateScope = "any"
)

// DefaultClickSelector matches the usual interactable elements.
const DefaultClickSelector = "a[href], button, [role=button], input[type=submit]"

// Config controls a single run.
type Config struct {
	MaxActions      int
	MinDelaySeconds float64
	MaxDelaySeconds float64
	ActionWeights   map[ActionKind]float64

	// MaxDuration bounds the wall time of the loop. Zero means unbounded.
	MaxDuration         time.Duration
	PauseMin            time.Duration
	PauseMax            time.Duration
	ScrollMin           int
	ScrollMax           int
	ScrollUpProbability float64
	ClickSelector       string
	NavigateScope       NavigateScope
}

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxActions:      25,
		MinDelaySeconds: 1,
		MaxDelaySeconds: 4,
		ActionWeights: map[ActionKind]float64{
			ActionScroll:   0.45,
			ActionPause:    0.25,
			ActionClick:    0.20,
			ActionNavigate: 0.10,
		},
		PauseMin:            1500 * time.Millisecond,
		PauseMax:            6 * time.Second,
		ScrollMin:           120,
		ScrollMax:           900,
		ScrollUpProbability: 0.2,
		ClickSelector:       DefaultClickSelector,
		NavigateScope:       ScopeSameSite,
	}
}

// ConfigFromSettings converts the loaded simulation settings.
func ConfigFromSettings(s config.SimulationConfig) (Config, error) {
	weights := make(map[ActionKind]float64, len(s.ActionWeights))
	for name, w := range s.ActionWeights {
		kind, err := ParseActionKind(name)
		if err != nil {
			return Config{}, &ValidationError{Field: "action_weights", Reason: err.Error()}
		}
		weights[kind] = w
	}
	return Config{
		MaxActions:          s.MaxActions,
		MinDelaySeconds:     s.MinDelaySeconds,
		MaxDelaySeconds:     s.MaxDelaySeconds,
		ActionWeights:       weights,
		MaxDuration:         s.MaxDuration,
		PauseMin:            secondsToDuration(s.PauseMinSeconds),
		PauseMax:            secondsToDuration(s.PauseMaxSeconds),
		ScrollMin:           s.ScrollMinPixels,
		ScrollMax:           s.ScrollMaxPixels,
		ScrollUpProbability: s.ScrollUpProbability,
		ClickSelector:       s.ClickSelector,
		NavigateScope:       NavigateScope(s.NavigateScope),
	}, nil
}

// Validate checks the run configuration. Empty optional fields are accepted
// and filled by withDefaults.
func (c Config) Validate() error {
	if c.MaxActions <= 0 {
		return &ValidationError{Field: "max_actions", Reason: "must be greater than 0"}
	}
	if c.MinDelaySeconds < 0 || math.IsNaN(c.MinDelaySeconds) {
		return &ValidationError{Field: "min_delay", Reason: "must be >= 0"}
	}
	if c.MaxDelaySeconds < c.MinDelaySeconds || math.IsNaN(c.MaxDelaySeconds) {
		return &ValidationError{Field: "max_delay", Reason: "must be >= min_delay"}
	}
	if _, err := NewPolicy(c.ActionWeights); err != nil {
		return &ValidationError{Field: "action_weights", Reason: err.Error()}
	}
	if c.MaxDuration < 0 {
		return &ValidationError{Field: "max_duration", Reason: "must not be negative"}
	}
	if c.PauseMin < 0 || c.PauseMax < c.PauseMin {
		return &ValidationError{Field: "pause range", Reason: "must satisfy 0 <= min <= max"}
	}
	if c.ScrollMin < 0 || c.ScrollMax < c.ScrollMin {
		return &ValidationError{Field: "scroll range", Reason: "must satisfy 0 <= min <= max"}
	}
	if c.ScrollUpProbability < 0 || c.ScrollUpProbability > 1 {
		return &ValidationError{Field: "scroll_up_probability", Reason: "must be within [0, 1]"}
	}
	switch c.NavigateScope {
	case "", ScopeSameSite, ScopeSameHost, ScopeAny:
	default:
		return &ValidationError{Field: "navigate_scope", Reason: fmt.Sprintf("unknown scope %q", c.NavigateScope)}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.ClickSelector == "" {
		c.ClickSelector = DefaultClickSelector
	}
	if c.NavigateScope == "" {
		c.NavigateScope = ScopeSameSite
	}
	return c
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
