// internal/browser/humanoid/humanoid.go
package humanoid

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Humanoid turns high-level intents (move, click, scroll, idle) into streams of
// low-level mouse events with human-like timing and noise.
type Humanoid struct {
	// mu serializes every public operation. Internal helpers assume it is held.
	mu            sync.Mutex
	baseConfig    Config
	dynamicConfig Config
	logger        *zap.Logger
	executor      Executor
	currentPos    Vector2D
	fatigueLevel  float64
	rng           *rand.Rand
	driftX        *PinkNoiseGenerator
	driftY        *PinkNoiseGenerator
}

var _ Controller = (*Humanoid)(nil)

// New creates a Humanoid that dispatches through executor.
func New(cfg Config, logger *zap.Logger, executor Executor) *Humanoid {
	rng := cfg.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	cfg.Rng = rng
	cfg.normalize()

	return &Humanoid{
		baseConfig:    cfg,
		dynamicConfig: cfg,
		logger:        logger,
		executor:      executor,
		rng:           rng,
		driftX:        NewPinkNoiseGenerator(rng, 8),
		driftY:        NewPinkNoiseGenerator(rng, 8),
	}
}

// NewTestHumanoid creates a Humanoid with a seeded RNG and no noise, so that
// event coordinates are predictable.
func NewTestHumanoid(executor Executor, seed int64) *Humanoid {
	cfg := DefaultConfig()
	cfg.Rng = rand.New(rand.NewSource(seed))
	cfg.GaussianStrength = 0
	cfg.PinkNoiseAmplitude = 0
	return New(cfg, zap.NewNop(), executor)
}

// Position returns the last dispatched cursor position.
func (h *Humanoid) Position() Vector2D {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentPos
}

// Place sets the cursor position without dispatching events. Used once the
// viewport is known so the first movement does not start at the corner.
func (h *Humanoid) Place(pos Vector2D) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentPos = pos.Clamp(h.baseConfig.Bounds)
}

// SetBounds updates the viewport used for clamping, e.g. after device emulation changes.
func (h *Humanoid) SetBounds(bounds Vector2D) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.baseConfig.Bounds = bounds
	h.dynamicConfig.Bounds = bounds
	h.currentPos = h.currentPos.Clamp(bounds)
}

// uniformDuration draws uniformly from [minMs, maxMs] milliseconds.
func (h *Humanoid) uniformDuration(minMs, maxMs int) time.Duration {
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	return time.Duration(minMs+h.rng.Intn(maxMs-minMs+1)) * time.Millisecond
}
