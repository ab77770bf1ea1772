// internal/browser/humanoid/config.go
package humanoid

import (
	"math/rand"

	"github.com/xkilldash9x/wanderer/internal/config"
)

// Config holds the parameters defining the behavior of the simulation.
type Config struct {
	Rng *rand.Rand

	// Fitts's Law: MT = A + B * log2(1 + D/W), in milliseconds.
	FittsA float64
	FittsB float64

	// Tremor (per-sample gaussian) and drift (pink noise) amplitudes in pixels.
	GaussianStrength   float64
	PinkNoiseAmplitude float64

	ClickHoldMinMs int
	ClickHoldMaxMs int

	// Wheel scrolling is emitted as discrete notches.
	ScrollDetentPixels float64
	ScrollStepMinMs    int
	ScrollStepMaxMs    int

	IdleJitterPixels float64

	FatigueIncreaseRate float64
	FatigueRecoveryRate float64

	// Bounds is the viewport size used to clamp the cursor. Zero disables clamping.
	Bounds Vector2D
}

// DefaultConfig returns a configuration representing an average desktop user.
func DefaultConfig() Config {
	return Config{
		FittsA:              100.0,
		FittsB:              120.0,
		GaussianStrength:    0.5,
		PinkNoiseAmplitude:  2.5,
		ClickHoldMinMs:      50,
		ClickHoldMaxMs:      120,
		ScrollDetentPixels:  100.0,
		ScrollStepMinMs:     30,
		ScrollStepMaxMs:     90,
		IdleJitterPixels:    5.0,
		FatigueIncreaseRate: 0.01,
		FatigueRecoveryRate: 0.02,
	}
}

// FromSettings overlays the loaded settings on DefaultConfig. Timing and
// detent values only apply when positive. Noise and jitter amplitudes apply
// when non-negative, so zero turns them off.
func FromSettings(s config.HumanoidConfig) Config {
	c := DefaultConfig()
	if s.FittsA > 0 {
		c.FittsA = s.FittsA
	}
	if s.FittsB > 0 {
		c.FittsB = s.FittsB
	}
	if s.GaussianStrength >= 0 {
		c.GaussianStrength = s.GaussianStrength
	}
	if s.PinkNoiseAmplitude >= 0 {
		c.PinkNoiseAmplitude = s.PinkNoiseAmplitude
	}
	if s.ClickHoldMinMs > 0 {
		c.ClickHoldMinMs = s.ClickHoldMinMs
	}
	if s.ClickHoldMaxMs > 0 {
		c.ClickHoldMaxMs = s.ClickHoldMaxMs
	}
	if s.ScrollDetentPixels > 0 {
		c.ScrollDetentPixels = s.ScrollDetentPixels
	}
	if s.ScrollStepMinMs > 0 {
		c.ScrollStepMinMs = s.ScrollStepMinMs
	}
	if s.ScrollStepMaxMs > 0 {
		c.ScrollStepMaxMs = s.ScrollStepMaxMs
	}
	if s.IdleJitterPixels >= 0 {
		c.IdleJitterPixels = s.IdleJitterPixels
	}
	return c
}

// normalize repairs inverted ranges so later sampling never panics.
func (c *Config) normalize() {
	if c.ClickHoldMaxMs < c.ClickHoldMinMs {
		c.ClickHoldMinMs, c.ClickHoldMaxMs = c.ClickHoldMaxMs, c.ClickHoldMinMs
	}
	if c.ScrollStepMaxMs < c.ScrollStepMinMs {
		c.ScrollStepMinMs, c.ScrollStepMaxMs = c.ScrollStepMaxMs, c.ScrollStepMinMs
	}
	if c.ScrollDetentPixels <= 0 {
		c.ScrollDetentPixels = 100.0
	}
}
