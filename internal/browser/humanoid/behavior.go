package humanoid

import (
	"context"
	"math"
	"time"

	"github.com/xkilldash9x/wanderer/api/schemas"
)

const (
	idleStepMinMs = 80
	idleStepMaxMs = 260
)

// Idle spends d with the cursor drifting a few pixels around where it rests,
// the way a hand on a mouse is never perfectly still. Time is accounted from
// the requested sleeps, not the wall clock.
func (h *Humanoid) Idle(ctx context.Context, d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if d <= 0 {
		return nil
	}

	anchor := h.currentPos
	jitter := h.dynamicConfig.IdleJitterPixels
	var elapsed time.Duration

	for elapsed < d {
		if err := ctx.Err(); err != nil {
			return err
		}

		step := h.uniformDuration(idleStepMinMs, idleStepMaxMs)
		if elapsed+step > d {
			step = d - elapsed
		}
		if err := h.executor.Sleep(ctx, step); err != nil {
			return err
		}
		elapsed += step

		if jitter <= 0 || elapsed >= d {
			continue
		}
		point := anchor.Add(Vector2D{
			X: (h.rng.Float64() - 0.5) * 2 * jitter,
			Y: (h.rng.Float64() - 0.5) * 2 * jitter,
		}).Clamp(h.dynamicConfig.Bounds)
		if err := h.executor.DispatchMouseEvent(ctx, schemas.MouseEventData{
			Type:   schemas.MouseMove,
			X:      point.X,
			Y:      point.Y,
			Button: schemas.ButtonNone,
		}); err != nil {
			return err
		}
		h.currentPos = point
	}

	h.recoverFatigue(d)
	return nil
}

// applyFatigueEffects scales the dynamic parameters by the current fatigue level.
func (h *Humanoid) applyFatigueEffects() {
	factor := 1.0 + h.fatigueLevel
	h.dynamicConfig.GaussianStrength = h.baseConfig.GaussianStrength * factor
	h.dynamicConfig.PinkNoiseAmplitude = h.baseConfig.PinkNoiseAmplitude * factor
	h.dynamicConfig.FittsA = h.baseConfig.FittsA * factor
}

func (h *Humanoid) addFatigue(intensity float64) {
	h.fatigueLevel = math.Min(1.0, h.fatigueLevel+h.baseConfig.FatigueIncreaseRate*intensity)
	h.applyFatigueEffects()
}

func (h *Humanoid) recoverFatigue(d time.Duration) {
	h.fatigueLevel = math.Max(0.0, h.fatigueLevel-h.baseConfig.FatigueRecoveryRate*d.Seconds())
	h.applyFatigueEffects()
}
