package humanoid

import (
	"context"
	"math"
	"time"

	"github.com/xkilldash9x/wanderer/api/schemas"
	"go.uber.org/zap"
)

const (
	// defaultTargetWidth is the Fitts's Law W used when the target size is unknown.
	defaultTargetWidth = 30.0
	// samplesPerSecond bounds how densely a movement is sampled.
	samplesPerSecond = 60.0
	maxSamples       = 120
)

// easeInOutCubic maps normalized time to normalized progress along the path.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// fittsDuration estimates the movement time for distance to a target of the given width.
func (h *Humanoid) fittsDuration(distance, width float64) time.Duration {
	if width <= 0 {
		width = defaultTargetWidth
	}
	id := math.Log2(1.0 + distance/width)
	mt := h.dynamicConfig.FittsA + h.dynamicConfig.FittsB*id
	mt += mt * (h.rng.Float64()*0.3 - 0.15)
	if mt < 0 {
		mt = 0
	}
	return time.Duration(mt * float64(time.Millisecond))
}

// bezierControls returns two control points bowed to one side of the straight
// line, producing the slight arc of a wrist pivot.
func (h *Humanoid) bezierControls(start, end Vector2D) (Vector2D, Vector2D) {
	dir := end.Sub(start)
	normal := dir.Perp().Normalize()
	bow := (h.rng.Float64()*0.4 - 0.2) * dir.Mag()
	p1 := start.Lerp(end, 0.3).Add(normal.Mul(bow))
	p2 := start.Lerp(end, 0.7).Add(normal.Mul(bow * (0.5 + h.rng.Float64()*0.5)))
	return p1, p2
}

func cubicBezier(p0, p1, p2, p3 Vector2D, t float64) Vector2D {
	omt := 1.0 - t
	return p0.Mul(omt * omt * omt).
		Add(p1.Mul(3 * omt * omt * t)).
		Add(p2.Mul(3 * omt * t * t)).
		Add(p3.Mul(t * t * t))
}

// moveLocked moves the cursor from its current position to end. Samples are
// evenly spaced in time and eased in space, so the cursor accelerates and
// decelerates. The last sample lands exactly on end.
func (h *Humanoid) moveLocked(ctx context.Context, end Vector2D, targetWidth float64, buttons int64) error {
	start := h.currentPos
	end = end.Clamp(h.dynamicConfig.Bounds)
	dist := start.Dist(end)
	if dist < 1.0 {
		return nil
	}

	duration := h.fittsDuration(dist, targetWidth)
	steps := int(duration.Seconds() * samplesPerSecond)
	if steps < 2 {
		steps = 2
	}
	if steps > maxSamples {
		steps = maxSamples
	}
	stepSleep := duration / time.Duration(steps)

	p1, p2 := h.bezierControls(start, end)
	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		progress := easeInOutCubic(float64(i) / float64(steps))
		point := cubicBezier(start, p1, p2, end, progress)
		if i < steps {
			point = h.perturb(point)
		}
		point = point.Clamp(h.dynamicConfig.Bounds)

		if err := h.executor.DispatchMouseEvent(ctx, schemas.MouseEventData{
			Type:    schemas.MouseMove,
			X:       point.X,
			Y:       point.Y,
			Button:  schemas.ButtonNone,
			Buttons: buttons,
		}); err != nil {
			if ctx.Err() == nil {
				h.logger.Debug("Failed to dispatch mouse move.", zap.Error(err))
			}
			return err
		}
		h.currentPos = point

		if stepSleep > 0 {
			if err := h.executor.Sleep(ctx, stepSleep); err != nil {
				return err
			}
		}
	}

	h.addFatigue(dist / 1000.0)
	return nil
}

// perturb adds slow pink-noise drift and fast gaussian tremor.
func (h *Humanoid) perturb(p Vector2D) Vector2D {
	amp := h.dynamicConfig.PinkNoiseAmplitude
	tremor := h.dynamicConfig.GaussianStrength
	return Vector2D{
		X: p.X + h.driftX.Next()*amp + h.rng.NormFloat64()*tremor,
		Y: p.Y + h.driftY.Next()*amp + h.rng.NormFloat64()*tremor,
	}
}
