// internal/browser/humanoid/scrolling.go
package humanoid

import (
	"context"
	"math"

	"github.com/xkilldash9x/wanderer/api/schemas"
)

// Scroll turns the wheel under the current cursor position, one detent per
// event, with a short irregular gap between notches. The final notch carries
// the remainder so the total delta matches deltaY exactly.
func (h *Humanoid) Scroll(ctx context.Context, deltaY float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if math.Abs(deltaY) < 1 {
		return nil
	}

	detent := h.dynamicConfig.ScrollDetentPixels
	sign := 1.0
	if deltaY < 0 {
		sign = -1.0
	}
	remaining := math.Abs(deltaY)

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		step := math.Min(detent, remaining)
		remaining -= step

		pos := h.currentPos
		if err := h.executor.DispatchMouseEvent(ctx, schemas.MouseEventData{
			Type:   schemas.MouseWheel,
			X:      pos.X,
			Y:      pos.Y,
			Button: schemas.ButtonNone,
			DeltaY: sign * step,
		}); err != nil {
			return err
		}

		if remaining > 0 {
			gap := h.uniformDuration(h.dynamicConfig.ScrollStepMinMs, h.dynamicConfig.ScrollStepMaxMs)
			if err := h.executor.Sleep(ctx, gap); err != nil {
				return err
			}
		}
	}

	h.addFatigue(math.Abs(deltaY) / 5000.0)
	return nil
}
