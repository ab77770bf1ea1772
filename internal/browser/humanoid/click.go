package humanoid

import (
	"context"
	"math"

	"github.com/xkilldash9x/wanderer/api/schemas"
)

// ClickElement moves to a point inside the element and performs a left click.
func (h *Humanoid) ClickElement(ctx context.Context, geo *schemas.ElementGeometry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	target, err := h.aimPoint(geo)
	if err != nil {
		return err
	}
	width := math.Min(float64(geo.Width), float64(geo.Height))
	return h.clickLocked(ctx, target, width)
}

// ClickAt moves to target and performs a left click there.
func (h *Humanoid) ClickAt(ctx context.Context, target Vector2D) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clickLocked(ctx, target, defaultTargetWidth)
}

// clickLocked is press, hold, release at the end of a movement.
func (h *Humanoid) clickLocked(ctx context.Context, target Vector2D, width float64) error {
	if err := h.moveLocked(ctx, target, width, 0); err != nil {
		return err
	}

	pos := h.currentPos
	press := schemas.MouseEventData{
		Type:       schemas.MousePress,
		X:          pos.X,
		Y:          pos.Y,
		Button:     schemas.ButtonLeft,
		Buttons:    1,
		ClickCount: 1,
	}
	if err := h.executor.DispatchMouseEvent(ctx, press); err != nil {
		return err
	}

	hold := h.uniformDuration(h.dynamicConfig.ClickHoldMinMs, h.dynamicConfig.ClickHoldMaxMs)
	if err := h.executor.Sleep(ctx, hold); err != nil {
		// Never leave the button logically pressed.
		_ = h.executor.DispatchMouseEvent(context.WithoutCancel(ctx), releaseAt(pos))
		return err
	}

	return h.executor.DispatchMouseEvent(ctx, releaseAt(pos))
}

func releaseAt(pos Vector2D) schemas.MouseEventData {
	return schemas.MouseEventData{
		Type:       schemas.MouseRelease,
		X:          pos.X,
		Y:          pos.Y,
		Button:     schemas.ButtonLeft,
		Buttons:    0,
		ClickCount: 1,
	}
}
