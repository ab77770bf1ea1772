// internal/browser/humanoid/movement.go
package humanoid

import (
	"context"
	"fmt"
	"math"

	"github.com/xkilldash9x/wanderer/api/schemas"
)

// MoveTo moves the cursor to target along a human-like trajectory.
func (h *Humanoid) MoveTo(ctx context.Context, target Vector2D) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.moveLocked(ctx, target, defaultTargetWidth, 0)
}

// boxToCenter averages the four quad vertices of an element.
func boxToCenter(geo *schemas.ElementGeometry) (Vector2D, bool) {
	if geo == nil || len(geo.Vertices) < 8 {
		return Vector2D{}, false
	}
	x := (geo.Vertices[0] + geo.Vertices[2] + geo.Vertices[4] + geo.Vertices[6]) / 4
	y := (geo.Vertices[1] + geo.Vertices[3] + geo.Vertices[5] + geo.Vertices[7]) / 4
	return Vector2D{X: x, Y: y}, true
}

// aimPoint picks a point inside the element, normally distributed around the
// center and kept one pixel inside its edges.
func (h *Humanoid) aimPoint(geo *schemas.ElementGeometry) (Vector2D, error) {
	center, ok := boxToCenter(geo)
	if !ok {
		return Vector2D{}, fmt.Errorf("humanoid: element geometry has %d vertices, want 8", len(geo.Vertices))
	}
	if geo.Width <= 0 || geo.Height <= 0 {
		return Vector2D{}, fmt.Errorf("humanoid: element is not interactable (zero size)")
	}

	w, hgt := float64(geo.Width), float64(geo.Height)
	x := center.X + h.rng.NormFloat64()*(w*0.9)/6.0
	y := center.Y + h.rng.NormFloat64()*(hgt*0.9)/6.0

	if w > 2 {
		x = math.Max(center.X-w/2+1, math.Min(center.X+w/2-1, x))
	} else {
		x = center.X
	}
	if hgt > 2 {
		y = math.Max(center.Y-hgt/2+1, math.Min(center.Y+hgt/2-1, y))
	} else {
		y = center.Y
	}
	return Vector2D{X: x, Y: y}, nil
}
