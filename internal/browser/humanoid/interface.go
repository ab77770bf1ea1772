// internal/browser/humanoid/interface.go
package humanoid

import (
	"context"
	"time"

	"github.com/xkilldash9x/wanderer/api/schemas"
)

// Controller is the high-level input surface used by a browser session.
// All coordinates are CSS pixels relative to the viewport.
type Controller interface {
	MoveTo(ctx context.Context, target Vector2D) error
	ClickElement(ctx context.Context, geo *schemas.ElementGeometry) error
	ClickAt(ctx context.Context, target Vector2D) error
	// Scroll turns the mouse wheel by deltaY pixels. Positive scrolls down.
	Scroll(ctx context.Context, deltaY float64) error
	// Idle keeps the cursor alive with small drifts for the given duration.
	Idle(ctx context.Context, d time.Duration) error
	Position() Vector2D
}

// Executor defines the low-level primitives the Humanoid needs from a browser.
type Executor interface {
	Sleep(ctx context.Context, d time.Duration) error
	DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error
}
