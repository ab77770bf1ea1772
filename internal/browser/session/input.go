// internal/browser/session/input.go
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/wanderer/api/schemas"
	"github.com/xkilldash9x/wanderer/internal/browser/humanoid"
)

// directInput is the humanoid.Controller used when humanoid input is turned
// off: the cursor teleports, clicks have no hold time and a scroll is a
// single wheel event.
type directInput struct {
	exec humanoid.Executor

	mu  sync.Mutex
	pos humanoid.Vector2D
}

var _ humanoid.Controller = (*directInput)(nil)

func newDirectInput(exec humanoid.Executor, start humanoid.Vector2D) *directInput {
	return &directInput{exec: exec, pos: start}
}

func (d *directInput) MoveTo(ctx context.Context, target humanoid.Vector2D) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moveLocked(ctx, target)
}

func (d *directInput) moveLocked(ctx context.Context, target humanoid.Vector2D) error {
	err := d.exec.DispatchMouseEvent(ctx, schemas.MouseEventData{
		Type:   schemas.MouseMove,
		X:      target.X,
		Y:      target.Y,
		Button: schemas.ButtonNone,
	})
	if err != nil {
		return err
	}
	d.pos = target
	return nil
}

func (d *directInput) ClickElement(ctx context.Context, geo *schemas.ElementGeometry) error {
	center, ok := geometryCenter(geo)
	if !ok {
		return fmt.Errorf("element has no clickable area")
	}
	return d.ClickAt(ctx, center)
}

func (d *directInput) ClickAt(ctx context.Context, target humanoid.Vector2D) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.moveLocked(ctx, target); err != nil {
		return err
	}
	press := schemas.MouseEventData{
		Type:       schemas.MousePress,
		X:          target.X,
		Y:          target.Y,
		Button:     schemas.ButtonLeft,
		Buttons:    1,
		ClickCount: 1,
	}
	if err := d.exec.DispatchMouseEvent(ctx, press); err != nil {
		return err
	}
	release := press
	release.Type = schemas.MouseRelease
	release.Buttons = 0
	return d.exec.DispatchMouseEvent(context.WithoutCancel(ctx), release)
}

func (d *directInput) Scroll(ctx context.Context, deltaY float64) error {
	d.mu.Lock()
	pos := d.pos
	d.mu.Unlock()

	return d.exec.DispatchMouseEvent(ctx, schemas.MouseEventData{
		Type:   schemas.MouseWheel,
		X:      pos.X,
		Y:      pos.Y,
		Button: schemas.ButtonNone,
		DeltaY: deltaY,
	})
}

func (d *directInput) Idle(ctx context.Context, dur time.Duration) error {
	return d.exec.Sleep(ctx, dur)
}

func (d *directInput) Position() humanoid.Vector2D {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

// geometryCenter averages the four vertices of a box.
func geometryCenter(geo *schemas.ElementGeometry) (humanoid.Vector2D, bool) {
	if geo == nil || len(geo.Vertices) < 8 || geo.Width <= 0 || geo.Height <= 0 {
		return humanoid.Vector2D{}, false
	}
	var c humanoid.Vector2D
	for i := 0; i < 8; i += 2 {
		c.X += geo.Vertices[i]
		c.Y += geo.Vertices[i+1]
	}
	return c.Mul(0.25), true
}
