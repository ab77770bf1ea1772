// internal/browser/session/cdp_executor.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wanderer/api/schemas"
	"github.com/xkilldash9x/wanderer/internal/browser/humanoid"
)

const defaultMouseEventTimeout = 10 * time.Second

// cdpExecutor implements humanoid.Executor on top of a chromedp session.
type cdpExecutor struct {
	logger         *zap.Logger
	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error
	// eventTimeout bounds a single mouse event; zero means the default.
	eventTimeout time.Duration
}

var _ humanoid.Executor = (*cdpExecutor)(nil)

// Sleep pauses for d. Running it through the session means a closed tab
// interrupts the wait.
func (e *cdpExecutor) Sleep(ctx context.Context, d time.Duration) error {
	return e.runActionsFunc(ctx, chromedp.Sleep(d))
}

// DispatchMouseEvent sends a single Input.dispatchMouseEvent.
func (e *cdpExecutor) DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error {
	p := input.DispatchMouseEvent(input.MouseType(data.Type), data.X, data.Y).
		WithButton(input.MouseButton(data.Button)).
		WithButtons(data.Buttons).
		WithClickCount(int64(data.ClickCount))

	if data.Type == schemas.MouseWheel {
		p = p.WithDeltaX(data.DeltaX).WithDeltaY(data.DeltaY)
	}

	timeout := e.eventTimeout
	if timeout <= 0 {
		timeout = defaultMouseEventTimeout
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := e.runActionsFunc(opCtx, p)
	if err != nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		e.logger.Debug("Mouse event timed out.",
			zap.String("type", string(data.Type)),
			zap.Duration("timeout", timeout))
		return fmt.Errorf("dispatching %s timed out after %v: %w", data.Type, timeout, opCtx.Err())
	}
	return err
}
