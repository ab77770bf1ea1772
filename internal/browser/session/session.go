// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wanderer/api/schemas"
	"github.com/xkilldash9x/wanderer/internal/browser/humanoid"
	"github.com/xkilldash9x/wanderer/internal/config"
	"github.com/xkilldash9x/wanderer/internal/simulator"
)

// Session is one Chrome process with a single tab. It satisfies
// simulator.Browser; the tab keeps its identity across navigations.
type Session struct {
	id       string
	ctx      context.Context // tab context; carries the chromedp target
	cancel   context.CancelFunc
	allocCxl context.CancelFunc
	logger   *zap.Logger
	cfg      config.BrowserConfig
	viewport schemas.Viewport
	input    humanoid.Controller

	// dead is set once the target detaches or crashes.
	dead      atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ simulator.Browser = (*Session)(nil)

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Viewport returns the emulated device metrics.
func (s *Session) Viewport() schemas.Viewport {
	return s.viewport
}

func (s *Session) bounds() humanoid.Vector2D {
	return humanoid.Vector2D{X: float64(s.viewport.Width), Y: float64(s.viewport.Height)}
}

// runActions runs chromedp actions on the tab, bounded by both the session
// lifetime and ctx.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	if !s.IsAlive() {
		return simulator.ErrSessionClosed
	}
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return s.classify(ctx, err)
	}
	return nil
}

// classify tags errors caused by a lost tab with simulator.ErrSessionClosed.
// Caller cancellation and timeouts pass through untouched.
func (s *Session) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	lost := s.ctx.Err() != nil || s.dead.Load() ||
		errors.Is(err, chromedp.ErrInvalidContext) ||
		errors.Is(err, chromedp.ErrChannelClosed)
	if !lost {
		return err
	}
	s.dead.Store(true)
	if errors.Is(err, simulator.ErrSessionClosed) {
		return err
	}
	return fmt.Errorf("%w: %v", simulator.ErrSessionClosed, err)
}

func (s *Session) evaluate(ctx context.Context, script string) ([]byte, error) {
	opCtx, cancel := withOptionalTimeout(ctx, s.cfg.ActionTimeout)
	defer cancel()

	var raw []byte
	err := s.runActions(opCtx, chromedp.Evaluate(script, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true)
	}))
	return raw, err
}

// watchTarget marks the session dead when the page goes away underneath us.
func (s *Session) watchTarget() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *inspector.EventDetached:
			s.logger.Warn("Browser target detached.", zap.String("reason", string(e.Reason)))
			s.dead.Store(true)
		case *inspector.EventTargetCrashed:
			s.logger.Warn("Browser target crashed.")
			s.dead.Store(true)
		}
	})
}

// prepare applies device emulation and the persona before the first
// navigation.
func (s *Session) prepare(ctx context.Context, userAgent string) error {
	vp := s.viewport
	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(vp.Width, vp.Height, vp.PixelRatio, vp.Mobile).
			WithScreenWidth(vp.Width).
			WithScreenHeight(vp.Height),
	}
	if vp.Mobile {
		actions = append(actions, emulation.SetTouchEmulationEnabled(true))
	}
	actions = append(actions, personaFor(s.cfg, userAgent).tasks())

	opCtx, cancel := withOptionalTimeout(ctx, s.cfg.ActionTimeout)
	defer cancel()
	if err := s.runActions(opCtx, actions...); err != nil {
		return fmt.Errorf("failed to apply device emulation: %w", err)
	}
	return nil
}

// Navigate loads url and waits for the document body, then lets the page
// settle for the configured post-load wait.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := withOptionalTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	s.logger.Debug("Navigating.", zap.String("url", url))
	err := s.runActions(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	if s.cfg.PostLoadWait > 0 {
		if err := s.runActions(ctx, chromedp.Sleep(s.cfg.PostLoadWait)); err != nil {
			return err
		}
	}
	return nil
}

// Elements lists the visible, interactable elements matching selector. Each
// returned Selector addresses exactly one node.
func (s *Session) Elements(ctx context.Context, selector string) ([]schemas.Element, error) {
	raw, err := s.evaluate(ctx, elementsScript(selector))
	if err != nil {
		return nil, fmt.Errorf("failed to list elements for %q: %w", selector, err)
	}
	return decodeElements(raw)
}

// Click re-reads the element's geometry, since the page may have moved
// since it was listed, and clicks inside it.
func (s *Session) Click(ctx context.Context, el schemas.Element) error {
	raw, err := s.evaluate(ctx, geometryScript(el.Selector))
	if err != nil {
		return fmt.Errorf("failed to locate %s: %w", el.Selector, err)
	}
	geo, err := decodeGeometry(raw)
	if err != nil {
		return err
	}
	if geo == nil {
		return fmt.Errorf("element %s is no longer visible", el.Selector)
	}
	return s.input.ClickElement(ctx, geo)
}

func (s *Session) ClickAt(ctx context.Context, x, y float64) error {
	target := humanoid.Vector2D{X: x, Y: y}.Clamp(s.bounds())
	return s.input.ClickAt(ctx, target)
}

// Scroll turns the wheel by amount pixels in dir. DirectionTo scrolls to an
// absolute offset.
func (s *Session) Scroll(ctx context.Context, dir simulator.Direction, amount int) error {
	switch dir {
	case simulator.DirectionDown:
		return s.input.Scroll(ctx, float64(amount))
	case simulator.DirectionUp:
		return s.input.Scroll(ctx, -float64(amount))
	case simulator.DirectionTo:
		return s.ScrollTo(ctx, float64(amount))
	default:
		return fmt.Errorf("unknown scroll direction %q", dir)
	}
}

func (s *Session) ScrollTo(ctx context.Context, y float64) error {
	if y < 0 {
		y = 0
	}
	_, err := s.evaluate(ctx, scrollToScript(y))
	if err != nil {
		return fmt.Errorf("failed to scroll to %.0f: %w", y, err)
	}
	return nil
}

func (s *Session) Links(ctx context.Context) ([]string, error) {
	raw, err := s.evaluate(ctx, linksScript)
	if err != nil {
		return nil, fmt.Errorf("failed to collect links: %w", err)
	}
	return decodeLinks(raw)
}

func (s *Session) Idle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return s.input.Idle(ctx, d)
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	opCtx, cancel := withOptionalTimeout(ctx, s.cfg.ActionTimeout)
	defer cancel()

	var u string
	if err := s.runActions(opCtx, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return u, nil
}

// IsAlive reports whether the tab can still take commands.
func (s *Session) IsAlive() bool {
	return !s.closed.Load() && !s.dead.Load() && s.ctx.Err() == nil
}

// Close shuts the browser down gracefully, falling back to killing the
// process when ctx ends first. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		wasAlive := s.IsAlive()
		s.closed.Store(true)

		if wasAlive {
			done := make(chan error, 1)
			go func() { done <- chromedp.Cancel(s.ctx) }()
			select {
			case err := <-done:
				if err != nil && !errors.Is(err, context.Canceled) {
					s.closeErr = fmt.Errorf("failed to close browser: %w", err)
				}
			case <-ctx.Done():
				s.logger.Warn("Graceful browser shutdown timed out, killing process.")
				s.closeErr = ctx.Err()
			}
		}
		s.cancel()
		s.allocCxl()
		s.logger.Debug("Browser session closed.")
	})
	return s.closeErr
}
