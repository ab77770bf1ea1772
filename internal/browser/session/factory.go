// internal/browser/session/factory.go
package session

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wanderer/internal/browser/humanoid"
	"github.com/xkilldash9x/wanderer/internal/config"
	"github.com/xkilldash9x/wanderer/internal/simulator"
)

// Factory launches a fresh Chrome process per session.
type Factory struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

var _ simulator.SessionFactory = (*Factory)(nil)

// NewFactory creates a Factory from the browser section of the config.
func NewFactory(cfg config.BrowserConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger.Named("browser")}
}

// Open launches Chrome, applies device emulation and loads url. The returned
// session outlives ctx; callers must Close it.
func (f *Factory) Open(ctx context.Context, url string, opts simulator.OpenOptions) (simulator.Browser, error) {
	s, err := f.open(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (f *Factory) open(ctx context.Context, url string, opts simulator.OpenOptions) (*Session, error) {
	viewport := resolveViewport(f.cfg.Viewport, opts.Viewport)
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = f.cfg.UserAgent
	}

	id := uuid.NewString()
	logger := f.logger.With(zap.String("session_id", id))

	// The browser's lifetime is tied to the session, not to the caller's
	// context, so a cancelled run can still close it gracefully.
	allocCtx, allocCancel := chromedp.NewExecAllocator(
		context.WithoutCancel(ctx),
		buildAllocatorOptions(f.cfg, userAgent, viewport)...,
	)
	sugar := logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	s := &Session{
		id:       id,
		ctx:      tabCtx,
		cancel:   tabCancel,
		allocCxl: allocCancel,
		logger:   logger,
		cfg:      f.cfg,
		viewport: viewport,
	}

	exec := &cdpExecutor{logger: logger, runActionsFunc: s.runActions}
	center := s.bounds().Mul(0.5)
	if f.cfg.Humanoid.Enabled {
		hcfg := humanoid.FromSettings(f.cfg.Humanoid)
		hcfg.Bounds = s.bounds()
		h := humanoid.New(hcfg, logger.Named("humanoid"), exec)
		h.Place(center)
		s.input = h
	} else {
		s.input = newDirectInput(exec, center)
	}

	logger.Info("Launching browser.",
		zap.Bool("headless", f.cfg.Headless),
		zap.Int64("width", viewport.Width),
		zap.Int64("height", viewport.Height),
		zap.Bool("mobile", viewport.Mobile))

	// The first Run starts the process and must not carry a deadline, or the
	// browser would be killed when it expires.
	if err := chromedp.Run(tabCtx); err != nil {
		s.teardown()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	s.watchTarget()

	if err := s.prepare(ctx, userAgent); err != nil {
		s.teardown()
		return nil, err
	}
	if err := s.Navigate(ctx, url); err != nil {
		s.teardown()
		return nil, err
	}
	return s, nil
}

// teardown kills a half-built session without the graceful path.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.allocCxl()
	})
}
