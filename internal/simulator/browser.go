package simulator

import (
	"context"
	"errors"
	"time"

	"github.com/xkilldash9x/wanderer/api/schemas"
)

// ErrSessionClosed is returned (possibly wrapped) by a Browser once the
// underlying page or process is gone.
var ErrSessionClosed = errors.New("browser session closed")

// Browser is the capability set the simulator drives. Implementations must
// keep their identity across navigations; only page state changes.
type Browser interface {
	// Elements lists the currently visible, interactable elements matching selector.
	Elements(ctx context.Context, selector string) ([]schemas.Element, error)
	Click(ctx context.Context, el schemas.Element) error
	Scroll(ctx context.Context, dir Direction, amount int) error
	Navigate(ctx context.Context, url string) error
	// Links returns the absolute href of every anchor on the current page.
	Links(ctx context.Context) ([]string, error)
	// Idle keeps the page open for d, without navigating.
	Idle(ctx context.Context, d time.Duration) error
	ClickAt(ctx context.Context, x, y float64) error
	ScrollTo(ctx context.Context, y float64) error
	CurrentURL(ctx context.Context) (string, error)
	IsAlive() bool
	Close(ctx context.Context) error
}

// OpenOptions tune a new session. The zero value uses the factory defaults.
type OpenOptions struct {
	Viewport  *schemas.Viewport
	UserAgent string
}

// SessionFactory opens a Browser with the page at url loaded.
type SessionFactory interface {
	Open(ctx context.Context, url string, opts OpenOptions) (Browser, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(ctx context.Context, url string, opts OpenOptions) (Browser, error)

func (f SessionFactoryFunc) Open(ctx context.Context, url string, opts OpenOptions) (Browser, error) {
	return f(ctx, url, opts)
}
