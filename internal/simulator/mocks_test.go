package simulator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xkilldash9x/wanderer/api/schemas"
)

// fakeBrowser is an in-memory Browser. Each capability can be overridden with
// a MockXxx func; otherwise the default records the call and succeeds.
type fakeBrowser struct {
	mu       sync.Mutex
	alive    bool
	closed   bool
	url      string
	elements []schemas.Element
	links    []string
	calls    []string
	idles    []time.Duration

	MockElements func(ctx context.Context, selector string) ([]schemas.Element, error)
	MockClick    func(ctx context.Context, el schemas.Element) error
	MockScroll   func(ctx context.Context, dir Direction, amount int) error
	MockNavigate func(ctx context.Context, url string) error
	MockIdle     func(ctx context.Context, d time.Duration) error
	MockClickAt  func(ctx context.Context, x, y float64) error
	MockScrollTo func(ctx context.Context, y float64) error
}

func newFakeBrowser(url string) *fakeBrowser {
	return &fakeBrowser{alive: true, url: url}
}

func (f *fakeBrowser) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBrowser) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBrowser) kill() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive = false
}

func (f *fakeBrowser) Elements(ctx context.Context, selector string) ([]schemas.Element, error) {
	f.record("elements")
	if f.MockElements != nil {
		return f.MockElements(ctx, selector)
	}
	return f.elements, nil
}

func (f *fakeBrowser) Click(ctx context.Context, el schemas.Element) error {
	f.record("click " + el.Selector)
	if f.MockClick != nil {
		return f.MockClick(ctx, el)
	}
	return nil
}

func (f *fakeBrowser) Scroll(ctx context.Context, dir Direction, amount int) error {
	f.record("scroll " + string(dir))
	if f.MockScroll != nil {
		return f.MockScroll(ctx, dir, amount)
	}
	return nil
}

func (f *fakeBrowser) Navigate(ctx context.Context, url string) error {
	f.record("navigate " + url)
	if f.MockNavigate != nil {
		if err := f.MockNavigate(ctx, url); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.url = url
	f.mu.Unlock()
	return nil
}

func (f *fakeBrowser) Links(ctx context.Context) ([]string, error) {
	f.record("links")
	return f.links, nil
}

func (f *fakeBrowser) Idle(ctx context.Context, d time.Duration) error {
	f.record("idle")
	f.mu.Lock()
	f.idles = append(f.idles, d)
	f.mu.Unlock()
	if f.MockIdle != nil {
		return f.MockIdle(ctx, d)
	}
	return nil
}

func (f *fakeBrowser) ClickAt(ctx context.Context, x, y float64) error {
	f.record("clickAt")
	if f.MockClickAt != nil {
		return f.MockClickAt(ctx, x, y)
	}
	return nil
}

func (f *fakeBrowser) ScrollTo(ctx context.Context, y float64) error {
	f.record("scrollTo")
	if f.MockScrollTo != nil {
		return f.MockScrollTo(ctx, y)
	}
	return nil
}

func (f *fakeBrowser) CurrentURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.alive {
		return "", ErrSessionClosed
	}
	return f.url, nil
}

func (f *fakeBrowser) IsAlive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive && !f.closed
}

func (f *fakeBrowser) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBrowser) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeFactory hands out a prepared browser and remembers how it was opened.
type fakeFactory struct {
	browser  *fakeBrowser
	err      error
	opened   int
	lastURL  string
	lastOpts OpenOptions
}

func (f *fakeFactory) Open(ctx context.Context, url string, opts OpenOptions) (Browser, error) {
	f.opened++
	f.lastURL = url
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.browser, nil
}

// recordingSleeper captures every requested delay without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

// memoryRecorder is an in-memory Recorder.
type memoryRecorder struct {
	runs     []RunInfo
	actions  []ActionRecord
	finished []*Result
	failWith error
}

func (m *memoryRecorder) StartRun(ctx context.Context, info RunInfo) error {
	m.runs = append(m.runs, info)
	return m.failWith
}

func (m *memoryRecorder) RecordAction(ctx context.Context, rec ActionRecord) error {
	m.actions = append(m.actions, rec)
	return m.failWith
}

func (m *memoryRecorder) FinishRun(ctx context.Context, res *Result, finishedAt time.Time) error {
	m.finished = append(m.finished, res)
	return m.failWith
}

var errBoom = errors.New("boom")
