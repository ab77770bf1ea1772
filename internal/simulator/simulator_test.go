package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/wanderer/api/schemas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testTarget = "https://example.com/"

func fastConfig(weights map[ActionKind]float64, maxActions int) Config {
	cfg := DefaultConfig()
	cfg.MaxActions = maxActions
	cfg.MinDelaySeconds = 0
	cfg.MaxDelaySeconds = 0
	cfg.ActionWeights = weights
	cfg.PauseMin = 10 * time.Millisecond
	cfg.PauseMax = 20 * time.Millisecond
	return cfg
}

func newTestSimulator(t *testing.T, factory SessionFactory, opts ...Option) (*Simulator, *recordingSleeper) {
	t.Helper()
	sleeper := &recordingSleeper{}
	base := []Option{WithRand(rand.New(rand.NewSource(1))), WithSleeper(sleeper.Sleep)}
	return New(factory, zaptest.NewLogger(t), append(base, opts...)...), sleeper
}

func TestRun_PauseOnlyScenario(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	factory := &fakeFactory{browser: browser}
	sim, _ := newTestSimulator(t, factory)

	res, err := sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionPause: 1.0}, 3))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.True(t, res.Completed())
	assert.Equal(t, 3, res.ActionsExecuted)
	require.Len(t, res.Actions, 3)
	for _, a := range res.Actions {
		assert.Equal(t, ActionPause, a.Kind)
		assert.GreaterOrEqual(t, a.Duration, 10*time.Millisecond)
		assert.LessOrEqual(t, a.Duration, 20*time.Millisecond)
	}
	assert.NotEmpty(t, res.RunID)
	assert.True(t, browser.isClosed(), "session must be closed")
	assert.Equal(t, 1, factory.opened)
}

func TestRun_DelaysWithinBounds(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	sim, sleeper := newTestSimulator(t, &fakeFactory{browser: browser})

	cfg := fastConfig(map[ActionKind]float64{ActionScroll: 1, ActionPause: 1}, 40)
	cfg.MinDelaySeconds = 0.5
	cfg.MaxDelaySeconds = 2.0

	res, err := sim.Run(context.Background(), testTarget, cfg)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, res.Status)

	// One delay between each pair of actions, none after the last.
	require.Len(t, sleeper.delays, 39)
	for _, d := range sleeper.delays {
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}

func TestRun_NeverExceedsMaxActions(t *testing.T) {
	for _, limit := range []int{1, 2, 7, 30} {
		browser := newFakeBrowser(testTarget)
		browser.elements = []schemas.Element{{Selector: "#a"}}
		browser.links = []string{"https://example.com/x"}
		sim, _ := newTestSimulator(t, &fakeFactory{browser: browser})

		res, err := sim.Run(context.Background(), testTarget, fastConfig(DefaultConfig().ActionWeights, limit))
		require.NoError(t, err)
		assert.LessOrEqual(t, res.ActionsExecuted, limit)
		assert.Equal(t, limit, res.ActionsExecuted+res.Skipped+res.Failed)
		assert.Len(t, res.Actions, res.ActionsExecuted)
	}
}

func TestRun_SessionDiesMidLoop(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	calls := 0
	browser.MockIdle = func(ctx context.Context, d time.Duration) error {
		calls++
		if calls == 2 {
			browser.kill()
		}
		return nil
	}
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser})

	res, err := sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionPause: 1}, 10))
	require.NoError(t, err)

	assert.Equal(t, StatusTerminatedEarly, res.Status)
	assert.Equal(t, ReasonSessionUnusable, res.Reason)
	assert.Equal(t, 2, res.ActionsExecuted)
	assert.Less(t, res.ActionsExecuted, 10)
	assert.True(t, browser.isClosed())
}

func TestRun_SessionClosedErrorTerminates(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	browser.MockScroll = func(ctx context.Context, dir Direction, amount int) error {
		return fmt.Errorf("dispatch wheel: %w", ErrSessionClosed)
	}
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser})

	res, err := sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionScroll: 1}, 5))
	require.NoError(t, err)
	assert.Equal(t, StatusTerminatedEarly, res.Status)
	assert.Equal(t, ReasonSessionUnusable, res.Reason)
	assert.Equal(t, 0, res.ActionsExecuted)
	assert.Equal(t, 1, res.Failed)
}

func TestRun_ActionErrorsAreSwallowed(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	browser.elements = []schemas.Element{{Selector: "#buy"}}
	browser.MockClick = func(ctx context.Context, el schemas.Element) error { return errBoom }
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser})

	res, err := sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionClick: 1}, 4))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 0, res.ActionsExecuted)
	assert.Equal(t, 4, res.Failed)
}

func TestRun_ClickWithoutElementsIsSkipped(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser})

	res, err := sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionClick: 1}, 3))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 0, res.ActionsExecuted)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	for _, call := range browser.Calls() {
		assert.False(t, strings.HasPrefix(call, "click"), "unexpected call %q", call)
	}
}

func TestRun_ClickPicksVisibleElement(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	browser.elements = []schemas.Element{
		{Selector: "[data-wanderer-id=\"1\"]", Href: "https://example.com/one"},
		{Selector: "[data-wanderer-id=\"2\"]"},
	}
	var selectors []string
	browser.MockElements = func(ctx context.Context, selector string) ([]schemas.Element, error) {
		selectors = append(selectors, selector)
		return browser.elements, nil
	}
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser})

	cfg := fastConfig(map[ActionKind]float64{ActionClick: 1}, 6)
	cfg.ClickSelector = "a, button"
	res, err := sim.Run(context.Background(), testTarget, cfg)
	require.NoError(t, err)

	assert.Equal(t, 6, res.ActionsExecuted)
	for _, s := range selectors {
		assert.Equal(t, "a, button", s)
	}
	for _, a := range res.Actions {
		assert.Contains(t, []string{"[data-wanderer-id=\"1\"]", "[data-wanderer-id=\"2\"]"}, a.Selector)
	}
}

func TestRun_NavigateStaysInScope(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	browser.links = []string{
		"https://evil.test/phish",
		"https://blog.example.com/post",
		"https://example.com/pricing",
	}
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser})

	res, err := sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionNavigate: 1}, 20))
	require.NoError(t, err)
	require.Equal(t, 20, res.ActionsExecuted)
	for _, a := range res.Actions {
		assert.NotEqual(t, "https://evil.test/phish", a.URL)
	}
}

func TestRun_NavigateFallsBackToTarget(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	browser.links = []string{"https://elsewhere.org/"}
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser})

	res, err := sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionNavigate: 1}, 2))
	require.NoError(t, err)
	for _, a := range res.Actions {
		assert.Equal(t, testTarget, a.URL)
	}
}

func TestRun_ScrollParameters(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser})

	cfg := fastConfig(map[ActionKind]float64{ActionScroll: 1}, 200)
	cfg.ScrollMin, cfg.ScrollMax = 100, 300
	cfg.ScrollUpProbability = 0.25

	res, err := sim.Run(context.Background(), testTarget, cfg)
	require.NoError(t, err)

	ups := 0
	for _, a := range res.Actions {
		assert.GreaterOrEqual(t, a.Amount, 100)
		assert.LessOrEqual(t, a.Amount, 300)
		if a.Direction == DirectionUp {
			ups++
		}
	}
	assert.InDelta(t, 50, ups, 25)
}

func TestRun_ContextCancelled(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	browser.MockIdle = func(c context.Context, d time.Duration) error {
		cancel()
		return c.Err()
	}
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser})

	res, err := sim.Run(ctx, testTarget, fastConfig(map[ActionKind]float64{ActionPause: 1}, 5))
	require.NoError(t, err)
	assert.Equal(t, StatusTerminatedEarly, res.Status)
	assert.Equal(t, ReasonInterrupted, res.Reason)
	assert.Equal(t, 0, res.Failed, "cancellation is not an action failure")
	assert.True(t, browser.isClosed(), "session must be closed even after cancellation")
}

func TestRun_DurationBudget(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser}, WithClock(clock))

	cfg := fastConfig(map[ActionKind]float64{ActionPause: 1}, 100)
	cfg.MaxDuration = 5 * time.Second
	res, err := sim.Run(context.Background(), testTarget, cfg)
	require.NoError(t, err)
	assert.Equal(t, StatusTerminatedEarly, res.Status)
	assert.Equal(t, ReasonDurationExhausted, res.Reason)
	assert.Less(t, res.ActionsExecuted, 100)
}

func TestRun_ValidationHappensBeforeLaunch(t *testing.T) {
	factory := &fakeFactory{browser: newFakeBrowser(testTarget)}
	sim, _ := newTestSimulator(t, factory)

	_, err := sim.Run(context.Background(), "not a url", fastConfig(map[ActionKind]float64{ActionPause: 1}, 1))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionPause: 1}, 0))
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "max_actions", vErr.Field)

	cfg := fastConfig(map[ActionKind]float64{ActionPause: 1}, 1)
	cfg.MinDelaySeconds, cfg.MaxDelaySeconds = 3, 1
	_, err = sim.Run(context.Background(), testTarget, cfg)
	require.ErrorAs(t, err, &vErr)

	assert.Zero(t, factory.opened, "no browser may be launched for invalid input")
}

func TestRun_SessionInitError(t *testing.T) {
	factory := &fakeFactory{err: errors.New("chrome not found")}
	sim, _ := newTestSimulator(t, factory)

	res, err := sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionPause: 1}, 1))
	assert.Nil(t, res)
	var initErr *SessionInitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, testTarget, initErr.URL)
	assert.ErrorContains(t, err, "chrome not found")
}

func TestRun_RecorderSeesEveryIteration(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	rec := &memoryRecorder{}
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser}, WithRecorder(rec))

	res, err := sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionPause: 1, ActionClick: 1}, 8))
	require.NoError(t, err)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, res.RunID, rec.runs[0].RunID)
	assert.Equal(t, ModeSimulate, rec.runs[0].Mode)
	require.Len(t, rec.actions, 8)
	for i, a := range rec.actions {
		assert.Equal(t, i, a.Seq)
	}
	require.Len(t, rec.finished, 1)
	assert.Same(t, res, rec.finished[0])
}

func TestRun_RecorderFailuresAreNotFatal(t *testing.T) {
	browser := newFakeBrowser(testTarget)
	rec := &memoryRecorder{failWith: errBoom}
	sim, _ := newTestSimulator(t, &fakeFactory{browser: browser}, WithRecorder(rec))

	res, err := sim.Run(context.Background(), testTarget, fastConfig(map[ActionKind]float64{ActionPause: 1}, 3))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 3, res.ActionsExecuted)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, sleepContext(ctx, 0), context.Canceled)
}
