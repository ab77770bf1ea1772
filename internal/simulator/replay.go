package simulator

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wanderer/api/schemas"
)

// DefaultFallbackDelay is waited between steps whose timestamps go backwards.
const DefaultFallbackDelay = 3 * time.Second

// ReplayOptions tune Replay.
type ReplayOptions struct {
	// StaticDelay, when positive, replaces every recorded gap.
	StaticDelay time.Duration
	// FallbackDelay is used when a gap is negative. Zero means DefaultFallbackDelay.
	FallbackDelay time.Duration
	// MaxGap caps recorded gaps. Zero means uncapped.
	MaxGap time.Duration
	// StartURL is opened when no step carries a page.
	StartURL   string
	UserAgent  string
	PixelRatio float64
	// Mobile emulates a phone: mobile device metrics with touch input.
	Mobile bool
}

// Phone metrics used when Mobile is set and the recording has no dimension.
const (
	mobileFallbackWidth  = 360
	mobileFallbackHeight = 640
)

// Replay reproduces recorded steps in a fresh session: it waits out the
// recorded gaps, follows page changes, restores scroll offsets and clicks at
// recorded mouse positions. The viewport is emulated from the first step's
// dimension when it has one. Status rules match Run: Completed iff every step
// was processed.
func (s *Simulator) Replay(ctx context.Context, steps []schemas.ReplayStep, opts ReplayOptions) (*Result, error) {
	if len(steps) == 0 {
		return nil, &ValidationError{Field: "steps", Reason: "nothing to replay"}
	}
	start := opts.StartURL
	for _, st := range steps {
		if st.Page != "" {
			start = st.Page
			break
		}
	}
	target, err := parseTarget(start)
	if err != nil {
		return nil, err
	}
	if opts.FallbackDelay <= 0 {
		opts.FallbackDelay = DefaultFallbackDelay
	}

	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID), zap.String("target", target.String()), zap.String("mode", string(ModeReplay)))

	browser, err := s.factory.Open(ctx, target.String(), openOptionsFor(steps[0], opts))
	if err != nil {
		return nil, &SessionInitError{URL: target.String(), Err: err}
	}
	defer s.closeBrowser(ctx, browser, logger)

	res := &Result{RunID: runID, Target: target.String(), Actions: []Action{}}
	started := s.now()
	s.startRun(ctx, RunInfo{RunID: runID, Target: target.String(), Mode: ModeReplay, StartedAt: started}, logger)
	logger.Info("Replay started.", zap.Int("steps", len(steps)))

	currentPage := target.String()
	seq := 0
	for i, step := range steps {
		if i > 0 {
			if err := s.sleep(ctx, replayGap(steps[i-1], step, opts)); err != nil {
				res.terminate(ReasonInterrupted)
				break
			}
		}
		if reason, stop := s.shouldStop(ctx, browser, started, 0); stop {
			res.terminate(reason)
			break
		}

		actions := stepActions(step, currentPage)
		if len(actions) == 0 {
			if reason, stop := s.account(ctx, browser, res, seq, Action{Kind: ActionPause}, OutcomeSkipped, nil, logger); stop {
				res.terminate(reason)
				break
			}
			seq++
			continue
		}

		stopped := false
		for _, action := range actions {
			err := s.performReplayAction(ctx, browser, action)
			outcome := OutcomeExecuted
			if err != nil {
				outcome = OutcomeFailed
			} else if action.Kind == ActionNavigate {
				currentPage = action.URL
			}
			reason, stop := s.account(ctx, browser, res, seq, action, outcome, err, logger)
			seq++
			if stop {
				res.terminate(reason)
				stopped = true
				break
			}
		}
		if stopped {
			break
		}
	}

	if res.Status == "" {
		res.Status = StatusCompleted
	}
	s.finishRun(ctx, res, logger)
	logger.Info("Replay finished.",
		zap.String("status", string(res.Status)),
		zap.String("reason", res.Reason),
		zap.Int("executed", res.ActionsExecuted),
		zap.Int("failed", res.Failed))
	return res, nil
}

// replayGap is the wait before cur.
func replayGap(prev, cur schemas.ReplayStep, opts ReplayOptions) time.Duration {
	if opts.StaticDelay > 0 {
		return opts.StaticDelay
	}
	gap := cur.Time.Sub(prev.Time)
	if gap < 0 {
		return opts.FallbackDelay
	}
	if opts.MaxGap > 0 && gap > opts.MaxGap {
		return opts.MaxGap
	}
	return gap
}

// stepActions turns a step into the browser operations it implies, in the
// order navigate, scroll, click.
func stepActions(step schemas.ReplayStep, currentPage string) []Action {
	var actions []Action
	if step.Page != "" && step.Page != currentPage {
		actions = append(actions, Action{Kind: ActionNavigate, URL: step.Page})
	}
	if step.ScrollTop != nil {
		actions = append(actions, Action{Kind: ActionScroll, Direction: DirectionTo, Amount: int(math.Round(*step.ScrollTop))})
	}
	if step.MousePosition != nil {
		actions = append(actions, Action{Kind: ActionClick, X: step.MousePosition.X, Y: step.MousePosition.Y})
	}
	return actions
}

func (s *Simulator) performReplayAction(ctx context.Context, b Browser, a Action) error {
	switch a.Kind {
	case ActionNavigate:
		return b.Navigate(ctx, a.URL)
	case ActionScroll:
		return b.ScrollTo(ctx, float64(a.Amount))
	case ActionClick:
		return b.ClickAt(ctx, a.X, a.Y)
	}
	return nil
}

func openOptionsFor(first schemas.ReplayStep, opts ReplayOptions) OpenOptions {
	out := OpenOptions{UserAgent: opts.UserAgent}
	if first.Dimension != nil && first.Dimension.Width > 0 && first.Dimension.Height > 0 {
		vp := *first.Dimension
		if vp.PixelRatio <= 0 {
			vp.PixelRatio = opts.PixelRatio
		}
		out.Viewport = &vp
	}
	if opts.Mobile {
		if out.Viewport == nil {
			out.Viewport = &schemas.Viewport{Width: mobileFallbackWidth, Height: mobileFallbackHeight, PixelRatio: opts.PixelRatio}
		}
		out.Viewport.Mobile = true
	}
	return out
}
