package simulator

import (
	"context"
	"errors"
	"math/rand"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCloseTimeout = 10 * time.Second

// Simulator drives browser sessions through randomized action sequences.
// A Simulator runs one session at a time; it is not safe for concurrent Runs
// because it shares one RNG.
type Simulator struct {
	factory      SessionFactory
	logger       *zap.Logger
	rng          *rand.Rand
	recorder     Recorder
	sleep        func(ctx context.Context, d time.Duration) error
	now          func() time.Time
	closeTimeout time.Duration
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the random source. Use a seeded source for reproducible runs.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithRecorder attaches a Recorder, such as the SQLite journal.
func WithRecorder(r Recorder) Option {
	return func(s *Simulator) { s.recorder = r }
}

// WithSleeper replaces the context-aware sleep between actions.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Simulator) { s.sleep = fn }
}

// WithClock replaces time.Now, used for the duration budget.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// New creates a Simulator that opens sessions through factory.
func New(factory SessionFactory, logger *zap.Logger, opts ...Option) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Simulator{
		factory:      factory,
		logger:       logger.Named("simulator"),
		sleep:        sleepContext,
		now:          time.Now,
		closeTimeout: defaultCloseTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Run opens targetURL and performs up to cfg.MaxActions weighted random actions.
//
// Input errors are returned as *ValidationError before any browser is started
// and a failed launch or load as *SessionInitError. Everything after the page
// is open is reported through the Result: a cancelled context, a dead session
// or an exhausted duration budget end the run with StatusTerminatedEarly and a
// nil error.
func (s *Simulator) Run(ctx context.Context, targetURL string, cfg Config) (*Result, error) {
	target, err := parseTarget(targetURL)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	policy, err := NewPolicy(cfg.ActionWeights)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID), zap.String("target", target.String()))

	browser, err := s.factory.Open(ctx, target.String(), OpenOptions{})
	if err != nil {
		return nil, &SessionInitError{URL: target.String(), Err: err}
	}
	defer s.closeBrowser(ctx, browser, logger)

	res := &Result{RunID: runID, Target: target.String(), Actions: []Action{}}
	started := s.now()
	s.startRun(ctx, RunInfo{RunID: runID, Target: target.String(), Mode: ModeSimulate, StartedAt: started}, logger)
	logger.Info("Simulation started.",
		zap.Int("max_actions", cfg.MaxActions),
		zap.Float64("min_delay_s", cfg.MinDelaySeconds),
		zap.Float64("max_delay_s", cfg.MaxDelaySeconds))

	for i := 0; i < cfg.MaxActions; i++ {
		if reason, stop := s.shouldStop(ctx, browser, started, cfg.MaxDuration); stop {
			res.terminate(reason)
			break
		}

		kind := policy.Sample(s.rng)
		action, outcome, err := s.execute(ctx, browser, target, kind, cfg)
		if reason, stop := s.account(ctx, browser, res, i, action, outcome, err, logger); stop {
			res.terminate(reason)
			break
		}

		if i == cfg.MaxActions-1 {
			break
		}
		if err := s.sleep(ctx, sampleDelay(s.rng, cfg.MinDelaySeconds, cfg.MaxDelaySeconds)); err != nil {
			res.terminate(ReasonInterrupted)
			break
		}
	}

	if res.Status == "" {
		res.Status = StatusCompleted
	}
	s.finishRun(ctx, res, logger)
	logger.Info("Simulation finished.",
		zap.String("status", string(res.Status)),
		zap.String("reason", res.Reason),
		zap.Int("executed", res.ActionsExecuted),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))
	return res, nil
}

// shouldStop runs the pre-iteration checks in order: context, session, budget.
func (s *Simulator) shouldStop(ctx context.Context, b Browser, started time.Time, budget time.Duration) (string, bool) {
	if ctx.Err() != nil {
		return ReasonInterrupted, true
	}
	if !b.IsAlive() {
		return ReasonSessionUnusable, true
	}
	if budget > 0 && s.now().Sub(started) >= budget {
		return ReasonDurationExhausted, true
	}
	return "", false
}

// account folds the outcome of one iteration into res and reports it to the
// recorder. It returns a termination reason when the iteration shows the run
// cannot go on.
func (s *Simulator) account(ctx context.Context, b Browser, res *Result, seq int, action Action, outcome Outcome, err error, logger *zap.Logger) (string, bool) {
	rec := ActionRecord{RunID: res.RunID, Seq: seq, At: s.now(), Action: action, Outcome: outcome}

	switch outcome {
	case OutcomeExecuted:
		res.ActionsExecuted++
		res.Actions = append(res.Actions, action)
		logger.Debug("Action executed.", zap.Int("seq", seq), zap.Stringer("action", action))
	case OutcomeSkipped:
		res.Skipped++
		logger.Debug("No eligible target; iteration skipped.", zap.Int("seq", seq), zap.String("kind", string(action.Kind)))
	case OutcomeFailed:
		rec.Err = err.Error()
	}
	if outcome != OutcomeFailed {
		s.recordAction(ctx, rec, logger)
		return "", false
	}

	// An action cut short by cancellation is not a failure of the action.
	if ctx.Err() != nil {
		return ReasonInterrupted, true
	}

	res.Failed++
	s.recordAction(ctx, rec, logger)
	actionErr := &ActionError{Action: action, Err: err}
	if errors.Is(err, ErrSessionClosed) || !b.IsAlive() {
		logger.Warn("Session became unusable.", zap.Int("seq", seq), zap.Error(actionErr))
		return ReasonSessionUnusable, true
	}
	logger.Warn("Action failed; continuing.", zap.Int("seq", seq), zap.Error(actionErr))
	return "", false
}

// execute materializes the parameters of kind and performs it.
func (s *Simulator) execute(ctx context.Context, b Browser, target *url.URL, kind ActionKind, cfg Config) (Action, Outcome, error) {
	action := Action{Kind: kind}

	switch kind {
	case ActionScroll:
		action.Direction = DirectionDown
		if s.rng.Float64() < cfg.ScrollUpProbability {
			action.Direction = DirectionUp
		}
		action.Amount = uniformInt(s.rng, cfg.ScrollMin, cfg.ScrollMax)
		if err := b.Scroll(ctx, action.Direction, action.Amount); err != nil {
			return action, OutcomeFailed, err
		}

	case ActionPause:
		action.Duration = uniformDuration(s.rng, cfg.PauseMin, cfg.PauseMax)
		if err := b.Idle(ctx, action.Duration); err != nil {
			return action, OutcomeFailed, err
		}

	case ActionClick:
		action.Selector = cfg.ClickSelector
		elements, err := b.Elements(ctx, cfg.ClickSelector)
		if err != nil {
			return action, OutcomeFailed, err
		}
		if len(elements) == 0 {
			return action, OutcomeSkipped, nil
		}
		el := elements[s.rng.Intn(len(elements))]
		action.Selector = el.Selector
		action.URL = el.Href
		if err := b.Click(ctx, el); err != nil {
			return action, OutcomeFailed, err
		}

	case ActionNavigate:
		links, err := b.Links(ctx)
		if err != nil {
			return action, OutcomeFailed, err
		}
		current, _ := b.CurrentURL(ctx)
		candidates := eligibleLinks(target, current, links, cfg.NavigateScope)
		action.URL = target.String()
		if len(candidates) > 0 {
			action.URL = candidates[s.rng.Intn(len(candidates))]
		}
		if err := b.Navigate(ctx, action.URL); err != nil {
			return action, OutcomeFailed, err
		}
	}

	return action, OutcomeExecuted, nil
}

func (s *Simulator) closeBrowser(ctx context.Context, b Browser, logger *zap.Logger) {
	// The run context may already be cancelled; closing must still happen.
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.closeTimeout)
	defer cancel()
	if err := b.Close(closeCtx); err != nil {
		logger.Warn("Failed to close browser session cleanly.", zap.Error(err))
	}
}

func (s *Simulator) startRun(ctx context.Context, info RunInfo, logger *zap.Logger) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.StartRun(context.WithoutCancel(ctx), info); err != nil {
		logger.Warn("Recorder failed to start run.", zap.Error(err))
	}
}

func (s *Simulator) recordAction(ctx context.Context, rec ActionRecord, logger *zap.Logger) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordAction(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("Recorder failed to store action.", zap.Int("seq", rec.Seq), zap.Error(err))
	}
}

func (s *Simulator) finishRun(ctx context.Context, res *Result, logger *zap.Logger) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.FinishRun(context.WithoutCancel(ctx), res, s.now()); err != nil {
		logger.Warn("Recorder failed to finish run.", zap.Error(err))
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
