// internal/agent/loop.go
// AgentLoop orchestrates the step cycle: observe the page, ask the oracle for
// the next action, resolve it against the live page, pace, repeat. The only
// normal exit is a "done" decision; a turn budget guards against goals the
// oracle never converges on. Session state is saved on every exit path.
package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/webpilot-cli/internal/oracle"
)

// ErrTurnBudgetExceeded is returned when the loop exhausts its turn budget
// before the oracle emits done.
var ErrTurnBudgetExceeded = errors.New("turn budget exhausted before goal completion")

// Decider is the reasoning boundary the loop consumes. The concrete Oracle
// implements it; tests use scripted fakes.
type Decider interface {
	Decide(ctx context.Context, goal, visibleText, screenshotRef string) oracle.Decision
}

// StateSaver persists the authenticated session state at loop exit. A nil
// saver disables persistence.
type StateSaver func(ctx context.Context) error

// LoopOptions configures the step cycle.
type LoopOptions struct {
	// MaxTurns bounds loop iterations; <= 0 means no budget.
	MaxTurns int
	// StepDelay paces consecutive iterations.
	StepDelay time.Duration
}

// Loop drives a page toward a goal one decision at a time.
type Loop struct {
	observer *PageObserver
	decider  Decider
	resolver *ActionResolver
	saver    StateSaver
	opts     LoopOptions
	limiter  *rate.Limiter
	logger   *zap.Logger

	memory LoopMemory
}

// NewLoop wires the loop from its collaborators.
func NewLoop(observer *PageObserver, decider Decider, resolver *ActionResolver, saver StateSaver, opts LoopOptions, logger *zap.Logger) *Loop {
	if opts.StepDelay <= 0 {
		opts.StepDelay = 1500 * time.Millisecond
	}
	return &Loop{
		observer: observer,
		decider:  decider,
		resolver: resolver,
		saver:    saver,
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Every(opts.StepDelay), 1),
		logger:   logger.Named("loop"),
	}
}

// Run executes the perceive/decide/act cycle until the oracle emits done, the
// turn budget runs out, or the context is cancelled. The session saver runs on
// every exit path.
func (l *Loop) Run(ctx context.Context, goal string) error {
	defer l.saveState()

	l.memory.Clear()
	for step := 0; ; step++ {
		if l.opts.MaxTurns > 0 && step >= l.opts.MaxTurns {
			l.logger.Warn("Turn budget exhausted.", zap.Int("max_turns", l.opts.MaxTurns))
			return ErrTurnBudgetExceeded
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		obs := l.observer.Observe(ctx, step, &l.memory)

		decision := l.decider.Decide(ctx, goal, obs.PromptText(), obs.ScreenshotRef)
		l.logger.Info("Step decision.",
			zap.Int("step", step),
			zap.String("action", decision.Action),
			zap.String("target", decision.Target),
			zap.String("value", decision.Value),
			zap.String("reasoning", decision.Reasoning))

		if decision.IsDone() {
			l.logger.Info("Goal complete.", zap.Int("steps", step+1))
			return nil
		}

		outcome := l.resolver.Execute(ctx, decision, &l.memory)
		if !outcome.Succeeded {
			// Recoverable: the next observation re-captures the page and the
			// oracle may retry or choose differently.
			l.logger.Warn("Step action failed; continuing.",
				zap.Int("step", step), zap.String("action", decision.Action), zap.String("target", decision.Target))
		} else {
			l.logger.Debug("Step action resolved.",
				zap.Int("step", step), zap.String("strategy", outcome.Strategy))
		}

		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
	}
}

// saveState attempts the session save regardless of how the loop exited.
func (l *Loop) saveState() {
	if l.saver == nil {
		return
	}
	// The run context may already be cancelled; give the save its own bound.
	saveCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := l.saver(saveCtx); err != nil {
		l.logger.Warn("Failed to save session state.", zap.Error(err))
		return
	}
	l.logger.Info("Session state saved.")
}
