// internal/oracle/oracle.go
// The Oracle wraps a Completer with the decision contract: prompt assembly,
// bounded retry on transient transport failures, response parsing, and target
// sanitation. A failed call never propagates; it degrades to a synthetic
// "wait" decision so a single bad round trip cannot abort the loop.
package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

// Oracle turns page observations into sanitized action decisions.
type Oracle struct {
	completer Completer
	cfg       config.OracleConfig
	logger    *zap.Logger
}

// New constructs an Oracle around the given transport.
func New(completer Completer, cfg config.OracleConfig, logger *zap.Logger) *Oracle {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = backoff.DefaultInitialInterval
	}
	return &Oracle{
		completer: completer,
		cfg:       cfg,
		logger:    logger.Named("oracle"),
	}
}

// Decide asks the reasoning model for the next action given the goal and the
// current observation. The returned decision is always usable: transport
// failures and malformed responses both degrade rather than error.
func (o *Oracle) Decide(ctx context.Context, goal, visibleText, screenshotRef string) Decision {
	prompt := BuildPrompt(goal, visibleText, screenshotRef, o.cfg.MaxPromptChars)

	var raw string
	operation := func() error {
		out, err := o.completer.Complete(ctx, prompt, screenshotRef)
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		raw = out
		return nil
	}

	notify := func(err error, wait time.Duration) {
		o.logger.Info("Transient oracle error; retrying.",
			zap.Duration("wait", wait), zap.Error(err))
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(o.newRetryPolicy(), uint64(o.cfg.MaxAttempts-1)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		o.logger.Error("Oracle call failed; degrading to wait.", zap.Error(err))
		return Decision{
			Action:    string(ActionWait),
			Reasoning: "oracle call failed; waiting for next step",
			Raw:       err.Error(),
		}
	}

	o.logger.Debug("Oracle raw response.", zap.String("response", raw))
	return Sanitize(ParseDecision(raw))
}

// newRetryPolicy builds the exponential policy for transient failures: the
// base delay doubles on each attempt, with jitter disabled so waits are
// strictly increasing.
func (o *Oracle) newRetryPolicy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.cfg.RetryBaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	// The constructor captures currentInterval from the stock default, so the
	// configured base only takes effect after a reset.
	b.Reset()
	return b
}

// transientMarkers are the error-text signatures worth retrying: rate limiting
// and temporary unavailability. Anything else fails fast.
var transientMarkers = []string{"429", "rate", "temporarily unavailable"}

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
