//go:build !integration

// internal/oracle/oracle_test.go
package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

// fakeCompleter scripts a sequence of responses for the retry tests.
type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt, screenshotPath string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("unexpected extra call")
}

func testOracleConfig() config.OracleConfig {
	return config.OracleConfig{
		Model:          "test-model",
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		MaxPromptChars: 6000,
	}
}

func TestDecide_SuccessFirstAttempt(t *testing.T) {
	fc := &fakeCompleter{responses: []string{"action: click\ntarget: Save\nvalue:\nreasoning: submit the form"}}
	o := New(fc, testOracleConfig(), zap.NewNop())

	d := o.Decide(context.Background(), "save the doc", "page text", "")

	require.Equal(t, 1, fc.calls)
	assert.Equal(t, ActionClick, d.Normalized())
	assert.Equal(t, "Save", d.Target)
}

func TestDecide_RetriesTransientThenSucceeds(t *testing.T) {
	fc := &fakeCompleter{
		errs:      []error{errors.New("429 resource exhausted"), nil},
		responses: []string{"", "action: wait\ntarget:\nvalue:\nreasoning: page loading"},
	}
	o := New(fc, testOracleConfig(), zap.NewNop())

	d := o.Decide(context.Background(), "goal", "text", "")

	require.Equal(t, 2, fc.calls, "first transient failure should be retried")
	assert.Equal(t, ActionWait, d.Normalized())
	assert.Equal(t, "page loading", d.Reasoning)
}

func TestDecide_ExhaustsAttemptsAndDegradesToWait(t *testing.T) {
	transient := errors.New("model temporarily unavailable")
	fc := &fakeCompleter{errs: []error{transient, transient, transient, transient}}
	o := New(fc, testOracleConfig(), zap.NewNop())

	d := o.Decide(context.Background(), "goal", "text", "")

	require.Equal(t, 3, fc.calls, "attempts are bounded by MaxAttempts")
	assert.Equal(t, ActionWait, d.Normalized())
	assert.Equal(t, "oracle call failed; waiting for next step", d.Reasoning)
	assert.Contains(t, d.Raw, "temporarily unavailable")
}

func TestDecide_NonTransientFailsFast(t *testing.T) {
	fc := &fakeCompleter{errs: []error{errors.New("invalid api key")}}
	o := New(fc, testOracleConfig(), zap.NewNop())

	d := o.Decide(context.Background(), "goal", "text", "")

	require.Equal(t, 1, fc.calls, "non-transient errors must not be retried")
	assert.Equal(t, ActionWait, d.Normalized())
	assert.Contains(t, d.Raw, "invalid api key")
}

func TestDecide_MalformedResponseStillUsable(t *testing.T) {
	fc := &fakeCompleter{responses: []string{"I would suggest clicking around a bit."}}
	o := New(fc, testOracleConfig(), zap.NewNop())

	d := o.Decide(context.Background(), "goal", "text", "")

	assert.Equal(t, ActionWait, d.Normalized())
	assert.Empty(t, d.Target)
	assert.Equal(t, "I would suggest clicking around a bit.", d.Raw)
}

func TestRetryPolicy_StrictlyIncreasingWaits(t *testing.T) {
	o := New(&fakeCompleter{}, config.OracleConfig{
		MaxAttempts:    5,
		RetryBaseDelay: 100 * time.Millisecond,
	}, zap.NewNop())

	policy := o.newRetryPolicy()

	// The very first wait must honor the configured base delay, not the
	// stock default the policy was constructed with.
	first := policy.NextBackOff()
	assert.Equal(t, 100*time.Millisecond, first)

	prev := first
	for i := 0; i < 3; i++ {
		next := policy.NextBackOff()
		require.NotEqual(t, backoff.Stop, next)
		assert.Greater(t, next, prev, "wait %d must exceed the previous one", i)
		prev = next
	}
	// Jitter is disabled so the waits are exactly base * 2^n.
	assert.Equal(t, 800*time.Millisecond, prev)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"HTTP 429 Too Many Requests", true},
		{"Rate limit exceeded", true},
		{"service temporarily unavailable", true},
		{"invalid api key", false},
		{"context deadline exceeded", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, isTransient(errors.New(tc.err)), tc.err)
	}
}
