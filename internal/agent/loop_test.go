//go:build !integration

// internal/agent/loop_test.go
package agent_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/agent"
	"github.com/xkilldash9x/webpilot-cli/internal/oracle"
)

// scriptedDecider replays a fixed decision sequence and records the prompt
// text it was shown at each step. The last decision repeats if the loop asks
// for more.
type scriptedDecider struct {
	decisions []oracle.Decision
	prompts   []string
}

func (d *scriptedDecider) Decide(ctx context.Context, goal, visibleText, screenshotRef string) oracle.Decision {
	i := len(d.prompts)
	d.prompts = append(d.prompts, visibleText)
	if i >= len(d.decisions) {
		i = len(d.decisions) - 1
	}
	return d.decisions[i]
}

func newTestLoop(page *fakePage, decider agent.Decider, saver agent.StateSaver, maxTurns int) *agent.Loop {
	observer := agent.NewPageObserver(page, "artifacts", 1000, zap.NewNop())
	resolver := agent.NewActionResolver(page, agent.ResolverOptions{
		StrategyTimeout: 100 * time.Millisecond,
		ScanTimeout:     100 * time.Millisecond,
		MaxScanElements: 10,
		WaitDelay:       time.Millisecond,
	}, zap.NewNop())
	return agent.NewLoop(observer, decider, resolver, saver, agent.LoopOptions{
		MaxTurns:  maxTurns,
		StepDelay: time.Millisecond,
	}, zap.NewNop())
}

func TestRun_DoneExitsWithoutInteraction(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	decider := &scriptedDecider{decisions: []oracle.Decision{{Action: "done", Reasoning: "goal already met"}}}
	saves := 0
	saver := func(ctx context.Context) error { saves++; return nil }

	err := newTestLoop(page, decider, saver, 10).Run(context.Background(), "goal")

	require.NoError(t, err)
	assert.Equal(t, 1, saves, "saver runs exactly once on exit")
	for _, call := range page.calledMethods() {
		assert.Contains(t, []string{"Screenshot", "VisibleText"}, call,
			"done must exit before any element interaction")
	}
}

func TestRun_TurnBudgetExceeded(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	decider := &scriptedDecider{decisions: []oracle.Decision{{Action: "wait"}}}
	saves := 0
	saver := func(ctx context.Context) error { saves++; return nil }

	err := newTestLoop(page, decider, saver, 3).Run(context.Background(), "goal")

	require.ErrorIs(t, err, agent.ErrTurnBudgetExceeded)
	assert.Len(t, decider.prompts, 3, "exactly MaxTurns decisions")
	assert.Equal(t, 1, saves, "state is saved even on budget exhaustion")
}

func TestRun_MalformedDecisionAdvancesLoop(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	decider := &scriptedDecider{decisions: []oracle.Decision{
		oracle.Sanitize(oracle.ParseDecision("I would try clicking around.")),
		{Action: "done"},
	}}

	err := newTestLoop(page, decider, nil, 10).Run(context.Background(), "goal")

	require.NoError(t, err)
	assert.Len(t, decider.prompts, 2, "an unusable decision costs one turn, not the run")
}

func TestRun_ClickHintVisibleNextStep(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	page.visibleText = "Issues sidebar"
	decider := &scriptedDecider{decisions: []oracle.Decision{
		{Action: "click", Target: "All issues"},
		{Action: "done"},
	}}

	err := newTestLoop(page, decider, nil, 10).Run(context.Background(), "goal")

	require.NoError(t, err)
	require.Len(t, decider.prompts, 2)
	assert.NotContains(t, decider.prompts[0], "was just clicked")
	assert.Contains(t, decider.prompts[1], "'All issues' was just clicked")
}

func TestRun_FailedActionContinues(t *testing.T) {
	t.Parallel()

	page := newFakePage().fail("ClickByText", "ClickByPlaceholder", "ClickByLabel", "ClickableLabels")
	decider := &scriptedDecider{decisions: []oracle.Decision{
		{Action: "click", Target: "Missing button"},
		{Action: "done"},
	}}

	err := newTestLoop(page, decider, nil, 10).Run(context.Background(), "goal")

	require.NoError(t, err)
	assert.Len(t, decider.prompts, 2, "a failed step is recoverable")
}

func TestRun_CancelledContextStillSaves(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	decider := &scriptedDecider{decisions: []oracle.Decision{{Action: "wait"}}}
	saves := 0
	saver := func(ctx context.Context) error {
		saves++
		assert.NoError(t, ctx.Err(), "the save gets its own live context")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newTestLoop(page, decider, saver, 10).Run(ctx, "goal")

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, saves)
}

func TestRun_SaverFailureDoesNotMaskResult(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	decider := &scriptedDecider{decisions: []oracle.Decision{{Action: "done"}}}
	saver := func(ctx context.Context) error { return errors.New("disk full") }

	err := newTestLoop(page, decider, saver, 10).Run(context.Background(), "goal")

	assert.NoError(t, err, "a failed save is logged, not returned")
}
