//go:build !integration

// internal/agent/observer_test.go
package agent_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/agent"
)

func TestObserve_CapturesTextAndScreenshotRef(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	page.visibleText = "Issues\nNew view"
	obs := agent.NewPageObserver(page, "artifacts", 1000, zap.NewNop()).
		Observe(context.Background(), 3, &agent.LoopMemory{})

	assert.Equal(t, "Issues\nNew view", obs.VisibleText)
	assert.Equal(t, filepath.Join("artifacts", "step_3.png"), obs.ScreenshotRef)
	assert.Empty(t, obs.Annotation)
	assert.Equal(t, obs.VisibleText, obs.PromptText())
}

func TestObserve_TruncatesVisibleText(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	page.visibleText = "abcdefghij"
	obs := agent.NewPageObserver(page, "artifacts", 4, zap.NewNop()).
		Observe(context.Background(), 0, nil)

	assert.Equal(t, "abcd", obs.VisibleText)
}

func TestObserve_AnnotatesAfterClick(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	page.visibleText = "page"
	mem := &agent.LoopMemory{}
	mem.RecordClick("All issues")

	obs := agent.NewPageObserver(page, "artifacts", 1000, zap.NewNop()).
		Observe(context.Background(), 1, mem)

	require.NotEmpty(t, obs.Annotation)
	assert.Equal(t,
		"(Note: 'All issues' was just clicked. If it opened an input field, you can now type.)",
		obs.Annotation)
	assert.Equal(t, "page\n"+obs.Annotation, obs.PromptText())
}

func TestObserve_NoAnnotationAfterClear(t *testing.T) {
	t.Parallel()

	page := newFakePage()
	mem := &agent.LoopMemory{}
	mem.RecordClick("All issues")
	mem.Clear()

	obs := agent.NewPageObserver(page, "artifacts", 1000, zap.NewNop()).
		Observe(context.Background(), 1, mem)

	assert.Empty(t, obs.Annotation)
}

func TestObserve_DegradesOnCaptureFailure(t *testing.T) {
	t.Parallel()

	page := newFakePage().fail("Screenshot", "VisibleText")
	obs := agent.NewPageObserver(page, "artifacts", 1000, zap.NewNop()).
		Observe(context.Background(), 0, &agent.LoopMemory{})

	assert.Empty(t, obs.ScreenshotRef, "failed capture must clear the ref")
	assert.Empty(t, obs.VisibleText)
}
