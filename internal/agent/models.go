// internal/agent/models.go
package agent

import (
	"fmt"

	"github.com/xkilldash9x/webpilot-cli/internal/oracle"
)

// Observation is the bounded snapshot of page state captured at one step. It
// is built fresh per step, consumed by a single decision call, and discarded.
type Observation struct {
	// VisibleText is the page's visible body text, truncated to the configured
	// bound. Extraction failure yields an empty string.
	VisibleText string

	// ScreenshotRef is the path of the step's screenshot artifact, or empty
	// when capture failed.
	ScreenshotRef string

	// Annotation hints that the previous step clicked something, so the
	// decision can recognize a newly revealed input surface.
	Annotation string
}

// PromptText returns the text handed to the oracle: the visible text plus the
// click-hint annotation, when present.
func (o Observation) PromptText() string {
	if o.Annotation == "" {
		return o.VisibleText
	}
	return o.VisibleText + "\n" + o.Annotation
}

// Outcome reports how a single resolved action went. A failed outcome is a
// logged condition, never an error: the loop re-observes and the oracle may
// choose differently next step.
type Outcome struct {
	Succeeded bool
	Strategy  string
}

// LoopMemory is the minimal cross-step state the loop carries: what was last
// clicked, so the next observation can hint at a freshly opened input surface.
// It is owned exclusively by the loop and its delegates.
type LoopMemory struct {
	LastAction oracle.Action
	LastTarget string
}

// RecordClick remembers a successfully clicked target.
func (m *LoopMemory) RecordClick(target string) {
	m.LastAction = oracle.ActionClick
	m.LastTarget = target
}

// Clear resets the memory; a type action does not carry a click hint forward.
func (m *LoopMemory) Clear() {
	m.LastAction = ""
	m.LastTarget = ""
}

// clickHint is the fixed-format annotation appended after a successful click.
func clickHint(target string) string {
	return fmt.Sprintf("(Note: '%s' was just clicked. If it opened an input field, you can now type.)", target)
}
