// internal/agent/observer.go
package agent

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/oracle"
)

// PageObserver captures one bounded Observation per step: a screenshot
// artifact at a step-indexed path and the visible text, annotated with a
// click hint when the previous step clicked something. Capture failures are
// never fatal; they degrade to empty fields.
type PageObserver struct {
	page         Page
	artifactsDir string
	maxChars     int
	logger       *zap.Logger
}

// NewPageObserver constructs an observer writing artifacts under artifactsDir.
func NewPageObserver(page Page, artifactsDir string, maxChars int, logger *zap.Logger) *PageObserver {
	return &PageObserver{
		page:         page,
		artifactsDir: artifactsDir,
		maxChars:     maxChars,
		logger:       logger.Named("observer"),
	}
}

// Observe snapshots the current page state for the given step. It does not
// mutate the page or the memory.
func (o *PageObserver) Observe(ctx context.Context, step int, mem *LoopMemory) Observation {
	ref := filepath.Join(o.artifactsDir, fmt.Sprintf("step_%d.png", step))
	if err := o.page.Screenshot(ctx, ref); err != nil {
		o.logger.Warn("Screenshot capture failed.", zap.Int("step", step), zap.Error(err))
		ref = ""
	}

	text, err := o.page.VisibleText(ctx, o.maxChars)
	if err != nil {
		o.logger.Warn("Visible-text extraction failed.", zap.Int("step", step), zap.Error(err))
		text = ""
	}

	obs := Observation{
		VisibleText:   text,
		ScreenshotRef: ref,
	}
	if mem != nil && mem.LastAction == oracle.ActionClick && mem.LastTarget != "" {
		obs.Annotation = clickHint(mem.LastTarget)
	}
	return obs
}
