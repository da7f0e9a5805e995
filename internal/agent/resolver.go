// internal/agent/resolver.go
// ActionResolver executes one sanitized decision against the live page. A
// free-text target from the oracle is not a stable selector, so resolution is
// an ordered chain of independent strategies: each is tried to completion or
// bounded failure before the next, and no partial mutation leaks between
// attempts. Execute never returns an error; exhausting every strategy is a
// reported condition the loop recovers from by re-observing.
package agent

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/oracle"
)

// ResolverOptions bounds the resolution strategies.
type ResolverOptions struct {
	// StrategyTimeout bounds each single-element strategy attempt.
	StrategyTimeout time.Duration
	// ScanTimeout bounds the whole clickable-element scan fallback.
	ScanTimeout time.Duration
	// MaxScanElements caps how many clickable elements the scan inspects.
	MaxScanElements int
	// WaitDelay is the suspension for wait (and unrecognized) actions.
	WaitDelay time.Duration
}

func (o *ResolverOptions) withDefaults() {
	if o.StrategyTimeout <= 0 {
		o.StrategyTimeout = 4 * time.Second
	}
	if o.ScanTimeout <= 0 {
		o.ScanTimeout = 10 * time.Second
	}
	if o.MaxScanElements <= 0 {
		o.MaxScanElements = 40
	}
	if o.WaitDelay <= 0 {
		o.WaitDelay = 2 * time.Second
	}
}

// ActionResolver resolves and executes decisions against a Page.
type ActionResolver struct {
	page   Page
	opts   ResolverOptions
	logger *zap.Logger
}

// NewActionResolver constructs a resolver for the given page.
func NewActionResolver(page Page, opts ResolverOptions, logger *zap.Logger) *ActionResolver {
	opts.withDefaults()
	return &ActionResolver{
		page:   page,
		opts:   opts,
		logger: logger.Named("resolver"),
	}
}

// strategy is one locate-and-interact technique with a name for diagnostics.
type strategy struct {
	name string
	run  func(ctx context.Context) error
}

// Execute carries out the decision and updates the loop memory on success.
// done is handled by the loop before it gets here; it is a defensive no-op.
func (r *ActionResolver) Execute(ctx context.Context, d oracle.Decision, mem *LoopMemory) Outcome {
	switch d.Normalized() {
	case oracle.ActionDone:
		return Outcome{Succeeded: true, Strategy: "done"}
	case oracle.ActionClick:
		if d.Target == "" {
			// A click with nothing to aim at degrades to a wait.
			return r.wait(ctx)
		}
		return r.click(ctx, d.Target, mem)
	case oracle.ActionType:
		return r.typeValue(ctx, d.Target, d.Value, mem)
	default:
		return r.wait(ctx)
	}
}

// click tries the single-element strategies in order, then falls back to a
// bounded scan of clickable elements with case-insensitive substring matching.
func (r *ActionResolver) click(ctx context.Context, target string, mem *LoopMemory) Outcome {
	strategies := []strategy{
		{"text", func(ctx context.Context) error { return r.page.ClickByText(ctx, target) }},
		{"placeholder", func(ctx context.Context) error { return r.page.ClickByPlaceholder(ctx, target) }},
		{"label", func(ctx context.Context) error { return r.page.ClickByLabel(ctx, target) }},
	}

	if name, ok := r.tryEach(ctx, strategies); ok {
		r.logger.Info("Clicked target.", zap.String("target", target), zap.String("strategy", name))
		mem.RecordClick(target)
		return Outcome{Succeeded: true, Strategy: name}
	}

	if r.scanClick(ctx, target) {
		r.logger.Info("Clicked target.", zap.String("target", target), zap.String("strategy", "scan"))
		mem.RecordClick(target)
		return Outcome{Succeeded: true, Strategy: "scan"}
	}

	// Memory stays untouched on total failure.
	r.logger.Warn("Could not click target; element not found.", zap.String("target", target))
	return Outcome{}
}

// scanClick enumerates clickable elements and clicks the first whose label
// contains the target, case-insensitively.
func (r *ActionResolver) scanClick(ctx context.Context, target string) bool {
	scanCtx, cancel := context.WithTimeout(ctx, r.opts.ScanTimeout)
	defer cancel()

	labels, err := r.page.ClickableLabels(scanCtx, r.opts.MaxScanElements)
	if err != nil {
		r.logger.Debug("Clickable scan failed.", zap.Error(err))
		return false
	}

	needle := strings.ToLower(target)
	for i, label := range labels {
		if label == "" || !strings.Contains(strings.ToLower(strings.TrimSpace(label)), needle) {
			continue
		}
		clickCtx, clickCancel := context.WithTimeout(ctx, r.opts.StrategyTimeout)
		err := r.page.ClickClickable(clickCtx, i)
		clickCancel()
		if err == nil {
			return true
		}
		r.logger.Debug("Scan candidate click failed; continuing.",
			zap.Int("index", i), zap.String("label", label), zap.Error(err))
	}
	return false
}

// typeValue tries the named-field fill strategies, then the editable-surface
// fallback (focus, select-all, paced keystrokes), then clicking near the
// target text and typing directly.
func (r *ActionResolver) typeValue(ctx context.Context, target, value string, mem *LoopMemory) Outcome {
	strategies := []strategy{
		{"placeholder", func(ctx context.Context) error { return r.page.FillByPlaceholder(ctx, target, value) }},
		{"label", func(ctx context.Context) error { return r.page.FillByLabel(ctx, target, value) }},
		{"input-name", func(ctx context.Context) error { return r.page.FillByName(ctx, "input", target, value) }},
		{"textarea-name", func(ctx context.Context) error { return r.page.FillByName(ctx, "textarea", target, value) }},
		{"contenteditable", func(ctx context.Context) error { return r.typeIntoEditable(ctx, value) }},
	}
	if target != "" {
		strategies = append(strategies, strategy{"near-text", func(ctx context.Context) error {
			if err := r.page.ClickByText(ctx, target); err != nil {
				return err
			}
			return r.page.TypeText(ctx, value)
		}})
	}

	if name, ok := r.tryEach(ctx, strategies); ok {
		r.logger.Info("Typed value.", zap.String("target", target), zap.String("strategy", name))
		mem.Clear()
		return Outcome{Succeeded: true, Strategy: name}
	}

	// A type attempt invalidates any click hint even when it fails: the click
	// context it referred to has been disturbed by the fill attempts.
	mem.Clear()
	r.logger.Warn("Could not fill target; field not found.", zap.String("target", target))
	if fields, err := r.page.EditableTexts(ctx); err == nil && len(fields) > 0 {
		// Surface what editable surfaces exist so the next decision has a clue.
		r.logger.Info("Visible editable surfaces.", zap.Strings("contents", fields))
	}
	return Outcome{}
}

// typeIntoEditable handles nameless contenteditable fields: focus the first
// one, select all existing content, and replace it with paced keystrokes.
func (r *ActionResolver) typeIntoEditable(ctx context.Context, value string) error {
	if err := r.page.FocusFirstEditable(ctx); err != nil {
		return err
	}
	if err := r.page.SelectAll(ctx); err != nil {
		return err
	}
	return r.page.TypeText(ctx, value)
}

// wait suspends for the configured interval and reports trivial success.
func (r *ActionResolver) wait(ctx context.Context) Outcome {
	sleepCtx(ctx, r.opts.WaitDelay)
	return Outcome{Succeeded: true, Strategy: "wait"}
}

// tryEach runs each strategy under its own bounded context, short-circuiting
// on the first success. Failures are swallowed: the next strategy gets a
// clean attempt.
func (r *ActionResolver) tryEach(ctx context.Context, strategies []strategy) (string, bool) {
	for _, s := range strategies {
		if ctx.Err() != nil {
			return "", false
		}
		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.StrategyTimeout)
		err := s.run(attemptCtx)
		cancel()
		if err == nil {
			return s.name, true
		}
		r.logger.Debug("Strategy failed; falling through.",
			zap.String("strategy", s.name), zap.Error(err))
	}
	return "", false
}

// sleepCtx pauses for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
