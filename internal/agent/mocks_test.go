//go:build !integration

// internal/agent/mocks_test.go
// Scripted Page fake shared by the resolver, observer, and loop tests.
package agent_test

import (
	"context"
	"errors"
	"sync"
)

var errNotFound = errors.New("element not found")

// fakePage implements agent.Page with per-method scripted outcomes. A nil
// entry in errs means success. Every call is recorded in order.
type fakePage struct {
	mu    sync.Mutex
	calls []string

	errs map[string]error

	visibleText   string
	labels        []string
	editableTexts []string

	typed       []string
	filled      map[string]string
	screenshots []string
}

func newFakePage() *fakePage {
	return &fakePage{
		errs:   map[string]error{},
		filled: map[string]string{},
	}
}

// fail scripts the given methods to return errNotFound.
func (p *fakePage) fail(methods ...string) *fakePage {
	for _, m := range methods {
		p.errs[m] = errNotFound
	}
	return p
}

func (p *fakePage) record(method string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, method)
	return p.errs[method]
}

func (p *fakePage) calledMethods() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *fakePage) VisibleText(ctx context.Context, maxChars int) (string, error) {
	if err := p.record("VisibleText"); err != nil {
		return "", err
	}
	text := p.visibleText
	if maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars]
	}
	return text, nil
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error {
	if err := p.record("Screenshot"); err != nil {
		return err
	}
	p.mu.Lock()
	p.screenshots = append(p.screenshots, path)
	p.mu.Unlock()
	return nil
}

func (p *fakePage) ClickByText(ctx context.Context, text string) error {
	return p.record("ClickByText")
}

func (p *fakePage) ClickByPlaceholder(ctx context.Context, text string) error {
	return p.record("ClickByPlaceholder")
}

func (p *fakePage) ClickByLabel(ctx context.Context, text string) error {
	return p.record("ClickByLabel")
}

func (p *fakePage) ClickableLabels(ctx context.Context, max int) ([]string, error) {
	if err := p.record("ClickableLabels"); err != nil {
		return nil, err
	}
	if max > 0 && len(p.labels) > max {
		return p.labels[:max], nil
	}
	return p.labels, nil
}

func (p *fakePage) ClickClickable(ctx context.Context, i int) error {
	return p.record("ClickClickable")
}

func (p *fakePage) FillByPlaceholder(ctx context.Context, target, value string) error {
	if err := p.record("FillByPlaceholder"); err != nil {
		return err
	}
	p.mu.Lock()
	p.filled[target] = value
	p.mu.Unlock()
	return nil
}

func (p *fakePage) FillByLabel(ctx context.Context, target, value string) error {
	if err := p.record("FillByLabel"); err != nil {
		return err
	}
	p.mu.Lock()
	p.filled[target] = value
	p.mu.Unlock()
	return nil
}

func (p *fakePage) FillByName(ctx context.Context, tag, name, value string) error {
	if err := p.record("FillByName:" + tag); err != nil {
		return err
	}
	p.mu.Lock()
	p.filled[name] = value
	p.mu.Unlock()
	return nil
}

func (p *fakePage) FocusFirstEditable(ctx context.Context) error {
	return p.record("FocusFirstEditable")
}

func (p *fakePage) SelectAll(ctx context.Context) error {
	return p.record("SelectAll")
}

func (p *fakePage) TypeText(ctx context.Context, text string) error {
	if err := p.record("TypeText"); err != nil {
		return err
	}
	p.mu.Lock()
	p.typed = append(p.typed, text)
	p.mu.Unlock()
	return nil
}

func (p *fakePage) EditableTexts(ctx context.Context) ([]string, error) {
	if err := p.record("EditableTexts"); err != nil {
		return nil, err
	}
	return p.editableTexts, nil
}
