// internal/agent/page.go
package agent

import "context"

// Page is the set of browser primitives the loop needs. The chromedp session
// in internal/browser implements it; tests substitute fakes. Every method is
// a single bounded attempt: it either succeeds or returns an error without
// leaving partial page mutation behind, which is what lets the resolver treat
// strategies as an ordered, side-effect-isolated chain.
type Page interface {
	// VisibleText returns the page's visible body text, truncated to maxChars
	// when maxChars > 0.
	VisibleText(ctx context.Context, maxChars int) (string, error)

	// Screenshot captures the viewport to the given file path.
	Screenshot(ctx context.Context, path string) error

	// Click strategies. Each locates at most one element and clicks it.
	ClickByText(ctx context.Context, text string) error
	ClickByPlaceholder(ctx context.Context, text string) error
	ClickByLabel(ctx context.Context, text string) error

	// ClickableLabels returns the visible labels of up to max clickable
	// elements (buttons, role=button, links), in document order. An
	// unreadable element yields an empty label rather than an error.
	ClickableLabels(ctx context.Context, max int) ([]string, error)

	// ClickClickable clicks the i-th element of the ClickableLabels scan.
	ClickClickable(ctx context.Context, i int) error

	// Fill strategies. Each sets the value of at most one matching field.
	FillByPlaceholder(ctx context.Context, target, value string) error
	FillByLabel(ctx context.Context, target, value string) error
	FillByName(ctx context.Context, tag, name, value string) error

	// Editable-surface fallback primitives.
	FocusFirstEditable(ctx context.Context) error
	SelectAll(ctx context.Context) error
	TypeText(ctx context.Context, text string) error
	EditableTexts(ctx context.Context) ([]string, error)
}
