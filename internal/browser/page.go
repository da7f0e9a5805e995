// internal/browser/page.go
// Implements the agent.Page primitives on top of CDP. Location strategies are
// single JS evaluations returning a boolean: found-and-interacted or not.
// Scripts dispatch input/change events after mutating values so reactive
// frameworks observe the edit.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/input"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/webpilot-cli/internal/agent"
)

var _ agent.Page = (*Session)(nil)

// evaluate runs a JS expression and decodes its return value.
func (s *Session) evaluate(ctx context.Context, script string, out interface{}) error {
	return s.run(ctx, chromedp.Evaluate(script, out, func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}))
}

// evaluateFound runs a locate-and-interact script that returns a boolean and
// converts "not found" into an error so strategy chains can fall through.
func (s *Session) evaluateFound(ctx context.Context, script, what string) error {
	var found bool
	if err := s.evaluate(ctx, script, &found); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no element matching %s", what)
	}
	return nil
}

// VisibleText extracts the visible body text, truncated to maxChars.
func (s *Session) VisibleText(ctx context.Context, maxChars int) (string, error) {
	var text string
	if err := s.evaluate(ctx, `document.body ? document.body.innerText : ""`, &text); err != nil {
		return "", fmt.Errorf("visible-text extraction failed: %w", err)
	}
	if maxChars > 0 {
		text = truncateRunes(text, maxChars)
	}
	return text, nil
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Screenshot captures the viewport to path, creating parent directories.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("screenshot capture failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("screenshot dir creation failed: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("screenshot write failed: %w", err)
	}
	return nil
}

// ClickByText clicks the most specific visible element whose text contains
// the needle, case-insensitively. The shortest matching text wins so a button
// label beats the container that also includes it.
func (s *Session) ClickByText(ctx context.Context, text string) error {
	script := fmt.Sprintf(`(function(needle){
		needle = needle.toLowerCase();
		let best = null;
		for (const el of document.querySelectorAll('body *')) {
			if (el.offsetParent === null && el.tagName !== 'BODY') continue;
			const txt = (el.innerText || '').trim();
			if (!txt || !txt.toLowerCase().includes(needle)) continue;
			if (!best || txt.length < best.len) best = {el: el, len: txt.length};
		}
		if (!best) return false;
		best.el.scrollIntoView({block: 'center'});
		best.el.click();
		if (typeof best.el.focus === 'function') best.el.focus();
		return true;
	})(%s)`, jsonEncode(text))
	return s.evaluateFound(ctx, script, fmt.Sprintf("text %q", text))
}

// ClickByPlaceholder clicks the first input/textarea whose placeholder
// contains the needle.
func (s *Session) ClickByPlaceholder(ctx context.Context, text string) error {
	script := fmt.Sprintf(`(function(needle){
		needle = needle.toLowerCase();
		for (const el of document.querySelectorAll('input[placeholder], textarea[placeholder]')) {
			if (!el.placeholder.toLowerCase().includes(needle)) continue;
			el.scrollIntoView({block: 'center'});
			el.click();
			el.focus();
			return true;
		}
		return false;
	})(%s)`, jsonEncode(text))
	return s.evaluateFound(ctx, script, fmt.Sprintf("placeholder %q", text))
}

// ClickByLabel clicks the element carrying a matching aria-label, or the
// control associated with a matching <label>.
func (s *Session) ClickByLabel(ctx context.Context, text string) error {
	script := fmt.Sprintf(`(function(needle){
		needle = needle.toLowerCase();
		for (const el of document.querySelectorAll('[aria-label]')) {
			if (!el.getAttribute('aria-label').toLowerCase().includes(needle)) continue;
			el.scrollIntoView({block: 'center'});
			el.click();
			if (typeof el.focus === 'function') el.focus();
			return true;
		}
		for (const label of document.querySelectorAll('label')) {
			if (!(label.innerText || '').toLowerCase().includes(needle)) continue;
			const control = label.control || (label.htmlFor && document.getElementById(label.htmlFor));
			const el = control || label;
			el.scrollIntoView({block: 'center'});
			el.click();
			if (typeof el.focus === 'function') el.focus();
			return true;
		}
		return false;
	})(%s)`, jsonEncode(text))
	return s.evaluateFound(ctx, script, fmt.Sprintf("label %q", text))
}

const clickableSelector = `button, [role='button'], a`

// ClickableLabels returns the labels of up to max clickable elements in
// document order. Unreadable elements contribute an empty label.
func (s *Session) ClickableLabels(ctx context.Context, max int) ([]string, error) {
	script := fmt.Sprintf(`(function(max){
		const out = [];
		const els = document.querySelectorAll(%s);
		for (let i = 0; i < els.length && i < max; i++) {
			try { out.push((els[i].innerText || '').trim()); }
			catch (e) { out.push(''); }
		}
		return out;
	})(%s)`, jsonEncode(clickableSelector), jsonEncode(max))
	var labels []string
	if err := s.evaluate(ctx, script, &labels); err != nil {
		return nil, fmt.Errorf("clickable scan failed: %w", err)
	}
	return labels, nil
}

// ClickClickable clicks the i-th element of the clickable scan.
func (s *Session) ClickClickable(ctx context.Context, i int) error {
	script := fmt.Sprintf(`(function(i){
		const els = document.querySelectorAll(%s);
		const el = els[i];
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})(%s)`, jsonEncode(clickableSelector), jsonEncode(i))
	return s.evaluateFound(ctx, script, fmt.Sprintf("clickable index %d", i))
}

// fillScript mutates the first element the finder locates and fires the
// events reactive frameworks listen for.
const fillBody = `
		if (!el || el.disabled || el.readOnly) return false;
		el.scrollIntoView({block: 'center'});
		el.focus();
		el.value = value;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;`

// FillByPlaceholder sets the value of the first field whose placeholder
// contains the target.
func (s *Session) FillByPlaceholder(ctx context.Context, target, value string) error {
	script := fmt.Sprintf(`(function(needle, value){
		needle = needle.toLowerCase();
		let el = null;
		for (const cand of document.querySelectorAll('input[placeholder], textarea[placeholder]')) {
			if (cand.placeholder.toLowerCase().includes(needle)) { el = cand; break; }
		}%s
	})(%s, %s)`, fillBody, jsonEncode(target), jsonEncode(value))
	return s.evaluateFound(ctx, script, fmt.Sprintf("fillable placeholder %q", target))
}

// FillByLabel sets the value of the control tied to a matching label or
// aria-label.
func (s *Session) FillByLabel(ctx context.Context, target, value string) error {
	script := fmt.Sprintf(`(function(needle, value){
		needle = needle.toLowerCase();
		let el = null;
		for (const cand of document.querySelectorAll('input[aria-label], textarea[aria-label]')) {
			if (cand.getAttribute('aria-label').toLowerCase().includes(needle)) { el = cand; break; }
		}
		if (!el) {
			for (const label of document.querySelectorAll('label')) {
				if (!(label.innerText || '').toLowerCase().includes(needle)) continue;
				const control = label.control || (label.htmlFor && document.getElementById(label.htmlFor));
				if (control) { el = control; break; }
			}
		}%s
	})(%s, %s)`, fillBody, jsonEncode(target), jsonEncode(value))
	return s.evaluateFound(ctx, script, fmt.Sprintf("fillable label %q", target))
}

// FillByName sets the value of the tag element with the given name attribute.
func (s *Session) FillByName(ctx context.Context, tag, name, value string) error {
	script := fmt.Sprintf(`(function(tag, name, value){
		const el = document.querySelector(tag + "[name='" + CSS.escape(name) + "']");%s
	})(%s, %s, %s)`, fillBody, jsonEncode(tag), jsonEncode(name), jsonEncode(value))
	return s.evaluateFound(ctx, script, fmt.Sprintf("%s[name=%q]", tag, name))
}

// FocusFirstEditable clicks and focuses the first contenteditable surface.
func (s *Session) FocusFirstEditable(ctx context.Context) error {
	script := `(function(){
		const el = document.querySelector("[contenteditable='true']");
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		el.click();
		el.focus();
		return true;
	})()`
	return s.evaluateFound(ctx, script, "contenteditable surface")
}

// SelectAll dispatches the platform select-all chord to the focused element.
func (s *Session) SelectAll(ctx context.Context) error {
	modifier := input.ModifierCtrl
	if runtime.GOOS == "darwin" {
		modifier = input.ModifierMeta
	}

	keyDown := input.DispatchKeyEvent(input.KeyDown).
		WithModifiers(modifier).
		WithKey("a").
		WithCode("KeyA").
		WithWindowsVirtualKeyCode(65)
	keyUp := input.DispatchKeyEvent(input.KeyUp).
		WithModifiers(modifier).
		WithKey("a").
		WithCode("KeyA").
		WithWindowsVirtualKeyCode(65)

	if err := s.run(ctx, keyDown, keyUp); err != nil {
		return fmt.Errorf("select-all dispatch failed: %w", err)
	}
	return nil
}

// TypeText sends the text as individual key events paced by the typing
// cadence, emulating human rhythm and avoiding input-handler races.
func (s *Session) TypeText(ctx context.Context, text string) error {
	var prev rune
	for _, r := range text {
		if err := s.run(ctx, chromedp.KeyEvent(string(r))); err != nil {
			return fmt.Errorf("keystroke dispatch failed: %w", err)
		}
		if delay := s.cadence.next(prev, r); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		prev = r
	}
	return nil
}

// EditableTexts returns the current contents of visible contenteditable
// surfaces, as a diagnostic for failed type actions.
func (s *Session) EditableTexts(ctx context.Context) ([]string, error) {
	script := `(function(){
		const out = [];
		for (const el of document.querySelectorAll("[contenteditable='true']")) {
			out.push((el.innerText || '').trim());
		}
		return out;
	})()`
	var texts []string
	if err := s.evaluate(ctx, script, &texts); err != nil {
		return nil, fmt.Errorf("editable-surface scan failed: %w", err)
	}
	return texts, nil
}
