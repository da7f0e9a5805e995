// internal/browser/state.go
// Session-state transfer between the live browser and the sessionstore blob:
// cookies over the CDP storage domain, localStorage over JS.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/sessionstore"
)

// ExportState captures the browser's cookies and the current origin's
// localStorage into a persistable state blob.
func (s *Session) ExportState(ctx context.Context) (*sessionstore.State, error) {
	var cookies []*network.Cookie
	var currentURL string
	var localStorage map[string]string

	err := s.run(ctx,
		chromedp.Location(&currentURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to export cookies: %w", err)
	}

	// localStorage capture is best-effort: an opaque origin (about:blank)
	// throws, and losing it only loses part of the login state.
	lsScript := `(function(){
		const out = {};
		try {
			for (let i = 0; i < localStorage.length; i++) {
				const k = localStorage.key(i);
				out[k] = localStorage.getItem(k);
			}
		} catch (e) {}
		return out;
	})()`
	if err := s.evaluate(ctx, lsScript, &localStorage); err != nil {
		s.logger.Warn("Could not export localStorage; saving cookies only.", zap.Error(err))
		localStorage = nil
	}

	state := &sessionstore.State{
		Cookies:      make([]sessionstore.Cookie, 0, len(cookies)),
		LocalStorage: localStorage,
		Origin:       currentURL,
	}
	for _, c := range cookies {
		state.Cookies = append(state.Cookies, sessionstore.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return state, nil
}

// ImportState restores cookies before navigation and, when the saved origin
// has localStorage entries, replays them after the first navigation to that
// origin. Call it right after the session starts.
func (s *Session) ImportState(ctx context.Context, state *sessionstore.State) error {
	if state == nil {
		return nil
	}

	params := make([]*network.CookieParam, 0, len(state.Cookies))
	for _, c := range state.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		if c.Expires > 0 {
			expiry := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &expiry
		}
		params = append(params, p)
	}

	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}
	s.logger.Info("Restored session cookies.", zap.Int("count", len(params)))
	return nil
}

// RestoreLocalStorage replays saved localStorage entries into the current
// origin. It must run after navigating to the saved origin.
func (s *Session) RestoreLocalStorage(ctx context.Context, state *sessionstore.State) error {
	if state == nil || len(state.LocalStorage) == 0 {
		return nil
	}
	script := fmt.Sprintf(`(function(entries){
		try {
			for (const [k, v] of Object.entries(entries)) localStorage.setItem(k, v);
			return true;
		} catch (e) { return false; }
	})(%s)`, jsonEncode(state.LocalStorage))

	var ok bool
	if err := s.evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("failed to restore localStorage: %w", err)
	}
	if !ok {
		return fmt.Errorf("localStorage rejected restored entries for this origin")
	}
	s.logger.Info("Restored localStorage entries.", zap.Int("count", len(state.LocalStorage)))
	return nil
}
