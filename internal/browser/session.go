// internal/browser/session.go
// Package browser owns the Chrome session: allocator and tab lifecycle,
// navigation, and the page primitives the agent loop resolves actions
// against. All DOM work goes through CDP; element location runs as JS
// evaluation so a failed attempt leaves no partial page mutation behind.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

// Session represents a single browser tab driven over CDP.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	cfg         config.BrowserConfig
	logger      *zap.Logger

	// cadence paces TypeText keystrokes.
	cadence *typingCadence
}

// NewSession launches Chrome and opens a fresh tab. The parent context bounds
// the whole browser lifetime.
func NewSession(parent context.Context, cfg config.BrowserConfig, typeKeyDelay time.Duration, logger *zap.Logger) (*Session, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         tabCtx,
		cancel:      tabCancel,
		cfg:         cfg,
		logger:      logger.Named("browser"),
		cadence:     newTypingCadence(typeKeyDelay),
	}

	// Start the browser eagerly so launch failures surface here, not on the
	// first action.
	startCtx, startCancel := context.WithTimeout(tabCtx, 30*time.Second)
	defer startCancel()
	if err := chromedp.Run(startCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	s.logger.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// Navigate loads the URL and waits out the post-load quiet period.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating.", zap.String("url", url))

	navTimeout := s.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	if err := s.run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, navTimeout, navCtx.Err())
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	if quiet := s.cfg.PostLoadWait; quiet > 0 {
		if err := s.run(ctx, chromedp.Sleep(quiet)); err != nil {
			return err
		}
	}
	s.logger.Debug("Navigation complete.", zap.String("url", url))
	return nil
}

// Close tears the tab and browser down.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.logger.Debug("Browser session closed.")
}

// run executes chromedp actions on the session's tab while honoring the
// caller's deadline and cancellation. chromedp actions must run on the tab
// context, so the caller context is bridged in rather than passed through.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
		defer cancel()
	} else {
		runCtx, cancel = context.WithCancel(s.ctx)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// jsonEncode safely encodes a value for injection into a JS snippet.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
