// -- cmd/login.go --
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/browser"
	"github.com/xkilldash9x/webpilot-cli/internal/observability"
	"github.com/xkilldash9x/webpilot-cli/internal/sessionstore"
)

// loginURLs maps the site shorthand accepted by `login` to its login page.
var loginURLs = map[string]string{
	"linear": "https://linear.app/",
	"notion": "https://www.notion.so/",
}

// resolveLoginURL accepts either a known site shorthand or a raw URL.
func resolveLoginURL(arg string) (string, error) {
	if url, ok := loginURLs[strings.ToLower(arg)]; ok {
		return url, nil
	}
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return arg, nil
	}
	return "", fmt.Errorf("unknown site %q: use one of [linear notion] or a full URL", arg)
}

// newLoginCmd creates the `login` command: a one-time interactive flow that
// opens the site headful, waits for the operator to finish logging in, and
// captures the session state for later runs.
func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <site-or-url>",
		Short: "Interactively seeds a saved session for a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resolveLoginURL(args[0])
			if err != nil {
				return err
			}
			return seedSession(cmd.Context(), url)
		},
	}
}

func seedSession(parent context.Context, url string) error {
	cfg := appCfg
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Login is inherently interactive; force a headful browser.
	browserCfg := cfg.Browser
	browserCfg.Headless = false

	sess, err := browser.NewSession(ctx, browserCfg, cfg.Agent.TypeKeyDelay, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, url); err != nil {
		return err
	}

	site := sessionstore.SiteIdentity(url)
	store := sessionstore.New(cfg.Session.StateDir, logger)

	existing, err := store.Load(site)
	switch {
	case err != nil:
		logger.Warn("Could not read existing session state; it will be replaced.",
			zap.String("site", site), zap.Error(err))
	case existing != nil:
		logger.Info("A saved session already exists and will be overwritten.", zap.String("site", site))
	}

	fmt.Println("Log in manually in the opened browser window.")
	fmt.Println("When the dashboard/workspace has fully loaded, press Enter here...")
	if err := waitForEnter(ctx); err != nil {
		return err
	}

	state, err := sess.ExportState(ctx)
	if err != nil {
		return err
	}
	if err := store.Save(site, state); err != nil {
		return err
	}
	logger.Info("Login state saved.", zap.String("site", site))
	return nil
}

// waitForEnter blocks until the operator presses Enter or the context ends.
func waitForEnter(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(os.Stdin).ReadString('\n')
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
