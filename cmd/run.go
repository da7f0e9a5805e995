// -- cmd/run.go --
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/agent"
	"github.com/xkilldash9x/webpilot-cli/internal/browser"
	"github.com/xkilldash9x/webpilot-cli/internal/observability"
	"github.com/xkilldash9x/webpilot-cli/internal/oracle"
	"github.com/xkilldash9x/webpilot-cli/internal/sessionstore"
)

// knownSiteURLs routes a goal mentioning a known product to its app URL.
var knownSiteURLs = []struct {
	marker string
	url    string
}{
	{"linear", "https://linear.app/"},
	{"notion", "https://www.notion.so/"},
}

const fallbackURL = "https://google.com"

// routeGoal picks the target URL for a goal when none is given explicitly.
func routeGoal(goal string) string {
	lowered := strings.ToLower(goal)
	for _, site := range knownSiteURLs {
		if strings.Contains(lowered, site.marker) {
			return site.url
		}
	}
	return fallbackURL
}

// goalSlug turns a goal into a filesystem-friendly directory name.
func goalSlug(goal string) string {
	slug := strings.TrimSpace(goal)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, slug)
	if slug == "" {
		slug = "goal"
	}
	const maxSlugLen = 80
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return slug
}

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [goal...]",
		Short: "Drives the target page toward the given natural-language goal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags override the loaded config only when set explicitly;
			// unset flags must not clobber config-file values with defaults.
			if cmd.Flags().Changed("max-turns") {
				appCfg.Agent.MaxTurns, _ = cmd.Flags().GetInt("max-turns")
			}
			if cmd.Flags().Changed("headless") {
				appCfg.Browser.Headless, _ = cmd.Flags().GetBool("headless")
			}
			if cmd.Flags().Changed("artifacts-dir") {
				appCfg.Agent.ArtifactsDir, _ = cmd.Flags().GetString("artifacts-dir")
			}
			goal := strings.Join(args, " ")
			targetURL, _ := cmd.Flags().GetString("url")
			if targetURL == "" {
				targetURL = routeGoal(goal)
			}
			return runGoal(cmd.Context(), goal, targetURL)
		},
	}

	runCmd.Flags().String("url", "", "target URL (defaults to routing from the goal text)")
	runCmd.Flags().Int("max-turns", 0, "turn budget for the loop (0 disables the budget)")
	runCmd.Flags().Bool("headless", false, "run the browser headless")
	runCmd.Flags().String("artifacts-dir", "", "root directory for screenshot artifacts")
	return runCmd
}

// runGoal wires the full loop: browser session, saved-session restore,
// oracle, observer, resolver, and the step cycle, with session capture on
// every exit path.
func runGoal(parent context.Context, goal, targetURL string) error {
	cfg := appCfg
	runID := uuid.New().String()[:8]
	logger := observability.GetLogger().With(zap.String("run_id", runID))
	logger.Info("Starting goal run.", zap.String("goal", goal), zap.String("url", targetURL))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	site := sessionstore.SiteIdentity(targetURL)
	store := sessionstore.New(cfg.Session.StateDir, logger)

	sess, err := browser.NewSession(ctx, cfg.Browser, cfg.Agent.TypeKeyDelay, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	state, err := store.Load(site)
	if err != nil {
		return err
	}
	if state != nil {
		if err := sess.ImportState(ctx, state); err != nil {
			logger.Warn("Could not restore saved session; continuing unauthenticated.", zap.Error(err))
			state = nil
		}
	}

	if err := sess.Navigate(ctx, targetURL); err != nil {
		return err
	}
	if state != nil {
		if err := sess.RestoreLocalStorage(ctx, state); err != nil {
			logger.Warn("Could not restore localStorage.", zap.Error(err))
		}
	}

	completer, err := oracle.NewGenAIClient(ctx, cfg.Oracle, logger)
	if err != nil {
		return err
	}
	decider := oracle.New(completer, cfg.Oracle, logger)

	artifactsDir := filepath.Join(cfg.Agent.ArtifactsDir, goalSlug(goal))
	observer := agent.NewPageObserver(sess, artifactsDir, cfg.Agent.MaxObservedChars, logger)
	resolver := agent.NewActionResolver(sess, agent.ResolverOptions{
		StrategyTimeout: cfg.Agent.StrategyTimeout,
		ScanTimeout:     cfg.Agent.ScanTimeout,
		MaxScanElements: cfg.Agent.MaxScanElements,
		WaitDelay:       cfg.Agent.WaitDelay,
	}, logger)

	saver := func(saveCtx context.Context) error {
		exported, err := sess.ExportState(saveCtx)
		if err != nil {
			return err
		}
		return store.Save(site, exported)
	}

	loop := agent.NewLoop(observer, decider, resolver, saver, agent.LoopOptions{
		MaxTurns:  cfg.Agent.MaxTurns,
		StepDelay: cfg.Agent.StepDelay,
	}, logger)

	if err := loop.Run(ctx, goal); err != nil {
		if errors.Is(err, agent.ErrTurnBudgetExceeded) {
			logger.Warn("Goal not completed within the turn budget.")
			return err
		}
		return err
	}
	return nil
}
