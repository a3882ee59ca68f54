package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// hideWebdriver runs before any page script.
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// SessionConfig controls how Chrome is launched.
type SessionConfig struct {
	Headless     bool
	ExecPath     string
	UserAgent    string
	UserDataDir  string
	WindowWidth  int
	WindowHeight int
}

// NewSession launches Chrome and opens one tab. The returned context carries the
// tab and is the parent for every Chrome driver call; cancel releases the tab
// and the browser process.
func NewSession(parent context.Context, cfg SessionConfig, logger *zap.Logger) (context.Context, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	logger.Info("Starting browser session.", zap.Bool("headless", cfg.Headless))
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
		return err
	}))
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return tabCtx, cancel, nil
}
