// Package linkedin signs in to LinkedIn and walks job search results, handing
// every Easy Apply listing to the navigator.
package linkedin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Smackface/go-easy-apply/internal/browser"
	"github.com/Smackface/go-easy-apply/internal/config"
)

// ErrSignIn is returned when the feed never shows up after submitting the
// credentials, usually because of a captcha or a checkpoint page.
var ErrSignIn = errors.New("linkedin: sign-in did not reach the feed")

const (
	usernameInput = `//input[@name='session_key' or @id='username']`
	passwordInput = `//input[@name='session_password' or @id='password']`
	signInButton  = `//button[@type='submit' or @data-litms-control-urn]`

	feedPath = "/feed"
)

// pollInterval is how often the location is checked while signing in.
var pollInterval = 500 * time.Millisecond

// SignIn submits the configured credentials and waits for the feed. On
// failure a screenshot is saved to shotDir when it is set.
func SignIn(ctx context.Context, d browser.Driver, cfg config.LinkedInConfig, shotDir string, logger *zap.Logger) error {
	logger = logger.Named("login")
	logger.Info("Signing in to LinkedIn.", zap.String("url", cfg.LoginURL))

	err := signIn(ctx, d, cfg)
	if err == nil {
		logger.Info("Signed in.")
		return nil
	}
	if shotDir != "" && ctx.Err() == nil {
		if path, shotErr := SaveScreenshot(ctx, d, shotDir, "linkedin_login"); shotErr != nil {
			logger.Warn("Failed to save screenshot.", zap.Error(shotErr))
		} else {
			logger.Info("Saved sign-in screenshot.", zap.String("path", path))
		}
	}
	return err
}

func signIn(ctx context.Context, d browser.Driver, cfg config.LinkedInConfig) error {
	if err := d.Navigate(ctx, cfg.LoginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if err := d.WaitVisible(ctx, usernameInput, cfg.LoginTimeout); err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := d.SetValue(ctx, usernameInput, cfg.Username); err != nil {
		return fmt.Errorf("username: %w", err)
	}
	if err := d.SetValue(ctx, passwordInput, cfg.Password); err != nil {
		return fmt.Errorf("password: %w", err)
	}
	if err := browser.ClickWithRetry(ctx, d, signInButton, nil); err != nil {
		return fmt.Errorf("sign-in button: %w", err)
	}
	return waitForPath(ctx, d, feedPath, cfg.LoginTimeout)
}

// waitForPath polls the location until it contains path.
func waitForPath(ctx context.Context, d browser.Driver, path string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	last := ""
	for {
		loc, err := d.Location(ctx)
		if err == nil {
			if strings.Contains(loc, path) {
				return nil
			}
			last = loc
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: still on %s", ErrSignIn, last)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SaveScreenshot writes the current page to dir and returns the file path.
func SaveScreenshot(ctx context.Context, d browser.Driver, dir, prefix string) (string, error) {
	buf, err := d.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	if len(buf) == 0 {
		return "", errors.New("screenshot buffer is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", prefix, time.Now().Unix()))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
