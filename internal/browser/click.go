package browser

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ClickWithRetry clicks sel and, when the click is intercepted, retries exactly
// once through ForceClick. Any other error is returned unchanged.
func ClickWithRetry(ctx context.Context, d Driver, sel string, logger *zap.Logger) error {
	err := d.Click(ctx, sel)
	if !errors.Is(err, ErrClickIntercepted) {
		return err
	}
	if logger != nil {
		logger.Debug("Click intercepted, retrying through script.", zap.String("selector", sel))
	}
	return d.ForceClick(ctx, sel)
}
