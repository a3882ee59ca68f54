package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when an element is absent or does not become
	// visible/clickable within the wait budget.
	ErrNotFound = errors.New("element not found")
	// ErrClickIntercepted is returned by Click when another element sits on top
	// of the target at its click point.
	ErrClickIntercepted = errors.New("click intercepted by another element")
	// ErrStaleElement indicates the element was detached between lookup and use,
	// typically because the page re-rendered.
	ErrStaleElement = errors.New("element is stale or detached from the document")
)

// Driver is the set of page operations the bot needs. Selectors starting with
// "/" or "(" are XPath expressions, everything else is a CSS selector.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)

	Exists(ctx context.Context, sel string) (bool, error)
	Count(ctx context.Context, sel string) (int, error)
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	WaitClickable(ctx context.Context, sel string, timeout time.Duration) error

	Click(ctx context.Context, sel string) error
	// ForceClick activates the element through script, bypassing hit testing.
	ForceClick(ctx context.Context, sel string) error
	ScrollIntoView(ctx context.Context, sel string) error

	SetValue(ctx context.Context, sel, value string) error
	SelectByText(ctx context.Context, sel, label string) error

	Value(ctx context.Context, sel string) (string, error)
	Checked(ctx context.Context, sel string) (bool, error)
	SelectedText(ctx context.Context, sel string) (string, error)
	OuterHTML(ctx context.Context, sel string) (string, error)
	Text(ctx context.Context, sel string) (string, error)

	Evaluate(ctx context.Context, script string, out any) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// IsXPath reports whether sel is an XPath expression.
func IsXPath(sel string) bool {
	return strings.HasPrefix(sel, "/") || strings.HasPrefix(sel, "(")
}
