package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// resolveFn finds the first element for a CSS or XPath selector.
const resolveFn = `function(sel) {
	if (sel.startsWith("/") || sel.startsWith("(")) {
		return document.evaluate(sel, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	}
	return document.querySelector(sel);
}`

// hitTestBody scrolls the element to the middle of the viewport and checks that
// the element under its center point is the element itself (or a descendant).
const hitTestBody = `
	el.scrollIntoView({block: "center", inline: "center"});
	if (!el.isConnected) { return "stale"; }
	const r = el.getBoundingClientRect();
	const top = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
	if (top === null || top === el || el.contains(top)) { return "ok"; }
	return "intercepted";`

// Chrome implements Driver on top of chromedp. Every ctx handed to its methods
// must descend from the context returned by NewSession.
type Chrome struct {
	logger *zap.Logger
}

// NewChrome returns a chromedp backed driver.
func NewChrome(logger *zap.Logger) *Chrome {
	return &Chrome{logger: logger.Named("chrome")}
}

func by(sel string) chromedp.QueryOption {
	if IsXPath(sel) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

type elementResult[T any] struct {
	Found bool `json:"found"`
	Value T    `json:"value"`
}

// evalElement runs body with `el` bound to the element matched by sel. body
// must end with a return statement.
func evalElement[T any](ctx context.Context, sel, body string) (T, error) {
	var zero T
	q, err := json.Marshal(sel)
	if err != nil {
		return zero, err
	}
	script := fmt.Sprintf(`(function() {
	const el = (%s)(%s);
	if (!el) { return {found: false, value: null}; }
	return {found: true, value: (function(el) { %s })(el)};
})()`, resolveFn, q, body)

	var res elementResult[T]
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return zero, classify(err)
	}
	if !res.Found {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, sel)
	}
	return res.Value, nil
}

// classify maps CDP node errors onto ErrStaleElement.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "Could not find node") ||
		strings.Contains(msg, "does not belong to the document") ||
		strings.Contains(msg, "Node is detached") {
		return fmt.Errorf("%w: %v", ErrStaleElement, err)
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.logger.Debug("Navigating.", zap.String("url", url))
	return chromedp.Run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	err := chromedp.Run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (c *Chrome) Exists(ctx context.Context, sel string) (bool, error) {
	_, err := evalElement[bool](ctx, sel, `return true;`)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *Chrome) Count(ctx context.Context, sel string) (int, error) {
	q, err := json.Marshal(sel)
	if err != nil {
		return 0, err
	}
	script := fmt.Sprintf(`(function(sel) {
	if (sel.startsWith("/") || sel.startsWith("(")) {
		return document.evaluate(sel, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength;
	}
	return document.querySelectorAll(sel).length;
})(%s)`, q)
	var n int
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &n)); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Chrome) wait(ctx context.Context, sel string, timeout time.Duration, actions ...chromedp.Action) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := chromedp.Run(waitCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrNotFound, sel, timeout)
	}
	return classify(err)
}

func (c *Chrome) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return c.wait(ctx, sel, timeout, chromedp.WaitVisible(sel, by(sel)))
}

func (c *Chrome) WaitClickable(ctx context.Context, sel string, timeout time.Duration) error {
	return c.wait(ctx, sel, timeout,
		chromedp.WaitVisible(sel, by(sel)),
		chromedp.WaitEnabled(sel, by(sel)),
	)
}

func (c *Chrome) Click(ctx context.Context, sel string) error {
	state, err := evalElement[string](ctx, sel, hitTestBody)
	if err != nil {
		return err
	}
	switch state {
	case "intercepted":
		return fmt.Errorf("%w: %s", ErrClickIntercepted, sel)
	case "stale":
		return fmt.Errorf("%w: %s", ErrStaleElement, sel)
	}
	return classify(chromedp.Run(ctx, chromedp.Click(sel, by(sel), chromedp.NodeVisible)))
}

func (c *Chrome) ForceClick(ctx context.Context, sel string) error {
	_, err := evalElement[bool](ctx, sel, `el.click(); return true;`)
	return err
}

func (c *Chrome) ScrollIntoView(ctx context.Context, sel string) error {
	_, err := evalElement[bool](ctx, sel, `el.scrollIntoView(true); return true;`)
	return err
}

// SetValue clears the control and types value so that framework listeners see
// real input events.
func (c *Chrome) SetValue(ctx context.Context, sel, value string) error {
	_, err := evalElement[bool](ctx, sel, `
	el.focus();
	el.value = "";
	el.dispatchEvent(new Event("input", {bubbles: true}));
	return true;`)
	if err != nil {
		return err
	}
	return classify(chromedp.Run(ctx, chromedp.SendKeys(sel, value, by(sel))))
}

func (c *Chrome) SelectByText(ctx context.Context, sel, label string) error {
	q, err := json.Marshal(label)
	if err != nil {
		return err
	}
	ok, err := evalElement[bool](ctx, sel, fmt.Sprintf(`
	const want = %s;
	for (let i = 0; i < el.options.length; i++) {
		if (el.options[i].text.trim() === want) {
			el.selectedIndex = i;
			el.dispatchEvent(new Event("input", {bubbles: true}));
			el.dispatchEvent(new Event("change", {bubbles: true}));
			return true;
		}
	}
	return false;`, q))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: option %q in %s", ErrNotFound, label, sel)
	}
	return nil
}

func (c *Chrome) Value(ctx context.Context, sel string) (string, error) {
	return evalElement[string](ctx, sel, `return el.value == null ? "" : String(el.value);`)
}

func (c *Chrome) Checked(ctx context.Context, sel string) (bool, error) {
	return evalElement[bool](ctx, sel, `return !!el.checked;`)
}

func (c *Chrome) SelectedText(ctx context.Context, sel string) (string, error) {
	return evalElement[string](ctx, sel, `
	if (!el.options || el.selectedIndex < 0) { return ""; }
	return el.options[el.selectedIndex].text.trim();`)
}

func (c *Chrome) OuterHTML(ctx context.Context, sel string) (string, error) {
	return evalElement[string](ctx, sel, `return el.outerHTML;`)
}

func (c *Chrome) Text(ctx context.Context, sel string) (string, error) {
	return evalElement[string](ctx, sel, `return (el.innerText || el.textContent || "").trim();`)
}

func (c *Chrome) Evaluate(ctx context.Context, script string, out any) error {
	return chromedp.Run(ctx, chromedp.Evaluate(script, out))
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, errors.New("screenshot buffer is empty")
	}
	return buf, nil
}
