// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"fmt"
	"time"

	"github.com/Smackface/go-easy-apply/internal/browser"
)

// Element is one fake DOM node, addressed by the exact selector string the
// code under test uses.
type Element struct {
	Hidden   bool
	Disabled bool

	Value    string
	Checked  bool
	Selected string
	Options  []string
	HTML     string
	Text     string

	// InterceptClicks makes the next n Click calls fail with ErrClickIntercepted.
	InterceptClicks int
	// StaleClicks makes the next n Click calls fail with ErrStaleElement.
	StaleClicks int
	// Toggle flips Checked on every successful click.
	Toggle bool
	// OnClick runs after a successful click or force click.
	OnClick func(f *Fake)
}

// Fake is a scripted browser.Driver. Waits never block: an element either
// exists and is visible or the wait fails with ErrNotFound.
type Fake struct {
	Elements map[string]*Element
	Counts   map[string]int
	URL      string

	// OnNavigate, when set, runs after Navigate updates URL.
	OnNavigate func(f *Fake, url string)

	Navigations  []string
	Clicks       []string
	ForceClicks  []string
	ClickCalls   []string
	SetValues    map[string]string
	Selections   map[string]string
	Scripts      []string
	Screenshots  int
	WaitedFor    []string
	ScrollTarget []string
}

var _ browser.Driver = (*Fake)(nil)

// New returns an empty fake page.
func New() *Fake {
	return &Fake{
		Elements:   map[string]*Element{},
		Counts:     map[string]int{},
		SetValues:  map[string]string{},
		Selections: map[string]string{},
	}
}

// Add registers el under sel and returns it.
func (f *Fake) Add(sel string, el *Element) *Element {
	f.Elements[sel] = el
	return el
}

// Remove deletes the element registered under sel.
func (f *Fake) Remove(sel string) {
	delete(f.Elements, sel)
}

func (f *Fake) lookup(sel string) (*Element, error) {
	el, ok := f.Elements[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, sel)
	}
	return el, nil
}

func (f *Fake) Navigate(_ context.Context, url string) error {
	f.URL = url
	f.Navigations = append(f.Navigations, url)
	if f.OnNavigate != nil {
		f.OnNavigate(f, url)
	}
	return nil
}

func (f *Fake) Location(context.Context) (string, error) {
	return f.URL, nil
}

func (f *Fake) Exists(_ context.Context, sel string) (bool, error) {
	_, ok := f.Elements[sel]
	return ok, nil
}

func (f *Fake) Count(_ context.Context, sel string) (int, error) {
	return f.Counts[sel], nil
}

func (f *Fake) WaitVisible(ctx context.Context, sel string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.WaitedFor = append(f.WaitedFor, sel)
	el, err := f.lookup(sel)
	if err != nil {
		return err
	}
	if el.Hidden {
		return fmt.Errorf("%w: %s is hidden", browser.ErrNotFound, sel)
	}
	return nil
}

func (f *Fake) WaitClickable(ctx context.Context, sel string, timeout time.Duration) error {
	if err := f.WaitVisible(ctx, sel, timeout); err != nil {
		return err
	}
	if f.Elements[sel].Disabled {
		return fmt.Errorf("%w: %s is disabled", browser.ErrNotFound, sel)
	}
	return nil
}

func (f *Fake) Click(_ context.Context, sel string) error {
	f.ClickCalls = append(f.ClickCalls, sel)
	el, err := f.lookup(sel)
	if err != nil {
		return err
	}
	if el.StaleClicks > 0 {
		el.StaleClicks--
		return fmt.Errorf("%w: %s", browser.ErrStaleElement, sel)
	}
	if el.InterceptClicks > 0 {
		el.InterceptClicks--
		return fmt.Errorf("%w: %s", browser.ErrClickIntercepted, sel)
	}
	f.Clicks = append(f.Clicks, sel)
	f.activate(el)
	return nil
}

func (f *Fake) ForceClick(_ context.Context, sel string) error {
	el, err := f.lookup(sel)
	if err != nil {
		return err
	}
	f.ForceClicks = append(f.ForceClicks, sel)
	f.activate(el)
	return nil
}

func (f *Fake) activate(el *Element) {
	if el.Toggle {
		el.Checked = !el.Checked
	}
	if el.OnClick != nil {
		el.OnClick(f)
	}
}

func (f *Fake) ScrollIntoView(_ context.Context, sel string) error {
	if _, err := f.lookup(sel); err != nil {
		return err
	}
	f.ScrollTarget = append(f.ScrollTarget, sel)
	return nil
}

func (f *Fake) SetValue(_ context.Context, sel, value string) error {
	el, err := f.lookup(sel)
	if err != nil {
		return err
	}
	el.Value = value
	f.SetValues[sel] = value
	return nil
}

func (f *Fake) SelectByText(_ context.Context, sel, label string) error {
	el, err := f.lookup(sel)
	if err != nil {
		return err
	}
	for _, opt := range el.Options {
		if opt == label {
			el.Selected = label
			f.Selections[sel] = label
			return nil
		}
	}
	return fmt.Errorf("%w: option %q in %s", browser.ErrNotFound, label, sel)
}

func (f *Fake) Value(_ context.Context, sel string) (string, error) {
	el, err := f.lookup(sel)
	if err != nil {
		return "", err
	}
	return el.Value, nil
}

func (f *Fake) Checked(_ context.Context, sel string) (bool, error) {
	el, err := f.lookup(sel)
	if err != nil {
		return false, err
	}
	return el.Checked, nil
}

func (f *Fake) SelectedText(_ context.Context, sel string) (string, error) {
	el, err := f.lookup(sel)
	if err != nil {
		return "", err
	}
	return el.Selected, nil
}

func (f *Fake) OuterHTML(_ context.Context, sel string) (string, error) {
	el, err := f.lookup(sel)
	if err != nil {
		return "", err
	}
	return el.HTML, nil
}

func (f *Fake) Text(_ context.Context, sel string) (string, error) {
	el, err := f.lookup(sel)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (f *Fake) Evaluate(_ context.Context, script string, _ any) error {
	f.Scripts = append(f.Scripts, script)
	return nil
}

func (f *Fake) Screenshot(context.Context) ([]byte, error) {
	f.Screenshots++
	return []byte("png"), nil
}
