package form

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Smackface/go-easy-apply/internal/browser"
)

// Status is the result of applying one answer.
type Status int

const (
	// Applied means the control was changed.
	Applied Status = iota
	// AlreadySet means the control already held the answer, or some other
	// value that is kept.
	AlreadySet
	// NoMatch means the answer fits none of the options.
	NoMatch
	// Failed means the browser refused the action.
	Failed
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case AlreadySet:
		return "already_set"
	case NoMatch:
		return "no_match"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome reports what Apply did. Err is only set when Status is Failed.
type Outcome struct {
	Status Status
	// Choice is the option label that was picked, for select and radio.
	Choice string
	Err    error
}

// ActionKind is the browser operation a plan needs.
type ActionKind int

const (
	ActNone ActionKind = iota
	ActSetValue
	ActSelect
	ActClick
)

// Action is a planned browser operation. When Kind is ActNone, Status says
// why nothing is done.
type Action struct {
	Kind     ActionKind
	Selector string
	Value    string
	Status   Status
}

var errUnsupportedKind = errors.New("unsupported field kind")

// Plan decides what applying answer to f takes. It does not touch the browser.
func Plan(f Field, answer string) Action {
	switch f.Kind {
	case KindText, KindTextarea:
		if isSet(f.Value) {
			return Action{Status: AlreadySet}
		}
		return Action{Kind: ActSetValue, Selector: f.Selector, Value: answer}

	case KindSelect:
		if isSet(f.Selected) {
			return Action{Status: AlreadySet}
		}
		labels := f.Labels()
		i, ok := MatchOption(labels, answer)
		if !ok {
			return Action{Status: NoMatch}
		}
		return Action{Kind: ActSelect, Selector: f.Selector, Value: labels[i]}

	case KindCheckbox:
		want, ok := ParseYesNo(answer)
		if !ok {
			return Action{Status: NoMatch}
		}
		if f.Checked == want {
			return Action{Status: AlreadySet}
		}
		return Action{Kind: ActClick, Selector: f.Selector}

	case KindRadio:
		i, ok := MatchExact(f.Labels(), answer)
		if !ok {
			return Action{Status: NoMatch}
		}
		opt := f.Options[i]
		if opt.Checked {
			return Action{Status: AlreadySet, Value: opt.Label}
		}
		return Action{Kind: ActClick, Selector: opt.Selector, Value: opt.Label}
	}
	return Action{Status: Failed}
}

// Filler applies answers to live controls.
type Filler struct {
	driver browser.Driver
	logger *zap.Logger
}

// NewFiller returns a Filler bound to d.
func NewFiller(d browser.Driver, logger *zap.Logger) *Filler {
	return &Filler{driver: d, logger: logger.Named("filler")}
}

// Apply plans and performs one answer. Browser errors are reported in the
// Outcome and never returned.
func (f *Filler) Apply(ctx context.Context, field Field, answer string) Outcome {
	act := Plan(field, answer)
	var err error
	switch act.Kind {
	case ActNone:
		out := Outcome{Status: act.Status, Choice: act.Value}
		if act.Status == Failed {
			out.Err = fmt.Errorf("%w: %q", errUnsupportedKind, field.Kind)
		}
		return out
	case ActSetValue:
		err = f.driver.SetValue(ctx, act.Selector, act.Value)
	case ActSelect:
		err = f.driver.SelectByText(ctx, act.Selector, act.Value)
	case ActClick:
		err = browser.ClickWithRetry(ctx, f.driver, act.Selector, f.logger)
	}
	if err != nil {
		return Outcome{Status: Failed, Choice: act.Value, Err: fmt.Errorf("field %q: %w", field.Question, err)}
	}
	if act.Kind != ActSetValue {
		return Outcome{Status: Applied, Choice: act.Value}
	}
	return Outcome{Status: Applied}
}
