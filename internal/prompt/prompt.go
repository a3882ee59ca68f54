// Package prompt asks the operator for answers on the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/Smackface/go-easy-apply/internal/form"
)

// ErrAborted signals the operator pressed Ctrl+C.
var ErrAborted = errors.New("prompt: aborted")

// SkipOption is offered in choice prompts and maps to an empty answer.
const SkipOption = "(leave unanswered)"

type askFunc func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error

// Survey implements the resolver's Prompter with survey/v2.
type Survey struct {
	askOne askFunc
	opts   []survey.AskOpt
}

// NewSurvey returns a prompter on the process terminal.
func NewSurvey(opts ...survey.AskOpt) *Survey {
	return &Survey{askOne: survey.AskOne, opts: opts}
}

func message(q form.Question) string {
	return fmt.Sprintf("Please provide an answer for %q:", q.Text)
}

// Ask asks q with a prompt that fits its control: a select for choices, a
// yes/no confirm for checkboxes, a free text input otherwise. An empty answer
// means the operator chose to leave the question unanswered.
func (s *Survey) Ask(ctx context.Context, q form.Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch {
	case q.Kind == form.KindCheckbox:
		var yes bool
		if err := s.askOne(&survey.Confirm{Message: message(q)}, &yes, s.opts...); err != nil {
			return "", translate(err)
		}
		if yes {
			return "Yes", nil
		}
		return "No", nil

	case len(q.Options) > 0 && (q.Kind == form.KindSelect || q.Kind == form.KindRadio):
		var choice string
		prompt := &survey.Select{
			Message: message(q),
			Options: append(append([]string{}, q.Options...), SkipOption),
		}
		if err := s.askOne(prompt, &choice, s.opts...); err != nil {
			return "", translate(err)
		}
		if choice == SkipOption {
			return "", nil
		}
		return choice, nil

	case q.Kind == form.KindTextarea:
		var text string
		if err := s.askOne(&survey.Multiline{Message: message(q)}, &text, s.opts...); err != nil {
			return "", translate(err)
		}
		return text, nil
	}

	var text string
	if err := s.askOne(&survey.Input{Message: message(q), Help: "Leave empty to skip this question."}, &text, s.opts...); err != nil {
		return "", translate(err)
	}
	return text, nil
}

// WaitForEnter blocks until the operator confirms. It is used to hand the
// browser to a human during sign-in.
func (s *Survey) WaitForEnter(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var ignored string
	if err := s.askOne(&survey.Input{Message: msg}, &ignored, s.opts...); err != nil {
		return translate(err)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
