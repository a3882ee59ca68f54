// Package form discovers the questions on an Easy Apply page and applies
// answers to their controls.
package form

import "strings"

// Placeholder is the label of an unset select, and occasionally the value of
// an unset input.
const Placeholder = "Select an option"

// Kind is the control type behind a question.
type Kind string

const (
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindSelect   Kind = "select"
	KindCheckbox Kind = "checkbox"
	KindRadio    Kind = "radio"
	// KindResume marks the resume picker. It is never filled.
	KindResume Kind = "resume"
)

// Option is one choice of a select or radio group. Selector and Checked are
// only set for radio options.
type Option struct {
	Label    string
	Selector string
	Checked  bool
}

// Field describes one question on the current page.
type Field struct {
	Question string
	Kind     Kind
	Selector string

	// Value is the current text of a text or textarea control.
	Value string
	// Selected is the visible label of the current select option.
	Selected string
	// Checked is the current state of a checkbox.
	Checked bool
	Options []Option
}

// Question is what the resolver needs to know about a field.
type Question struct {
	Text    string
	Kind    Kind
	Options []string
	// Context is free text about the job, usually its description.
	Context string
}

func isSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, Placeholder)
}

// Populated reports whether the page already carries an answer for f, in
// which case it is never resolved. A checkbox has no unset state and is
// always resolved.
func (f Field) Populated() bool {
	switch f.Kind {
	case KindText, KindTextarea:
		return isSet(f.Value)
	case KindSelect:
		return isSet(f.Selected)
	case KindRadio:
		for _, o := range f.Options {
			if o.Checked {
				return true
			}
		}
	}
	return false
}

// Labels returns the option labels in page order.
func (f Field) Labels() []string {
	if len(f.Options) == 0 {
		return nil
	}
	out := make([]string, len(f.Options))
	for i, o := range f.Options {
		out[i] = o.Label
	}
	return out
}

// AsQuestion converts f for the resolver.
func (f Field) AsQuestion(context string) Question {
	q := Question{Text: f.Question, Kind: f.Kind, Options: f.Labels(), Context: context}
	if f.Kind == KindCheckbox {
		q.Options = []string{"Yes", "No"}
	}
	return q
}
