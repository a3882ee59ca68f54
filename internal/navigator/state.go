package navigator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Smackface/go-easy-apply/internal/prompt"
)

// State is the position of the navigator in an Easy Apply wizard.
type State int

const (
	FillingPage State = iota
	Reviewing
	Submitted
	NoActionFound
	Failed
)

func (s State) String() string {
	switch s {
	case FillingPage:
		return "filling_page"
	case Reviewing:
		return "reviewing"
	case Submitted:
		return "submitted"
	case NoActionFound:
		return "no_action_found"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Job identifies the listing an application belongs to.
type Job struct {
	ID          string
	Title       string
	Company     string
	URL         string
	Description string
}

// Result is the terminal outcome of one application.
type Result struct {
	State State
	// Pages is the number of form pages filled.
	Pages    int
	Answered int
	// Unanswered holds the questions left blank, in page order.
	Unanswered []string
	Err        error
}

// Interrupted reports whether the run ended because the operator stopped the
// session, in which case the caller should not move on to another job.
func (r Result) Interrupted() bool {
	return interrupted(r.Err)
}

func interrupted(err error) bool {
	return errors.Is(err, prompt.ErrAborted) || errors.Is(err, context.Canceled)
}
