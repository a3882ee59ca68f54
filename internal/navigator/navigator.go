// Package navigator drives the Easy Apply wizard of one job: it fills every
// page, then moves through Next, Review and Submit.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Smackface/go-easy-apply/internal/browser"
	"github.com/Smackface/go-easy-apply/internal/config"
	"github.com/Smackface/go-easy-apply/internal/form"
	"github.com/Smackface/go-easy-apply/internal/observability"
	"github.com/Smackface/go-easy-apply/internal/resolver"
)

// Resolver answers one question.
type Resolver interface {
	Resolve(ctx context.Context, q form.Question) (string, error)
}

// Flusher persists answers collected so far.
type Flusher interface {
	Flush() (int, error)
}

// Navigator runs applications one at a time.
type Navigator struct {
	driver   browser.Driver
	resolver Resolver
	store    Flusher
	filler   *form.Filler
	cfg      config.NavigatorConfig
	formSel  string
	logger   *zap.Logger
	journal  *zap.Logger
	pause    func(context.Context, time.Duration) error
}

// New returns a Navigator. journal receives one record per unanswered
// question and may be nil.
func New(d browser.Driver, r Resolver, store Flusher, cfg config.NavigatorConfig, logger, journal *zap.Logger) *Navigator {
	if journal == nil {
		journal = zap.NewNop()
	}
	return &Navigator{
		driver:   d,
		resolver: r,
		store:    store,
		filler:   form.NewFiller(d, logger),
		cfg:      cfg,
		formSel:  FormSelector,
		logger:   logger.Named("navigator"),
		journal:  journal,
		pause:    sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run fills and submits the wizard that is open for job. It never panics the
// walker out of its loop: every failure ends up in Result.
func (n *Navigator) Run(ctx context.Context, job Job) Result {
	logger := n.logger.With(zap.String("job_id", job.ID), zap.String("company", job.Company), zap.String("title", job.Title))
	res := Result{State: FillingPage}

	for page := 1; ; page++ {
		if page > n.cfg.MaxPages {
			logger.Warn("Wizard did not finish within the page limit.", zap.Int("max_pages", n.cfg.MaxPages))
			res.State = NoActionFound
			return res
		}
		res.Pages = page
		if err := n.fillPage(ctx, logger, job, &res); err != nil {
			return n.fail(logger, res, err)
		}
		n.flush(logger)

		clicked, err := n.clickButton(ctx, logger, nextButton, n.cfg.NextTimeout)
		if err != nil {
			return n.fail(logger, res, fmt.Errorf("next: %w", err))
		}
		if !clicked {
			break
		}
		logger.Info("Moved to the next form page.", zap.Int("page", page+1))
		if err := n.pause(ctx, n.cfg.PagePause); err != nil {
			return n.fail(logger, res, err)
		}
		if err := n.driver.WaitVisible(ctx, formControls, n.cfg.FormTimeout); err != nil {
			if !errors.Is(err, browser.ErrNotFound) {
				return n.fail(logger, res, err)
			}
			logger.Debug("No form controls on the new page.")
		}
	}

	return n.review(ctx, logger, res)
}

func (n *Navigator) review(ctx context.Context, logger *zap.Logger, res Result) Result {
	clicked, err := n.clickButton(ctx, logger, reviewButton, n.cfg.ReviewTimeout)
	if err != nil {
		return n.fail(logger, res, fmt.Errorf("review: %w", err))
	}
	if !clicked {
		logger.Info("No Next, Review or Submit button found.")
		res.State = NoActionFound
		return res
	}
	res.State = Reviewing
	logger.Info("Reviewing application.")
	if err := n.pause(ctx, n.cfg.PagePause); err != nil {
		return n.fail(logger, res, err)
	}

	n.unfollowCompany(ctx, logger)

	clicked, err = n.clickButton(ctx, logger, submitButton, n.cfg.SubmitTimeout)
	if err != nil {
		return n.fail(logger, res, fmt.Errorf("submit: %w", err))
	}
	if !clicked {
		logger.Warn("No Submit button found after review.")
		res.State = NoActionFound
		return res
	}
	logger.Info("Application submitted.")
	res.State = Submitted
	n.dismissPopup(ctx, logger)
	return res
}

func (n *Navigator) fail(logger *zap.Logger, res Result, err error) Result {
	res.State = Failed
	res.Err = err
	if res.Interrupted() {
		logger.Warn("Application interrupted.", zap.Error(err))
	} else {
		logger.Error("Application failed.", zap.Error(err))
	}
	return res
}

func (n *Navigator) flush(logger *zap.Logger) {
	written, err := n.store.Flush()
	if err != nil {
		logger.Error("Failed to save answers.", zap.Error(err))
		return
	}
	if written > 0 {
		logger.Info("Saved new answers.", zap.Int("count", written))
	}
}

// fillPage resolves and applies every field of the current page. It returns
// an error only when the operator aborted or ctx is done.
func (n *Navigator) fillPage(ctx context.Context, logger *zap.Logger, job Job, res *Result) error {
	fields, err := form.Discover(ctx, n.driver, n.formSel)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Warn("Some fields could not be read.", zap.Error(err))
	}

	for _, f := range fields {
		if f.Kind == form.KindResume {
			n.checkResume(ctx, logger)
			continue
		}
		if f.Populated() {
			logger.Debug("Field already filled.", zap.String("question", f.Question))
			continue
		}

		answer, err := n.resolver.Resolve(ctx, f.AsQuestion(job.Description))
		switch {
		case err == nil:
		case interrupted(err) || ctx.Err() != nil:
			return err
		case errors.Is(err, resolver.ErrResumeQuestion):
			continue
		default:
			n.unanswered(logger, job, f, res, err.Error())
			continue
		}

		out := n.filler.Apply(ctx, f, answer)
		switch out.Status {
		case form.Applied:
			res.Answered++
			logger.Debug("Field filled.", zap.String("question", f.Question), zap.String("choice", out.Choice))
		case form.AlreadySet:
		case form.NoMatch:
			n.unanswered(logger, job, f, res, fmt.Sprintf("no option matches %q", answer))
		default:
			n.unanswered(logger, job, f, res, out.Err.Error())
		}
	}
	return nil
}

func (n *Navigator) unanswered(logger *zap.Logger, job Job, f form.Field, res *Result, reason string) {
	res.Unanswered = append(res.Unanswered, f.Question)
	logger.Warn("Question left unanswered.", zap.String("question", f.Question), zap.String("reason", reason))
	n.journal.Info(observability.EventUnanswered,
		zap.String("job_id", job.ID),
		zap.String("company", job.Company),
		zap.String("title", job.Title),
		zap.String("question", f.Question),
		zap.String("kind", string(f.Kind)),
		zap.Strings("options", f.Labels()),
		zap.String("reason", reason),
	)
}

func (n *Navigator) checkResume(ctx context.Context, logger *zap.Logger) {
	ok, err := n.driver.Exists(ctx, selectedResume)
	switch {
	case err != nil:
		logger.Warn("Could not check the resume picker.", zap.Error(err))
	case ok:
		logger.Debug("Resume already selected.")
	default:
		logger.Warn("No resume selected and uploads are not handled.")
	}
}

// clickButton waits for sel and clicks it. A button that never shows up is
// reported as false with no error.
func (n *Navigator) clickButton(ctx context.Context, logger *zap.Logger, sel string, timeout time.Duration) (bool, error) {
	if err := n.driver.WaitClickable(ctx, sel, timeout); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := n.driver.ScrollIntoView(ctx, sel); err != nil {
		logger.Debug("Scroll failed.", zap.String("selector", sel), zap.Error(err))
	}
	if err := browser.ClickWithRetry(ctx, n.driver, sel, logger); err != nil {
		return false, err
	}
	return true, nil
}

// unfollowCompany clears the "follow company" opt-in on the review page.
func (n *Navigator) unfollowCompany(ctx context.Context, logger *zap.Logger) {
	if err := n.driver.WaitVisible(ctx, followLabel, n.cfg.PopupTimeout); err != nil {
		logger.Debug("Follow checkbox not found.", zap.Error(err))
		return
	}
	checked, err := n.driver.Checked(ctx, followCheckbox)
	if err != nil {
		logger.Debug("Could not read the follow checkbox.", zap.Error(err))
		return
	}
	if !checked {
		return
	}
	if err := n.driver.ScrollIntoView(ctx, followLabel); err != nil {
		logger.Debug("Scroll failed.", zap.String("selector", followLabel), zap.Error(err))
	}
	if err := browser.ClickWithRetry(ctx, n.driver, followLabel, logger); err != nil {
		logger.Warn("Failed to unfollow company.", zap.Error(err))
		return
	}
	logger.Debug("Unchecked the follow checkbox.")
}

// dismissPopup closes the post-submit modal. Stale buttons are retried up to
// PopupAttempts times; anything else gives up quietly.
func (n *Navigator) dismissPopup(ctx context.Context, logger *zap.Logger) bool {
	for attempt := 1; attempt <= n.cfg.PopupAttempts; attempt++ {
		if err := n.driver.WaitVisible(ctx, dismissButton, n.cfg.PopupTimeout); err != nil {
			logger.Debug("No popup to dismiss.", zap.Error(err))
			return false
		}
		if err := n.driver.ScrollIntoView(ctx, dismissButton); err != nil && !errors.Is(err, browser.ErrStaleElement) {
			logger.Debug("Scroll failed.", zap.String("selector", dismissButton), zap.Error(err))
		}
		err := browser.ClickWithRetry(ctx, n.driver, dismissButton, logger)
		if err == nil {
			logger.Debug("Popup dismissed.")
			return true
		}
		if !errors.Is(err, browser.ErrStaleElement) {
			logger.Warn("Failed to dismiss popup.", zap.Error(err))
			return false
		}
		logger.Debug("Dismiss button went stale, retrying.", zap.Int("attempt", attempt))
	}
	logger.Warn("Popup still open after retries.", zap.Int("attempts", n.cfg.PopupAttempts))
	return false
}
