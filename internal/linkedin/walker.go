package linkedin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Smackface/go-easy-apply/internal/browser"
	"github.com/Smackface/go-easy-apply/internal/config"
	"github.com/Smackface/go-easy-apply/internal/navigator"
	"github.com/Smackface/go-easy-apply/internal/observability"
)

const (
	jobCards        = `//li[contains(@class, 'jobs-search-results__list-item')]`
	jobDetails      = `#job-details`
	jobTitle        = `.job-details-jobs-unified-top-card__job-title`
	jobCompany      = `.job-details-jobs-unified-top-card__company-name`
	applyButton     = `.jobs-apply-button`
	nextResultsPage = `//button[contains(@aria-label, 'View next page')]`

	// Leaving an unfinished wizard asks whether to discard it.
	closeModal     = `//button[@aria-label='Dismiss']`
	discardConfirm = `//button[@data-control-name='discard_application_confirm_btn']`

	scrollToBottom = `window.scrollTo(0, document.body.scrollHeight);`
)

// settle is the pause after actions that re-render the results pane.
const settle = 2 * time.Second

func cardAt(i int) string {
	return fmt.Sprintf("(%s)[%d]", jobCards, i)
}

// Applier runs the application wizard of one job.
type Applier interface {
	Run(ctx context.Context, job navigator.Job) navigator.Result
}

// Summary counts what happened during a walk.
type Summary struct {
	Pages      int
	Seen       int
	Filtered   int
	NoApply    int
	Submitted  int
	Incomplete int
	Failed     int
}

// Walker enumerates job cards page by page and applies to each Easy Apply
// listing, one at a time.
type Walker struct {
	driver  browser.Driver
	applier Applier
	filter  Filter
	cfg     config.WalkerConfig
	limiter *rate.Limiter
	logger  *zap.Logger
	journal *zap.Logger
	pause   func(context.Context, time.Duration) error
}

// NewWalker returns a Walker. Applications are started at most once per
// cfg.Pace. journal may be nil.
func NewWalker(d browser.Driver, a Applier, f Filter, cfg config.WalkerConfig, logger, journal *zap.Logger) *Walker {
	if journal == nil {
		journal = zap.NewNop()
	}
	return &Walker{
		driver:  d,
		applier: a,
		filter:  f,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.Pace), 1),
		logger:  logger.Named("walker"),
		journal: journal,
		pause:   sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var errLimitReached = errors.New("application limit reached")

// Walk processes the current results page and every following one. It
// returns an error only when the session was interrupted; the summary is
// valid either way.
func (w *Walker) Walk(ctx context.Context) (Summary, error) {
	var sum Summary
	for {
		sum.Pages++
		w.logger.Info("Processing results page.", zap.Int("page", sum.Pages))

		err := w.walkPage(ctx, &sum)
		if errors.Is(err, errLimitReached) {
			w.logger.Info("Application limit reached.", zap.Int("max_applications", w.cfg.MaxApplications))
			return sum, nil
		}
		if err != nil {
			return sum, err
		}

		if w.cfg.MaxResultPages > 0 && sum.Pages >= w.cfg.MaxResultPages {
			w.logger.Info("Result page limit reached.", zap.Int("max_result_pages", w.cfg.MaxResultPages))
			return sum, nil
		}
		more, err := w.nextPage(ctx)
		if err != nil {
			return sum, err
		}
		if !more {
			w.logger.Info("No more result pages.")
			return sum, nil
		}
	}
}

func (w *Walker) walkPage(ctx context.Context, sum *Summary) error {
	if err := w.driver.Evaluate(ctx, scrollToBottom, nil); err != nil {
		w.logger.Debug("Scroll failed.", zap.Error(err))
	}
	if err := w.pause(ctx, settle); err != nil {
		return err
	}
	if err := w.driver.WaitVisible(ctx, jobCards, w.cfg.CardTimeout); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			w.logger.Warn("Timed out waiting for job cards.")
			return nil
		}
		return err
	}
	n, err := w.driver.Count(ctx, jobCards)
	if err != nil {
		return fmt.Errorf("failed to count job cards: %w", err)
	}
	w.logger.Debug("Found job cards.", zap.Int("count", n))

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.visit(ctx, cardAt(i), sum); err != nil {
			return err
		}
	}
	return nil
}

// visit opens one card and applies when the listing allows it. Errors from a
// single card are logged and swallowed; only an interruption or the
// application limit is returned.
func (w *Walker) visit(ctx context.Context, card string, sum *Summary) error {
	sum.Seen++
	logger := w.logger.With(zap.String("card", card))

	text, err := w.driver.Text(ctx, card)
	if err != nil {
		logger.Warn("Failed to read job card.", zap.Error(err))
		return ctx.Err()
	}
	if ok, reason := w.filter.Allow(text); !ok {
		sum.Filtered++
		logger.Debug("Job filtered out.", zap.String("reason", reason))
		w.journal.Info(observability.EventSkipped, zap.String("card", collapse(text)), zap.String("reason", reason))
		return nil
	}

	if err := w.driver.ScrollIntoView(ctx, card); err != nil {
		logger.Debug("Scroll failed.", zap.Error(err))
	}
	if err := w.driver.WaitClickable(ctx, card, w.cfg.CardTimeout); err != nil {
		logger.Warn("Job card not clickable.", zap.Error(err))
		return ctx.Err()
	}
	if err := browser.ClickWithRetry(ctx, w.driver, card, logger); err != nil {
		logger.Warn("Failed to open job card.", zap.Error(err))
		return ctx.Err()
	}
	if err := w.pause(ctx, settle); err != nil {
		return err
	}

	job := w.readJob(ctx, logger)
	logger = logger.With(zap.String("job_id", job.ID), zap.String("title", job.Title), zap.String("company", job.Company))

	if err := w.driver.WaitClickable(ctx, applyButton, w.cfg.ApplyTimeout); err != nil {
		sum.NoApply++
		logger.Info("No Easy Apply button, skipping job.")
		w.journal.Info(observability.EventSkipped,
			zap.String("job_id", job.ID), zap.String("title", job.Title), zap.String("company", job.Company),
			zap.String("reason", "no easy apply"))
		return ctx.Err()
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := w.driver.ForceClick(ctx, applyButton); err != nil {
		logger.Warn("Failed to open Easy Apply.", zap.Error(err))
		return ctx.Err()
	}
	logger.Info("Easy Apply opened.")

	res := w.applier.Run(ctx, job)
	w.record(job, res)
	switch res.State {
	case navigator.Submitted:
		sum.Submitted++
	case navigator.NoActionFound:
		sum.Incomplete++
	default:
		sum.Failed++
	}
	if res.Interrupted() {
		return res.Err
	}
	if res.State != navigator.Submitted {
		w.discard(ctx, logger)
	}
	if w.cfg.MaxApplications > 0 && sum.Submitted >= w.cfg.MaxApplications {
		return errLimitReached
	}
	return nil
}

func (w *Walker) readJob(ctx context.Context, logger *zap.Logger) navigator.Job {
	var job navigator.Job
	if loc, err := w.driver.Location(ctx); err == nil {
		job.URL = loc
		job.ID = jobID(loc)
	}
	if t, err := w.driver.Text(ctx, jobTitle); err == nil {
		job.Title = collapse(t)
	}
	if c, err := w.driver.Text(ctx, jobCompany); err == nil {
		job.Company = collapse(c)
	}

	if err := w.driver.WaitVisible(ctx, jobDetails, w.cfg.CardTimeout); err != nil {
		logger.Debug("No job description.", zap.Error(err))
		return job
	}
	markup, err := w.driver.OuterHTML(ctx, jobDetails)
	if err != nil {
		logger.Debug("Failed to read job description.", zap.Error(err))
		return job
	}
	if job.Description, err = DescriptionText(markup); err != nil {
		logger.Debug("Failed to extract job description.", zap.Error(err))
	}
	return job
}

func (w *Walker) record(job navigator.Job, res navigator.Result) {
	fields := []zap.Field{
		zap.String("job_id", job.ID),
		zap.String("title", job.Title),
		zap.String("company", job.Company),
		zap.String("url", job.URL),
		zap.Stringer("state", res.State),
		zap.Int("pages", res.Pages),
		zap.Int("answered", res.Answered),
		zap.Strings("unanswered", res.Unanswered),
	}
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}
	w.journal.Info(observability.EventApplication, fields...)
}

// discard closes a wizard left open and confirms dropping the draft.
func (w *Walker) discard(ctx context.Context, logger *zap.Logger) {
	if err := w.driver.WaitClickable(ctx, closeModal, w.cfg.ApplyTimeout); err != nil {
		return
	}
	if err := browser.ClickWithRetry(ctx, w.driver, closeModal, logger); err != nil {
		logger.Debug("Failed to close wizard.", zap.Error(err))
		return
	}
	if err := w.driver.WaitClickable(ctx, discardConfirm, w.cfg.ApplyTimeout); err != nil {
		return
	}
	if err := browser.ClickWithRetry(ctx, w.driver, discardConfirm, logger); err != nil {
		logger.Debug("Failed to discard draft.", zap.Error(err))
	}
}

func (w *Walker) nextPage(ctx context.Context) (bool, error) {
	if err := w.driver.WaitClickable(ctx, nextResultsPage, w.cfg.CardTimeout); err != nil {
		if errors.Is(err, browser.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := browser.ClickWithRetry(ctx, w.driver, nextResultsPage, w.logger); err != nil {
		w.logger.Warn("Failed to open next results page.", zap.Error(err))
		return false, ctx.Err()
	}
	return true, nil
}
