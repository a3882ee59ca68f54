package linkedin

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Smackface/go-easy-apply/internal/browser/browsertest"
	"github.com/Smackface/go-easy-apply/internal/config"
	"github.com/Smackface/go-easy-apply/internal/navigator"
	"github.com/Smackface/go-easy-apply/internal/observability"
	"github.com/Smackface/go-easy-apply/internal/prompt"
)

type stubApplier struct {
	results []navigator.Result
	jobs    []navigator.Job
}

func (a *stubApplier) Run(_ context.Context, job navigator.Job) navigator.Result {
	a.jobs = append(a.jobs, job)
	if len(a.results) == 0 {
		return navigator.Result{State: navigator.Submitted, Pages: 1}
	}
	r := a.results[0]
	a.results = a.results[1:]
	return r
}

// addCard registers card i. Opening it selects job id and shows an Easy
// Apply button when apply is set.
func addCard(d *browsertest.Fake, i int, text, id, title string, apply bool) {
	d.Add(cardAt(i), &browsertest.Element{Text: text, OnClick: func(f *browsertest.Fake) {
		f.URL = "https://www.linkedin.com/jobs/search/?currentJobId=" + id
		f.Add(jobTitle, &browsertest.Element{Text: "  " + title + "\n"})
		f.Add(jobCompany, &browsertest.Element{Text: "Acme"})
		f.Add(jobDetails, &browsertest.Element{HTML: `<div id="job-details"><p>Job ` + id + ` in  Go.</p></div>`})
		if apply {
			f.Add(applyButton, &browsertest.Element{})
		} else {
			f.Remove(applyButton)
		}
	}})
}

func newResults(cards int) *browsertest.Fake {
	d := browsertest.New()
	d.Add(jobCards, &browsertest.Element{})
	d.Counts[jobCards] = cards
	return d
}

func newTestWalker(d *browsertest.Fake, a Applier, f Filter, cfg config.WalkerConfig, journal *zap.Logger) *Walker {
	w := NewWalker(d, a, f, cfg, zap.NewNop(), journal)
	w.pause = func(context.Context, time.Duration) error { return nil }
	return w
}

func TestWalkAppliesToEasyApplyJobs(t *testing.T) {
	d := newResults(3)
	addCard(d, 1, "Senior Go Engineer\nAcme\nRemote", "111", "Senior Go Engineer", true)
	addCard(d, 2, "Java Developer\nInitech", "222", "Java Developer", true)
	addCard(d, 3, "Go Developer\nGlobex", "333", "Go Developer", false)

	var journal bytes.Buffer
	applier := &stubApplier{}
	w := newTestWalker(d, applier, NewFilter(nil, []string{"Java"}), config.WalkerConfig{},
		observability.NewJournalTo(zapcore.AddSync(&journal), "run-1"))

	sum, err := w.Walk(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Pages: 1, Seen: 3, Filtered: 1, NoApply: 1, Submitted: 1}, sum)
	require.Len(t, applier.jobs, 1)
	job := applier.jobs[0]
	assert.Equal(t, "111", job.ID)
	assert.Equal(t, "Senior Go Engineer", job.Title)
	assert.Equal(t, "Acme", job.Company)
	assert.Equal(t, "Job 111 in Go.", job.Description)
	assert.Equal(t, []string{applyButton}, d.ForceClicks)
	assert.NotContains(t, d.ClickCalls, cardAt(2))

	out := journal.String()
	assert.Contains(t, out, `"event":"application"`)
	assert.Contains(t, out, `"state":"submitted"`)
	assert.Contains(t, out, `"reason":"no easy apply"`)
	assert.Contains(t, out, `"reason":"excluded keyword \"java\""`)
	assert.Contains(t, out, `"run_id":"run-1"`)
}

func TestWalkStopsAtApplicationLimit(t *testing.T) {
	d := newResults(2)
	addCard(d, 1, "Go", "1", "Go", true)
	addCard(d, 2, "Go", "2", "Go", true)
	d.Add(nextResultsPage, &browsertest.Element{})

	applier := &stubApplier{}
	sum, err := newTestWalker(d, applier, Filter{}, config.WalkerConfig{MaxApplications: 1}, nil).Walk(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sum.Submitted)
	assert.Len(t, applier.jobs, 1)
	assert.NotContains(t, d.Clicks, nextResultsPage)
}

func TestWalkPaginates(t *testing.T) {
	d := newResults(1)
	addCard(d, 1, "Go", "1", "Go", true)
	d.Add(nextResultsPage, &browsertest.Element{})

	applier := &stubApplier{}
	sum, err := newTestWalker(d, applier, Filter{}, config.WalkerConfig{MaxResultPages: 3}, nil).Walk(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, sum.Pages)
	assert.Equal(t, 3, sum.Submitted)
	nextClicks := 0
	for _, sel := range d.Clicks {
		if sel == nextResultsPage {
			nextClicks++
		}
	}
	assert.Equal(t, 2, nextClicks)
}

func TestWalkDiscardsUnfinishedApplication(t *testing.T) {
	d := newResults(1)
	addCard(d, 1, "Go", "1", "Go", true)
	d.Add(closeModal, &browsertest.Element{OnClick: func(f *browsertest.Fake) {
		f.Add(discardConfirm, &browsertest.Element{})
	}})

	applier := &stubApplier{results: []navigator.Result{{State: navigator.NoActionFound, Unanswered: []string{"Salary"}}}}
	sum, err := newTestWalker(d, applier, Filter{}, config.WalkerConfig{}, nil).Walk(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sum.Incomplete)
	assert.Contains(t, d.Clicks, closeModal)
	assert.Contains(t, d.Clicks, discardConfirm)
}

func TestWalkStopsWhenInterrupted(t *testing.T) {
	d := newResults(2)
	addCard(d, 1, "Go", "1", "Go", true)
	addCard(d, 2, "Go", "2", "Go", true)

	applier := &stubApplier{results: []navigator.Result{{State: navigator.Failed, Err: prompt.ErrAborted}}}
	sum, err := newTestWalker(d, applier, Filter{}, config.WalkerConfig{}, nil).Walk(context.Background())

	assert.ErrorIs(t, err, prompt.ErrAborted)
	assert.Equal(t, 1, sum.Failed)
	assert.Len(t, applier.jobs, 1)
}

func TestWalkWithoutCards(t *testing.T) {
	d := browsertest.New()
	sum, err := newTestWalker(d, &stubApplier{}, Filter{}, config.WalkerConfig{}, nil).Walk(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Summary{Pages: 1}, sum)
	assert.Equal(t, []string{scrollToBottom}, d.Scripts)
}
