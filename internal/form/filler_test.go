package form

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Smackface/go-easy-apply/internal/browser"
	"github.com/Smackface/go-easy-apply/internal/browser/browsertest"
)

func TestPlan(t *testing.T) {
	radio := Field{Kind: KindRadio, Options: []Option{
		{Label: "Yes", Selector: "#yes"},
		{Label: "No", Selector: "#no", Checked: true},
	}}

	tests := []struct {
		name   string
		field  Field
		answer string
		want   Action
	}{
		{"empty text is set", Field{Kind: KindText, Selector: "#t"}, "Lisbon", Action{Kind: ActSetValue, Selector: "#t", Value: "Lisbon"}},
		{"placeholder text is set", Field{Kind: KindTextarea, Selector: "#t", Value: "Select an option"}, "x", Action{Kind: ActSetValue, Selector: "#t", Value: "x"}},
		{"filled text is kept", Field{Kind: KindText, Value: "Porto"}, "Lisbon", Action{Status: AlreadySet}},
		{"select substring", Field{Kind: KindSelect, Selector: "#s", Selected: Placeholder, Options: []Option{{Label: "Yes, I am authorized"}, {Label: "No"}}}, "Yes", Action{Kind: ActSelect, Selector: "#s", Value: "Yes, I am authorized"}},
		{"select no match", Field{Kind: KindSelect, Selector: "#s", Options: []Option{{Label: "United States"}, {Label: "Canada"}}}, "us", Action{Status: NoMatch}},
		{"selected select is kept", Field{Kind: KindSelect, Selected: "Canada"}, "United States", Action{Status: AlreadySet}},
		{"checkbox to check", Field{Kind: KindCheckbox, Selector: "#c"}, "Yes", Action{Kind: ActClick, Selector: "#c"}},
		{"checkbox already checked", Field{Kind: KindCheckbox, Selector: "#c", Checked: true}, "yes", Action{Status: AlreadySet}},
		{"checkbox to uncheck", Field{Kind: KindCheckbox, Selector: "#c", Checked: true}, "No", Action{Kind: ActClick, Selector: "#c"}},
		{"checkbox bad token", Field{Kind: KindCheckbox, Selector: "#c"}, "sure", Action{Status: NoMatch}},
		{"radio click", radio, "yes", Action{Kind: ActClick, Selector: "#yes", Value: "Yes"}},
		{"radio already checked", radio, "NO", Action{Status: AlreadySet, Value: "No"}},
		{"radio no partial match", radio, "Y", Action{Status: NoMatch}},
		{"resume is never filled", Field{Kind: KindResume}, "x", Action{Status: Failed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(tt.field, tt.answer))
		})
	}
}

func TestFillerApply(t *testing.T) {
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		f := browsertest.New()
		f.Add("#city", &browsertest.Element{})
		out := NewFiller(f, zap.NewNop()).Apply(ctx, Field{Kind: KindText, Selector: "#city"}, "Lisbon")
		assert.Equal(t, Applied, out.Status)
		assert.Equal(t, "Lisbon", f.SetValues["#city"])
	})

	t.Run("select", func(t *testing.T) {
		f := browsertest.New()
		f.Add("#auth", &browsertest.Element{Selected: Placeholder, Options: []string{Placeholder, "Yes, I am authorized", "No"}})
		field := Field{Kind: KindSelect, Selector: "#auth", Selected: Placeholder, Options: []Option{{Label: "Yes, I am authorized"}, {Label: "No"}}}

		out := NewFiller(f, zap.NewNop()).Apply(ctx, field, "Yes")
		assert.Equal(t, Applied, out.Status)
		assert.Equal(t, "Yes, I am authorized", out.Choice)
		assert.Equal(t, "Yes, I am authorized", f.Selections["#auth"])
	})

	t.Run("select without a match leaves the control alone", func(t *testing.T) {
		f := browsertest.New()
		f.Add("#country", &browsertest.Element{Options: []string{"United States", "Canada"}})
		field := Field{Kind: KindSelect, Selector: "#country", Options: []Option{{Label: "United States"}, {Label: "Canada"}}}

		out := NewFiller(f, zap.NewNop()).Apply(ctx, field, "us")
		assert.Equal(t, NoMatch, out.Status)
		assert.Empty(t, f.Selections)
	})

	t.Run("checkbox is idempotent", func(t *testing.T) {
		f := browsertest.New()
		el := f.Add("#terms", &browsertest.Element{Toggle: true})
		filler := NewFiller(f, zap.NewNop())

		out := filler.Apply(ctx, Field{Kind: KindCheckbox, Selector: "#terms", Checked: el.Checked}, "Yes")
		assert.Equal(t, Applied, out.Status)
		assert.True(t, el.Checked)

		out = filler.Apply(ctx, Field{Kind: KindCheckbox, Selector: "#terms", Checked: el.Checked}, "Yes")
		assert.Equal(t, AlreadySet, out.Status)
		assert.Len(t, f.ClickCalls, 1)
		assert.Empty(t, f.ForceClicks)
	})

	t.Run("radio is idempotent", func(t *testing.T) {
		f := browsertest.New()
		f.Add("#yes", &browsertest.Element{})
		f.Add("#no", &browsertest.Element{Checked: true})
		field := Field{Kind: KindRadio, Options: []Option{{Label: "Yes", Selector: "#yes"}, {Label: "No", Selector: "#no", Checked: true}}}

		out := NewFiller(f, zap.NewNop()).Apply(ctx, field, "No")
		assert.Equal(t, AlreadySet, out.Status)
		assert.Empty(t, f.ClickCalls)
	})

	t.Run("intercepted click is forced once", func(t *testing.T) {
		f := browsertest.New()
		f.Add("#yes", &browsertest.Element{InterceptClicks: 1})
		field := Field{Kind: KindRadio, Options: []Option{{Label: "Yes", Selector: "#yes"}}}

		out := NewFiller(f, zap.NewNop()).Apply(ctx, field, "Yes")
		assert.Equal(t, Applied, out.Status)
		assert.Equal(t, []string{"#yes"}, f.ForceClicks)
	})

	t.Run("other browser errors become Failed", func(t *testing.T) {
		f := browsertest.New()
		f.Add("#terms", &browsertest.Element{StaleClicks: 1})

		out := NewFiller(f, zap.NewNop()).Apply(ctx, Field{Question: "Agree?", Kind: KindCheckbox, Selector: "#terms"}, "Yes")
		assert.Equal(t, Failed, out.Status)
		assert.ErrorIs(t, out.Err, browser.ErrStaleElement)
		assert.Empty(t, f.ForceClicks)
	})

	t.Run("missing element", func(t *testing.T) {
		f := browsertest.New()
		out := NewFiller(f, zap.NewNop()).Apply(ctx, Field{Kind: KindText, Selector: "#gone"}, "x")
		assert.Equal(t, Failed, out.Status)
		assert.ErrorIs(t, out.Err, browser.ErrNotFound)
	})
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "no_match", NoMatch.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
