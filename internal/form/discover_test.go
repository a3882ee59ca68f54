package form

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smackface/go-easy-apply/internal/browser"
	"github.com/Smackface/go-easy-apply/internal/browser/browsertest"
)

const easyApplyPage = `<form>
  <div><label for="first">First name</label><input id="first" type="text"></div>
  <div>
    <label><span aria-hidden="true">Years of experience with Go?</span><span class="visually-hidden">Years of experience with Go? Required</span></label>
    <div class="wrapper"><input name="years" type="text"></div>
  </div>
  <div>
    <label for="auth">Are you authorized?</label>
    <select id="auth"><option>Select an option</option><option>Yes, I am authorized</option><option>No</option></select>
  </div>
  <fieldset>
    <legend><span aria-hidden="true">Will you relocate?</span><span class="visually-hidden">Will you relocate? Required</span></legend>
    <div><input type="radio" id="rel-yes" name="rel" value="Yes"><label for="rel-yes">Yes</label></div>
    <div><input type="radio" id="rel-no" name="rel" value="No"><label for="rel-no">No</label></div>
  </fieldset>
  <div><input type="checkbox" id="terms"><label for="terms">I agree to the terms</label></div>
  <div><label class="visually-hidden">Hidden question</label><input id="hidden-q" type="text"></div>
  <div><label for="loc">Search locations</label><input id="loc" type="text"></div>
  <div><label>Resume</label><input type="file" id="upload"></div>
  <div><label>Cover note</label><textarea></textarea></div>
  <div><label for="photo">Upload a photo</label><input type="file" id="photo"></div>
</form>`

func TestParse(t *testing.T) {
	fields, err := Parse(easyApplyPage, "form")
	require.NoError(t, err)

	want := []Field{
		{Question: "First name", Kind: KindText, Selector: `[id="first"]`},
		{Question: "Years of experience with Go?", Kind: KindText, Selector: `form input[name="years"]`},
		{Question: "Are you authorized?", Kind: KindSelect, Selector: `[id="auth"]`, Options: []Option{
			{Label: "Yes, I am authorized"}, {Label: "No"},
		}},
		{Question: "Will you relocate?", Kind: KindRadio, Options: []Option{
			{Label: "Yes", Selector: `[id="rel-yes"]`},
			{Label: "No", Selector: `[id="rel-no"]`},
		}},
		{Question: "I agree to the terms", Kind: KindCheckbox, Selector: `[id="terms"]`},
		{Question: "Resume", Kind: KindResume},
		{Question: "Cover note", Kind: KindTextarea, Selector: "form > div:nth-of-type(8) > textarea:nth-of-type(1)"},
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLabelFallbacks(t *testing.T) {
	t.Run("legend when label is empty", func(t *testing.T) {
		fields, err := Parse(`<form><fieldset><legend>Preferred shift</legend>
			<label for="s"></label><select id="s"><option>Day</option><option>Night</option></select>
		</fieldset></form>`, "form")
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, "Preferred shift", fields[0].Question)
		assert.Equal(t, KindSelect, fields[0].Kind)
	})

	t.Run("duplicate labels for one control", func(t *testing.T) {
		fields, err := Parse(`<form>
			<label for="e">Email address</label><label for="e">Email</label><input id="e" type="email">
		</form>`, "form")
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, "Email address", fields[0].Question)
	})

	t.Run("radio option without sibling label", func(t *testing.T) {
		fields, err := Parse(`<form><fieldset><legend>Remote?</legend>
			<label for="r1">Yes</label><input type="radio" id="r1" name="r" value="Yes">
		</fieldset></form>`, "form")
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, []Option{{Label: "Yes", Selector: `[id="r1"]`}}, fields[0].Options)
	})
}

func TestDiscoverHydrates(t *testing.T) {
	f := browsertest.New()
	f.Add("form", &browsertest.Element{HTML: easyApplyPage})
	f.Add(`[id="first"]`, &browsertest.Element{Value: ""})
	f.Add(`form input[name="years"]`, &browsertest.Element{Value: "5"})
	f.Add(`[id="auth"]`, &browsertest.Element{Selected: Placeholder})
	f.Add(`[id="rel-yes"]`, &browsertest.Element{})
	f.Add(`[id="rel-no"]`, &browsertest.Element{Checked: true})
	f.Add(`[id="terms"]`, &browsertest.Element{Checked: true})
	// The textarea is gone by the time it is read.

	fields, err := Discover(context.Background(), f, "form")
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrNotFound)
	assert.Contains(t, err.Error(), "Cover note")

	require.Len(t, fields, 6)
	assert.Equal(t, "5", fields[1].Value)
	assert.True(t, fields[1].Populated())
	assert.Equal(t, Placeholder, fields[2].Selected)
	assert.False(t, fields[2].Populated())
	assert.True(t, fields[3].Options[1].Checked)
	assert.True(t, fields[4].Checked)
	assert.Equal(t, KindResume, fields[5].Kind)
}

func TestDiscoverWithoutForm(t *testing.T) {
	_, err := Discover(context.Background(), browsertest.New(), "form")
	assert.ErrorIs(t, err, browser.ErrNotFound)
}
