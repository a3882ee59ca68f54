package form

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Smackface/go-easy-apply/internal/browser"
)

var spaces = regexp.MustCompile(`\s+`)

var cssEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func collapse(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func cssQuote(s string) string {
	return `"` + cssEscaper.Replace(s) + `"`
}

// visibleText is the text a sighted user reads: screen-reader copies are
// dropped.
func visibleText(s *goquery.Selection) string {
	c := s.Clone()
	c.Find(".visually-hidden").Remove()
	return collapse(c.Text())
}

// Discover reads the form matched by formSel (a CSS selector) and returns its
// questions in document order, hydrated with their live values. Fields whose
// live state cannot be read are dropped and their errors joined into err; the
// other fields are still returned.
func Discover(ctx context.Context, d browser.Driver, formSel string) ([]Field, error) {
	markup, err := d.OuterHTML(ctx, formSel)
	if err != nil {
		return nil, fmt.Errorf("failed to read form: %w", err)
	}
	fields, err := Parse(markup, formSel)
	if err != nil {
		return nil, err
	}

	var errs []error
	out := fields[:0]
	for _, f := range fields {
		if err := hydrate(ctx, d, &f); err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", f.Question, err))
			continue
		}
		out = append(out, f)
	}
	return out, errors.Join(errs...)
}

// Parse extracts fields from a form snapshot without live state. Selectors in
// the result are scoped under formSel.
func Parse(markup, formSel string) ([]Field, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}
	root := doc.Find("form").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	p := parser{
		root:      root,
		formSel:   formSel,
		fieldsets: map[*html.Node]bool{},
		controls:  map[string]bool{},
	}
	root.Find("label").Each(func(_ int, label *goquery.Selection) {
		if label.HasClass("visually-hidden") {
			return
		}
		if f, ok := p.field(label); ok {
			p.fields = append(p.fields, f)
		}
	})
	return p.fields, nil
}

type parser struct {
	root      *goquery.Selection
	formSel   string
	fieldsets map[*html.Node]bool
	controls  map[string]bool
	resume    bool
	fields    []Field
}

func (p *parser) field(label *goquery.Selection) (Field, bool) {
	question := p.labelText(label)
	if question == "" || strings.Contains(question, "Search") {
		return Field{}, false
	}
	if strings.Contains(question, "Resume") {
		if p.resume {
			return Field{}, false
		}
		p.resume = true
		return Field{Question: question, Kind: KindResume}, true
	}

	if fs := label.Closest("fieldset"); fs.Length() > 0 {
		radios := fs.Find(`input[type="radio"]`)
		if radios.Length() > 0 {
			node := fs.Get(0)
			if p.fieldsets[node] {
				return Field{}, false
			}
			p.fieldsets[node] = true
			return p.radioGroup(fs, radios, question)
		}
	}

	control := p.controlFor(label)
	if control == nil {
		return Field{}, false
	}
	kind := kindOf(control)
	if kind == "" {
		return Field{}, false
	}
	f := Field{Question: question, Kind: kind, Selector: p.selectorFor(control)}
	if p.controls[f.Selector] {
		return Field{}, false
	}
	p.controls[f.Selector] = true

	if kind == KindSelect {
		control.Find("option").Each(func(_ int, o *goquery.Selection) {
			if l := collapse(o.Text()); isSet(l) {
				f.Options = append(f.Options, Option{Label: l})
			}
		})
	}
	return f, true
}

// labelText falls back to a nested span and then to the enclosing legend when
// the label itself renders no text.
func (p *parser) labelText(label *goquery.Selection) string {
	if t := visibleText(label); t != "" {
		return t
	}
	if t := collapse(label.Find("span").First().Text()); t != "" {
		return t
	}
	return visibleText(label.Closest("fieldset").Find("legend").First())
}

func (p *parser) radioGroup(fs, radios *goquery.Selection, fallback string) (Field, bool) {
	question := visibleText(fs.Find("legend").First())
	if question == "" {
		question = fallback
	}
	f := Field{Question: question, Kind: KindRadio}
	radios.Each(func(_ int, r *goquery.Selection) {
		label := r.NextAllFiltered("label").First()
		if label.Length() == 0 {
			if id, ok := r.Attr("id"); ok && id != "" {
				label = p.root.Find("label[for=" + cssQuote(id) + "]").First()
			}
		}
		text := visibleText(label)
		if text == "" {
			text, _ = r.Attr("value")
		}
		f.Options = append(f.Options, Option{Label: text, Selector: p.selectorFor(r)})
	})
	return f, len(f.Options) > 0
}

// controlFor prefers the control the label names with its for attribute, then
// the nearest following input, select or textarea, either as a sibling or
// inside a following div.
func (p *parser) controlFor(label *goquery.Selection) *goquery.Selection {
	const controls = "input, select, textarea"
	if id, ok := label.Attr("for"); ok && id != "" {
		if c := p.root.Find("[id=" + cssQuote(id) + "]").First(); c.Length() > 0 && c.Is(controls) {
			return c
		}
	}
	var found *goquery.Selection
	label.NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Is(controls) {
			found = s
			return false
		}
		if goquery.NodeName(s) == "div" {
			if c := s.Find(controls).First(); c.Length() > 0 {
				found = c
				return false
			}
		}
		return true
	})
	return found
}

func kindOf(c *goquery.Selection) Kind {
	switch goquery.NodeName(c) {
	case "select":
		return KindSelect
	case "textarea":
		return KindTextarea
	case "input":
		switch strings.ToLower(c.AttrOr("type", "text")) {
		case "checkbox":
			return KindCheckbox
		case "text", "email", "tel", "number", "url", "date", "":
			return KindText
		}
	}
	return ""
}

// selectorFor builds a selector that finds c in the live page: by id, then by
// name, then by its nth-of-type path below the form.
func (p *parser) selectorFor(c *goquery.Selection) string {
	if id := c.AttrOr("id", ""); id != "" {
		return "[id=" + cssQuote(id) + "]"
	}
	tag := goquery.NodeName(c)
	if name := c.AttrOr("name", ""); name != "" {
		sel := fmt.Sprintf("%s %s[name=%s]", p.formSel, tag, cssQuote(name))
		if strings.EqualFold(c.AttrOr("type", ""), "radio") {
			sel += "[value=" + cssQuote(c.AttrOr("value", "")) + "]"
		}
		return sel
	}

	var parts []string
	for n := c; n.Length() > 0 && !n.IsSelection(p.root); n = n.Parent() {
		t := goquery.NodeName(n)
		parts = append([]string{fmt.Sprintf("%s:nth-of-type(%d)", t, n.PrevAllFiltered(t).Length()+1)}, parts...)
	}
	return p.formSel + " > " + strings.Join(parts, " > ")
}

func hydrate(ctx context.Context, d browser.Driver, f *Field) error {
	var err error
	switch f.Kind {
	case KindText, KindTextarea:
		f.Value, err = d.Value(ctx, f.Selector)
	case KindSelect:
		f.Selected, err = d.SelectedText(ctx, f.Selector)
	case KindCheckbox:
		f.Checked, err = d.Checked(ctx, f.Selector)
	case KindRadio:
		for i := range f.Options {
			if f.Options[i].Checked, err = d.Checked(ctx, f.Options[i].Selector); err != nil {
				break
			}
		}
	}
	return err
}
