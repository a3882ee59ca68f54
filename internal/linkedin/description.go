package linkedin

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

// maxDescription bounds the description kept per job.
const maxDescription = 20000

var minifier = newMinifier()

// newMinifier squeezes everything that carries no text out of the markup.
func newMinifier() *minify.M {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepComments:            false,
		KeepConditionalComments: false,
		KeepSpecialComments:     false,
		KeepDefaultAttrVals:     false,
		KeepDocumentTags:        false,
		KeepEndTags:             false,
		KeepQuotes:              false,
		KeepWhitespace:          false,
		TemplateDelims:          [2]string{"", ""},
	})
	return m
}

// DescriptionText turns the job details markup into plain text, one block
// element per line.
func DescriptionText(markup string) (string, error) {
	small, err := minifier.String("text/html", markup)
	if err != nil {
		return "", fmt.Errorf("failed to minify description: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(small))
	if err != nil {
		return "", fmt.Errorf("failed to parse description: %w", err)
	}
	doc.Find("script, style, button").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, h1, h2, h3, h4, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = collapse(line); line != "" {
			lines = append(lines, line)
		}
	}
	text := strings.Join(lines, "\n")
	if len(text) > maxDescription {
		text = strings.ToValidUTF8(text[:maxDescription], "")
	}
	return text, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
