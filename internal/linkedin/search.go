package linkedin

import (
	"net/url"
	"strings"

	"github.com/Smackface/go-easy-apply/internal/config"
)

const searchBase = "https://www.linkedin.com/jobs/search/"

// SearchURL returns the page the walker starts from. An explicit URL is used
// as is; otherwise keywords and location build an Easy Apply only search. It
// returns "" when nothing is configured and the operator picks the page.
func SearchURL(cfg config.SearchConfig) string {
	if u := strings.TrimSpace(cfg.URL); u != "" {
		return u
	}
	keywords := strings.TrimSpace(cfg.Keywords)
	location := strings.TrimSpace(cfg.Location)
	if keywords == "" && location == "" {
		return ""
	}
	q := url.Values{}
	q.Set("f_AL", "true")
	if keywords != "" {
		q.Set("keywords", keywords)
	}
	if location != "" {
		q.Set("location", location)
	}
	return searchBase + "?" + q.Encode()
}

// jobID reads the currentJobId parameter LinkedIn keeps in the URL of the
// selected card, falling back to a /jobs/view/<id> path.
func jobID(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	if id := u.Query().Get("currentJobId"); id != "" {
		return id
	}
	if _, rest, ok := strings.Cut(u.Path, "/jobs/view/"); ok {
		id, _, _ := strings.Cut(rest, "/")
		return id
	}
	return ""
}
