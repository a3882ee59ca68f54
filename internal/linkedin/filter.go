package linkedin

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Filter decides from a job card's text whether the job is worth opening.
// Excluded keywords win over included ones; an empty include list accepts
// everything that is not excluded. Matching is case-insensitive substring
// matching.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter builds a Filter, dropping blank keywords.
func NewFilter(include, exclude []string) Filter {
	return Filter{include: keywords(include), exclude: keywords(exclude)}
}

func keywords(in []string) []string {
	var out []string
	for _, k := range in {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Allow reports whether text passes the filter and, when it does not, why.
func (f Filter) Allow(text string) (bool, string) {
	lower := strings.ToLower(text)
	for _, k := range f.exclude {
		if strings.Contains(lower, k) {
			return false, fmt.Sprintf("excluded keyword %q", k)
		}
	}
	if len(f.include) == 0 {
		return true, ""
	}
	for _, k := range f.include {
		if strings.Contains(lower, k) {
			return true, ""
		}
	}
	return false, "no included keyword"
}

// LoadKeywordFile reads one keyword per line. Blank lines and lines starting
// with # are ignored. An empty path yields no keywords.
func LoadKeywordFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword file: %w", err)
	}
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
