package form

import "strings"

// MatchOption returns the index of the option whose label equals answer,
// ignoring case, or failing that the first label containing answer. An empty
// answer matches nothing.
func MatchOption(labels []string, answer string) (int, bool) {
	if i, ok := MatchExact(labels, answer); ok {
		return i, true
	}
	want := strings.ToLower(strings.TrimSpace(answer))
	if want == "" {
		return -1, false
	}
	for i, l := range labels {
		if strings.Contains(strings.ToLower(l), want) {
			return i, true
		}
	}
	return -1, false
}

// MatchExact returns the index of the first label equal to answer, ignoring
// case and surrounding space.
func MatchExact(labels []string, answer string) (int, bool) {
	want := strings.TrimSpace(answer)
	if want == "" {
		return -1, false
	}
	for i, l := range labels {
		if strings.EqualFold(strings.TrimSpace(l), want) {
			return i, true
		}
	}
	return -1, false
}

// ParseYesNo reads a checkbox answer. Only "yes" and "no" are understood.
func ParseYesNo(answer string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes":
		return true, true
	case "no":
		return false, true
	}
	return false, false
}
