package answers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want, key string
	}{
		{"  How many years of Go?  ", "How many years of Go?", "how many years of go?"},
		{"Email address\n    Required", "Email address", "email address"},
		{"Are you   legally\tauthorized?Required", "Are you legally authorized?Required", "are you legally authorized?required"},
		{"Required", "Required", "required"},
		{"Mobile phone number required", "Mobile phone number required", "mobile phone number required"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
			assert.Equal(t, tt.key, Key(tt.in))
		})
	}
}

func writeAnswers(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeAnswers(t, `
first name: Grace
Years of experience with Go?: 5
Are you willing to relocate?: true
Do you need sponsorship?: "No"
empty question:
`)
	s, err := Load(path, nil)
	require.NoError(t, err)

	got, ok := s.Get("years of experience with go?   Required")
	assert.True(t, ok)
	assert.Equal(t, "5", got)

	got, _ = s.Get("Are you willing to relocate?")
	assert.Equal(t, "Yes", got)
	got, _ = s.Get("Do you need sponsorship?")
	assert.Equal(t, "No", got)

	_, ok = s.Get("empty question")
	assert.False(t, ok)
	assert.Equal(t, 4, s.Len())
	assert.Empty(t, s.Pending())
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestLoadRejectsNonMapping(t *testing.T) {
	_, err := Load(writeAnswers(t, "- a\n- b\n"), nil)
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	path := writeAnswers(t, "first name: Grace\nlast name: Hopper\n")
	s, err := Load(path, map[string]string{
		"first name":    "Ada",
		"last name":     "Hopper",
		"Email address": "ada@example.com",
	})
	require.NoError(t, err)

	got, _ := s.Get("First Name")
	assert.Equal(t, "Ada", got)

	want := []Entry{
		{Question: "Email address", Answer: "ada@example.com"},
		{Question: "first name", Answer: "Ada"},
	}
	if diff := cmp.Diff(want, s.Pending()); diff != "" {
		t.Errorf("Pending() mismatch (-want +got):\n%s", diff)
	}
}

func TestPut(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "answers.yaml"))

	s.Put("Do you have a valid driver's license? Required", "Yes")
	s.Put("do you have a VALID driver's license?", "No")

	require.Equal(t, 1, s.Len())
	want := []Entry{{Question: "Do you have a valid driver's license?", Answer: "No"}}
	if diff := cmp.Diff(want, s.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}

	s.Put("   ", "ignored")
	assert.Equal(t, 1, s.Len())
}

func TestFlushRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "answers.yaml")
	s := New(path)
	s.Put("City", "Lisbon")
	s.Put("Years of experience with Kubernetes?", "4")
	s.Put("Are you comfortable commuting?", "yes")
	s.Put("Salary expectation", "true")

	n, err := s.Flush()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Empty(t, s.Pending())

	reloaded, err := Load(path, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(s.Entries(), reloaded.Entries()); diff != "" {
		t.Errorf("reloaded store mismatch (-want +got):\n%s", diff)
	}

	t.Run("no-op when nothing is pending", func(t *testing.T) {
		require.NoError(t, os.Remove(path))
		n, err := s.Flush()
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoFileExists(t, path)
	})
}

func TestFlushKeepsFileMode(t *testing.T) {
	path := writeAnswers(t, "City: Lisbon\n")
	require.NoError(t, os.Chmod(path, 0o640))

	s, err := Load(path, nil)
	require.NoError(t, err)
	s.Put("Country", "Portugal")
	_, err = s.Flush()
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	t.Run("new file is world readable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "answers.yaml")
		s := New(path)
		s.Put("City", "Lisbon")
		_, err := s.Flush()
		require.NoError(t, err)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	})
}

func TestPutInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	s := New(path)
	s.Put("Emoji \u2713", "\xff bad utf8")
	s.Put("Bad \xfe question", "ok")

	n, err := s.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reloaded, err := Load(path, nil)
	require.NoError(t, err)
	got, ok := reloaded.Get("Emoji \u2713")
	require.True(t, ok)
	assert.Equal(t, "\uFFFD bad utf8", got)
	got, ok = reloaded.Get("Bad \xfe question")
	require.True(t, ok)
	assert.Equal(t, "ok", got)
}

func TestDelete(t *testing.T) {
	path := writeAnswers(t, "City: Lisbon\nCountry: Portugal\n")
	s, err := Load(path, nil)
	require.NoError(t, err)

	assert.True(t, s.Delete("city"))
	assert.False(t, s.Delete("city"))

	_, err = s.Flush()
	require.NoError(t, err)

	reloaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Question: "Country", Answer: "Portugal"}}, reloaded.Entries())
}
