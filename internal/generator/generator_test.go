package generator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Smackface/go-easy-apply/internal/config"
	"github.com/Smackface/go-easy-apply/internal/form"
)

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"Rate limit reached. Please try again in 607ms. Visit https://platform.openai.com": 607 * time.Millisecond,
		"Please try again in 2.5s":   2500 * time.Millisecond,
		"Please try again in 1m30s.": 90 * time.Second,
		"429 Too Many Requests":      0,
		"Please try again in soon":   0,
	}
	for msg, want := range tests {
		assert.Equal(t, want, parseRetryAfter(msg), msg)
	}
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, time.Minute, backoff(7))
	assert.Equal(t, time.Minute, backoff(40))
}

func TestWithRetry(t *testing.T) {
	var waits []time.Duration
	wait := func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	t.Run("retries rate limits then succeeds", func(t *testing.T) {
		waits = nil
		calls := 0
		err := withRetry(context.Background(), 5, wait, nil, func() error {
			calls++
			if calls < 3 {
				return errors.New("status code: 429, rate_limit_exceeded")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), 2, wait, nil, func() error {
			calls++
			return errors.New("Too Many Requests")
		})
		var rle *RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.Equal(t, 3, rle.Attempts)
		assert.Equal(t, 3, calls)
	})

	t.Run("other errors are returned at once", func(t *testing.T) {
		errBad := errors.New("invalid api key")
		calls := 0
		err := withRetry(context.Background(), 5, wait, nil, func() error {
			calls++
			return errBad
		})
		assert.ErrorIs(t, err, errBad)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled wait stops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := withRetry(ctx, 5, sleep, nil, func() error { return errors.New("rate limit") })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestUserPrompt(t *testing.T) {
	p := userPrompt(form.Question{
		Text:    "Are you authorized to work in Portugal?",
		Kind:    form.KindRadio,
		Options: []string{"Yes", "No"},
		Context: strings.Repeat("x", maxContext+100),
	})
	assert.Contains(t, p, "Question: Are you authorized to work in Portugal?")
	assert.Contains(t, p, "Field type: radio")
	assert.Contains(t, p, "- Yes\n- No\n")
	assert.Contains(t, p, "Job description:")
	assert.NotContains(t, p, strings.Repeat("x", maxContext+1))

	assert.Contains(t, systemPrompt("  Ten years of Go.  "), "Applicant profile:\nTen years of Go.")
}

func TestDecode(t *testing.T) {
	q := form.Question{Options: []string{"Yes", "No"}}

	got, err := decode(`{"answer": "yes"}`, q)
	require.NoError(t, err)
	assert.Equal(t, "Yes", got)

	_, err = decode(`{"answer": "Maybe"}`, q)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = decode(`{"answer": ""}`, form.Question{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = decode(`not json`, form.Question{})
	assert.Error(t, err)

	got, err = decode(`{"answer": " 5 "}`, form.Question{})
	require.NoError(t, err)
	assert.Equal(t, "5", got)
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.md")
	require.NoError(t, os.WriteFile(path, []byte("\n# Ada\nGo developer\n"), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Ada\nGo developer", p)

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
	_, err = LoadProfile(path)
	assert.Error(t, err)

	_, err = LoadProfile(filepath.Join(dir, "missing.md"))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	g, err := New(config.GeneratorConfig{Provider: config.ProviderNone}, "", zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, g)

	_, err = New(config.GeneratorConfig{Provider: config.ProviderOpenAI}, "", zap.NewNop())
	assert.Error(t, err, "missing API key")

	g, err = New(config.GeneratorConfig{
		Provider: config.ProviderOpenAI,
		Timeout:  time.Second,
		OpenAI:   config.OpenAIConfig{APIKey: "sk-test"},
	}, "", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, Timed{}, g)

	_, err = New(config.GeneratorConfig{Provider: "claude"}, "", zap.NewNop())
	assert.Error(t, err)
}

func chatCompletion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func TestOpenAIGenerateAnswer(t *testing.T) {
	var requests []map[string]any
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached. Please try again in 20ms.","type":"requests","code":"rate_limit_exceeded"}}`)
			return
		}
		_, _ = io.WriteString(w, chatCompletion(`{"answer":"No"}`))
	}))
	defer srv.Close()

	g, err := NewOpenAI(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", MaxRetries: 3}, "Ada, Go developer", zap.NewNop())
	require.NoError(t, err)
	var waits []time.Duration
	g.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	got, err := g.GenerateAnswer(context.Background(), form.Question{
		Text:    "Do you require sponsorship?",
		Kind:    form.KindRadio,
		Options: []string{"Yes", "No"},
	})
	require.NoError(t, err)
	assert.Equal(t, "No", got)
	assert.Equal(t, []time.Duration{20 * time.Millisecond}, waits)

	require.Len(t, requests, 2)
	format := requests[1]["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "application_answer", schema["name"])
	props := schema["schema"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, []any{"Yes", "No"}, props["answer"].(map[string]any)["enum"])
}

func TestGeminiGenerateAnswer(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"answer\":\"Lisbon\"}"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	g, err := newGemini(context.Background(), config.GeminiConfig{APIKey: "test-key"}, "Ada", zap.NewNop(), srv.URL)
	require.NoError(t, err)

	got, err := g.GenerateAnswer(context.Background(), form.Question{Text: "City", Kind: form.KindText})
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", got)
	assert.Contains(t, gotBody, "generationConfig")
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema([]string{"Yes", "No"})
	assert.Equal(t, []string{"answer"}, s.Required)
	assert.Equal(t, []string{"Yes", "No"}, s.Properties["answer"].Enum)
	assert.Empty(t, geminiSchema(nil).Properties["answer"].Enum)
}
