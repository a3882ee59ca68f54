// Package generator answers application questions with a language model
// seeded with the applicant profile.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Smackface/go-easy-apply/internal/config"
	"github.com/Smackface/go-easy-apply/internal/form"
	"github.com/Smackface/go-easy-apply/internal/resolver"
)

var (
	// ErrEmptyResponse means the model returned no usable content.
	ErrEmptyResponse = errors.New("generator: empty response")
	// ErrInvalidOption means the model picked something that is not an option.
	ErrInvalidOption = errors.New("generator: answer is not one of the options")
)

// Answer is the structured reply every backend is asked for.
type Answer struct {
	Answer string `json:"answer" jsonschema_description:"The answer to put in the form field"`
}

// LoadProfile reads the applicant profile document.
func LoadProfile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	profile := strings.TrimSpace(string(data))
	if profile == "" {
		return "", fmt.Errorf("profile %s is empty", path)
	}
	return profile, nil
}

// New builds the backend named by cfg.Provider. It returns nil and no error
// for the "none" provider.
func New(cfg config.GeneratorConfig, profile string, logger *zap.Logger) (resolver.Generator, error) {
	var g resolver.Generator
	switch cfg.Provider {
	case config.ProviderOpenAI:
		o, err := NewOpenAI(cfg.OpenAI, profile, logger)
		if err != nil {
			return nil, err
		}
		g = o
	case config.ProviderGemini:
		gm, err := NewGemini(cfg.Gemini, profile, logger)
		if err != nil {
			return nil, err
		}
		g = gm
	case config.ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
	if cfg.Timeout > 0 {
		g = Timed{Generator: g, Timeout: cfg.Timeout}
	}
	return g, nil
}

// Timed bounds every call of the wrapped generator.
type Timed struct {
	resolver.Generator
	Timeout time.Duration
}

func (t Timed) GenerateAnswer(ctx context.Context, q form.Question) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()
	return t.Generator.GenerateAnswer(ctx, q)
}

// decode parses the JSON reply and checks it against the question's options.
func decode(content string, q form.Question) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	var a Answer
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return "", fmt.Errorf("failed to decode model reply %q: %w", content, err)
	}
	answer := strings.TrimSpace(a.Answer)
	if answer == "" {
		return "", ErrEmptyResponse
	}
	if len(q.Options) > 0 {
		i, ok := form.MatchExact(q.Options, answer)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidOption, answer)
		}
		answer = q.Options[i]
	}
	return answer, nil
}
