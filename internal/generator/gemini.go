package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Smackface/go-easy-apply/internal/config"
	"github.com/Smackface/go-easy-apply/internal/form"
)

// maxGeminiRetries bounds rate-limit retries; the SDK retries other
// transient errors itself.
const maxGeminiRetries = 3

// Gemini answers questions through the Gemini API with a JSON schema reply.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	profile     string
	logger      *zap.Logger
	wait        func(context.Context, time.Duration) error
}

// NewGemini builds a Gemini generator.
func NewGemini(cfg config.GeminiConfig, profile string, logger *zap.Logger) (*Gemini, error) {
	return newGemini(context.Background(), cfg, profile, logger, "")
}

// newGemini takes a baseURL so tests can point the client at a local server.
func newGemini(ctx context.Context, cfg config.GeminiConfig, profile string, logger *zap.Logger, baseURL string) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is not set or empty")
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		profile:     profile,
		logger:      logger.Named("gemini"),
		wait:        sleep,
	}, nil
}

func geminiSchema(options []string) *genai.Schema {
	answer := &genai.Schema{Type: genai.TypeString, Description: "The answer to put in the form field"}
	if len(options) > 0 {
		answer.Enum = append([]string{}, options...)
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"answer": answer},
		Required:   []string{"answer"},
	}
}

func (g *Gemini) GenerateAnswer(ctx context.Context, q form.Question) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt(g.profile)}}},
		Temperature:       genai.Ptr(g.temperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    geminiSchema(q.Options),
	}

	var resp *genai.GenerateContentResponse
	err := withRetry(ctx, maxGeminiRetries, g.wait,
		func(attempt int, d time.Duration, err error) {
			g.logger.Warn("Rate limit hit, waiting before retry.", zap.Duration("wait", d), zap.Int("attempt", attempt), zap.Error(err))
		},
		func() error {
			var err error
			resp, err = g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt(q)), cfg)
			return err
		})
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	answer, err := decode(resp.Text(), q)
	if err != nil {
		return "", err
	}
	g.logger.Debug("Generated answer.", zap.String("question", q.Text), zap.String("answer", answer))
	return answer, nil
}
