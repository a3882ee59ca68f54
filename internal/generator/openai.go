package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/Smackface/go-easy-apply/internal/config"
	"github.com/Smackface/go-easy-apply/internal/form"
)

// OpenAI answers questions through the chat completions API with a strict
// JSON schema reply.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	maxRetries  int
	profile     string
	logger      *zap.Logger
	wait        func(context.Context, time.Duration) error
}

// NewOpenAI builds an OpenAI generator.
func NewOpenAI(cfg config.OpenAIConfig, profile string, logger *zap.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is not set or empty")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		profile:     profile,
		logger:      logger.Named("openai"),
		wait:        sleep,
	}, nil
}

// answerSchema is the Answer schema with the answer restricted to options
// when there are any.
func answerSchema(options []string) (*jsonschema.Definition, error) {
	schema, err := jsonschema.GenerateSchemaForType(Answer{})
	if err != nil {
		return nil, fmt.Errorf("GenerateSchemaForType error: %w", err)
	}
	if len(options) > 0 {
		prop := schema.Properties["answer"]
		prop.Enum = append([]string{}, options...)
		schema.Properties["answer"] = prop
	}
	return schema, nil
}

func (g *OpenAI) GenerateAnswer(ctx context.Context, q form.Question) (string, error) {
	schema, err := answerSchema(q.Options)
	if err != nil {
		return "", err
	}
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(g.profile)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(q)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "application_answer",
				Schema: schema,
				Strict: true,
			},
		},
	}

	var res openai.ChatCompletionResponse
	err = withRetry(ctx, g.maxRetries, g.wait,
		func(attempt int, d time.Duration, err error) {
			g.logger.Warn("Rate limit hit, waiting before retry.",
				zap.Duration("wait", d), zap.Int("attempt", attempt), zap.Int("max_retries", g.maxRetries), zap.Error(err))
		},
		func() error {
			var err error
			res, err = g.client.CreateChatCompletion(ctx, req)
			return err
		})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	answer, err := decode(res.Choices[0].Message.Content, q)
	if err != nil {
		return "", err
	}
	g.logger.Debug("Generated answer.", zap.String("question", q.Text), zap.String("answer", answer))
	return answer, nil
}
