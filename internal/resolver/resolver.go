// Package resolver turns a question into an answer using the answer store and
// at most one fallback source.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Smackface/go-easy-apply/internal/answers"
	"github.com/Smackface/go-easy-apply/internal/form"
)

var (
	// ErrUnanswerable means no source produced a usable answer.
	ErrUnanswerable = errors.New("no answer available")
	// ErrResumeQuestion is returned for resume questions, which are handled by
	// the resume picker and never answered here.
	ErrResumeQuestion = errors.New("resume questions are not resolved")
	// ErrNoSource means the policy needs a source that was not configured.
	ErrNoSource = errors.New("fallback source not configured")
)

// Policy selects the fallback used when the store has no answer.
type Policy string

const (
	PolicyPrompt              Policy = "prompt"
	PolicyGenerator           Policy = "generator"
	PolicyGeneratorThenPrompt Policy = "generator-then-prompt"
	PolicySkip                Policy = "skip"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyPrompt, PolicyGenerator, PolicyGeneratorThenPrompt, PolicySkip:
		return p, nil
	case "":
		return PolicyPrompt, nil
	}
	return "", fmt.Errorf("unknown fallback policy %q", s)
}

// Store is the part of answers.Store the resolver needs.
type Store interface {
	Get(question string) (string, bool)
	Put(question, answer string)
}

var _ Store = (*answers.Store)(nil)

// Generator produces an answer from the applicant profile.
type Generator interface {
	GenerateAnswer(ctx context.Context, q form.Question) (string, error)
}

// Prompter asks the operator.
type Prompter interface {
	Ask(ctx context.Context, q form.Question) (string, error)
}

// Source names where an answer came from.
type Source string

const (
	SourceStore     Source = "store"
	SourceGenerator Source = "generator"
	SourcePrompt    Source = "prompt"
)

// Resolver looks answers up in the store and falls back according to its
// policy. New answers are written to the store before they are returned.
type Resolver struct {
	store     Store
	policy    Policy
	generator Generator
	prompter  Prompter
	logger    *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithGenerator(g Generator) Option { return func(r *Resolver) { r.generator = g } }

func WithPrompter(p Prompter) Option { return func(r *Resolver) { r.prompter = p } }

func WithLogger(l *zap.Logger) Option { return func(r *Resolver) { r.logger = l } }

// New returns a Resolver over store.
func New(store Store, policy Policy, opts ...Option) *Resolver {
	r := &Resolver{store: store, policy: policy, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("resolver")
	return r
}

// Resolve returns the answer for q. A stored answer is returned without side
// effects; otherwise the policy's fallback is asked once and a non-empty
// answer is recorded in the store.
func (r *Resolver) Resolve(ctx context.Context, q form.Question) (string, error) {
	a, _, err := r.ResolveSource(ctx, q)
	return a, err
}

// ResolveSource is Resolve that also reports where the answer came from.
func (r *Resolver) ResolveSource(ctx context.Context, q form.Question) (string, Source, error) {
	if strings.Contains(strings.ToLower(q.Text), "resume") {
		return "", "", ErrResumeQuestion
	}
	if a, ok := r.store.Get(q.Text); ok && strings.TrimSpace(a) != "" {
		return a, SourceStore, nil
	}

	a, src, err := r.fallback(ctx, q)
	if err != nil {
		return "", "", err
	}
	a = strings.TrimSpace(a)
	if a == "" {
		return "", "", fmt.Errorf("%w: %q", ErrUnanswerable, q.Text)
	}

	r.store.Put(q.Text, a)
	r.logger.Info("Recorded new answer.",
		zap.String("question", answers.Normalize(q.Text)),
		zap.String("source", string(src)))
	return a, src, nil
}

func (r *Resolver) fallback(ctx context.Context, q form.Question) (string, Source, error) {
	switch r.policy {
	case PolicySkip:
		return "", "", fmt.Errorf("%w: %q skipped by policy", ErrUnanswerable, q.Text)

	case PolicyGenerator:
		a, err := r.generate(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return "", "", err
			}
			return "", "", fmt.Errorf("%w: %w", ErrUnanswerable, err)
		}
		return a, SourceGenerator, nil

	case PolicyGeneratorThenPrompt:
		a, err := r.generate(ctx, q)
		if err == nil && strings.TrimSpace(a) != "" {
			return a, SourceGenerator, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", "", err
			}
			r.logger.Warn("Generator failed, asking the operator.", zap.String("question", q.Text), zap.Error(err))
		}
		fallthrough

	default:
		a, err := r.ask(ctx, q)
		if err != nil {
			return "", "", err
		}
		return a, SourcePrompt, nil
	}
}

func (r *Resolver) generate(ctx context.Context, q form.Question) (string, error) {
	if r.generator == nil {
		return "", fmt.Errorf("generator: %w", ErrNoSource)
	}
	return r.generator.GenerateAnswer(ctx, q)
}

// ask returns prompt errors unwrapped so that an operator abort reaches the
// walker.
func (r *Resolver) ask(ctx context.Context, q form.Question) (string, error) {
	if r.prompter == nil {
		return "", fmt.Errorf("%w: prompt: %w", ErrUnanswerable, ErrNoSource)
	}
	return r.prompter.Ask(ctx, q)
}
