package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Smackface/go-easy-apply/internal/answers"
	"github.com/Smackface/go-easy-apply/internal/browser"
	"github.com/Smackface/go-easy-apply/internal/config"
	"github.com/Smackface/go-easy-apply/internal/generator"
	"github.com/Smackface/go-easy-apply/internal/linkedin"
	"github.com/Smackface/go-easy-apply/internal/navigator"
	"github.com/Smackface/go-easy-apply/internal/observability"
	"github.com/Smackface/go-easy-apply/internal/prompt"
	"github.com/Smackface/go-easy-apply/internal/resolver"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sign in, walk the job search and apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context())
		},
	}
	cmd.Flags().Bool("headless", false, "run Chrome without a window")
	cmd.Flags().Int("max-applications", 0, "stop after this many submitted applications, 0 for no limit")
	cmd.Flags().String("fallback", "", "how unknown questions are answered: prompt, generator, generator-then-prompt or skip")
	cmd.Flags().String("search-url", "", "job search page to start from")
	return cmd
}

func (a *app) run(ctx context.Context) error {
	cfg := a.cfg
	runID := uuid.NewString()
	logger := observability.GetLogger().With(zap.String("run_id", runID))
	journal := observability.NewJournal(cfg.Journal, runID)
	defer func() { _ = journal.Sync() }()

	store, err := answers.Load(cfg.Answers.Path, cfg.Identity.Overrides())
	if err != nil {
		return err
	}
	logger.Info("Loaded answers.", zap.String("path", store.Path()), zap.Int("count", store.Len()))
	defer func() {
		if n, err := store.Flush(); err != nil {
			logger.Error("Failed to save answers.", zap.Error(err))
		} else if n > 0 {
			logger.Info("Saved new answers.", zap.Int("count", n))
		}
	}()

	surveyPrompt := prompt.NewSurvey()
	r, err := newResolver(cfg, store, surveyPrompt, logger)
	if err != nil {
		return err
	}

	filter, err := newFilter(cfg.Walker)
	if err != nil {
		return err
	}

	bctx, closeBrowser, err := browser.NewSession(ctx, browser.SessionConfig{
		Headless:     cfg.Browser.Headless,
		ExecPath:     cfg.Browser.ExecPath,
		UserAgent:    cfg.Browser.UserAgent,
		UserDataDir:  cfg.Browser.UserDataDir,
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
	}, logger)
	if err != nil {
		return err
	}
	defer closeBrowser()
	d := browser.NewChrome(logger)

	if err := signIn(bctx, d, cfg, surveyPrompt, logger); err != nil {
		return err
	}
	if u := linkedin.SearchURL(cfg.Search); u != "" {
		logger.Info("Opening job search.", zap.String("url", u))
		if err := d.Navigate(bctx, u); err != nil {
			return fmt.Errorf("failed to open job search: %w", err)
		}
	}

	nav := navigator.New(d, r, store, cfg.Navigator, logger, journal)
	sum, err := linkedin.NewWalker(d, nav, filter, cfg.Walker, logger, journal).Walk(bctx)
	logger.Info("Run finished.",
		zap.Int("result_pages", sum.Pages),
		zap.Int("seen", sum.Seen),
		zap.Int("filtered", sum.Filtered),
		zap.Int("no_easy_apply", sum.NoApply),
		zap.Int("submitted", sum.Submitted),
		zap.Int("incomplete", sum.Incomplete),
		zap.Int("failed", sum.Failed),
	)
	if errors.Is(err, prompt.ErrAborted) || errors.Is(err, context.Canceled) {
		logger.Warn("Run interrupted.")
		return nil
	}
	return err
}

// newResolver wires the store, the configured generator and the prompt
// according to the fallback policy.
func newResolver(cfg *config.Config, store *answers.Store, p resolver.Prompter, logger *zap.Logger) (*resolver.Resolver, error) {
	policy, err := resolver.ParsePolicy(cfg.Answers.Fallback)
	if err != nil {
		return nil, err
	}
	opts := []resolver.Option{resolver.WithPrompter(p), resolver.WithLogger(logger)}

	if cfg.Generator.Provider != "" && cfg.Generator.Provider != config.ProviderNone {
		profile, err := generator.LoadProfile(cfg.Generator.ProfilePath)
		if err != nil {
			return nil, err
		}
		gen, err := generator.New(cfg.Generator, profile, logger)
		if err != nil {
			return nil, err
		}
		if gen != nil {
			opts = append(opts, resolver.WithGenerator(gen))
		}
	}
	return resolver.New(store, policy, opts...), nil
}

func newFilter(cfg config.WalkerConfig) (linkedin.Filter, error) {
	include, err := linkedin.LoadKeywordFile(cfg.IncludeFile)
	if err != nil {
		return linkedin.Filter{}, err
	}
	exclude, err := linkedin.LoadKeywordFile(cfg.ExcludeFile)
	if err != nil {
		return linkedin.Filter{}, err
	}
	return linkedin.NewFilter(append(include, cfg.Include...), append(exclude, cfg.Exclude...)), nil
}

// signIn logs in with the configured credentials. With manual login the
// operator can finish a captcha or set search filters before pressing Enter,
// and a failed automatic sign-in is not fatal.
func signIn(ctx context.Context, d browser.Driver, cfg *config.Config, p *prompt.Survey, logger *zap.Logger) error {
	credErr := cfg.ValidateCredentials()
	switch {
	case credErr == nil:
		err := linkedin.SignIn(ctx, d, cfg.LinkedIn, cfg.Browser.ScreenshotDir, logger)
		if err != nil && !cfg.LinkedIn.ManualLogin {
			return err
		}
		if err != nil {
			logger.Warn("Automatic sign-in did not finish, continuing by hand.", zap.Error(err))
		}
	case cfg.LinkedIn.ManualLogin:
		if err := d.Navigate(ctx, cfg.LinkedIn.LoginURL); err != nil {
			return fmt.Errorf("failed to open login page: %w", err)
		}
	default:
		return credErr
	}

	if cfg.LinkedIn.ManualLogin {
		return p.WaitForEnter(ctx, "Finish signing in and set your search filters, then press Enter.")
	}
	return nil
}
