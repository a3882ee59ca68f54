package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Fallback policies understood by the resolver.
const (
	FallbackPrompt              = "prompt"
	FallbackGenerator           = "generator"
	FallbackGeneratorThenPrompt = "generator-then-prompt"
	FallbackSkip                = "skip"
)

// Generator providers.
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger" json:"logger"`
	Journal   JournalConfig   `mapstructure:"journal" yaml:"journal" json:"journal"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser" json:"browser"`
	LinkedIn  LinkedInConfig  `mapstructure:"linkedin" yaml:"linkedin" json:"linkedin"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search" json:"search"`
	Walker    WalkerConfig    `mapstructure:"walker" yaml:"walker" json:"walker"`
	Navigator NavigatorConfig `mapstructure:"navigator" yaml:"navigator" json:"navigator"`
	Answers   AnswersConfig   `mapstructure:"answers" yaml:"answers" json:"answers"`
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator" json:"generator"`
	Identity  Identity        `mapstructure:"identity" yaml:"identity" json:"identity"`
}

type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format      string      `mapstructure:"format" yaml:"format" json:"format" jsonschema:"enum=console,enum=json"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source" json:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name" json:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file" json:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age" json:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress" json:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors" json:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug" json:"debug"`
	Info   string `mapstructure:"info" yaml:"info" json:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn" json:"warn"`
	Error  string `mapstructure:"error" yaml:"error" json:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic" json:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic" json:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal" json:"fatal"`
}

// JournalConfig controls the JSON journal of unanswered questions and
// application outcomes.
type JournalConfig struct {
	Path       string `mapstructure:"path" yaml:"path" json:"path"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age" json:"max_age"`
}

type BrowserConfig struct {
	Headless      bool   `mapstructure:"headless" yaml:"headless" json:"headless"`
	ExecPath      string `mapstructure:"exec_path" yaml:"exec_path" json:"exec_path"`
	UserAgent     string `mapstructure:"user_agent" yaml:"user_agent" json:"user_agent"`
	UserDataDir   string `mapstructure:"user_data_dir" yaml:"user_data_dir" json:"user_data_dir"`
	WindowWidth   int    `mapstructure:"window_width" yaml:"window_width" json:"window_width"`
	WindowHeight  int    `mapstructure:"window_height" yaml:"window_height" json:"window_height"`
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir" json:"screenshot_dir"`
}

type LinkedInConfig struct {
	Username string `mapstructure:"username" yaml:"username" json:"-"`
	Password string `mapstructure:"password" yaml:"password" json:"-"`
	LoginURL string `mapstructure:"login_url" yaml:"login_url" json:"login_url"`
	// ManualLogin waits for the operator to press Enter after sign-in so that
	// captchas and search filters can be handled by hand.
	ManualLogin  bool          `mapstructure:"manual_login" yaml:"manual_login" json:"manual_login"`
	LoginTimeout time.Duration `mapstructure:"login_timeout" yaml:"login_timeout" json:"login_timeout"`
}

type SearchConfig struct {
	// URL, when set, is opened as is. Otherwise a search URL is built from
	// Keywords and Location with the Easy Apply filter on.
	URL      string `mapstructure:"url" yaml:"url" json:"url"`
	Keywords string `mapstructure:"keywords" yaml:"keywords" json:"keywords"`
	Location string `mapstructure:"location" yaml:"location" json:"location"`
}

type WalkerConfig struct {
	MaxApplications int           `mapstructure:"max_applications" yaml:"max_applications" json:"max_applications"`
	MaxResultPages  int           `mapstructure:"max_result_pages" yaml:"max_result_pages" json:"max_result_pages"`
	Pace            time.Duration `mapstructure:"pace" yaml:"pace" json:"pace"`
	CardTimeout     time.Duration `mapstructure:"card_timeout" yaml:"card_timeout" json:"card_timeout"`
	ApplyTimeout    time.Duration `mapstructure:"apply_timeout" yaml:"apply_timeout" json:"apply_timeout"`
	IncludeFile     string        `mapstructure:"include_file" yaml:"include_file" json:"include_file"`
	ExcludeFile     string        `mapstructure:"exclude_file" yaml:"exclude_file" json:"exclude_file"`
	Include         []string      `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string      `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

type NavigatorConfig struct {
	NextTimeout   time.Duration `mapstructure:"next_timeout" yaml:"next_timeout" json:"next_timeout"`
	ReviewTimeout time.Duration `mapstructure:"review_timeout" yaml:"review_timeout" json:"review_timeout"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout" yaml:"submit_timeout" json:"submit_timeout"`
	FormTimeout   time.Duration `mapstructure:"form_timeout" yaml:"form_timeout" json:"form_timeout"`
	PopupTimeout  time.Duration `mapstructure:"popup_timeout" yaml:"popup_timeout" json:"popup_timeout"`
	PagePause     time.Duration `mapstructure:"page_pause" yaml:"page_pause" json:"page_pause"`
	MaxPages      int           `mapstructure:"max_pages" yaml:"max_pages" json:"max_pages"`
	PopupAttempts int           `mapstructure:"popup_attempts" yaml:"popup_attempts" json:"popup_attempts"`
}

type AnswersConfig struct {
	Path     string `mapstructure:"path" yaml:"path" json:"path"`
	Fallback string `mapstructure:"fallback" yaml:"fallback" json:"fallback" jsonschema:"enum=prompt,enum=generator,enum=generator-then-prompt,enum=skip"`
}

type GeneratorConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider" json:"provider" jsonschema:"enum=none,enum=openai,enum=gemini"`
	ProfilePath string        `mapstructure:"profile_path" yaml:"profile_path" json:"profile_path"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	OpenAI      OpenAIConfig  `mapstructure:"openai" yaml:"openai" json:"openai"`
	Gemini      GeminiConfig  `mapstructure:"gemini" yaml:"gemini" json:"gemini"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key" yaml:"api_key" json:"-"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	Model       string  `mapstructure:"model" yaml:"model" json:"model"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	MaxRetries  int     `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
}

type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Model       string  `mapstructure:"model" yaml:"model" json:"model"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
}

// Identity holds the fixed applicant fields that override the answers file.
type Identity struct {
	FirstName string `mapstructure:"first_name" yaml:"first_name" json:"first_name"`
	LastName  string `mapstructure:"last_name" yaml:"last_name" json:"last_name"`
	Email     string `mapstructure:"email" yaml:"email" json:"email"`
	Phone     string `mapstructure:"phone" yaml:"phone" json:"phone"`
}

// Overrides returns the identity as answers-file entries. Empty fields are
// omitted.
func (i Identity) Overrides() map[string]string {
	out := make(map[string]string, 4)
	for q, a := range map[string]string{
		"first name":          i.FirstName,
		"last name":           i.LastName,
		"Email address":       i.Email,
		"Mobile phone number": i.Phone,
	} {
		if a = strings.TrimSpace(a); a != "" {
			out[q] = a
		}
	}
	return out
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "easy-apply")
	v.SetDefault("logger.log_file", "logs/easy-apply.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Journal --
	v.SetDefault("journal.path", "logs/journal.jsonl")
	v.SetDefault("journal.max_size", 10)
	v.SetDefault("journal.max_backups", 3)
	v.SetDefault("journal.max_age", 90)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.window_width", 1366)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.screenshot_dir", "logs")

	// -- LinkedIn --
	v.SetDefault("linkedin.username", "")
	v.SetDefault("linkedin.password", "")
	v.SetDefault("linkedin.login_url", "https://www.linkedin.com/login")
	v.SetDefault("linkedin.manual_login", true)
	v.SetDefault("linkedin.login_timeout", "15s")

	// -- Search --
	v.SetDefault("search.url", "")
	v.SetDefault("search.keywords", "")
	v.SetDefault("search.location", "")

	// -- Walker --
	v.SetDefault("walker.max_applications", 0)
	v.SetDefault("walker.max_result_pages", 40)
	v.SetDefault("walker.pace", "5s")
	v.SetDefault("walker.card_timeout", "10s")
	v.SetDefault("walker.apply_timeout", "5s")
	v.SetDefault("walker.include_file", "")
	v.SetDefault("walker.exclude_file", "")
	v.SetDefault("walker.include", []string{})
	v.SetDefault("walker.exclude", []string{})

	// -- Navigator --
	v.SetDefault("navigator.next_timeout", "5s")
	v.SetDefault("navigator.review_timeout", "10s")
	v.SetDefault("navigator.submit_timeout", "15s")
	v.SetDefault("navigator.form_timeout", "15s")
	v.SetDefault("navigator.popup_timeout", "5s")
	v.SetDefault("navigator.page_pause", "2s")
	v.SetDefault("navigator.max_pages", 20)
	v.SetDefault("navigator.popup_attempts", 3)

	// -- Answers --
	v.SetDefault("answers.path", "resources/answers.yaml")
	v.SetDefault("answers.fallback", FallbackPrompt)

	// -- Generator --
	v.SetDefault("generator.provider", ProviderNone)
	v.SetDefault("generator.profile_path", "resources/profile.md")
	v.SetDefault("generator.timeout", "60s")
	v.SetDefault("generator.openai.api_key", "")
	v.SetDefault("generator.openai.base_url", "")
	v.SetDefault("generator.openai.model", "gpt-4o-mini")
	v.SetDefault("generator.openai.temperature", 0.2)
	v.SetDefault("generator.openai.max_retries", 10)
	v.SetDefault("generator.gemini.api_key", "")
	v.SetDefault("generator.gemini.model", "gemini-2.0-flash")
	v.SetDefault("generator.gemini.temperature", 0.2)

	// -- Identity --
	v.SetDefault("identity.first_name", "")
	v.SetDefault("identity.last_name", "")
	v.SetDefault("identity.email", "")
	v.SetDefault("identity.phone", "")
}

// BindEnv wires the EASYAPPLY_ prefix and the plain environment variables the
// bot has always read for secrets and identity.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("EASYAPPLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("linkedin.username", "EASYAPPLY_LINKEDIN_USERNAME", "LINKEDIN_USERNAME")
	_ = v.BindEnv("linkedin.password", "EASYAPPLY_LINKEDIN_PASSWORD", "LINKEDIN_PASSWORD")
	_ = v.BindEnv("generator.openai.api_key", "EASYAPPLY_GENERATOR_OPENAI_API_KEY", "OPENAI_API_KEY", "OPENAI_KEY")
	_ = v.BindEnv("generator.gemini.api_key", "EASYAPPLY_GENERATOR_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("identity.first_name", "EASYAPPLY_IDENTITY_FIRST_NAME", "FIRST_NAME")
	_ = v.BindEnv("identity.last_name", "EASYAPPLY_IDENTITY_LAST_NAME", "LAST_NAME")
	_ = v.BindEnv("identity.email", "EASYAPPLY_IDENTITY_EMAIL", "EMAIL_ADDRESS")
	_ = v.BindEnv("identity.phone", "EASYAPPLY_IDENTITY_PHONE", "MOBILE_PHONE_NUMBER")
}

// LoadDotEnv loads each file into the process environment. Missing files are
// skipped and variables that are already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		p, err := homedir.Expand(p)
		if err != nil {
			return err
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ReadFile merges the settings file at path into v. A missing file is only an
// error when required is set.
func ReadFile(v *viper.Viper, path string, required bool) error {
	p, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config file %s: %w", p, err)
	}
	v.SetConfigFile(p)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", p, err)
	}
	return nil
}

// NewConfigFromViper builds, expands and validates a Config.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Load is the one-call path used by tests and tools: defaults, env, optional
// settings file.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	if path != "" {
		if err := ReadFile(v, path, true); err != nil {
			return nil, err
		}
	}
	return NewConfigFromViper(v)
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.Logger.LogFile,
		&c.Journal.Path,
		&c.Browser.ExecPath,
		&c.Browser.UserDataDir,
		&c.Browser.ScreenshotDir,
		&c.Walker.IncludeFile,
		&c.Walker.ExcludeFile,
		&c.Answers.Path,
		&c.Generator.ProfilePath,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var errs []error

	switch c.Answers.Fallback {
	case FallbackPrompt, FallbackGenerator, FallbackGeneratorThenPrompt, FallbackSkip:
	default:
		errs = append(errs, fmt.Errorf("answers.fallback %q is not one of prompt, generator, generator-then-prompt, skip", c.Answers.Fallback))
	}
	if c.Answers.Path == "" {
		errs = append(errs, errors.New("answers.path is required"))
	}

	switch c.Generator.Provider {
	case ProviderNone, "":
		if c.Answers.Fallback == FallbackGenerator || c.Answers.Fallback == FallbackGeneratorThenPrompt {
			errs = append(errs, fmt.Errorf("answers.fallback %q needs generator.provider to be set", c.Answers.Fallback))
		}
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("generator.provider %q is not one of none, openai, gemini", c.Generator.Provider))
	}

	for name, d := range map[string]time.Duration{
		"navigator.next_timeout":   c.Navigator.NextTimeout,
		"navigator.review_timeout": c.Navigator.ReviewTimeout,
		"navigator.submit_timeout": c.Navigator.SubmitTimeout,
		"navigator.form_timeout":   c.Navigator.FormTimeout,
		"navigator.popup_timeout":  c.Navigator.PopupTimeout,
		"walker.card_timeout":      c.Walker.CardTimeout,
		"walker.apply_timeout":     c.Walker.ApplyTimeout,
		"linkedin.login_timeout":   c.LinkedIn.LoginTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Navigator.MaxPages <= 0 {
		errs = append(errs, errors.New("navigator.max_pages must be a positive integer"))
	}
	if c.Navigator.PopupAttempts <= 0 {
		errs = append(errs, errors.New("navigator.popup_attempts must be a positive integer"))
	}
	if c.Walker.MaxApplications < 0 {
		errs = append(errs, errors.New("walker.max_applications cannot be negative"))
	}
	if c.Walker.Pace < 0 {
		errs = append(errs, errors.New("walker.pace cannot be negative"))
	}
	return errors.Join(errs...)
}

// ValidateCredentials is checked only by commands that sign in.
func (c *Config) ValidateCredentials() error {
	if c.LinkedIn.Username == "" || c.LinkedIn.Password == "" {
		return errors.New("LINKEDIN_USERNAME and LINKEDIN_PASSWORD must be set")
	}
	return nil
}
