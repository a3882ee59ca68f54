// Package cmd is the easy-apply command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Smackface/go-easy-apply/internal/config"
	"github.com/Smackface/go-easy-apply/internal/observability"
)

const defaultConfigFile = "easyapply.yaml"

// dotEnvFiles are loaded before the settings file. Missing files are fine.
var dotEnvFiles = []string{"resources/.env", ".env"}

// flagKeys maps command line flags onto settings keys. A flag only
// overrides the settings file when it is given.
var flagKeys = map[string]string{
	"answers":          "answers.path",
	"log-level":        "logger.level",
	"headless":         "browser.headless",
	"max-applications": "walker.max_applications",
	"fallback":         "answers.fallback",
	"search-url":       "search.url",
}

// app holds what the commands share once settings are loaded.
type app struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	return newRoot(&app{})
}

func newRoot(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "easy-apply",
		Short:         "Apply to LinkedIn Easy Apply jobs from a file of saved answers.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "settings file (default ./"+defaultConfigFile+")")
	root.PersistentFlags().String("answers", "", "answers file")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newRunCmd(a),
		newAnswersCmd(a),
		newSchemaCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads .env files, the settings file, the environment and flags, in
// increasing priority, then starts the logger.
func (a *app) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(dotEnvFiles...); err != nil {
		return err
	}

	v := viper.New()
	config.SetDefaults(v)
	config.BindEnv(v)
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	path, required := a.cfgFile, true
	if path == "" {
		path, required = defaultConfigFile, false
	}
	if err := config.ReadFile(v, path, required); err != nil {
		return err
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	observability.InitializeLogger(cfg.Logger)
	a.cfg = cfg
	observability.GetLogger().Debug("Settings loaded.", zap.String("file", path), zap.String("version", Version))
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	defer observability.Sync()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		observability.GetLogger().Error("Command failed.", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
