// Package main implements the cookbook CLI which runs the agent recipes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components/llm"
	"github.com/bububa/atomic-cookbook/examples"
	"github.com/bububa/atomic-cookbook/internal/config"
	"github.com/bububa/atomic-cookbook/internal/logging"
)

var version = "dev"

// newClient builds the llm client, replaced in tests
var newClient = examples.NewClient

// flags are the global flags shared by every recipe
type flags struct {
	configPath string
	provider   string
	model      string
	logLevel   string
	stream     bool
}

// app is the state prepared before a recipe runs
type app struct {
	flags
	cfg    *config.Config
	logger *zap.Logger
	client llm.Client
	out    io.Writer

	// progress receives the progress bars
	progress io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, progress io.Writer) *cobra.Command {
	a := &app{out: out, progress: progress}
	root := &cobra.Command{
		Use:   "cookbook",
		Short: "Run the agent recipes",
		Long: `cookbook runs the agent recipes against the configured llm provider.

Examples:
  # Ask the basic agent
  cookbook basic "Share a 2 sentence horror story"

  # Use another provider
  cookbook --provider anthropic search "Whats happening in France?"

  # Load the recipe book then ask about it
  cookbook knowledge ask --load "How to make Thai curry?"`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "yaml config file")
	pf.StringVar(&a.provider, "provider", "", fmt.Sprintf("llm provider, one of %s", strings.Join(config.Providers, ", ")))
	pf.StringVarP(&a.model, "model", "m", "", "chat model, the provider default when empty")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&a.stream, "stream", false, "stream replies when the recipe supports it")

	root.AddCommand(
		a.basicCmd(),
		a.financeCmd(),
		a.searchCmd(),
		a.imageCmd(),
		a.mediaCmd(),
		a.storageCmd(),
		a.knowledgeCmd(),
		a.marketingCmd(),
	)
	return root
}

// setup loads the configuration, applies the flags and builds the logger and client
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := a.apply(cfg); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	clt, err := newClient(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.client = clt
	logger.Debug("cookbook ready", zap.String("provider", cfg.Provider), zap.String("model", a.chatModel()))
	return nil
}

// apply overrides cfg with the flags set on the command line
func (a *app) apply(cfg *config.Config) error {
	if a.provider != "" {
		cfg.Provider = a.provider
	}
	if a.model != "" {
		cfg.Model = a.model
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.stream {
		cfg.Stream = true
	}
	return cfg.Validate()
}

func (a *app) chatModel() string {
	return examples.Model(a.cfg)
}

// prompt joins args or returns def when there are none
func prompt(args []string, def string) string {
	if len(args) == 0 {
		return def
	}
	return strings.Join(args, " ")
}

func ctx(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}
