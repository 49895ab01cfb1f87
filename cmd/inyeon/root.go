package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/suka712/inyeon-upstream/internal/config"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// cliOptions are the persistent flags shared by every subcommand.
type cliOptions struct {
	configFile string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "inyeon",
		Short:         "Generate commit messages from git diffs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default ./.inyeon.toml or ~/.config/inyeon/config.toml)")
	flags.String("provider", "", "model provider: ollama, gemini, openai or anthropic")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("log-format", "", "log format: console or json")
	flags.Bool("tracing", false, "export trace spans to stderr")
	flags.Bool("metrics", false, "export run metrics to stderr")

	// Flags override env and file values only when set.
	for key, flag := range map[string]string{
		"llm_provider": "provider",
		"debug":        "debug",
		"log_format":   "log-format",
		"tracing":      "tracing",
		"metrics":      "metrics",
	} {
		_ = opts.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newServeCmd(opts),
		newRunCmd(opts),
		newHealthCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration with the flags applied.
func (o *cliOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.v, o.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "inyeon "+Version)
		},
	}
}
