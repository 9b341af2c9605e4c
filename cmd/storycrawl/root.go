package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/storycrawl/internal/config"
)

// NewRootCmd creates the root command for storycrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storycrawl",
		Short: "Download serialized fiction into plain text files",
		Long: `storycrawl downloads every chapter of a serialized work from a fiction site
and appends the chapter text, in order, to ./stories/{slug}.txt.

Works are identified by their slug, the last path segment of the work's
landing page (e.g. "tien-nghich" for https://truyenfull.io/tien-nghich).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .storycrawl in current or home directory)")
	cmd.PersistentFlags().String("log-format", config.LogFormatText, "Log format: text or json")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewWordsCmd())
	cmd.AddCommand(NewCharmapCmd())
	cmd.AddCommand(NewSimilarityCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds a Config from defaults and the configuration file.
// An explicit --config path must exist; otherwise a missing file is fine.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	cfg.ConfigFilePath = getGlobalString(cmd, "config")

	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		cf, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(cf)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	if format := getGlobalString(cmd, "log-format"); format != "" {
		cfg.LogFormat = format
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getGlobalString retrieves a persistent string flag from the command or the root.
func getGlobalString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}
