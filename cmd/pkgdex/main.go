// Command pkgdex serves hybrid package search over HTTP, MCP and the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pkgdex/internal/config"
	logpkg "github.com/kailas-cloud/pkgdex/internal/logger"
	"github.com/kailas-cloud/pkgdex/internal/version"
)

// runtimeEnv is populated by the root command before any subcommand runs.
type runtimeEnv struct {
	env        string
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rt := &runtimeEnv{}

	cmd := &cobra.Command{
		Use:   "pkgdex",
		Short: "Hybrid package search",
		Long: `pkgdex answers package search queries by combining BM25 keyword
retrieval with optional vector retrieval through Reciprocal Rank Fusion,
then hydrates dictionary-compressed package records.

Running pkgdex without a subcommand starts the HTTP server.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), rt)
		},
	}
	cmd.SetVersionTemplate("pkgdex version {{.Version}} (" + version.Commit + ", " + version.Date + ")\n")

	cmd.PersistentFlags().StringVar(&rt.env, "env", config.GetEnv(), "Environment: local, dev, docker, prod, test")
	cmd.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "Config file path (default config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "Override log level: debug, info, warn, error")

	cmd.AddCommand(newServeCmd(rt))
	cmd.AddCommand(newSearchCmd(rt))
	cmd.AddCommand(newMCPCmd(rt))
	return cmd
}

func (rt *runtimeEnv) load(cmd *cobra.Command) error {
	var err error
	if rt.configPath != "" {
		rt.cfg, err = config.LoadFile(rt.configPath)
	} else {
		rt.cfg, err = config.Load(rt.env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := rt.cfg.Logging.Level
	if rt.logLevel != "" {
		level = rt.logLevel
	}
	rt.logger, err = logpkg.NewLogger(rt.env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	rt.logger.Debug("configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("env", rt.env),
		zap.String("version", version.Version),
	)
	return nil
}
