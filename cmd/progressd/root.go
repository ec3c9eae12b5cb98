package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/content-progress/internal/config"
	"github.com/JakeFAU/content-progress/internal/logging"
)

// runEnvKeyType is the key for storing the run environment in the command context.
type runEnvKeyType string

const runEnvKey runEnvKeyType = "run_env"

// runEnv carries what every subcommand needs once flags are parsed.
type runEnv struct {
	cfg    config.Config
	logger *zap.Logger
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "progressd",
		Short: "Content progress reconciliation service.",
		Long: `progressd accepts learner content-state updates, merges them into the
stored progress record for each learner, content, course and batch, and
publishes a rollup summary for downstream aggregation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,

		// Runs after flags are parsed but before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.NewWithLevel(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			zap.ReplaceGlobals(logger)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, runEnvKey, &runEnv{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := resolveRunEnv(cmd.Context()); err == nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML); env vars with PROGRESS_ prefix override it")
	cmd.AddCommand(newServeCmd())
	return cmd
}

func resolveRunEnv(ctx context.Context) (*runEnv, error) {
	if ctx == nil {
		return nil, errors.New("runtime environment not initialized")
	}
	rt, ok := ctx.Value(runEnvKey).(*runEnv)
	if !ok || rt == nil {
		return nil, errors.New("runtime environment not initialized")
	}
	return rt, nil
}
