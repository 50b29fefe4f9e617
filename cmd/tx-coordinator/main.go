package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tx-coordinator/internal/coordinator"
	"tx-coordinator/internal/core"
	"tx-coordinator/internal/pkg/logger"
)

var (
	cfgFile string
	dir     string
)

var rootCmd = &cobra.Command{
	Use:   "tx-coordinator",
	Short: "Run SQL migrations across multiple Postgres databases all-or-nothing",
	Long: `tx-coordinator executes groups of ordered SQL scripts against multiple
independent Postgres databases, one transaction per database, and drives
every transaction through execute and commit with a fall-back to rollback
if any participant fails at any stage.

SQL files are discovered as <dir>/*.sql and grouped by the schema token of
their name, <index>-<schema>-<name>.sql; each schema must have a matching
[[databases]] entry in the configuration file.

Examples:
  tx-coordinator
  tx-coordinator --cfg ./cfg.toml --dir ./sqlfiles`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "cfg", "./cfg.toml", "path of the configuration file")
	rootCmd.Flags().StringVar(&dir, "dir", "./sqlfiles", "directory containing the sql migration files")
}

func run(cmd *cobra.Command, args []string) error {
	logger.Initialize()
	ctx := context.Background()

	txs, err := core.Setup(ctx, cfgFile, dir)
	defer func() {
		if err := core.Teardown(ctx); err != nil {
			logger.Instance.Warn(ctx, "teardown failed", logger.Error(err))
		}
	}()
	if err != nil {
		return err
	}

	if err := coordinator.New(txs).CommitOrRollback(ctx); err != nil {
		logger.Instance.Error(ctx, "migration failed", logger.Error(err))
		return err
	}

	logger.Instance.Info(ctx, "migration done")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tx-coordinator failed: %v\n", err)
		os.Exit(1)
	}
}
