package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mrassimo/datapilot-sub008/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "datapilot",
	Short: "Streaming profiler for tabular data",
	Long:  "Analyzes delimited text and spreadsheet files in one pass: format detection, type inference, descriptive statistics, correlations, and a composite data quality score.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
