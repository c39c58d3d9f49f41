package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/monitoring"
	"github.com/Mrassimo/datapilot-sub008/internal/report"
	"github.com/Mrassimo/datapilot-sub008/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect analysis run history",
	Long:  "Commands for listing, viewing, and deleting persisted analysis runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		source, _ := cmd.Flags().GetString("source")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Source: source,
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(runs)
		return nil
	},
}

func formatRunsList(runs []model.RunSummary) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tSTATUS\tROWS\tSCORE\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f\t%s\n",
			r.ID, r.Source, r.Status, r.RowsRead, r.Composite,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full report of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		a, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		formatName, _ := cmd.Flags().GetString("format")
		outFormat, err := report.ParseFormat(formatName)
		if err != nil {
			return err
		}
		return report.Render(os.Stdout, a, outFormat)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recent run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		lookback, _ := cmd.Flags().GetInt("lookback-hours")
		collector := monitoring.NewCollector(st, cfg.Monitoring.QualityThreshold)
		snap, err := collector.Collect(ctx, lookback)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Window:\tlast %dh\n", snap.LookbackHours)
		fmt.Fprintf(tw, "Runs:\t%d (%d complete, %d failed)\n", snap.RunsTotal, snap.RunsComplete, snap.RunsFailed)
		fmt.Fprintf(tw, "Sources:\t%d\n", snap.Sources)
		fmt.Fprintf(tw, "Rows profiled:\t%d\n", snap.RowsProfiled)
		fmt.Fprintf(tw, "Average score:\t%.1f\n", snap.AvgComposite)
		fmt.Fprintf(tw, "Below %.0f:\t%d run(s)\n", snap.QualityThreshold, snap.LowQuality)
		return tw.Flush()
	},
}

// -- runs delete --

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a persisted run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.DeleteAnalysis(ctx, args[0]); err != nil {
			return eris.Wrap(err, "runs delete")
		}
		fmt.Printf("Deleted run %s.\n", args[0])
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("source", "", "filter by source path")
	runsListCmd.Flags().String("status", "", "filter by run status")
	runsListCmd.Flags().Int("limit", 50, "max runs to list")
	runsShowCmd.Flags().String("format", "markdown", "output format: markdown, json, yaml")
	runsStatsCmd.Flags().Int("lookback-hours", 24, "history window in hours")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsStatsCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}
