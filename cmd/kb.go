package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect the source knowledge base",
	Long:  "Commands for viewing and pruning what datapilot has learned about each data source across runs.",
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known data sources",
	RunE: func(_ *cobra.Command, _ []string) error {
		k, err := initKB(cfg.KB)
		if err != nil {
			return err
		}
		entries, err := k.List()
		if err != nil {
			return eris.Wrap(err, "kb list")
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "Knowledge base is empty.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tCOLUMNS\tRUNS\tLAST SCORE\tUPDATED")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t%s\n",
				e.Source, len(e.Columns), e.RunCount, e.LastComposite,
				e.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var kbShowCmd = &cobra.Command{
	Use:   "show <source>",
	Short: "Show everything known about a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		k, err := initKB(cfg.KB)
		if err != nil {
			return err
		}
		entry, err := k.Get(args[0])
		if err != nil {
			return eris.Wrap(err, "kb show")
		}
		if entry == nil {
			return eris.Errorf("kb show: unknown source %q", args[0])
		}

		fmt.Printf("Source:     %s\n", entry.Source)
		fmt.Printf("Runs:       %d\n", entry.RunCount)
		fmt.Printf("Last score: %.1f\n", entry.LastComposite)
		fmt.Printf("Last run:   %s\n", entry.LastAnalysisID)
		fmt.Printf("Updated:    %s\n\n", entry.UpdatedAt.Format("2006-01-02 15:04"))

		names := make([]string, 0, len(entry.Columns))
		for name := range entry.Columns {
			names = append(names, name)
		}
		sort.Strings(names)

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COLUMN\tTYPE\tCONFIDENCE\tNULL RATE")
		for _, name := range names {
			note := entry.Columns[name]
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.1f%%\n",
				name, note.Type, note.Confidence, note.NullRate*100)
		}
		return tw.Flush()
	},
}

var kbExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the full catalogue as YAML",
	RunE: func(_ *cobra.Command, _ []string) error {
		k, err := initKB(cfg.KB)
		if err != nil {
			return err
		}
		cat, err := k.Load()
		if err != nil {
			return eris.Wrap(err, "kb export")
		}
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(cat)
	},
}

var kbForgetCmd = &cobra.Command{
	Use:   "forget <source>",
	Short: "Remove a source from the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		k, err := initKB(cfg.KB)
		if err != nil {
			return err
		}
		if err := k.Forget(args[0]); err != nil {
			return eris.Wrap(err, "kb forget")
		}
		fmt.Printf("Forgot %s.\n", args[0])
		return nil
	},
}

func init() {
	kbCmd.AddCommand(kbListCmd, kbShowCmd, kbExportCmd, kbForgetCmd)
	rootCmd.AddCommand(kbCmd)
}
