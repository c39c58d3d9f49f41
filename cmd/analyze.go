package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mrassimo/datapilot-sub008/internal/engine"
	"github.com/Mrassimo/datapilot-sub008/internal/format"
	"github.com/Mrassimo/datapilot-sub008/internal/ingest"
	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/report"
)

var (
	analyzeFormat     string
	analyzeOutput     string
	analyzeDelimiter  string
	analyzeNoHeader   bool
	analyzeMonthFirst bool
	analyzeMaxRows    int64
	analyzeSeed       uint64
	analyzeSheet      string
	analyzeSave       bool
	analyzeNoKB       bool
	analyzeParallel   int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Profile one or more tabular files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		outFormat, err := report.ParseFormat(analyzeFormat)
		if err != nil {
			return err
		}

		eng, err := engine.New(engineConfig())
		if err != nil {
			return err
		}

		analyses := make([]*model.Analysis, len(args))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(analyzeParallel)
		for i, path := range args {
			g.Go(func() error {
				a, err := analyzeOne(gctx, eng, path)
				if err != nil {
					return eris.Wrapf(err, "analyze %s", path)
				}
				analyses[i] = a
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if err := persist(ctx, analyses); err != nil {
			return err
		}

		out := os.Stdout
		if analyzeOutput != "" {
			f, err := os.Create(analyzeOutput)
			if err != nil {
				return eris.Wrapf(err, "create %s", analyzeOutput)
			}
			defer f.Close()
			out = f
		}
		for _, a := range analyses {
			if err := report.Render(out, a, outFormat); err != nil {
				return err
			}
		}
		return nil
	},
}

// engineConfig folds the analyze flags over the file/env config.
func engineConfig() engine.Config {
	ec := engine.Config{
		MaxRows:           cfg.Engine.MaxRows,
		MemoryThresholdMB: cfg.Engine.MemoryThresholdMB,
		MinRows:           cfg.Engine.MinRows,
		MaxPairs:          cfg.Engine.MaxPairs,
		ChunkSize:         cfg.Engine.ChunkSize,
		MonthFirst:        cfg.Engine.MonthFirst || analyzeMonthFirst,
		Seed:              analyzeSeed,
	}
	if analyzeMaxRows > 0 {
		ec.MaxRows = analyzeMaxRows
	}
	if analyzeDelimiter != "" {
		ec.Delimiter = rune(analyzeDelimiter[0])
	}
	if analyzeNoHeader {
		ec.Header = format.HeaderAbsent
	}
	return ec
}

func analyzeOne(ctx context.Context, eng *engine.Engine, path string) (*model.Analysis, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		src, err := ingest.OpenXLSX(path, ingest.XLSXOptions{SheetName: analyzeSheet})
		if err != nil {
			return nil, err
		}
		return eng.AnalyzeRows(ctx, path, src, !analyzeNoHeader)
	default:
		return eng.AnalyzeFile(ctx, path)
	}
}

// persist saves runs and records knowledge-base entries as requested.
// Writes happen after all analyses finish; they are cheap next to the
// analysis itself.
func persist(ctx context.Context, analyses []*model.Analysis) error {
	if analyzeSave {
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		for _, a := range analyses {
			if err := st.SaveAnalysis(ctx, a); err != nil {
				return err
			}
		}
	}

	if !analyzeNoKB {
		catalogue, err := initKB(cfg.KB)
		if err != nil {
			return err
		}
		for _, a := range analyses {
			if err := catalogue.RecordWithRetry(ctx, a); err != nil {
				zap.L().Warn("knowledge base update failed",
					zap.String("source", a.Source),
					zap.Error(err))
			}
		}
	}
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "markdown", "output format: markdown, json, yaml")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write report to file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeDelimiter, "delimiter", "", "force field delimiter (default auto-detect)")
	analyzeCmd.Flags().BoolVar(&analyzeNoHeader, "no-header", false, "treat the first row as data")
	analyzeCmd.Flags().BoolVar(&analyzeMonthFirst, "month-first", false, "read ambiguous dates like 04/05/2024 as month first")
	analyzeCmd.Flags().Int64Var(&analyzeMaxRows, "max-rows", 0, "row ceiling for sampling (default from config)")
	analyzeCmd.Flags().Uint64Var(&analyzeSeed, "seed", 0, "sampling seed for reproducible runs")
	analyzeCmd.Flags().StringVar(&analyzeSheet, "sheet", "", "sheet name for spreadsheet inputs")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the run to the store")
	analyzeCmd.Flags().BoolVar(&analyzeNoKB, "no-kb", false, "skip the knowledge-base update")
	analyzeCmd.Flags().IntVar(&analyzeParallel, "parallel", 4, "max files analyzed concurrently")
	rootCmd.AddCommand(analyzeCmd)
}
