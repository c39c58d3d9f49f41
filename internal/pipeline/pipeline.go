// Package pipeline drives one streaming analysis pass: read rows, cast
// values, gate through the sampler, and fan the kept records out to the
// online accumulators. The pass is single threaded and pull based; the
// working set is the type-inference bootstrap buffer plus whatever the
// sampling decision retains.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Mrassimo/datapilot-sub008/internal/memguard"
	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/sample"
	"github.com/Mrassimo/datapilot-sub008/internal/stats"
	"github.com/Mrassimo/datapilot-sub008/internal/typeinfer"
	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

// Config tunes one streaming pass. Zero fields take the defaults.
type Config struct {
	// BootstrapRows is how many leading rows feed type inference before
	// accumulators exist. Default 1000.
	BootstrapRows int

	// MaxPairs caps the tracked correlation pairs. Default 50.
	MaxPairs int

	// MaxSkipExamples caps the malformed-row examples retained for the
	// report. Default 5.
	MaxSkipExamples int

	// CheckEvery is the row interval between cancellation and memory
	// checks. Default 256.
	CheckEvery int

	// FreqCap bounds each column's distinct-value table; 0 uses the
	// stats default.
	FreqCap int

	// Caster supplies the value casting policy (day-first dates etc).
	Caster value.Caster
}

func (c Config) withDefaults() Config {
	if c.BootstrapRows <= 0 {
		c.BootstrapRows = 1000
	}
	if c.MaxPairs <= 0 {
		c.MaxPairs = 50
	}
	if c.MaxSkipExamples <= 0 {
		c.MaxSkipExamples = 5
	}
	if c.CheckEvery <= 0 {
		c.CheckEvery = 256
	}
	return c
}

// Result is the finalized output of one pass, before quality scoring.
type Result struct {
	Headers      []string
	Profiles     []model.ColumnProfile
	Summaries    []stats.Summary
	Stats        []model.DescriptiveStats
	Correlations []model.CorrelationPair
	Issues       model.ParseIssues

	RowsRead    int64
	RowsSampled int64
	Sampling    model.SamplingInfo
}

// Pipeline owns one streaming pass. Build a fresh one per run.
type Pipeline struct {
	cfg   Config
	infer typeinfer.Engine
	guard *memguard.Guard
	seed  uint64
}

// New builds a pipeline. guard may be nil; seed 0 means nondeterministic
// sampling.
func New(cfg Config, guard *memguard.Guard, seed uint64) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		cfg:   cfg,
		infer: typeinfer.Engine{Caster: cfg.Caster},
		guard: guard,
		seed:  seed,
	}
}

// Run consumes src until EOF under the given sampling decision.
// hasHeader controls whether the first row names the columns; without a
// header, names are synthesized and the first row is data. Records are
// processed in file order; cancellation is checked between row batches
// and no partial result is returned on cancellation.
func (p *Pipeline) Run(ctx context.Context, src RowSource, hasHeader bool, decision sample.Decision) (*Result, error) {
	res := &Result{
		Sampling: model.SamplingInfo{
			Method:            string(decision.Method),
			Rate:              decision.Rate,
			ReservoirCapacity: decision.ReservoirCapacity,
		},
	}

	headers, first, err := p.readHeader(src, hasHeader, res)
	if err != nil {
		return nil, err
	}
	if headers == nil {
		// Empty stream: the caller decides whether that is an error.
		return res, nil
	}
	res.Headers = headers

	// Bootstrap: buffer the leading rows so type inference can run
	// before any accumulator exists, then replay them through the gate.
	bootstrap := make([][]string, 0, p.cfg.BootstrapRows)
	if first != nil {
		bootstrap = append(bootstrap, first)
		res.RowsRead++
	}
	for len(bootstrap) < p.cfg.BootstrapRows {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !IsRowError(err) {
				return nil, eris.Wrap(err, "pipeline: read input")
			}
			res.RowsRead++
			p.recordSkip(res, err.Error())
			continue
		}
		res.RowsRead++
		if !p.accept(res, headers, row) {
			continue
		}
		bootstrap = append(bootstrap, row)
	}

	res.Profiles = p.infer.InferColumns(headers, bootstrap, len(bootstrap))

	univ := make([]*stats.Univariate, len(headers))
	for i, prof := range res.Profiles {
		univ[i] = stats.NewUnivariate(prof, p.cfg.FreqCap)
	}

	var biv *stats.Bivariate
	if pairs := SelectPairs(res.Profiles, p.cfg.MaxPairs); len(pairs) > 0 {
		biv, err = stats.NewBivariate(headers, pairs)
		if err != nil {
			return nil, err
		}
	}

	sink := func(rec []value.Value) {
		for i := range univ {
			univ[i].Observe(rec[i])
		}
		if biv != nil {
			biv.Observe(rec)
		}
	}
	gate := sample.NewGate(decision, p.seed, sink)
	if p.guard != nil {
		p.guard.OnCritical(gate.Shrink)
	}

	for _, row := range bootstrap {
		gate.Offer(p.castRow(headers, row))
	}

	// Stream the remainder.
	sinceCheck := 0
	for {
		sinceCheck++
		if sinceCheck >= p.cfg.CheckEvery {
			sinceCheck = 0
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "pipeline: cancelled")
			}
			if p.guard != nil {
				if err := p.guard.Check(); err != nil {
					return nil, err
				}
			}
		}

		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !IsRowError(err) {
				return nil, eris.Wrap(err, "pipeline: read input")
			}
			res.RowsRead++
			p.recordSkip(res, err.Error())
			continue
		}
		res.RowsRead++
		if !p.accept(res, headers, row) {
			continue
		}
		gate.Offer(p.castRow(headers, row))
	}

	gate.Finalize()
	res.RowsSampled = gate.Kept()
	res.Sampling.Rate = gate.Rate()
	res.Sampling.Degraded = gate.Degraded()

	res.Summaries = make([]stats.Summary, len(univ))
	res.Stats = make([]model.DescriptiveStats, len(univ))
	for i, u := range univ {
		res.Summaries[i] = u.Finalize()
		res.Stats[i] = res.Summaries[i].Stats
	}
	if biv != nil {
		res.Correlations = biv.Finalize()
	}

	if res.Issues.SkippedRows > 0 {
		zap.L().Warn("pipeline: skipped malformed rows",
			zap.Int64("skipped", res.Issues.SkippedRows),
			zap.Int64("read", res.RowsRead))
	}
	return res, nil
}

// readHeader consumes the header row or synthesizes column names from
// the first data row. A nil headers return means the stream was empty.
func (p *Pipeline) readHeader(src RowSource, hasHeader bool, res *Result) (headers []string, first []string, err error) {
	for {
		row, err := src.Next()
		if err == io.EOF {
			return nil, nil, nil
		}
		if err != nil {
			if !IsRowError(err) {
				return nil, nil, eris.Wrap(err, "pipeline: read header")
			}
			res.RowsRead++
			p.recordSkip(res, err.Error())
			continue
		}
		if hasHeader {
			return row, nil, nil
		}
		headers = make([]string, len(row))
		for i := range row {
			headers[i] = fmt.Sprintf("column_%d", i+1)
		}
		return headers, row, nil
	}
}

// accept applies the column-count tolerance: a row must carry exactly
// the header's field count to reach the accumulators.
func (p *Pipeline) accept(res *Result, headers, row []string) bool {
	if len(row) == len(headers) {
		return true
	}
	p.recordSkip(res, fmt.Sprintf("row %d: %d fields, want %d", res.RowsRead, len(row), len(headers)))
	return false
}

func (p *Pipeline) recordSkip(res *Result, example string) {
	res.Issues.SkippedRows++
	if len(res.Issues.Examples) < p.cfg.MaxSkipExamples {
		res.Issues.Examples = append(res.Issues.Examples, example)
	}
}

func (p *Pipeline) castRow(headers, row []string) []value.Value {
	rec := make([]value.Value, len(headers))
	for i, raw := range row {
		rec[i] = p.cfg.Caster.Cast(raw)
	}
	return rec
}

// identifierDistinctRatio is the distinct share above which an integer
// column is treated as a key rather than a measurement.
const identifierDistinctRatio = 0.95

// SelectPairs picks the correlation pairs to track: every combination
// of numeric columns, capped at maxPairs. Identifier columns are not
// numeric and never qualify; near-unique integer columns are excluded
// the same way, since a sequential key correlates spuriously with
// anything ordered the way the file is.
func SelectPairs(profiles []model.ColumnProfile, maxPairs int) []stats.PairSpec {
	var numeric []string
	for _, p := range profiles {
		if !p.Type.Numeric() {
			continue
		}
		if p.Type == model.TypeInteger && p.DistinctRatio > identifierDistinctRatio {
			continue
		}
		numeric = append(numeric, p.Name)
	}
	var pairs []stats.PairSpec
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			if len(pairs) >= maxPairs {
				return pairs
			}
			pairs = append(pairs, stats.PairSpec{Col1: numeric[i], Col2: numeric[j]})
		}
	}
	return pairs
}
