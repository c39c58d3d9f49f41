// Package engine wires one analysis run end to end: open the input,
// detect its format, plan sampling, stream through the pipeline, and
// score quality. All per-run state lives on the Run object so nothing
// leaks across runs.
package engine

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Mrassimo/datapilot-sub008/internal/format"
	"github.com/Mrassimo/datapilot-sub008/internal/memguard"
	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/pipeline"
	"github.com/Mrassimo/datapilot-sub008/internal/quality"
	"github.com/Mrassimo/datapilot-sub008/internal/sample"
	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

// ErrInsufficientData is returned when the input holds fewer data rows
// than the configured minimum.
var ErrInsufficientData = eris.New("engine: insufficient data rows")

// detectPrefixBytes is how much of the file the format detector reads.
const detectPrefixBytes = 64 << 10

// Config is the caller-facing configuration for one run.
type Config struct {
	// MaxRows caps the rows the accumulators see on large inputs.
	MaxRows int64

	// MemoryThresholdMB is the critical heap threshold; the hard limit
	// is double it. Zero uses the guard defaults.
	MemoryThresholdMB int

	// MinRows is the minimum data-row count below which the run fails
	// with ErrInsufficientData. Default 1.
	MinRows int64

	// Delimiter forces the field delimiter; zero means auto-detect.
	Delimiter rune

	// Header overrides header detection.
	Header format.HeaderMode

	// MonthFirst switches ambiguous dates like 04/05/2024 to the
	// month-first reading. Day first is the default.
	MonthFirst bool

	// MaxPairs caps tracked correlation pairs; 0 uses the pipeline
	// default.
	MaxPairs int

	// ChunkSize is the row interval between cancellation and memory
	// checks while streaming; 0 uses the pipeline default.
	ChunkSize int

	// Seed fixes the sampling random stream; 0 means nondeterministic.
	Seed uint64
}

// ValidationError reports a bad configuration before streaming starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "engine: invalid config: " + e.Field + ": " + e.Reason
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c Config) Validate() error {
	if c.MaxRows < 0 {
		return &ValidationError{Field: "max_rows", Reason: "must not be negative"}
	}
	if c.MemoryThresholdMB < 0 {
		return &ValidationError{Field: "memory_threshold_mb", Reason: "must not be negative"}
	}
	if c.MinRows < 0 {
		return &ValidationError{Field: "min_rows", Reason: "must not be negative"}
	}
	if c.MaxPairs < 0 {
		return &ValidationError{Field: "max_pairs", Reason: "must not be negative"}
	}
	if c.ChunkSize < 0 {
		return &ValidationError{Field: "chunk_size", Reason: "must not be negative"}
	}
	return nil
}

// Engine builds runs. It is cheap and stateless; per-run state lives on
// the Run object created for each analysis.
type Engine struct {
	cfg Config
}

// New validates cfg and returns an engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// AnalyzeFile runs one complete analysis over the file at path.
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (*model.Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "engine: stat %s", path)
	}
	return e.analyze(ctx, path, f, info.Size())
}

// AnalyzeRows runs an analysis over a pre-built row source, for inputs
// that are not delimited text (spreadsheets). The workbook reader holds
// the sheet in memory already, so the run is a full scan.
func (e *Engine) AnalyzeRows(ctx context.Context, source string, src pipeline.RowSource, hasHeader bool) (*model.Analysis, error) {
	started := time.Now().UTC()

	guard := memguard.New(e.limits())
	p := pipeline.New(pipeline.Config{
		MaxPairs:   e.cfg.MaxPairs,
		CheckEvery: e.cfg.ChunkSize,
		Caster:     value.Caster{MonthFirst: e.cfg.MonthFirst},
	}, guard, e.cfg.Seed)

	res, err := p.Run(ctx, src, hasHeader, sample.Decision{Method: sample.MethodNone, Rate: 1})
	if err != nil {
		return nil, err
	}
	return e.finish(source, started, model.FormatInfo{Encoding: "utf-8", HasHeader: hasHeader}, res)
}

// analyze drives detection, sampling, streaming and scoring over an
// already-open seekable source.
func (e *Engine) analyze(ctx context.Context, source string, r io.ReadSeeker, size int64) (*model.Analysis, error) {
	started := time.Now().UTC()

	prefix := make([]byte, detectPrefixBytes)
	n, err := io.ReadFull(r, prefix)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, eris.Wrap(err, "engine: read prefix")
	}
	det := format.Detect(prefix[:n], format.Options{
		Delimiter: e.cfg.Delimiter,
		Header:    e.cfg.Header,
	})
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, eris.Wrap(err, "engine: rewind input")
	}

	policy := sample.DefaultPolicy()
	if e.cfg.MaxRows > 0 {
		policy.RowCeiling = e.cfg.MaxRows
	}
	decision := policy.Plan(size, 0)

	guard := memguard.New(e.limits())

	p := pipeline.New(pipeline.Config{
		MaxPairs:   e.cfg.MaxPairs,
		CheckEvery: e.cfg.ChunkSize,
		Caster:     value.Caster{MonthFirst: e.cfg.MonthFirst},
	}, guard, e.cfg.Seed)

	zap.L().Info("engine: starting analysis",
		zap.String("source", source),
		zap.Int64("size_bytes", size),
		zap.String("encoding", string(det.Encoding)),
		zap.String("delimiter", string(det.Delimiter)),
		zap.Bool("has_header", det.HasHeader),
		zap.String("sampling", string(decision.Method)))

	res, err := p.Run(ctx, pipeline.NewCSVSource(r, det), det.HasHeader, decision)
	if err != nil {
		return nil, err
	}
	return e.finish(source, started, model.FormatInfo{
		Encoding:  string(det.Encoding),
		Delimiter: string(det.Delimiter),
		HasHeader: det.HasHeader,
	}, res)
}

// finish applies the minimum-row check and quality scoring, and
// assembles the run output.
func (e *Engine) finish(source string, started time.Time, format model.FormatInfo, res *pipeline.Result) (*model.Analysis, error) {
	minRows := e.cfg.MinRows
	if minRows <= 0 {
		minRows = 1
	}
	accepted := res.RowsRead - res.Issues.SkippedRows
	if accepted < minRows {
		return nil, eris.Wrapf(ErrInsufficientData, "%d usable rows, need %d", accepted, minRows)
	}

	report := quality.Score(quality.Inputs{
		Profiles:     res.Profiles,
		Summaries:    res.Summaries,
		RowsAccepted: accepted,
		RowsSkipped:  res.Issues.SkippedRows,
	})

	analysis := &model.Analysis{
		ID:           uuid.NewString(),
		Source:       source,
		Format:       format,
		Sampling:     res.Sampling,
		RowsRead:     res.RowsRead,
		RowsSampled:  res.RowsSampled,
		Issues:       res.Issues,
		Columns:      res.Profiles,
		Stats:        res.Stats,
		Correlations: res.Correlations,
		Quality:      report,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
	}

	zap.L().Info("engine: analysis complete",
		zap.String("id", analysis.ID),
		zap.Int64("rows_read", analysis.RowsRead),
		zap.Int64("rows_sampled", analysis.RowsSampled),
		zap.Float64("composite", report.Composite),
		zap.Duration("elapsed", analysis.FinishedAt.Sub(started)))
	return analysis, nil
}

func (e *Engine) limits() memguard.Limits {
	if e.cfg.MemoryThresholdMB <= 0 {
		return memguard.Limits{}
	}
	critical := uint64(e.cfg.MemoryThresholdMB) << 20
	return memguard.Limits{
		WarnBytes:     critical / 2,
		CriticalBytes: critical,
		MaxBytes:      critical * 2,
	}
}
