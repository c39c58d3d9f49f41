// Package stats holds the online accumulators: per-column univariate
// statistics (Welford moments, P² quantiles, bounded frequency tables)
// and pairwise streaming correlation. Accumulators are created once per
// analysis run, mutated while streaming, and finalized exactly once
// into plain-data summaries; no mutation after finalization.
package stats

import (
	"math"
	"time"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

// topKValues is how many frequent values a finalized summary reports.
const topKValues = 10

// outlierMinCount is the observation count before the running z-score
// outlier tally starts; earlier the running moments are too noisy.
const outlierMinCount = 30

// Univariate accumulates one column's statistics. Numeric and date
// columns maintain running moments and quantiles; every column
// maintains a bounded frequency table. It also carries the tallies the
// quality scorer consumes (conformance, outliers, decimal places,
// representational tokens).
type Univariate struct {
	column  string
	colType model.ColumnType

	run  Running
	q1   *P2Quantile
	med  *P2Quantile
	q3   *P2Quantile
	freq *Frequency

	nulls    int64
	nonNull  int64
	conforms int64
	outliers int64

	decimals    map[int]int64
	dateFormats map[string]int64
	newestDate  time.Time

	finalized bool
}

// NewUnivariate creates an accumulator for one profiled column.
// freqCap bounds the distinct values tracked; <= 0 uses the default.
func NewUnivariate(p model.ColumnProfile, freqCap int) *Univariate {
	u := &Univariate{
		column:      p.Name,
		colType:     p.Type,
		freq:        NewFrequency(freqCap),
		decimals:    make(map[int]int64),
		dateFormats: make(map[string]int64),
	}
	if p.Type.Numeric() || p.Type == model.TypeDate {
		u.q1 = NewP2Quantile(0.25)
		u.med = NewP2Quantile(0.5)
		u.q3 = NewP2Quantile(0.75)
	}
	return u
}

// Observe folds one cast value into the accumulator. Nulls and
// non-finite numbers are excluded from the moments but counted.
func (u *Univariate) Observe(v value.Value) {
	if v.Kind == value.Null {
		u.nulls++
		return
	}
	u.nonNull++
	u.freq.Add(v.Str)

	if Conforms(u.colType, v) {
		u.conforms++
	}

	switch v.Kind {
	case value.Number:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			// Non-finite: excluded from moments, counted as null for
			// completeness purposes.
			u.nonNull--
			u.nulls++
			return
		}
		u.decimals[min(v.Decimals, 9)]++
		u.observeMagnitude(v.Num)

	case value.Date:
		u.dateFormats[v.DateFormat]++
		if v.Time.After(u.newestDate) {
			u.newestDate = v.Time
		}
		u.observeMagnitude(float64(v.Time.Unix()))
	}
}

// observeMagnitude updates moments and quantiles for columns that track
// them, with the running z-score outlier tally taken before the update.
func (u *Univariate) observeMagnitude(x float64) {
	if u.q1 == nil {
		return
	}
	if u.run.Count() >= outlierMinCount {
		if sd := u.run.StdDev(); sd > 0 && math.Abs(x-u.run.Mean()) > 3*sd {
			u.outliers++
		}
	}
	u.run.Add(x)
	u.q1.Add(x)
	u.med.Add(x)
	u.q3.Add(x)
}

// Conforms is the type compatibility relation used by the validity
// dimension: a value conforms when its cast kind is the declared type
// or a specialization of it. A string that successfully converts to a
// number or date is conforming, never a violation.
func Conforms(declared model.ColumnType, v value.Value) bool {
	switch declared {
	case model.TypeInteger:
		return v.Kind == value.Number && v.Num == math.Trunc(v.Num)
	case model.TypeFloat, model.TypeCurrency:
		return v.Kind == value.Number
	case model.TypeDate:
		return v.Kind == value.Date
	case model.TypeBoolean:
		return v.Kind == value.Bool
	default:
		// Text and its refinements accept any successfully cast value:
		// a detected specialization (text → number, text → date) is
		// conformant by definition.
		return v.Kind != value.Null
	}
}

// Summary captures the finalized state handed to the quality scorer
// alongside the public DescriptiveStats.
type Summary struct {
	Stats model.DescriptiveStats

	Conforms      int64
	NonNull       int64
	Nulls         int64
	Outliers      int64
	MomentCount   int64
	DominantShare float64
	DecimalsShare float64
	DateFormats   int
	NewestDate    time.Time
	Type          model.ColumnType
}

// Finalize freezes the accumulator into an immutable summary. It must
// be called exactly once, at end of stream.
func (u *Univariate) Finalize() Summary {
	if u.finalized {
		panic("stats: univariate accumulator finalized twice")
	}
	u.finalized = true

	ds := model.DescriptiveStats{
		Column:         u.column,
		Count:          u.nonNull,
		NullCount:      u.nulls,
		Distinct:       u.freq.Distinct(),
		DistinctCapped: u.freq.Capped(),
	}

	if u.q1 != nil && u.run.Count() > 0 {
		ds.Mean = u.run.Mean()
		ds.Variance = u.run.Variance()
		ds.StdDev = u.run.StdDev()
		ds.Min = u.run.Min()
		ds.Max = u.run.Max()
		ds.Skewness = u.run.Skewness()
		ds.Q1 = u.q1.Value()
		ds.Median = u.med.Value()
		ds.Q3 = u.q3.Value()
	} else {
		ds.TopValues = u.freq.Top(topKValues)
	}

	return Summary{
		Stats:         ds,
		Conforms:      u.conforms,
		NonNull:       u.nonNull,
		Nulls:         u.nulls,
		Outliers:      u.outliers,
		MomentCount:   u.run.Count(),
		DominantShare: u.freq.DominantShare(),
		DecimalsShare: dominantDecimalsShare(u.decimals),
		DateFormats:   len(u.dateFormats),
		NewestDate:    u.newestDate,
		Type:          u.colType,
	}
}

// dominantDecimalsShare returns the share of numeric literals carrying
// the most common decimal-place count (precision dimension input).
func dominantDecimalsShare(decimals map[int]int64) float64 {
	var top, total int64
	for _, n := range decimals {
		total += n
		if n > top {
			top = n
		}
	}
	if total == 0 {
		return 1
	}
	return float64(top) / float64(total)
}
