// Package quality combines finalized column profiles and accumulator
// summaries into ten independent dimension scores and a composite
// weighted aggregate. Every score is clamped to [0, 100]; weights are
// fixed and documented on the weights table.
package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/stats"
)

// weights is the fixed composite weighting. The structural dimensions
// (completeness, validity) dominate; the stylistic ones (precision,
// representational form) contribute least. Weights sum to 1.
var weights = map[model.QualityDimension]float64{
	model.DimCompleteness:     0.20,
	model.DimValidity:         0.18,
	model.DimUniqueness:       0.12,
	model.DimConsistency:      0.10,
	model.DimAccuracy:         0.10,
	model.DimIntegrity:        0.08,
	model.DimTimeliness:       0.06,
	model.DimReasonableness:   0.06,
	model.DimPrecision:        0.05,
	model.DimRepresentational: 0.05,
}

// dimensionOrder fixes report ordering.
var dimensionOrder = []model.QualityDimension{
	model.DimCompleteness,
	model.DimValidity,
	model.DimUniqueness,
	model.DimConsistency,
	model.DimAccuracy,
	model.DimTimeliness,
	model.DimIntegrity,
	model.DimReasonableness,
	model.DimPrecision,
	model.DimRepresentational,
}

// Inputs carries everything the scorer consumes. All fields are
// finalized, immutable summaries.
type Inputs struct {
	Profiles  []model.ColumnProfile
	Summaries []stats.Summary

	RowsAccepted int64
	RowsSkipped  int64

	// Now anchors the timeliness dimension; the zero value means
	// time.Now().
	Now time.Time
}

// Score computes all dimension scores and the composite.
func Score(in Inputs) model.QualityReport {
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	byDim := map[model.QualityDimension]model.DimensionScore{
		model.DimCompleteness:     completeness(in),
		model.DimValidity:         validity(in),
		model.DimUniqueness:       uniqueness(in),
		model.DimConsistency:      consistency(in),
		model.DimAccuracy:         accuracy(in),
		model.DimTimeliness:       timeliness(in),
		model.DimIntegrity:        integrity(in),
		model.DimReasonableness:   reasonableness(in),
		model.DimPrecision:        precision(in),
		model.DimRepresentational: representational(in),
	}

	report := model.QualityReport{Dimensions: make([]model.DimensionScore, 0, len(dimensionOrder))}
	var composite float64
	for _, dim := range dimensionOrder {
		ds := byDim[dim]
		ds.Score = clamp(ds.Score)
		report.Dimensions = append(report.Dimensions, ds)
		composite += weights[dim] * ds.Score
	}
	report.Composite = clamp(composite)
	return report
}

func clamp(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(100, s))
}

// completeness = 1 − nullRatio over all cells.
func completeness(in Inputs) model.DimensionScore {
	var nonNull, nulls int64
	for _, s := range in.Summaries {
		nonNull += s.NonNull
		nulls += s.Nulls
	}
	total := nonNull + nulls
	score := 100.0
	if total > 0 {
		score = 100 * float64(nonNull) / float64(total)
	}
	return model.DimensionScore{
		Dimension: model.DimCompleteness,
		Score:     score,
		Rationale: fmt.Sprintf("%d of %d cells populated", nonNull, total),
	}
}

// validity = fraction of non-null values conforming to the inferred
// type under the compatibility relation: a successful string→number or
// string→date conversion is conforming, never a penalty.
func validity(in Inputs) model.DimensionScore {
	var conforms, nonNull int64
	for _, s := range in.Summaries {
		conforms += s.Conforms
		nonNull += s.NonNull
	}
	score := 100.0
	if nonNull > 0 {
		score = 100 * float64(conforms) / float64(nonNull)
	}
	return model.DimensionScore{
		Dimension: model.DimValidity,
		Score:     score,
		Rationale: fmt.Sprintf("%d of %d values conform to their inferred type", conforms, nonNull),
	}
}

// uniqueness scores duplicate pressure on the columns that claim to be
// unique (identifier columns). Without such a column nothing in the
// data claims uniqueness and the dimension is vacuously satisfied.
func uniqueness(in Inputs) model.DimensionScore {
	var sum float64
	n := 0
	for _, s := range in.Summaries {
		if s.Type != model.TypeIdentifier || s.NonNull == 0 {
			continue
		}
		ratio := float64(s.Stats.Distinct) / float64(s.NonNull)
		if s.Stats.DistinctCapped {
			// The table stopped admitting keys; the observed ratio is a
			// lower bound, so don't punish beyond what is known.
			ratio = math.Max(ratio, 0.95)
		}
		sum += math.Min(1, ratio)
		n++
	}
	if n == 0 {
		return model.DimensionScore{
			Dimension: model.DimUniqueness,
			Score:     100,
			Rationale: "no identifier columns; nothing claims uniqueness",
		}
	}
	return model.DimensionScore{
		Dimension: model.DimUniqueness,
		Score:     100 * sum / float64(n),
		Rationale: fmt.Sprintf("distinct ratio over %d identifier column(s)", n),
	}
}

// consistency = mean type-inference confidence: low confidence means
// mixed representations within columns.
func consistency(in Inputs) model.DimensionScore {
	if len(in.Profiles) == 0 {
		return model.DimensionScore{Dimension: model.DimConsistency, Score: 100, Rationale: "no columns"}
	}
	var sum float64
	for _, p := range in.Profiles {
		sum += p.Confidence
	}
	return model.DimensionScore{
		Dimension: model.DimConsistency,
		Score:     100 * sum / float64(len(in.Profiles)),
		Rationale: "mean type confidence across columns",
	}
}

// accuracy penalizes statistical outliers (running |z| > 3) in numeric
// columns as a proxy for recording errors.
func accuracy(in Inputs) model.DimensionScore {
	var outliers, observed int64
	for _, s := range in.Summaries {
		if !s.Type.Numeric() {
			continue
		}
		outliers += s.Outliers
		observed += s.MomentCount
	}
	if observed == 0 {
		return model.DimensionScore{Dimension: model.DimAccuracy, Score: 100, Rationale: "no numeric columns"}
	}
	return model.DimensionScore{
		Dimension: model.DimAccuracy,
		Score:     100 * (1 - float64(outliers)/float64(observed)),
		Rationale: fmt.Sprintf("%d outlier(s) in %d numeric values", outliers, observed),
	}
}

// timeliness scores the age of the newest date observed: full marks
// within a year, linear decay to zero at ten years.
func timeliness(in Inputs) model.DimensionScore {
	var newest time.Time
	for _, s := range in.Summaries {
		if s.Type == model.TypeDate && s.NewestDate.After(newest) {
			newest = s.NewestDate
		}
	}
	if newest.IsZero() {
		return model.DimensionScore{Dimension: model.DimTimeliness, Score: 100, Rationale: "no temporal columns"}
	}
	ageYears := in.Now.Sub(newest).Hours() / (24 * 365.25)
	score := 100.0
	if ageYears > 1 {
		score = 100 * (1 - (ageYears-1)/9)
	}
	return model.DimensionScore{
		Dimension: model.DimTimeliness,
		Score:     score,
		Rationale: fmt.Sprintf("newest date %s", newest.Format("2006-01-02")),
	}
}

// integrity = share of physical rows that parsed into structurally
// sound records.
func integrity(in Inputs) model.DimensionScore {
	total := in.RowsAccepted + in.RowsSkipped
	score := 100.0
	if total > 0 {
		score = 100 * float64(in.RowsAccepted) / float64(total)
	}
	return model.DimensionScore{
		Dimension: model.DimIntegrity,
		Score:     score,
		Rationale: fmt.Sprintf("%d of %d rows structurally sound", in.RowsAccepted, total),
	}
}

// reasonableness flags implausibly extreme distributions: heavy skew in
// a numeric column usually signals unit mix-ups or sentinel values.
func reasonableness(in Inputs) model.DimensionScore {
	var sum float64
	n := 0
	for _, s := range in.Summaries {
		if !s.Type.Numeric() || s.MomentCount < 2 {
			continue
		}
		skew := math.Abs(s.Stats.Skewness)
		colScore := 100.0
		if skew > 2 {
			colScore = math.Max(0, 100-10*(skew-2))
		}
		sum += colScore
		n++
	}
	if n == 0 {
		return model.DimensionScore{Dimension: model.DimReasonableness, Score: 100, Rationale: "no numeric distributions to assess"}
	}
	return model.DimensionScore{
		Dimension: model.DimReasonableness,
		Score:     sum / float64(n),
		Rationale: fmt.Sprintf("distribution shape over %d numeric column(s)", n),
	}
}

// precision rewards numeric columns whose literals agree on decimal
// places: "12.50, 3.25, 9.00" is precise, "12.5, 3, 9.0001" is not.
func precision(in Inputs) model.DimensionScore {
	var sum float64
	n := 0
	for _, s := range in.Summaries {
		if !s.Type.Numeric() || s.MomentCount == 0 {
			continue
		}
		sum += s.DecimalsShare
		n++
	}
	if n == 0 {
		return model.DimensionScore{Dimension: model.DimPrecision, Score: 100, Rationale: "no numeric columns"}
	}
	return model.DimensionScore{
		Dimension: model.DimPrecision,
		Score:     100 * sum / float64(n),
		Rationale: fmt.Sprintf("decimal-place agreement over %d numeric column(s)", n),
	}
}

// representational scores lexical uniformity: boolean columns should
// use one token pair, date columns one format.
func representational(in Inputs) model.DimensionScore {
	var sum float64
	n := 0
	for _, s := range in.Summaries {
		switch s.Type {
		case model.TypeBoolean:
			sum += 100 * math.Min(1, s.DominantShare*2)
			n++
		case model.TypeDate:
			if s.DateFormats <= 1 {
				sum += 100
			} else {
				sum += 100 / float64(s.DateFormats)
			}
			n++
		}
	}
	if n == 0 {
		return model.DimensionScore{Dimension: model.DimRepresentational, Score: 100, Rationale: "no boolean or date columns"}
	}
	return model.DimensionScore{
		Dimension: model.DimRepresentational,
		Score:     sum / float64(n),
		Rationale: fmt.Sprintf("lexical uniformity over %d column(s)", n),
	}
}
