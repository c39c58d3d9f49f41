package quality

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/stats"
	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

func summarize(t *testing.T, p model.ColumnProfile, raw []string) stats.Summary {
	t.Helper()
	c := value.Caster{}
	u := stats.NewUnivariate(p, 0)
	for _, s := range raw {
		u.Observe(c.Cast(s))
	}
	return u.Finalize()
}

func TestScoreBoundsAndWeights(t *testing.T) {
	// Weights must sum to 1 so a report of all-100 dimensions scores 100.
	var sum float64
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-12)

	report := Score(Inputs{RowsAccepted: 10})
	assert.InDelta(t, 100, report.Composite, 1e-9)
	require.Len(t, report.Dimensions, 10)
	for _, d := range report.Dimensions {
		assert.GreaterOrEqual(t, d.Score, 0.0, d.Dimension)
		assert.LessOrEqual(t, d.Score, 100.0, d.Dimension)
		assert.NotEmpty(t, d.Rationale, d.Dimension)
	}
}

func TestValidityNumericStringsInTextColumn(t *testing.T) {
	// A text column whose values happen to parse as numbers must not be
	// marked invalid: conversion success is conformance.
	p := model.ColumnProfile{Name: "code", Type: model.TypeText}
	s := summarize(t, p, []string{"123", "456", "789", "007"})

	report := Score(Inputs{
		Profiles:     []model.ColumnProfile{{Name: "code", Type: model.TypeText, Confidence: 1}},
		Summaries:    []stats.Summary{s},
		RowsAccepted: 4,
	})
	v := report.Dimension(model.DimValidity)
	require.NotNil(t, v)
	assert.InDelta(t, 100, v.Score, 1e-9)
}

func TestCompletenessTracksNullRatio(t *testing.T) {
	p := model.ColumnProfile{Name: "v", Type: model.TypeText}
	s := summarize(t, p, []string{"a", "", "b", "NA", "c", "d", "e", "f", "g", "h"})

	report := Score(Inputs{
		Profiles:     []model.ColumnProfile{{Name: "v", Type: model.TypeText, Confidence: 1}},
		Summaries:    []stats.Summary{s},
		RowsAccepted: 10,
	})
	c := report.Dimension(model.DimCompleteness)
	require.NotNil(t, c)
	assert.InDelta(t, 80, c.Score, 1e-9)
}

func TestUniquenessPenalizesDuplicateIdentifiers(t *testing.T) {
	p := model.ColumnProfile{Name: "id", Type: model.TypeIdentifier}
	s := summarize(t, p, []string{"a1", "a2", "a3", "a3"})

	report := Score(Inputs{
		Profiles:     []model.ColumnProfile{{Name: "id", Type: model.TypeIdentifier, Confidence: 1}},
		Summaries:    []stats.Summary{s},
		RowsAccepted: 4,
	})
	u := report.Dimension(model.DimUniqueness)
	require.NotNil(t, u)
	assert.InDelta(t, 75, u.Score, 1e-9)
}

func TestIntegrityCountsSkippedRows(t *testing.T) {
	report := Score(Inputs{RowsAccepted: 90, RowsSkipped: 10})
	i := report.Dimension(model.DimIntegrity)
	require.NotNil(t, i)
	assert.InDelta(t, 90, i.Score, 1e-9)
}

func TestTimelinessDecaysWithAge(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	fresh := summarize(t, model.ColumnProfile{Name: "d", Type: model.TypeDate},
		[]string{"2026-05-20"})
	stale := summarize(t, model.ColumnProfile{Name: "d", Type: model.TypeDate},
		[]string{"2016-05-20"})

	freshReport := Score(Inputs{Summaries: []stats.Summary{fresh}, RowsAccepted: 1, Now: now})
	staleReport := Score(Inputs{Summaries: []stats.Summary{stale}, RowsAccepted: 1, Now: now})
	freshScore := freshReport.Dimension(model.DimTimeliness).Score
	staleScore := staleReport.Dimension(model.DimTimeliness).Score

	assert.InDelta(t, 100, freshScore, 1e-9)
	assert.Less(t, staleScore, 10.0)
	assert.GreaterOrEqual(t, staleScore, 0.0)
}

func TestRepresentationalMixedDateFormats(t *testing.T) {
	uniform := summarize(t, model.ColumnProfile{Name: "d", Type: model.TypeDate},
		[]string{"2024-01-02", "2024-02-15", "2024-03-01"})
	mixed := summarize(t, model.ColumnProfile{Name: "d", Type: model.TypeDate},
		[]string{"2024-01-02", "15/02/2024", "2024-03-01"})

	uniformReport := Score(Inputs{Summaries: []stats.Summary{uniform}, RowsAccepted: 3})
	mixedReport := Score(Inputs{Summaries: []stats.Summary{mixed}, RowsAccepted: 3})
	uniformScore := uniformReport.Dimension(model.DimRepresentational).Score
	mixedScore := mixedReport.Dimension(model.DimRepresentational).Score

	assert.InDelta(t, 100, uniformScore, 1e-9)
	assert.Less(t, mixedScore, uniformScore)
}

func TestAccuracyPenalizesOutliers(t *testing.T) {
	raw := make([]string, 0, 205)
	for i := 0; i < 200; i++ {
		raw = append(raw, fmt.Sprintf("%d", 100+i%5))
	}
	for i := 0; i < 5; i++ {
		raw = append(raw, "90000")
	}
	s := summarize(t, model.ColumnProfile{Name: "v", Type: model.TypeInteger}, raw)

	clean := summarize(t, model.ColumnProfile{Name: "v", Type: model.TypeInteger}, raw[:200])

	dirtyReport := Score(Inputs{Summaries: []stats.Summary{s}, RowsAccepted: 205})
	tidyReport := Score(Inputs{Summaries: []stats.Summary{clean}, RowsAccepted: 200})
	dirty := dirtyReport.Dimension(model.DimAccuracy).Score
	tidy := tidyReport.Dimension(model.DimAccuracy).Score

	assert.InDelta(t, 100, tidy, 1e-9)
	assert.Less(t, dirty, tidy)
}

func TestCompositeIsWeightedAverage(t *testing.T) {
	report := Score(Inputs{RowsAccepted: 50, RowsSkipped: 50})

	var want float64
	for _, d := range report.Dimensions {
		want += weights[d.Dimension] * d.Score
	}
	assert.InDelta(t, want, report.Composite, 1e-9)
	assert.Less(t, report.Composite, 100.0)
}
