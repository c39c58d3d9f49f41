package stats

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

func numVal(n float64) value.Value {
	return value.Value{Kind: value.Number, Num: n, Str: fmt.Sprintf("%g", n)}
}

func textVal(s string) value.Value {
	return value.Value{Kind: value.Text, Str: s}
}

func TestUnivariate_NumericColumn(t *testing.T) {
	u := NewUnivariate(model.ColumnProfile{Name: "amount", Type: model.TypeFloat}, 0)
	for _, x := range []float64{10, 20, 30, 40, 50} {
		u.Observe(numVal(x))
	}
	s := u.Finalize()

	assert.Equal(t, "amount", s.Stats.Column)
	assert.Equal(t, int64(5), s.Stats.Count)
	assert.InDelta(t, 30, s.Stats.Mean, 1e-12)
	assert.InDelta(t, 200, s.Stats.Variance, 1e-12)
	assert.Equal(t, 10.0, s.Stats.Min)
	assert.Equal(t, 50.0, s.Stats.Max)
	assert.InDelta(t, 30, s.Stats.Median, 1e-12)
	assert.Equal(t, int64(5), s.Conforms)
}

func TestUnivariate_NullsExcludedFromMoments(t *testing.T) {
	u := NewUnivariate(model.ColumnProfile{Name: "x", Type: model.TypeFloat}, 0)
	u.Observe(numVal(10))
	u.Observe(value.Value{Kind: value.Null})
	u.Observe(numVal(20))
	u.Observe(value.Value{Kind: value.Null})
	s := u.Finalize()

	assert.Equal(t, int64(2), s.Stats.Count)
	assert.Equal(t, int64(2), s.Stats.NullCount)
	assert.InDelta(t, 15, s.Stats.Mean, 1e-12)
}

func TestUnivariate_NonFiniteExcluded(t *testing.T) {
	u := NewUnivariate(model.ColumnProfile{Name: "x", Type: model.TypeFloat}, 0)
	u.Observe(numVal(10))
	u.Observe(value.Value{Kind: value.Number, Num: inf(), Str: "inf"})
	u.Observe(numVal(20))
	s := u.Finalize()

	assert.Equal(t, int64(2), s.Stats.Count)
	assert.Equal(t, int64(1), s.Stats.NullCount)
	assert.InDelta(t, 15, s.Stats.Mean, 1e-12)
}

func inf() float64 { var z float64; return 1 / z }

func TestUnivariate_TextFrequency(t *testing.T) {
	u := NewUnivariate(model.ColumnProfile{Name: "cat", Type: model.TypeCategorical}, 0)
	for i := 0; i < 6; i++ {
		u.Observe(textVal("red"))
	}
	for i := 0; i < 3; i++ {
		u.Observe(textVal("blue"))
	}
	u.Observe(textVal("green"))
	s := u.Finalize()

	assert.Equal(t, int64(3), s.Stats.Distinct)
	require.NotEmpty(t, s.Stats.TopValues)
	assert.Equal(t, "red", s.Stats.TopValues[0].Value)
	assert.Equal(t, int64(6), s.Stats.TopValues[0].Count)
	assert.InDelta(t, 0.6, s.DominantShare, 1e-12)
}

func TestUnivariate_FrequencyCapBounds(t *testing.T) {
	u := NewUnivariate(model.ColumnProfile{Name: "id", Type: model.TypeIdentifier}, 100)
	for i := 0; i < 500; i++ {
		u.Observe(textVal(fmt.Sprintf("id-%03d", i)))
	}
	s := u.Finalize()
	assert.Equal(t, int64(100), s.Stats.Distinct)
	assert.True(t, s.Stats.DistinctCapped)
}

func TestUnivariate_ValidityConformance(t *testing.T) {
	// A declared-text column whose values all convert to numbers must
	// count every value as conforming: successful specialization is not
	// a violation.
	u := NewUnivariate(model.ColumnProfile{Name: "n", Type: model.TypeText}, 0)
	for i := 1; i <= 5; i++ {
		u.Observe(numVal(float64(i)))
	}
	s := u.Finalize()
	assert.Equal(t, int64(5), s.Conforms)
	assert.Equal(t, int64(5), s.NonNull)
}

func TestConforms_Relation(t *testing.T) {
	tests := []struct {
		declared model.ColumnType
		v        value.Value
		want     bool
	}{
		{model.TypeInteger, numVal(5), true},
		{model.TypeInteger, numVal(5.5), false},
		{model.TypeFloat, numVal(5.5), true},
		{model.TypeFloat, textVal("abc"), false},
		{model.TypeText, numVal(5), true},
		{model.TypeText, textVal("abc"), true},
		{model.TypeBoolean, value.Value{Kind: value.Bool, B: true, Str: "yes"}, true},
		{model.TypeBoolean, textVal("maybe"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Conforms(tt.declared, tt.v), "%s vs %v", tt.declared, tt.v.Kind)
	}
}

func TestUnivariate_OutlierTally(t *testing.T) {
	u := NewUnivariate(model.ColumnProfile{Name: "x", Type: model.TypeFloat}, 0)
	for i := 0; i < 200; i++ {
		u.Observe(numVal(100 + float64(i%10)))
	}
	u.Observe(numVal(100000))
	s := u.Finalize()
	assert.Equal(t, int64(1), s.Outliers)
}

func TestUnivariate_FinalizeTwicePanics(t *testing.T) {
	u := NewUnivariate(model.ColumnProfile{Name: "x", Type: model.TypeFloat}, 0)
	u.Observe(numVal(1))
	u.Finalize()
	assert.Panics(t, func() { u.Finalize() })
}
