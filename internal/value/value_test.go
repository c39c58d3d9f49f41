package value

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCast_NullTokens(t *testing.T) {
	c := Caster{}
	for _, raw := range []string{"", "  ", "null", "NULL", "n/a", "NA", "NaN", "none", "-"} {
		v := c.Cast(raw)
		assert.Equal(t, Null, v.Kind, "raw=%q", raw)
	}
}

func TestCast_BoolLexicon(t *testing.T) {
	c := Caster{}
	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true}, {"FALSE", false},
		{"Yes", true}, {"no", false},
		{"Y", true}, {"n", false},
		{"T", true}, {"f", false},
	}
	for _, tt := range tests {
		v := c.Cast(tt.raw)
		require.Equal(t, Bool, v.Kind, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, v.B, "raw=%q", tt.raw)
	}
}

func TestCast_Numbers(t *testing.T) {
	c := Caster{}
	tests := []struct {
		raw      string
		want     float64
		decimals int
	}{
		{"42", 42, 0},
		{"-3.5", -3.5, 1},
		{"1,234", 1234, 0},
		{"12,345,678.90", 12345678.90, 2},
		{"$1,234.56", 1234.56, 2},
		{"€99.99", 99.99, 2},
		{"(123.45)", -123.45, 2},
		{"1e3", 1000, 0},
	}
	for _, tt := range tests {
		v := c.Cast(tt.raw)
		require.Equal(t, Number, v.Kind, "raw=%q", tt.raw)
		assert.InDelta(t, tt.want, v.Num, 1e-9, "raw=%q", tt.raw)
		assert.Equal(t, tt.decimals, v.Decimals, "raw=%q", tt.raw)
	}
}

func TestCast_BadThousandsGroupingStaysText(t *testing.T) {
	c := Caster{}
	for _, raw := range []string{"1,23", "12,3456", ",123"} {
		v := c.Cast(raw)
		assert.Equal(t, Text, v.Kind, "raw=%q", raw)
	}
}

func TestCast_ISODates(t *testing.T) {
	c := Caster{}

	v := c.Cast("2024-01-02")
	require.Equal(t, Date, v.Kind)
	assert.Equal(t, "YYYY-MM-DD", v.DateFormat)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), v.Time)

	v = c.Cast("2024-06-15 13:45:00")
	require.Equal(t, Date, v.Kind)
	assert.Equal(t, "YYYY-MM-DD HH:MM:SS", v.DateFormat)
}

func TestCast_AmbiguousDateDayFirstDefault(t *testing.T) {
	c := Caster{}

	// Both components <= 12: day-first wins by default.
	v := c.Cast("04/05/2024")
	require.Equal(t, Date, v.Kind)
	assert.Equal(t, "DD/MM/YYYY", v.DateFormat)
	assert.Equal(t, time.May, v.Time.Month())
	assert.Equal(t, 4, v.Time.Day())
}

func TestCast_AmbiguousDateMonthFirstOverride(t *testing.T) {
	c := Caster{MonthFirst: true}

	v := c.Cast("04/05/2024")
	require.Equal(t, Date, v.Kind)
	assert.Equal(t, "MM/DD/YYYY", v.DateFormat)
	assert.Equal(t, time.April, v.Time.Month())
	assert.Equal(t, 5, v.Time.Day())
}

func TestCast_UnambiguousDayStaysCorrect(t *testing.T) {
	// Day 13 cannot be a month, so month-first preference must not
	// break the parse.
	c := Caster{MonthFirst: true}
	v := c.Cast("13/04/2024")
	require.Equal(t, Date, v.Kind)
	assert.Equal(t, "DD/MM/YYYY", v.DateFormat)
	assert.Equal(t, time.April, v.Time.Month())
	assert.Equal(t, 13, v.Time.Day())
}

func TestCast_TextFallback(t *testing.T) {
	c := Caster{}
	v := c.Cast("  hello world  ")
	require.Equal(t, Text, v.Kind)
	assert.Equal(t, "hello world", v.Str)
}

func TestIsNullToken(t *testing.T) {
	assert.True(t, IsNullToken("  NULL "))
	assert.True(t, IsNullToken(""))
	assert.False(t, IsNullToken("0"))
	assert.False(t, IsNullToken("x"))
}
