package model

// ColumnType is the semantic type inferred for a column.
type ColumnType string

const (
	TypeInteger     ColumnType = "integer"
	TypeFloat       ColumnType = "float"
	TypeCurrency    ColumnType = "currency"
	TypeDate        ColumnType = "date"
	TypeBoolean     ColumnType = "boolean"
	TypeEmail       ColumnType = "email"
	TypeURL         ColumnType = "url"
	TypePhone       ColumnType = "phone"
	TypePostalCode  ColumnType = "postal_code"
	TypeCategorical ColumnType = "categorical"
	TypeIdentifier  ColumnType = "identifier"
	TypeText        ColumnType = "text"
)

// Numeric reports whether values of this type carry a numeric magnitude.
func (t ColumnType) Numeric() bool {
	switch t {
	case TypeInteger, TypeFloat, TypeCurrency:
		return true
	}
	return false
}

// ColumnProfile describes one column after type inference over a bounded
// sample. It is built once and read-only afterward.
type ColumnProfile struct {
	Name        string     `json:"name" yaml:"name"`
	Index       int        `json:"index" yaml:"index"`
	Type        ColumnType `json:"type" yaml:"type"`
	Confidence  float64    `json:"confidence" yaml:"confidence"`
	NullCount   int64      `json:"null_count" yaml:"null_count"`
	NullPercent float64    `json:"null_percent" yaml:"null_percent"`

	// DistinctRatio is distinct non-null values over sampled rows, in
	// [0, 1]. Near 1 means the column behaves like a key regardless of
	// its inferred type.
	DistinctRatio float64 `json:"distinct_ratio" yaml:"distinct_ratio"`

	// SampleValues holds up to a handful of raw example values.
	SampleValues []string `json:"sample_values,omitempty" yaml:"sample_values,omitempty"`

	// DateFormats lists the display formats seen in a date column,
	// most frequent first (e.g. "YYYY-MM-DD").
	DateFormats []string `json:"date_formats,omitempty" yaml:"date_formats,omitempty"`

	// Categories lists the distinct values of a categorical column.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// MinValue/MaxValue are the lexical extremes observed in the sample,
	// in the column's natural ordering (numeric for numbers, chronological
	// for dates).
	MinValue string `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue string `json:"max_value,omitempty" yaml:"max_value,omitempty"`
}
