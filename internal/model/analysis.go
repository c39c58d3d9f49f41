// Package model holds the plain-data structures produced by an analysis
// run: column profiles, descriptive statistics, correlations, and quality
// scores. These carry no behavior so that report renderers, CLI commands,
// the HTTP server, and the knowledge base can consume them without
// depending on engine internals.
package model

import "time"

// RunStatus tracks the lifecycle of a persisted analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// FormatInfo records what the format detector decided for the input.
type FormatInfo struct {
	Encoding  string `json:"encoding" yaml:"encoding"`
	Delimiter string `json:"delimiter" yaml:"delimiter"`
	HasHeader bool   `json:"has_header" yaml:"has_header"`
}

// SamplingInfo records the sampling decision applied during streaming.
type SamplingInfo struct {
	Method            string  `json:"method" yaml:"method"`
	Rate              float64 `json:"rate" yaml:"rate"`
	ReservoirCapacity int     `json:"reservoir_capacity,omitempty" yaml:"reservoir_capacity,omitempty"`

	// Degraded is true when memory pressure forced the rate down mid-run.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// DescriptiveStats is the finalized, rounded view of one column's
// running statistics.
type DescriptiveStats struct {
	Column    string  `json:"column" yaml:"column"`
	Count     int64   `json:"count" yaml:"count"`
	NullCount int64   `json:"null_count" yaml:"null_count"`
	Mean      float64 `json:"mean" yaml:"mean"`
	Variance  float64 `json:"variance" yaml:"variance"`
	StdDev    float64 `json:"std_dev" yaml:"std_dev"`
	Min       float64 `json:"min" yaml:"min"`
	Max       float64 `json:"max" yaml:"max"`
	Skewness  float64 `json:"skewness" yaml:"skewness"`
	Q1        float64 `json:"q1" yaml:"q1"`
	Median    float64 `json:"median" yaml:"median"`
	Q3        float64 `json:"q3" yaml:"q3"`

	// Distinct is the exact distinct count up to a cap; DistinctCapped
	// marks when the cap was hit and Distinct is a lower bound.
	Distinct       int64 `json:"distinct" yaml:"distinct"`
	DistinctCapped bool  `json:"distinct_capped,omitempty" yaml:"distinct_capped,omitempty"`

	// TopValues holds the most frequent raw values for categorical and
	// text columns.
	TopValues []ValueCount `json:"top_values,omitempty" yaml:"top_values,omitempty"`
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value" yaml:"value"`
	Count int64  `json:"count" yaml:"count"`
}

// CorrelationPair is the finalized Pearson correlation for one tracked
// column pair. R is clamped to [-1, 1] and symmetric in the two columns.
type CorrelationPair struct {
	Column1     string  `json:"column_1" yaml:"column_1"`
	Column2     string  `json:"column_2" yaml:"column_2"`
	R           float64 `json:"r" yaml:"r"`
	N           int64   `json:"n" yaml:"n"`
	TStat       float64 `json:"t_stat" yaml:"t_stat"`
	Significant bool    `json:"significant" yaml:"significant"`
}

// ParseIssues aggregates per-record failures encountered while streaming.
type ParseIssues struct {
	SkippedRows int64    `json:"skipped_rows" yaml:"skipped_rows"`
	Examples    []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// Analysis is the complete output of one run.
type Analysis struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`

	Format   FormatInfo   `json:"format" yaml:"format"`
	Sampling SamplingInfo `json:"sampling" yaml:"sampling"`

	RowsRead    int64       `json:"rows_read" yaml:"rows_read"`
	RowsSampled int64       `json:"rows_sampled" yaml:"rows_sampled"`
	Issues      ParseIssues `json:"issues" yaml:"issues"`

	Columns      []ColumnProfile   `json:"columns" yaml:"columns"`
	Stats        []DescriptiveStats `json:"stats" yaml:"stats"`
	Correlations []CorrelationPair `json:"correlations,omitempty" yaml:"correlations,omitempty"`
	Quality      QualityReport     `json:"quality" yaml:"quality"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// RunSummary is the lightweight listing view of a persisted analysis.
type RunSummary struct {
	ID        string    `json:"id" yaml:"id"`
	Source    string    `json:"source" yaml:"source"`
	Status    RunStatus `json:"status" yaml:"status"`
	RowsRead  int64     `json:"rows_read" yaml:"rows_read"`
	Composite float64   `json:"composite" yaml:"composite"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
