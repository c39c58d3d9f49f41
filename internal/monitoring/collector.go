// Package monitoring watches the run history for failure spikes and
// quality regressions, and posts webhook alerts when thresholds are
// breached.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/store"
)

// MetricsSnapshot holds a point-in-time view of run-history health.
type MetricsSnapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	FailRate     float64 `json:"fail_rate"`

	RowsProfiled int64   `json:"rows_profiled"`
	AvgComposite float64 `json:"avg_composite"`
	LowQuality   int     `json:"low_quality"`
	Sources      int     `json:"sources"`

	QualityThreshold float64   `json:"quality_threshold"`
	LookbackHours    int       `json:"lookback_hours"`
	CollectedAt      time.Time `json:"collected_at"`
}

// RunLister abstracts the store method the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.RunSummary, error)
}

// Collector gathers metrics over the persisted run history.
type Collector struct {
	store            RunLister
	qualityThreshold float64

	now func() time.Time
}

// NewCollector creates a metrics collector. Runs whose composite score
// falls below qualityThreshold count as low quality.
func NewCollector(st RunLister, qualityThreshold float64) *Collector {
	return &Collector{
		store:            st,
		qualityThreshold: qualityThreshold,
		now:              time.Now,
	}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		QualityThreshold: c.qualityThreshold,
		LookbackHours:    lookbackHours,
		CollectedAt:      c.now().UTC(),
	}
	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var compositeSum float64
	var scored int
	sources := map[string]struct{}{}

	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		sources[r.Source] = struct{}{}
		snap.RowsProfiled += r.RowsRead

		switch r.Status {
		case model.RunStatusFailed:
			snap.RunsFailed++
		default:
			snap.RunsComplete++
			compositeSum += r.Composite
			scored++
			if r.Composite < c.qualityThreshold {
				snap.LowQuality++
			}
		}
	}

	snap.Sources = len(sources)
	if snap.RunsTotal > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(snap.RunsTotal)
	}
	if scored > 0 {
		snap.AvgComposite = compositeSum / float64(scored)
	}
	return snap, nil
}
