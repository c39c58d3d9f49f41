package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/store"
)

type mockLister struct {
	runs []model.RunSummary
	err  error
}

func (m *mockLister) ListRuns(_ context.Context, _ store.RunFilter) ([]model.RunSummary, error) {
	return m.runs, m.err
}

func TestCollectorCollect(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	lister := &mockLister{runs: []model.RunSummary{
		{ID: "1", Source: "a.csv", Status: model.RunStatusComplete, RowsRead: 100, Composite: 90, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: "2", Source: "a.csv", Status: model.RunStatusComplete, RowsRead: 200, Composite: 50, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "3", Source: "b.csv", Status: model.RunStatusFailed, RowsRead: 0, CreatedAt: now.Add(-3 * time.Hour)},
		// Outside the lookback window.
		{ID: "4", Source: "c.csv", Status: model.RunStatusComplete, RowsRead: 999, Composite: 10, CreatedAt: now.Add(-48 * time.Hour)},
	}}

	c := NewCollector(lister, 60)
	c.now = func() time.Time { return now }

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.RunsTotal)
	assert.Equal(t, 2, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.InDelta(t, 1.0/3.0, snap.FailRate, 1e-9)
	assert.Equal(t, int64(300), snap.RowsProfiled)
	assert.InDelta(t, 70.0, snap.AvgComposite, 1e-9)
	assert.Equal(t, 1, snap.LowQuality)
	assert.Equal(t, 2, snap.Sources)
	assert.Equal(t, 24, snap.LookbackHours)
}

func TestCollectorEmptyHistory(t *testing.T) {
	c := NewCollector(&mockLister{}, 60)

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Zero(t, snap.RunsTotal)
	assert.Zero(t, snap.FailRate)
	assert.Zero(t, snap.AvgComposite)
}

func TestCollectorStoreError(t *testing.T) {
	c := NewCollector(&mockLister{err: assert.AnError}, 60)

	_, err := c.Collect(context.Background(), 24)
	assert.Error(t, err)
}
