package kb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
)

func newTestKB(t *testing.T, backups int) *KB {
	t.Helper()
	k, err := Open(filepath.Join(t.TempDir(), "kb", "kb.yaml"), backups)
	require.NoError(t, err)
	return k
}

func sampleAnalysis(id, source string) *model.Analysis {
	return &model.Analysis{
		ID:     id,
		Source: source,
		Columns: []model.ColumnProfile{
			{Name: "amount", Type: model.TypeInteger, Confidence: 1, NullPercent: 10},
			{Name: "when", Type: model.TypeDate, Confidence: 0.9},
		},
		Quality: model.QualityReport{Composite: 88},
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	k := newTestKB(t, 0)

	cat, err := k.Load()
	require.NoError(t, err)
	assert.Empty(t, cat.Entries)
}

func TestRecordAndGet(t *testing.T) {
	k := newTestKB(t, 0)

	require.NoError(t, k.Record(sampleAnalysis("run-1", "data.csv")))

	entry, err := k.Get("data.csv")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "run-1", entry.LastAnalysisID)
	assert.Equal(t, 1, entry.RunCount)
	assert.InDelta(t, 88, entry.LastComposite, 1e-9)
	require.Contains(t, entry.Columns, "amount")
	assert.Equal(t, model.TypeInteger, entry.Columns["amount"].Type)
	assert.InDelta(t, 0.1, entry.Columns["amount"].NullRate, 1e-9)
}

func TestRecordAccumulatesRuns(t *testing.T) {
	k := newTestKB(t, 0)

	require.NoError(t, k.Record(sampleAnalysis("run-1", "data.csv")))
	require.NoError(t, k.Record(sampleAnalysis("run-2", "data.csv")))

	entry, err := k.Get("data.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.RunCount)
	assert.Equal(t, "run-2", entry.LastAnalysisID)
}

func TestGetUnknownSource(t *testing.T) {
	k := newTestKB(t, 0)

	entry, err := k.Get("nope.csv")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestListSortsBySource(t *testing.T) {
	k := newTestKB(t, 0)

	require.NoError(t, k.Record(sampleAnalysis("r1", "b.csv")))
	require.NoError(t, k.Record(sampleAnalysis("r2", "a.csv")))

	entries, err := k.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.csv", entries[0].Source)
	assert.Equal(t, "b.csv", entries[1].Source)
}

func TestForget(t *testing.T) {
	k := newTestKB(t, 0)

	require.NoError(t, k.Record(sampleAnalysis("r1", "data.csv")))
	require.NoError(t, k.Forget("data.csv"))
	require.NoError(t, k.Forget("data.csv"))

	entry, err := k.Get("data.csv")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestBackupRotation(t *testing.T) {
	k := newTestKB(t, 2)

	require.NoError(t, k.Record(sampleAnalysis("r1", "data.csv")))
	require.NoError(t, k.Record(sampleAnalysis("r2", "data.csv")))
	require.NoError(t, k.Record(sampleAnalysis("r3", "data.csv")))

	_, err := os.Stat(k.path + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(k.path + ".2")
	assert.NoError(t, err)
	_, err = os.Stat(k.path + ".3")
	assert.True(t, os.IsNotExist(err))
}

func TestLockBlocksSecondWriter(t *testing.T) {
	k := newTestKB(t, 0)

	unlock, err := k.lock()
	require.NoError(t, err)
	defer unlock()

	err = k.Record(sampleAnalysis("r1", "data.csv"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrLocked))
}

func TestRecordWithRetryWaitsOutLock(t *testing.T) {
	k := newTestKB(t, 0)

	unlock, err := k.lock()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- k.RecordWithRetry(context.Background(), sampleAnalysis("r1", "data.csv"))
	}()
	unlock()

	require.NoError(t, <-done)
	entry, err := k.Get("data.csv")
	require.NoError(t, err)
	require.NotNil(t, entry)
}
