package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

func numRec(n float64) []value.Value {
	return []value.Value{{Kind: value.Number, Num: n}}
}

func TestPlan_SmallFileFullScan(t *testing.T) {
	p := DefaultPolicy()
	d := p.Plan(10<<20, 0)
	assert.Equal(t, MethodNone, d.Method)
	assert.Equal(t, 1.0, d.Rate)
}

func TestPlan_LargeFileFewRowsReservoir(t *testing.T) {
	p := DefaultPolicy()
	// 200 MB but only 500k estimated rows: the byte size crosses the
	// threshold while the row estimate does not, so a fixed-capacity
	// uniform sample protects against the estimate being wrong.
	d := p.Plan(200<<20, 500_000)
	assert.Equal(t, MethodReservoir, d.Method)
	assert.Equal(t, int(p.RowCeiling), d.ReservoirCapacity)
}

func TestPlan_LargeFileManyRowsFixedRate(t *testing.T) {
	p := DefaultPolicy()
	d := p.Plan(500<<20, 4_000_000)
	assert.Equal(t, MethodRate, d.Method)
	assert.InDelta(t, 0.25, d.Rate, 1e-9)
}

func TestPlan_EstimatesRowsFromSize(t *testing.T) {
	p := DefaultPolicy()
	// 400 MB at 100 bytes/row → ~4.2M rows → fixed rate under 1.
	d := p.Plan(400<<20, 0)
	assert.Equal(t, MethodRate, d.Method)
	assert.Less(t, d.Rate, 1.0)
	assert.Greater(t, d.Rate, 0.0)
}

func TestGate_NoneKeepsEverything(t *testing.T) {
	var got []float64
	g := NewGate(Decision{Method: MethodNone, Rate: 1}, 1, func(rec []value.Value) {
		got = append(got, rec[0].Num)
	})
	for i := 0; i < 100; i++ {
		g.Offer(numRec(float64(i)))
	}
	g.Finalize()
	assert.Len(t, got, 100)
	assert.Equal(t, int64(100), g.Kept())
	// File order is preserved for non-buffered methods.
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 99.0, got[99])
}

func TestGate_FixedRateKeepsRoughlyRate(t *testing.T) {
	kept := 0
	g := NewGate(Decision{Method: MethodRate, Rate: 0.3}, 42, func([]value.Value) { kept++ })
	const n = 20000
	for i := 0; i < n; i++ {
		g.Offer(numRec(float64(i)))
	}
	g.Finalize()
	assert.InDelta(t, 0.3, float64(kept)/n, 0.02)
}

func TestGate_ReservoirBoundedAndFlushed(t *testing.T) {
	var got []float64
	g := NewGate(Decision{Method: MethodReservoir, Rate: 1, ReservoirCapacity: 50}, 7, func(rec []value.Value) {
		got = append(got, rec[0].Num)
	})
	for i := 0; i < 10000; i++ {
		g.Offer(numRec(float64(i)))
	}
	require.Empty(t, got, "reservoir must hold records until finalize")
	g.Finalize()
	assert.Len(t, got, 50)
	assert.Equal(t, int64(50), g.Kept())
	assert.Equal(t, int64(10000), g.Seen())
}

// TestGate_ReservoirUniformInclusion runs repeated trials and checks
// every element's inclusion frequency converges to capacity/N.
func TestGate_ReservoirUniformInclusion(t *testing.T) {
	const (
		n        = 200
		capacity = 20
		trials   = 3000
	)
	counts := make([]int, n)
	for trial := 0; trial < trials; trial++ {
		g := NewGate(
			Decision{Method: MethodReservoir, Rate: 1, ReservoirCapacity: capacity},
			uint64(trial+1),
			func(rec []value.Value) { counts[int(rec[0].Num)]++ },
		)
		for i := 0; i < n; i++ {
			g.Offer(numRec(float64(i)))
		}
		g.Finalize()
	}

	want := float64(capacity) / float64(n) // 0.10
	for i, c := range counts {
		freq := float64(c) / trials
		assert.InDelta(t, want, freq, 0.03, "element %d inclusion frequency", i)
	}
}

func TestGate_ShrinkLowersRateMonotonically(t *testing.T) {
	g := NewGate(Decision{Method: MethodRate, Rate: 0.8}, 1, func([]value.Value) {})
	g.Shrink()
	assert.InDelta(t, 0.4, g.Rate(), 1e-9)
	g.Shrink()
	assert.InDelta(t, 0.2, g.Rate(), 1e-9)
	assert.True(t, g.Degraded())
}

func TestGate_ShrinkTruncatesReservoir(t *testing.T) {
	var got []float64
	g := NewGate(Decision{Method: MethodReservoir, Rate: 1, ReservoirCapacity: 100}, 3, func(rec []value.Value) {
		got = append(got, rec[0].Num)
	})
	for i := 0; i < 100; i++ {
		g.Offer(numRec(float64(i)))
	}
	g.Shrink()
	g.Finalize()
	assert.Len(t, got, 50)
	assert.True(t, g.Degraded())
}

func TestGate_FullScanDegradesToSampling(t *testing.T) {
	kept := 0
	g := NewGate(Decision{Method: MethodNone, Rate: 1}, 11, func([]value.Value) { kept++ })
	for i := 0; i < 1000; i++ {
		g.Offer(numRec(float64(i)))
	}
	require.Equal(t, 1000, kept)

	g.Shrink()
	for i := 0; i < 10000; i++ {
		g.Offer(numRec(float64(i)))
	}
	g.Finalize()
	// Post-downgrade rows are Bernoulli sampled at one half.
	assert.InDelta(t, 0.5, float64(kept-1000)/10000, 0.03)
}
