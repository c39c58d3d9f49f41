// Package sample implements the adaptive sampling policy: a one-time
// decision between full scan, fixed-rate Bernoulli sampling, and
// reservoir sampling, made from file size and estimated row count
// before streaming begins. The effective rate may be revised downward
// (never upward) while streaming when memory pressure is detected.
package sample

import (
	"math/rand/v2"

	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

// Method names a sampling strategy.
type Method string

const (
	MethodNone      Method = "none"
	MethodRate      Method = "fixed-rate"
	MethodReservoir Method = "reservoir"
)

// Decision is the sampling plan computed once per run.
type Decision struct {
	Method            Method
	Rate              float64
	ReservoirCapacity int
}

// Policy holds the thresholds the plan is computed from.
type Policy struct {
	// SizeThresholdBytes is the file size below which the whole file is
	// scanned regardless of row count.
	SizeThresholdBytes int64
	// RowCeiling is the target number of rows the accumulators should
	// see on large inputs.
	RowCeiling int64
	// AvgRowBytes is the assumed average row width used to estimate row
	// count from file size.
	AvgRowBytes int64
}

// DefaultPolicy mirrors the documented defaults: scan files under
// 100 MB outright, aim for one million accumulated rows beyond that.
func DefaultPolicy() Policy {
	return Policy{
		SizeThresholdBytes: 100 << 20,
		RowCeiling:         1_000_000,
		AvgRowBytes:        100,
	}
}

// EstimateRows derives a row-count estimate from file size.
func (p Policy) EstimateRows(fileSize int64) int64 {
	avg := p.AvgRowBytes
	if avg <= 0 {
		avg = 100
	}
	return fileSize / avg
}

// Plan computes the sampling decision. estimatedRows <= 0 means
// "estimate from file size".
func (p Policy) Plan(fileSize, estimatedRows int64) Decision {
	if estimatedRows <= 0 {
		estimatedRows = p.EstimateRows(fileSize)
	}

	if fileSize <= p.SizeThresholdBytes || estimatedRows <= p.RowCeiling {
		if fileSize <= p.SizeThresholdBytes {
			return Decision{Method: MethodNone, Rate: 1}
		}
		// Large in bytes but not in estimated rows: the estimate is not
		// trustworthy, so fall back to a uniform fixed-capacity sample
		// that is correct for any true stream length.
		return Decision{
			Method:            MethodReservoir,
			Rate:              1,
			ReservoirCapacity: int(p.RowCeiling),
		}
	}

	rate := float64(p.RowCeiling) / float64(estimatedRows)
	if rate >= 1 {
		return Decision{
			Method:            MethodReservoir,
			Rate:              1,
			ReservoirCapacity: int(p.RowCeiling),
		}
	}
	return Decision{Method: MethodRate, Rate: rate}
}

// Gate applies a Decision to a record stream. For none/fixed-rate the
// record is forwarded to the sink immediately; for reservoir sampling
// records are held (up to capacity) and flushed at end of stream.
//
// Gate is not safe for concurrent use: the engine runs one logical
// stream of control per analysis, with the memory guard as the only
// writer of the current rate and the pipeline as the only reader.
type Gate struct {
	decision Decision
	rate     float64
	capacity int
	sink     func([]value.Value)

	reservoir [][]value.Value
	seen      int64
	kept      int64
	degraded  bool

	rng *rand.Rand
}

// NewGate builds a gate forwarding kept records to sink. seed fixes the
// random stream for reproducible tests; pass 0 for a time-derived seed.
func NewGate(d Decision, seed uint64, sink func([]value.Value)) *Gate {
	if seed == 0 {
		seed = rand.Uint64()
	}
	g := &Gate{
		decision: d,
		rate:     d.Rate,
		capacity: d.ReservoirCapacity,
		sink:     sink,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	if d.Method == MethodReservoir && d.ReservoirCapacity > 0 {
		g.reservoir = make([][]value.Value, 0, min(d.ReservoirCapacity, 1<<16))
	}
	return g
}

// Offer passes one accepted record through the sampling gate. Each
// record must be offered exactly once.
func (g *Gate) Offer(rec []value.Value) {
	g.seen++

	switch g.decision.Method {
	case MethodNone:
		g.kept++
		g.sink(rec)

	case MethodRate:
		if g.rng.Float64() < g.rate {
			g.kept++
			g.sink(rec)
		}

	case MethodReservoir:
		if len(g.reservoir) < g.capacity {
			g.reservoir = append(g.reservoir, rec)
			return
		}
		// Replace a uniformly random slot with probability
		// capacity/seen, preserving equal inclusion odds for every
		// record regardless of stream length.
		j := g.rng.Int64N(g.seen)
		if j < int64(g.capacity) {
			g.reservoir[j] = rec
		}
	}
}

// Finalize flushes reservoir contents into the sink. Must be called
// exactly once at end of stream; for non-reservoir methods it is a
// no-op.
func (g *Gate) Finalize() {
	for _, rec := range g.reservoir {
		g.kept++
		g.sink(rec)
	}
	g.reservoir = nil
}

// Shrink lowers the effective sampling fidelity: the fixed rate and the
// reservoir capacity are both halved. Already-accumulated state is
// never revisited; the downgrade applies only to the remainder of the
// run, and fidelity never recovers within it.
func (g *Gate) Shrink() {
	g.degraded = true

	switch g.decision.Method {
	case MethodNone:
		// A full scan degrades to Bernoulli sampling of new rows.
		g.decision.Method = MethodRate
		g.rate = 0.5
	case MethodRate:
		g.rate /= 2
	case MethodReservoir:
		g.capacity /= 2
		if len(g.reservoir) > g.capacity {
			g.rng.Shuffle(len(g.reservoir), func(i, j int) {
				g.reservoir[i], g.reservoir[j] = g.reservoir[j], g.reservoir[i]
			})
			g.reservoir = g.reservoir[:g.capacity]
		}
	}
}

// Seen returns the number of records offered.
func (g *Gate) Seen() int64 { return g.seen }

// Kept returns the number of records forwarded to the sink so far.
// Reservoir-held records count only after Finalize.
func (g *Gate) Kept() int64 { return g.kept }

// Degraded reports whether memory pressure forced a fidelity downgrade.
func (g *Gate) Degraded() bool { return g.degraded }

// Rate returns the current effective rate.
func (g *Gate) Rate() float64 {
	if g.decision.Method == MethodReservoir {
		return g.decision.Rate
	}
	return g.rate
}

// Decision returns the plan this gate was built from.
func (g *Gate) Decision() Decision { return g.decision }
