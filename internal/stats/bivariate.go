package stats

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
	"github.com/Mrassimo/datapilot-sub008/internal/value"
)

// PairSpec names one tracked column pair.
type PairSpec struct {
	Col1, Col2 string
}

// pairState holds the Welford-style comoment for one pair.
type pairState struct {
	name1, name2 string
	i1, i2       int

	n            int64
	mean1, mean2 float64
	m21, m22     float64
	comoment     float64
}

// Bivariate tracks streaming covariance for a configured set of column
// pairs. Column lookup goes through a name→index map built exactly once
// here: resolving by name, never by row position, is what keeps the
// correlation engine reading the right columns when the physical column
// order changes between files.
type Bivariate struct {
	pairs     []pairState
	finalized bool
}

// NewBivariate resolves the pair list against the column name list. An
// unknown column name is a configuration error surfaced before any
// record is observed.
func NewBivariate(columns []string, pairs []PairSpec) (*Bivariate, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}

	b := &Bivariate{pairs: make([]pairState, 0, len(pairs))}
	for _, p := range pairs {
		i1, ok1 := index[p.Col1]
		i2, ok2 := index[p.Col2]
		if !ok1 {
			return nil, eris.Errorf("stats: correlation pair references unknown column %q", p.Col1)
		}
		if !ok2 {
			return nil, eris.Errorf("stats: correlation pair references unknown column %q", p.Col2)
		}
		b.pairs = append(b.pairs, pairState{name1: p.Col1, name2: p.Col2, i1: i1, i2: i2})
	}
	return b, nil
}

// Observe folds one accepted record into every pair where both fields
// are finite numbers.
func (b *Bivariate) Observe(rec []value.Value) {
	for i := range b.pairs {
		p := &b.pairs[i]
		if p.i1 >= len(rec) || p.i2 >= len(rec) {
			continue
		}
		v1, v2 := rec[p.i1], rec[p.i2]
		if v1.Kind != value.Number || v2.Kind != value.Number {
			continue
		}
		x, y := v1.Num, v2.Num
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}

		p.n++
		n := float64(p.n)
		dx := x - p.mean1
		p.mean1 += dx / n
		p.m21 += dx * (x - p.mean1)
		dy := y - p.mean2
		p.mean2 += dy / n
		p.m22 += dy * (y - p.mean2)
		p.comoment += dx * (y - p.mean2)
	}
}

// significanceT is the two-sided 5% critical value of the t
// distribution in the large-sample limit.
const significanceT = 1.96

// maxTStat caps the reported t statistic for perfect correlations.
const maxTStat = 1e6

// Finalize freezes the accumulator into correlation results. r is
// clamped to [-1, 1] to counter floating-point drift, and the
// significance flag comes from the t statistic r·sqrt((n-2)/(1-r²)).
func (b *Bivariate) Finalize() []model.CorrelationPair {
	if b.finalized {
		panic("stats: bivariate accumulator finalized twice")
	}
	b.finalized = true

	out := make([]model.CorrelationPair, 0, len(b.pairs))
	for _, p := range b.pairs {
		cp := model.CorrelationPair{Column1: p.name1, Column2: p.name2, N: p.n}

		if p.n >= 2 && p.m21 > 0 && p.m22 > 0 {
			r := p.comoment / math.Sqrt(p.m21*p.m22)
			cp.R = math.Max(-1, math.Min(1, r))

			if p.n > 2 && math.Abs(cp.R) < 1 {
				cp.TStat = cp.R * math.Sqrt(float64(p.n-2)/(1-cp.R*cp.R))
			} else if math.Abs(cp.R) == 1 && p.n > 2 {
				// Perfect correlation: keep the statistic finite so the
				// result serializes cleanly.
				cp.TStat = math.Copysign(maxTStat, cp.R)
			}
			cp.Significant = p.n > 2 && math.Abs(cp.TStat) > significanceT
		}

		out = append(out, cp)
	}
	return out
}
