package stats

import "sort"

// P2Quantile estimates a single quantile online with the P² algorithm:
// five markers whose positions are nudged toward their ideal locations
// with piecewise-parabolic interpolation. Memory is constant regardless
// of stream length; the estimate is exact for the first five values.
type P2Quantile struct {
	p       float64
	heights [5]float64
	pos     [5]float64
	desired [5]float64
	incr    [5]float64
	count   int
	initial []float64
}

// NewP2Quantile creates an estimator for quantile p in (0, 1).
func NewP2Quantile(p float64) *P2Quantile {
	q := &P2Quantile{p: p, initial: make([]float64, 0, 5)}
	q.desired = [5]float64{1, 1 + 2*p, 1 + 4*p, 3 + 2*p, 5}
	q.incr = [5]float64{0, p / 2, p, (1 + p) / 2, 1}
	return q
}

// Add folds one observation into the estimate.
func (q *P2Quantile) Add(x float64) {
	q.count++

	if len(q.initial) < 5 {
		q.initial = append(q.initial, x)
		if len(q.initial) == 5 {
			sort.Float64s(q.initial)
			copy(q.heights[:], q.initial)
			q.pos = [5]float64{1, 2, 3, 4, 5}
		}
		return
	}

	// Find the cell containing x and update extreme markers.
	var k int
	switch {
	case x < q.heights[0]:
		q.heights[0] = x
		k = 0
	case x >= q.heights[4]:
		q.heights[4] = x
		k = 3
	default:
		for i := 1; i < 5; i++ {
			if x < q.heights[i] {
				k = i - 1
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		q.pos[i]++
	}
	for i := range q.desired {
		q.desired[i] += q.incr[i]
	}

	// Adjust the three interior markers.
	for i := 1; i <= 3; i++ {
		d := q.desired[i] - q.pos[i]
		if (d >= 1 && q.pos[i+1]-q.pos[i] > 1) || (d <= -1 && q.pos[i-1]-q.pos[i] < -1) {
			sign := 1.0
			if d < 0 {
				sign = -1.0
			}
			h := q.parabolic(i, sign)
			if q.heights[i-1] < h && h < q.heights[i+1] {
				q.heights[i] = h
			} else {
				q.heights[i] = q.linear(i, sign)
			}
			q.pos[i] += sign
		}
	}
}

func (q *P2Quantile) parabolic(i int, d float64) float64 {
	return q.heights[i] + d/(q.pos[i+1]-q.pos[i-1])*
		((q.pos[i]-q.pos[i-1]+d)*(q.heights[i+1]-q.heights[i])/(q.pos[i+1]-q.pos[i])+
			(q.pos[i+1]-q.pos[i]-d)*(q.heights[i]-q.heights[i-1])/(q.pos[i]-q.pos[i-1]))
}

func (q *P2Quantile) linear(i int, d float64) float64 {
	di := int(d)
	return q.heights[i] + d*(q.heights[i+di]-q.heights[i])/(q.pos[i+di]-q.pos[i])
}

// Value returns the current estimate. With fewer than five values the
// exact quantile of the buffered values is returned.
func (q *P2Quantile) Value() float64 {
	if q.count == 0 {
		return 0
	}
	if len(q.initial) < 5 {
		sorted := append([]float64(nil), q.initial...)
		sort.Float64s(sorted)
		idx := int(q.p * float64(len(sorted)-1))
		return sorted[idx]
	}
	return q.heights[2]
}
