package stats

import "math"

// Running accumulates mean, variance, and skewness online via Welford's
// method with third-moment extension. It never stores observations.
// Invariants: Count >= 0, Variance() >= 0; each accepted value updates
// the moments exactly once.
type Running struct {
	count          int64
	mean, m2, m3   float64
	min, max       float64
	seenFirstValue bool
}

// Add folds one finite observation into the running moments. Callers
// must filter nulls and non-finite values before calling.
func (r *Running) Add(x float64) {
	r.count++
	n := float64(r.count)

	delta := x - r.mean
	deltaN := delta / n
	term1 := delta * deltaN * (n - 1)

	r.m3 += term1*deltaN*(n-2) - 3*deltaN*r.m2
	r.m2 += term1
	r.mean += deltaN

	if !r.seenFirstValue || x < r.min {
		r.min = x
	}
	if !r.seenFirstValue || x > r.max {
		r.max = x
	}
	r.seenFirstValue = true
}

// Count returns the number of accepted observations.
func (r *Running) Count() int64 { return r.count }

// Mean returns the running mean, or 0 before any observation.
func (r *Running) Mean() float64 { return r.mean }

// Variance returns the population variance M2/n.
func (r *Running) Variance() float64 {
	if r.count == 0 {
		return 0
	}
	v := r.m2 / float64(r.count)
	if v < 0 {
		// Floating-point drift can push M2 marginally negative.
		return 0
	}
	return v
}

// StdDev returns the population standard deviation.
func (r *Running) StdDev() float64 { return math.Sqrt(r.Variance()) }

// Skewness returns the population skewness g1 = sqrt(n)·M3 / M2^1.5,
// or 0 when undefined (fewer than 2 values or zero variance).
func (r *Running) Skewness() float64 {
	if r.count < 2 || r.m2 == 0 {
		return 0
	}
	return math.Sqrt(float64(r.count)) * r.m3 / math.Pow(r.m2, 1.5)
}

// Min returns the smallest observation, or 0 before any.
func (r *Running) Min() float64 { return r.min }

// Max returns the largest observation, or 0 before any.
func (r *Running) Max() float64 { return r.max }
