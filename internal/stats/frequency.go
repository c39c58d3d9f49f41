package stats

import (
	"sort"

	"github.com/Mrassimo/datapilot-sub008/internal/model"
)

// Frequency counts distinct raw values exactly up to a cap, then stops
// admitting new keys so the working set stays bounded on
// high-cardinality text columns.
type Frequency struct {
	counts   map[string]int64
	cap      int
	overflow int64
}

// NewFrequency creates a frequency table admitting at most cap distinct
// keys. cap <= 0 uses a default of 10000.
func NewFrequency(cap int) *Frequency {
	if cap <= 0 {
		cap = 10000
	}
	return &Frequency{counts: make(map[string]int64), cap: cap}
}

// Add records one occurrence.
func (f *Frequency) Add(key string) {
	if _, ok := f.counts[key]; ok {
		f.counts[key]++
		return
	}
	if len(f.counts) >= f.cap {
		f.overflow++
		return
	}
	f.counts[key] = 1
}

// Distinct returns the tracked distinct count. When Capped is true this
// is a lower bound.
func (f *Frequency) Distinct() int64 { return int64(len(f.counts)) }

// Capped reports whether the cap was hit.
func (f *Frequency) Capped() bool { return f.overflow > 0 }

// Top returns the k most frequent values, descending by count with
// lexical tie-break.
func (f *Frequency) Top(k int) []model.ValueCount {
	all := make([]model.ValueCount, 0, len(f.counts))
	for v, n := range f.counts {
		all = append(all, model.ValueCount{Value: v, Count: n})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Value < all[j].Value
	})
	if len(all) > k {
		all = all[:k]
	}
	return all
}

// DominantShare returns the largest single value's share of all counted
// occurrences, or 1 when the table is empty. Used for the
// representational-form quality dimension.
func (f *Frequency) DominantShare() float64 {
	var top, total int64
	for _, n := range f.counts {
		total += n
		if n > top {
			top = n
		}
	}
	total += f.overflow
	if total == 0 {
		return 1
	}
	return float64(top) / float64(total)
}
