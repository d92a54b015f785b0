package dataset

import (
	"math"
	"sort"
)

// Accumulator folds per-file observations into summary statistics without
// keeping the observations around. Merge is associative, so chunked
// workers can fold their own partials and combine them in chunk order,
// which keeps totals stable from run to run regardless of scheduling.
type Accumulator struct {
	n    int64
	sum  float64
	min  float64
	max  float64
	mean float64
	m2   float64
}

func (a *Accumulator) Add(v float64) {
	a.n++
	a.sum += v
	if a.n == 1 {
		a.min, a.max = v, v
	} else {
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}
	delta := v - a.mean
	a.mean += delta / float64(a.n)
	a.m2 += delta * (v - a.mean)
}

func (a *Accumulator) Merge(b Accumulator) {
	if b.n == 0 {
		return
	}
	if a.n == 0 {
		*a = b
		return
	}
	na, nb := float64(a.n), float64(b.n)
	delta := b.mean - a.mean
	a.mean += delta * nb / (na + nb)
	a.m2 += b.m2 + delta*delta*na*nb/(na+nb)
	a.sum += b.sum
	a.n += b.n
	if b.min < a.min {
		a.min = b.min
	}
	if b.max > a.max {
		a.max = b.max
	}
}

func (a *Accumulator) Count() int64 { return a.n }
func (a *Accumulator) Sum() float64 { return a.sum }

func (a *Accumulator) Min() float64 {
	if a.n == 0 {
		return 0
	}
	return a.min
}

func (a *Accumulator) Max() float64 {
	if a.n == 0 {
		return 0
	}
	return a.max
}

func (a *Accumulator) Mean() float64 {
	if a.n == 0 {
		return 0
	}
	return a.mean
}

func (a *Accumulator) Variance() float64 {
	if a.n < 2 {
		return 0
	}
	return a.m2 / float64(a.n)
}

func (a *Accumulator) StdDev() float64 {
	return math.Sqrt(a.Variance())
}

// CoefficientOfVariation reports spread relative to the mean, zero when
// the mean is zero.
func (a *Accumulator) CoefficientOfVariation() float64 {
	m := a.Mean()
	if m == 0 {
		return 0
	}
	return a.StdDev() / math.Abs(m)
}

// Tally counts categorical observations, such as file extensions or
// resolution buckets.
type Tally struct {
	counts map[string]int64
	total  int64
}

func (t *Tally) Add(key string) {
	if t.counts == nil {
		t.counts = map[string]int64{}
	}
	t.counts[key]++
	t.total++
}

func (t *Tally) Merge(b Tally) {
	for k, v := range b.counts {
		if t.counts == nil {
			t.counts = map[string]int64{}
		}
		t.counts[k] += v
		t.total += v
	}
}

func (t *Tally) Total() int64 { return t.total }

func (t *Tally) Distinct() int { return len(t.counts) }

func (t *Tally) CountOf(key string) int64 { return t.counts[key] }

// Modal returns the most frequent key, smallest key first on ties.
func (t *Tally) Modal() (string, int64) {
	keys := make([]string, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var best string
	var bestN int64
	for _, k := range keys {
		if t.counts[k] > bestN {
			best, bestN = k, t.counts[k]
		}
	}
	return best, bestN
}

// ModalShare is the fraction of observations carried by the modal key.
func (t *Tally) ModalShare() float64 {
	if t.total == 0 {
		return 0
	}
	_, n := t.Modal()
	return float64(n) / float64(t.total)
}

// Entropy01 is the Shannon entropy of the distribution normalized to
// [0, 1]. A single category has no spread and reports 0.
func (t *Tally) Entropy01() float64 {
	k := len(t.counts)
	if k < 2 || t.total == 0 {
		return 0
	}
	var h float64
	for _, n := range t.counts {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(t.total)
		h -= p * math.Log(p)
	}
	return h / math.Log(float64(k))
}

// MinMaxRatio reports the smallest count over the largest, 1 for a
// perfectly even distribution.
func (t *Tally) MinMaxRatio() float64 {
	if len(t.counts) == 0 {
		return 0
	}
	var minN, maxN int64 = math.MaxInt64, 0
	for _, n := range t.counts {
		if n < minN {
			minN = n
		}
		if n > maxN {
			maxN = n
		}
	}
	if maxN == 0 {
		return 0
	}
	return float64(minN) / float64(maxN)
}
