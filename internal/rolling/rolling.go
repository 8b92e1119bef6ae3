// Package rolling computes windowed trend descriptors over tick-price sequences.
//
// All functions are stateless and index-addressed: the value at index i only
// depends on p[i-n..i]. A nil result means the window has insufficient history,
// which callers must keep distinct from a computed zero.
package rolling

import (
	"math"
	"sort"

	"trendchop/internal/domain"
)

// degenerateEps is the path-length / deviation floor below which a ratio is reported as 0.
const degenerateEps = 1e-12

// EfficiencyRatio returns ER_n(i) = |p[i]-p[i-n]| / sum_{j=i-n+1..i} |p[j]-p[j-1]|.
//
//   - nil if n <= 0, i < n or i is outside p
//   - 0 when the path length is <= 1e-12 (flat window)
//   - otherwise a value in [0, 1]
//
// The denominator is summed fresh for every call in ascending j order.
func EfficiencyRatio(p []float64, i, n int) *float64 {
	if n <= 0 || i < n || i >= len(p) {
		return nil
	}

	net := math.Abs(p[i] - p[i-n])

	denom := 0.0
	for j := i - n + 1; j <= i; j++ {
		denom += math.Abs(p[j] - p[j-1])
	}

	if denom <= degenerateEps {
		return ptr(0.0)
	}
	// rounding in the path sum can leave denom a ulp below net
	return ptr(math.Min(1, net/denom))
}

// TStat returns the t-statistic of the n most recent one-step differences ending at i:
// mean * sqrt(n) / stddev, with the sample stddev using max(1, n-1) as denominator.
//
//   - nil if n <= 0, i < n or i is outside p
//   - 0 when stddev <= 1e-12 (constant steps, including a flat window)
func TStat(p []float64, i, n int) *float64 {
	if n <= 0 || i < n || i >= len(p) {
		return nil
	}

	sum := 0.0
	for j := i - n + 1; j <= i; j++ {
		sum += p[j] - p[j-1]
	}
	mean := sum / float64(n)

	variance := 0.0
	for j := i - n + 1; j <= i; j++ {
		d := (p[j] - p[j-1]) - mean
		variance += d * d
	}
	variance /= float64(max(1, n-1))
	sd := math.Sqrt(variance)

	if sd <= degenerateEps {
		return ptr(0.0)
	}
	return ptr(mean * math.Sqrt(float64(n)) / sd)
}

// Compute evaluates ER and TS for every window at index i.
// The result is ordered by ascending window regardless of the input order.
func Compute(p []float64, i int, windows []int) []domain.WindowStat {
	sorted := make([]int, len(windows))
	copy(sorted, windows)
	sort.Ints(sorted)

	stats := make([]domain.WindowStat, len(sorted))
	for k, n := range sorted {
		stats[k] = domain.WindowStat{
			Window: n,
			ER:     EfficiencyRatio(p, i, n),
			TS:     TStat(p, i, n),
		}
	}
	return stats
}

// Sign returns -1, 0 or 1.
func Sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func ptr(v float64) *float64 {
	return &v
}
