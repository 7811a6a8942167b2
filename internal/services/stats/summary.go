// Package stats groups market events and computes the descriptive
// statistics behind the dashboard insights, the indicator script and the
// trade reports.
package stats

import (
	"cmp"
	"math"
	"slices"
)

// Summary describes one numeric column of a group. NaN values are not
// counted. An empty input yields the zero Summary.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	// population standard deviation
	Std float64 `json:"std"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Empty reports whether no values were summarized.
func (s Summary) Empty() bool { return s.Count == 0 }

// Summarize computes count, mean, median and population std of values.
func Summarize(values []float64) Summary {
	xs := finite(values)
	if len(xs) == 0 {
		return Summary{}
	}
	slices.Sort(xs)
	mean := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return Summary{
		Count:  len(xs),
		Mean:   mean,
		Median: medianSorted(xs),
		Std:    math.Sqrt(ss / float64(len(xs))),
		Min:    xs[0],
		Max:    xs[len(xs)-1],
	}
}

// SummarizeFunc summarizes f over rows where keep returns true.
func SummarizeFunc[T any](rows []T, keep func(T) bool, f func(T) float64) Summary {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		if keep == nil || keep(r) {
			values = append(values, f(r))
		}
	}
	return Summarize(values)
}

// Mean is the arithmetic mean of the non-NaN values, 0 when there are none.
func Mean(values []float64) float64 {
	var (
		sum float64
		n   int
	)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Median of the non-NaN values. An even count averages the two middle
// values. 0 when there are none.
func Median(values []float64) float64 {
	xs := finite(values)
	if len(xs) == 0 {
		return 0
	}
	slices.Sort(xs)
	return medianSorted(xs)
}

func medianSorted(xs []float64) float64 {
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// SampleStd is the n-1 standard deviation, 0 for fewer than two values.
func SampleStd(values []float64) float64 {
	xs := finite(values)
	if len(xs) < 2 {
		return 0
	}
	sum, sum2 := 0.0, 0.0
	for _, x := range xs {
		sum += x
		sum2 += x * x
	}
	n := float64(len(xs))
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Rate is n/d as a percentage, 0 when d is 0.
func Rate(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

// GroupBy buckets rows by key, keeping input order inside each bucket.
func GroupBy[T any, K comparable](rows []T, key func(T) K) map[K][]T {
	groups := make(map[K][]T)
	for _, r := range rows {
		k := key(r)
		groups[k] = append(groups[k], r)
	}
	return groups
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Count returns how many rows satisfy pred.
func Count[T any](rows []T, pred func(T) bool) int {
	n := 0
	for _, r := range rows {
		if pred(r) {
			n++
		}
	}
	return n
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
