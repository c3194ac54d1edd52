// Package quantile wraps gonum's empirical quantile estimation for the
// duration/latency series the utilization and latency analyses reduce at
// Finalize time. Inputs are signed nanosecond samples; outputs are plain
// float64 nanoseconds so callers can format them however their artifact
// requires.
package quantile

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Point is one computed quantile of a sample series.
type Point struct {
	Q     float64 `json:"q"`
	Value float64 `json:"value"`
}

// Compute returns the empirical quantiles qs of samples. The input slice
// is not modified. Returns nil for an empty series; quantiles outside
// [0,1] are an error (the config layer validates them too, but analyses
// may be constructed without a config in tests).
func Compute(samples []int64, qs []float64) ([]Point, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	sorted := make([]float64, len(samples))
	for i, s := range samples {
		sorted[i] = float64(s)
	}
	sort.Float64s(sorted)

	out := make([]Point, 0, len(qs))
	for _, q := range qs {
		if q < 0 || q > 1 {
			return nil, fmt.Errorf("quantile: %v out of [0,1]", q)
		}
		out = append(out, Point{Q: q, Value: stat.Quantile(q, stat.Empirical, sorted, nil)})
	}
	return out, nil
}

// Mean returns the arithmetic mean of samples, 0 for an empty series.
func Mean(samples []int64) float64 {
	if len(samples) == 0 {
		return 0
	}
	fs := make([]float64, len(samples))
	for i, s := range samples {
		fs[i] = float64(s)
	}
	return stat.Mean(fs, nil)
}

// TrimAbove returns the samples at or below the empirical quantile q of
// the series, used by the quantile-based utilization analysis to discard
// outlier callback durations before summing busy time.
func TrimAbove(samples []int64, q float64) []int64 {
	if len(samples) == 0 {
		return nil
	}
	pts, err := Compute(samples, []float64{q})
	if err != nil {
		return samples
	}
	cut := pts[0].Value
	out := make([]int64, 0, len(samples))
	for _, s := range samples {
		if float64(s) <= cut {
			out = append(out, s)
		}
	}
	return out
}
