package quantile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/traceanalyzer/pkg/quantile"
)

func TestComputeEmpirical(t *testing.T) {
	samples := []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	pts, err := quantile.Compute(samples, []float64{0.5, 0.9})
	require.NoError(t, err)
	require.Len(t, pts, 2)
	require.Equal(t, 0.5, pts[0].Q)
	require.InDelta(t, 50, pts[0].Value, 10)
	require.InDelta(t, 90, pts[1].Value, 10)
}

func TestComputeEmptySeries(t *testing.T) {
	pts, err := quantile.Compute(nil, []float64{0.5})
	require.NoError(t, err)
	require.Nil(t, pts)
}

func TestComputeRejectsOutOfRange(t *testing.T) {
	_, err := quantile.Compute([]int64{1}, []float64{1.5})
	require.Error(t, err)
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	samples := []int64{30, 10, 20}
	_, err := quantile.Compute(samples, []float64{0.5})
	require.NoError(t, err)
	require.Equal(t, []int64{30, 10, 20}, samples)
}

func TestMean(t *testing.T) {
	require.Equal(t, 0.0, quantile.Mean(nil))
	require.InDelta(t, 20.0, quantile.Mean([]int64{10, 20, 30}), 1e-9)
}

func TestTrimAbove(t *testing.T) {
	samples := []int64{1, 2, 3, 4, 1000}
	trimmed := quantile.TrimAbove(samples, 0.8)
	require.NotContains(t, trimmed, int64(1000))
	require.Contains(t, trimmed, int64(1))
}
