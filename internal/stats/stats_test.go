package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalCDF(t *testing.T) {
	cases := []struct {
		x    float64
		want float64
	}{
		{0, 0.5},
		{1.0, 0.8413447},
		{-1.0, 0.1586553},
		{1.96, 0.9750021},
		{-1.96, 0.0249979},
		{3.0, 0.9986501},
	}

	for _, c := range cases {
		got := NormalCDF(c.x)
		assert.InDelta(t, c.want, got, 1e-6, "NormalCDF(%v)", c.x)
	}
}

func TestNormalCDF_Symmetry(t *testing.T) {
	for _, x := range []float64{0.3, 1.2, 2.5, 4.0} {
		assert.InDelta(t, 1.0, NormalCDF(x)+NormalCDF(-x), 1e-12)
	}
}

func TestLogGamma(t *testing.T) {
	// Gamma(1) = Gamma(2) = 1, Gamma(5) = 24, Gamma(0.5) = sqrt(pi).
	assert.InDelta(t, 0, LogGamma(1), 1e-10)
	assert.InDelta(t, 0, LogGamma(2), 1e-10)
	assert.InDelta(t, math.Log(24), LogGamma(5), 1e-10)
	assert.InDelta(t, 0.5*math.Log(math.Pi), LogGamma(0.5), 1e-10)
}

func TestIncompleteBeta_Boundaries(t *testing.T) {
	for _, a := range []float64{0.5, 1, 2, 10} {
		for _, b := range []float64{0.5, 1, 2, 10} {
			assert.Equal(t, 0.0, IncompleteBeta(0, a, b))
			assert.Equal(t, 1.0, IncompleteBeta(1, a, b))
		}
	}
}

func TestIncompleteBeta_KnownValues(t *testing.T) {
	// I_x(1, 1) = x (uniform distribution CDF).
	for _, x := range []float64{0.1, 0.25, 0.5, 0.9} {
		assert.InDelta(t, x, IncompleteBeta(x, 1, 1), 1e-9)
	}

	// I_x(2, 2) = x^2 (3 - 2x).
	for _, x := range []float64{0.2, 0.5, 0.8} {
		want := x * x * (3 - 2*x)
		assert.InDelta(t, want, IncompleteBeta(x, 2, 2), 1e-9)
	}

	// Symmetry: I_x(a, b) = 1 - I_{1-x}(b, a).
	assert.InDelta(t, 1-IncompleteBeta(0.7, 3, 5), IncompleteBeta(0.3, 5, 3), 1e-9)
}

func TestTCDF_LargeDFMatchesNormal(t *testing.T) {
	for _, x := range []float64{-2, -0.5, 0, 1, 2.5} {
		assert.InDelta(t, NormalCDF(x), TCDF(x, 150), 1e-12)
	}
}

func TestTCDF_KnownValues(t *testing.T) {
	// t distribution with df=1 is Cauchy: CDF(1) = 0.75, CDF(0) = 0.5.
	assert.InDelta(t, 0.75, TCDF(1, 1), 1e-6)
	assert.InDelta(t, 0.5, TCDF(0, 10), 1e-9)

	// df=10: CDF(1.812) ~ 0.95 (95th percentile of t_10).
	assert.InDelta(t, 0.95, TCDF(1.812, 10), 1e-3)

	// Symmetry.
	assert.InDelta(t, 1.0, TCDF(1.5, 7)+TCDF(-1.5, 7), 1e-9)
}

func TestOneSampleTTest(t *testing.T) {
	// Mean 0.08 vs population 0.04, std 0.02, n = 40:
	// t = (0.08-0.04)/(0.02/sqrt(40)) = 12.65, far into the tail.
	res := OneSampleTTest(0.08, 0.04, 0.02, 40)
	require.Equal(t, 39, res.DegreesOfFreedom)
	assert.InDelta(t, 12.649, res.TStat, 1e-3)
	assert.Less(t, res.PValue, 0.001)

	// No difference at all: p should be 1.
	res = OneSampleTTest(0.05, 0.05, 0.01, 25)
	assert.Equal(t, 0.0, res.TStat)
	assert.InDelta(t, 1.0, res.PValue, 1e-9)
}

func TestOneSampleTTest_Degenerate(t *testing.T) {
	cases := []struct {
		name string
		std  float64
		n    int
	}{
		{"zero stddev", 0, 40},
		{"single sample", 0.02, 1},
		{"empty sample", 0.02, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := OneSampleTTest(0.08, 0.04, c.std, c.n)
			assert.Equal(t, 0.0, res.TStat)
			assert.Equal(t, 1.0, res.PValue)
			assert.Equal(t, 0, res.DegreesOfFreedom)
			assert.False(t, math.IsNaN(res.TStat))
			assert.False(t, math.IsInf(res.TStat, 0))
		})
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, std)

	mean, std = MeanStd([]float64{3.5})
	assert.Equal(t, 3.5, mean)
	assert.Equal(t, 0.0, std)

	// Sample stddev of {2, 4, 4, 4, 5, 5, 7, 9} with n-1 denominator.
	mean, std = MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, 2.13809, std, 1e-5)
}
