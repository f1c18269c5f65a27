// Package stats provides the numerical primitives for significance testing:
// normal and Student-t CDFs, the regularized incomplete beta function, and a
// one-sample t-test. It has no domain knowledge.
package stats

import "math"

// Defaults for the incomplete beta continued-fraction evaluation.
const (
	BetaMaxIterations = 200
	BetaTolerance     = 1e-10

	// betaTiny floors continued-fraction term magnitudes to avoid
	// division by near-zero.
	betaTiny = 1e-30
)

// NormalCDF returns the standard normal CDF at x using the Abramowitz-Stegun
// rational approximation (formula 26.2.17), accurate to about 1e-7.
func NormalCDF(x float64) float64 {
	neg := x < 0
	if neg {
		x = -x
	}

	k := 1.0 / (1.0 + 0.2316419*x)
	poly := k * (0.319381530 + k*(-0.356563782+k*(1.781477937+k*(-1.821255978+k*1.330274429))))
	pdf := math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
	cdf := 1 - pdf*poly

	if neg {
		return 1 - cdf
	}
	return cdf
}

// lanczosCoeffs are the 6-term Lanczos series coefficients (g = 5).
var lanczosCoeffs = [6]float64{
	76.18009172947146,
	-86.50532032941677,
	24.01409824083091,
	-1.231739572450155,
	0.1208650973866179e-2,
	-0.5395239384953e-5,
}

// LogGamma returns ln(Gamma(x)) for x > 0 via the Lanczos approximation.
func LogGamma(x float64) float64 {
	y := x
	tmp := x + 5.5
	tmp -= (x + 0.5) * math.Log(tmp)

	ser := 1.000000000190015
	for _, c := range lanczosCoeffs {
		y++
		ser += c / y
	}
	return -tmp + math.Log(2.5066282746310005*ser/x)
}

// IncompleteBeta returns the regularized incomplete beta function I_x(a, b)
// with the default iteration cap and tolerance.
func IncompleteBeta(x, a, b float64) float64 {
	return IncompleteBetaFull(x, a, b, BetaMaxIterations, BetaTolerance)
}

// IncompleteBetaFull evaluates I_x(a, b) via Lentz's continued-fraction
// algorithm with an explicit iteration cap and convergence tolerance.
// Returns 0 at x=0 and 1 at x=1 exactly. If the fraction fails to converge
// within maxIter iterations the best-effort value is returned.
func IncompleteBetaFull(x, a, b float64, maxIter int, tol float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	// Prefactor x^a (1-x)^b / (a B(a,b)), computed in log space.
	lnPre := LogGamma(a+b) - LogGamma(a) - LogGamma(b) +
		a*math.Log(x) + b*math.Log(1-x)

	// The continued fraction converges fast for x < (a+1)/(a+b+2);
	// otherwise use the symmetry I_x(a,b) = 1 - I_{1-x}(b,a).
	if x < (a+1)/(a+b+2) {
		return math.Exp(lnPre) * betaContinuedFraction(x, a, b, maxIter, tol) / a
	}
	return 1 - math.Exp(lnPre)*betaContinuedFraction(1-x, b, a, maxIter, tol)/b
}

// betaContinuedFraction evaluates the continued fraction for the incomplete
// beta function by the modified Lentz method.
func betaContinuedFraction(x, a, b float64, maxIter int, tol float64) float64 {
	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < betaTiny {
		d = betaTiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2 * fm

		// Even step.
		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < betaTiny {
			d = betaTiny
		}
		c = 1 + aa/c
		if math.Abs(c) < betaTiny {
			c = betaTiny
		}
		d = 1 / d
		h *= d * c

		// Odd step.
		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < betaTiny {
			d = betaTiny
		}
		c = 1 + aa/c
		if math.Abs(c) < betaTiny {
			c = betaTiny
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < tol {
			break
		}
	}
	// Best-effort value even if the loop exhausted maxIter.
	return h
}

// TCDF returns the Student-t CDF at t with df degrees of freedom.
// For df > 100 the normal approximation is used.
func TCDF(t, df float64) float64 {
	if df > 100 {
		return NormalCDF(t)
	}

	p := IncompleteBeta(df/(df+t*t), df/2, 0.5)
	if t > 0 {
		return 1 - p/2
	}
	return p / 2
}

// TTestResult holds the outcome of a one-sample t-test.
type TTestResult struct {
	TStat            float64
	PValue           float64 // two-sided
	DegreesOfFreedom int
}

// OneSampleTTest tests whether sampleMean differs from populationMean.
// Degenerate inputs (n <= 1 or sampleStd == 0) cannot reject the null and
// return {0, 1, 0} instead of dividing by zero.
func OneSampleTTest(sampleMean, populationMean, sampleStd float64, n int) TTestResult {
	if n <= 1 || sampleStd == 0 {
		return TTestResult{TStat: 0, PValue: 1, DegreesOfFreedom: 0}
	}

	se := sampleStd / math.Sqrt(float64(n))
	t := (sampleMean - populationMean) / se
	df := n - 1

	// Two-sided p-value from the upper tail of |t|.
	p := 2 * (1 - TCDF(math.Abs(t), float64(df)))
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	return TTestResult{TStat: t, PValue: p, DegreesOfFreedom: df}
}

// MeanStd returns the sample mean and sample standard deviation
// (n-1 denominator). n=0 yields {0, 0}; n=1 yields {mean, 0}.
func MeanStd(values []float64) (mean, std float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	if n < 2 {
		return mean, 0
	}

	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(n-1))
}
