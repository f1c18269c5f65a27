package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
)

func testConfig() *domain.EntityConfig {
	cfg := domain.DefaultConfig("camp-1")
	cfg.MinSampleSize = 30
	cfg.SignificanceLevel = 0.05
	return cfg
}

// mkSample builds a sample whose conversion rate is conversions/100 and whose
// return ratio is revenue/100.
func mkSample(day, hour, weekday int, conversions int64, revenue float64) *domain.PerformanceSample {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return domain.NewPerformanceSample("camp-1", date, hour, weekday,
		10000, 100, conversions, 100, revenue)
}

// peakHourSamples builds 40 strong samples for hour 20 (conversion rate mean
// 0.08, return ratio mean 3.0) against 160 baseline samples for hour 10
// (conversion rate mean 0.04, return ratio mean 2.0).
func peakHourSamples() []*domain.PerformanceSample {
	var samples []*domain.PerformanceSample
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			samples = append(samples, mkSample(i%28, 20, i%7, 6, 250))
		} else {
			samples = append(samples, mkSample(i%28, 20, i%7, 10, 350))
		}
	}
	for i := 0; i < 160; i++ {
		if i%2 == 0 {
			samples = append(samples, mkSample(i%28, 10, i%7, 3, 150))
		} else {
			samples = append(samples, mkSample(i%28, 10, i%7, 5, 250))
		}
	}
	return samples
}

func TestAnalyze_PeakHour(t *testing.T) {
	// 40 samples qualify for MEDIUM under this table; thresholds are
	// configuration, not policy.
	th := DefaultThresholds()
	th.Confidence.Medium = ConfidenceTier{MinSamples: 30, MaxPValue: 0.05}
	th.Confidence.Low = ConfidenceTier{MinSamples: 20, MaxPValue: 0.10}
	require.True(t, th.Validate().Valid)

	a := New(th)
	results := a.Analyze(peakHourSamples(), testConfig())
	require.Len(t, results, 24)

	hour20 := results[20]
	assert.Equal(t, 20, hour20.Hour)
	assert.Nil(t, hour20.Weekday)
	assert.Equal(t, 40, hour20.ConversionRate.SampleSize)
	assert.InDelta(t, 0.08, hour20.ConversionRate.Mean, 1e-9)
	assert.InDelta(t, 3.0, hour20.ReturnRatio.Mean, 1e-9)
	assert.Greater(t, hour20.ConversionRate.Relative, 1.5)
	assert.Greater(t, hour20.ReturnRatio.Relative, 1.2)
	assert.Less(t, hour20.ConversionRate.PValue, 0.01)

	assert.Contains(t, []domain.ConfidenceLevel{domain.ConfidenceMedium, domain.ConfidenceHigh}, hour20.Confidence)
	assert.Equal(t, domain.ClassPeak, hour20.Classification)
	assert.Greater(t, hour20.RecommendedMultiplier, 1.0)
}

func TestAnalyze_InsufficientSamples(t *testing.T) {
	// 5 samples for hour 3: INSUFFICIENT regardless of metric values.
	var samples []*domain.PerformanceSample
	for i := 0; i < 5; i++ {
		samples = append(samples, mkSample(i, 3, i%7, 20, 900))
	}

	a := New(DefaultThresholds())
	results := a.Analyze(samples, testConfig())
	require.Len(t, results, 24)

	hour3 := results[3]
	assert.Equal(t, domain.ConfidenceInsufficient, hour3.Confidence)
	assert.Equal(t, domain.NeutralMultiplier, hour3.RecommendedMultiplier)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	a := New(DefaultThresholds())
	results := a.Analyze(nil, testConfig())
	require.Len(t, results, 24)

	for _, r := range results {
		assert.Equal(t, domain.ConfidenceInsufficient, r.Confidence)
		assert.Equal(t, domain.NeutralMultiplier, r.RecommendedMultiplier)
	}
}

func TestAnalyze_InsufficientAlwaysNeutral(t *testing.T) {
	// Strong deviation but far too few samples: classification may be PEAK,
	// the multiplier must stay neutral.
	var samples []*domain.PerformanceSample
	for i := 0; i < 10; i++ {
		samples = append(samples, mkSample(i, 20, i%7, 10, 400))
		samples = append(samples, mkSample(i, 10, i%7, 2, 100))
	}

	a := New(DefaultThresholds())
	results := a.Analyze(samples, testConfig())
	for _, r := range results {
		if r.Confidence == domain.ConfidenceInsufficient {
			assert.Equal(t, domain.NeutralMultiplier, r.RecommendedMultiplier,
				"hour %d", r.Hour)
		}
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	samples := peakHourSamples()
	a := New(DefaultThresholds())
	cfg := testConfig()

	first := a.Analyze(samples, cfg)
	second := a.Analyze(samples, cfg)
	assert.Equal(t, first, second)
}

func TestAnalyzeByWeekday(t *testing.T) {
	a := New(DefaultThresholds())
	results := a.AnalyzeByWeekday(peakHourSamples(), testConfig())
	require.Len(t, results, 24*7)

	for i, r := range results {
		require.NotNil(t, r.Weekday, "result %d", i)
		assert.Equal(t, i/24, *r.Weekday)
		assert.Equal(t, i%24, r.Hour)
	}
}

func TestAnalyze_RelativeDefaultsToOneOnZeroBaseline(t *testing.T) {
	// All revenue zero: return-ratio baseline is 0, relative must be 1.
	var samples []*domain.PerformanceSample
	for i := 0; i < 40; i++ {
		samples = append(samples, mkSample(i%28, 5, i%7, 4, 0))
	}

	a := New(DefaultThresholds())
	results := a.Analyze(samples, testConfig())
	assert.Equal(t, 1.0, results[5].ReturnRatio.Relative)
}

func TestThresholds_Validate(t *testing.T) {
	valid := DefaultThresholds()
	assert.True(t, valid.Validate().Valid)

	overlapping := DefaultThresholds()
	overlapping.Bands.Good = overlapping.Bands.Peak // no longer strictly descending
	res := overlapping.Validate()
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)

	badTier := DefaultThresholds()
	badTier.Confidence.High.MaxPValue = 1.5
	assert.False(t, badTier.Validate().Valid)

	inverted := DefaultThresholds()
	inverted.Confidence.High.MinSamples = 10 // HIGH easier than MEDIUM
	assert.False(t, inverted.Validate().Valid)
}
