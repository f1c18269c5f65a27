// Package analyzer computes per-bucket performance analysis: for each
// hour-of-day (optionally per weekday) it compares the bucket's conversion
// rate and return ratio against the entity's overall baseline, runs a
// one-sample t-test per metric, and grades the outcome into a confidence
// level and a qualitative classification.
package analyzer

import (
	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/multiplier"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/stats"
)

// Analyzer runs bucket analysis with an explicit threshold table.
type Analyzer struct {
	thresholds Thresholds
}

// New creates an analyzer. Thresholds should be validated by the caller;
// DefaultThresholds() always validates.
func New(thresholds Thresholds) *Analyzer {
	return &Analyzer{thresholds: thresholds}
}

// baseline holds the entity-wide per-metric means all buckets compare against.
type baseline struct {
	conversionRate float64
	returnRatio    float64
}

// Analyze produces one BucketResult per hour of day (24 results, hours with
// no usable samples included). Data-quality problems never error: thin
// buckets degrade to INSUFFICIENT confidence and a neutral multiplier.
func (a *Analyzer) Analyze(samples []*domain.PerformanceSample, cfg *domain.EntityConfig) []domain.BucketResult {
	base := a.computeBaseline(samples)

	results := make([]domain.BucketResult, 0, 24)
	for hour := 0; hour < 24; hour++ {
		bucket := filterBucket(samples, hour, -1)
		results = append(results, a.analyzeBucket(bucket, hour, nil, base, cfg))
	}
	return results
}

// AnalyzeByWeekday performs the identical procedure keyed by (hour, weekday),
// 24x7 results, against the same overall baseline.
func (a *Analyzer) AnalyzeByWeekday(samples []*domain.PerformanceSample, cfg *domain.EntityConfig) []domain.BucketResult {
	base := a.computeBaseline(samples)

	results := make([]domain.BucketResult, 0, 24*7)
	for weekday := 0; weekday < 7; weekday++ {
		for hour := 0; hour < 24; hour++ {
			bucket := filterBucket(samples, hour, weekday)
			wd := weekday
			results = append(results, a.analyzeBucket(bucket, hour, &wd, base, cfg))
		}
	}
	return results
}

// computeBaseline averages each metric over every sample that meets its
// floor, across all buckets.
func (a *Analyzer) computeBaseline(samples []*domain.PerformanceSample) baseline {
	convMean, _ := stats.MeanStd(a.conversionRates(samples))
	retMean, _ := stats.MeanStd(returnRatios(samples))
	return baseline{conversionRate: convMean, returnRatio: retMean}
}

func (a *Analyzer) analyzeBucket(bucket []*domain.PerformanceSample, hour int, weekday *int,
	base baseline, cfg *domain.EntityConfig) domain.BucketResult {

	res := domain.BucketResult{
		Hour:    hour,
		Weekday: weekday,
	}
	if len(bucket) > 0 {
		res.EntityID = bucket[0].EntityID
	}

	res.ConversionRate = a.metricStats(a.conversionRates(bucket), base.conversionRate)
	res.ReturnRatio = a.metricStats(returnRatios(bucket), base.returnRatio)

	convConf := a.metricConfidence(res.ConversionRate, cfg)
	retConf := a.metricConfidence(res.ReturnRatio, cfg)
	res.Confidence = convConf.Worse(retConf)

	// Equal-weight average of the two relative ratios.
	score := (res.ConversionRate.Relative + res.ReturnRatio.Relative) / 2
	res.Classification = a.thresholds.classify(score)

	res.RecommendedMultiplier = multiplier.Recommend(res.Classification, res.Confidence)
	return res
}

// metricStats computes sample statistics, the t-test against the overall
// mean, and relative performance for one metric series.
func (a *Analyzer) metricStats(values []float64, overallMean float64) domain.MetricStats {
	mean, std := stats.MeanStd(values)
	test := stats.OneSampleTTest(mean, overallMean, std, len(values))

	relative := 1.0
	if overallMean != 0 {
		relative = mean / overallMean
	}

	return domain.MetricStats{
		SampleSize: len(values),
		Mean:       mean,
		Stddev:     std,
		Relative:   relative,
		TStat:      test.TStat,
		PValue:     test.PValue,
	}
}

// metricConfidence grades one metric, applying the entity's own sample-size
// floor and significance ceiling on top of the tier table.
func (a *Analyzer) metricConfidence(m domain.MetricStats, cfg *domain.EntityConfig) domain.ConfidenceLevel {
	if m.SampleSize < cfg.MinSampleSize {
		return domain.ConfidenceInsufficient
	}
	if m.PValue > cfg.SignificanceLevel {
		// Not significant at the entity's configured level; it may still
		// qualify for the LOW tier if that tier is more permissive.
		if m.SampleSize >= a.thresholds.Confidence.Low.MinSamples &&
			m.PValue <= a.thresholds.Confidence.Low.MaxPValue {
			return domain.ConfidenceLow
		}
		return domain.ConfidenceInsufficient
	}
	return a.thresholds.confidenceFor(m.SampleSize, m.PValue)
}

// conversionRates extracts conversion-rate values from samples meeting the
// minimum-clicks floor.
func (a *Analyzer) conversionRates(samples []*domain.PerformanceSample) []float64 {
	var values []float64
	for _, s := range samples {
		if s.Clicks >= a.thresholds.MinClicksForConversion && s.ConversionRate != nil {
			values = append(values, *s.ConversionRate)
		}
	}
	return values
}

// returnRatios extracts return-ratio values from samples with positive spend.
func returnRatios(samples []*domain.PerformanceSample) []float64 {
	var values []float64
	for _, s := range samples {
		if s.Spend > 0 && s.ReturnRatio != nil {
			values = append(values, *s.ReturnRatio)
		}
	}
	return values
}

// filterBucket selects samples for one (hour, weekday) slot.
// weekday -1 matches all weekdays.
func filterBucket(samples []*domain.PerformanceSample, hour, weekday int) []*domain.PerformanceSample {
	var bucket []*domain.PerformanceSample
	for _, s := range samples {
		if s.Hour != hour {
			continue
		}
		if weekday >= 0 && s.Weekday != weekday {
			continue
		}
		bucket = append(bucket, s)
	}
	return bucket
}
