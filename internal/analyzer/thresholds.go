package analyzer

import (
	"fmt"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
)

// ConfidenceTier is one (min samples, max p-value) gate for a confidence level.
type ConfidenceTier struct {
	MinSamples int
	MaxPValue  float64
}

// ConfidenceThresholds maps sample size and p-value to a confidence level.
// A metric earns a tier only when it clears both the sample floor and the
// p-value ceiling; anything below the LOW tier is INSUFFICIENT.
type ConfidenceThresholds struct {
	High   ConfidenceTier
	Medium ConfidenceTier
	Low    ConfidenceTier
}

// ClassificationBands holds the contiguous cut points over the averaged
// relative-performance score. Bands must be strictly descending:
// score >= Peak → PEAK, >= Good → GOOD, >= Average → AVERAGE,
// >= Poor → POOR, below Poor → DEAD.
type ClassificationBands struct {
	Peak    float64
	Good    float64
	Average float64
	Poor    float64
}

// Thresholds gathers every tunable the analyzer consults. It is passed into
// each call explicitly; there is no package-level state to mutate.
type Thresholds struct {
	Confidence ConfidenceThresholds
	Bands      ClassificationBands

	// MinClicksForConversion is the floor a sample's clicks must meet for
	// its conversion rate to enter the conversion-rate series.
	MinClicksForConversion int64
}

// DefaultThresholds returns the standard analyzer tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Confidence: ConfidenceThresholds{
			High:   ConfidenceTier{MinSamples: 100, MaxPValue: 0.01},
			Medium: ConfidenceTier{MinSamples: 50, MaxPValue: 0.05},
			Low:    ConfidenceTier{MinSamples: 30, MaxPValue: 0.10},
		},
		Bands: ClassificationBands{
			Peak:    1.30,
			Good:    1.10,
			Average: 0.90,
			Poor:    0.70,
		},
		MinClicksForConversion: 1,
	}
}

// Validate rejects threshold tables with gaps or overlaps.
func (t Thresholds) Validate() domain.ValidationResult {
	var errs []string

	if !(t.Bands.Peak > t.Bands.Good && t.Bands.Good > t.Bands.Average && t.Bands.Average > t.Bands.Poor) {
		errs = append(errs, fmt.Sprintf(
			"classification bands must be strictly descending, got peak=%.4f good=%.4f average=%.4f poor=%.4f",
			t.Bands.Peak, t.Bands.Good, t.Bands.Average, t.Bands.Poor))
	}
	if t.Bands.Poor <= 0 {
		errs = append(errs, fmt.Sprintf("poor band cut %.4f must be positive", t.Bands.Poor))
	}

	tiers := []struct {
		name string
		tier ConfidenceTier
	}{
		{"high", t.Confidence.High},
		{"medium", t.Confidence.Medium},
		{"low", t.Confidence.Low},
	}
	for _, tt := range tiers {
		if tt.tier.MinSamples < 2 {
			errs = append(errs, fmt.Sprintf("%s tier min samples %d must be at least 2", tt.name, tt.tier.MinSamples))
		}
		if tt.tier.MaxPValue <= 0 || tt.tier.MaxPValue >= 1 {
			errs = append(errs, fmt.Sprintf("%s tier max p-value %.4f must be in (0, 1)", tt.name, tt.tier.MaxPValue))
		}
	}
	if t.Confidence.High.MinSamples < t.Confidence.Medium.MinSamples ||
		t.Confidence.Medium.MinSamples < t.Confidence.Low.MinSamples {
		errs = append(errs, "confidence tiers must require non-increasing sample sizes from HIGH to LOW")
	}
	if t.Confidence.High.MaxPValue > t.Confidence.Medium.MaxPValue ||
		t.Confidence.Medium.MaxPValue > t.Confidence.Low.MaxPValue {
		errs = append(errs, "confidence tiers must allow non-decreasing p-values from HIGH to LOW")
	}
	if t.MinClicksForConversion < 0 {
		errs = append(errs, fmt.Sprintf("min clicks for conversion %d must not be negative", t.MinClicksForConversion))
	}

	return domain.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// classify maps the averaged relative-performance score to a tier.
func (t Thresholds) classify(score float64) domain.Classification {
	switch {
	case score >= t.Bands.Peak:
		return domain.ClassPeak
	case score >= t.Bands.Good:
		return domain.ClassGood
	case score >= t.Bands.Average:
		return domain.ClassAverage
	case score >= t.Bands.Poor:
		return domain.ClassPoor
	default:
		return domain.ClassDead
	}
}

// confidenceFor grades one metric's sample size and p-value.
func (t Thresholds) confidenceFor(sampleSize int, pValue float64) domain.ConfidenceLevel {
	switch {
	case sampleSize >= t.Confidence.High.MinSamples && pValue <= t.Confidence.High.MaxPValue:
		return domain.ConfidenceHigh
	case sampleSize >= t.Confidence.Medium.MinSamples && pValue <= t.Confidence.Medium.MaxPValue:
		return domain.ConfidenceMedium
	case sampleSize >= t.Confidence.Low.MinSamples && pValue <= t.Confidence.Low.MaxPValue:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceInsufficient
	}
}
