// Package multiplier turns bucket classifications into bounded bid
// multipliers: a fixed per-classification base, confidence damping, optional
// circular smoothing across neighboring hours, and clipping to configured
// bounds.
package multiplier

import (
	"math"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/idhash"
)

// Per-classification base multipliers.
const (
	basePeak    = 1.2
	baseGood    = 1.1
	baseAverage = 1.0
	basePoor    = 0.85
	baseDead    = 0.7
)

// Confidence damping factors in (0, 1].
const (
	factorHigh   = 1.0
	factorMedium = 0.7
	factorLow    = 0.4
)

// DefaultSmoothingWeight is the center weight when smoothing is enabled;
// the two hour neighbors share the remainder evenly.
const DefaultSmoothingWeight = 0.6

// Options controls one calculation run.
type Options struct {
	MaxMultiplier             float64
	MinMultiplier             float64
	ApplyConfidenceAdjustment bool
	ApplySmoothing            bool
	SmoothingWeight           float64 // center weight, defaults to DefaultSmoothingWeight when 0
}

// OptionsFromConfig derives calculation options from an entity config with
// confidence damping and smoothing on.
func OptionsFromConfig(cfg *domain.EntityConfig) Options {
	return Options{
		MaxMultiplier:             cfg.MaxMultiplier,
		MinMultiplier:             cfg.MinMultiplier,
		ApplyConfidenceAdjustment: true,
		ApplySmoothing:            true,
		SmoothingWeight:           DefaultSmoothingWeight,
	}
}

// Stats summarizes a calculation run for reporting.
type Stats struct {
	Total   int
	Raised  int // multiplier > neutral
	Lowered int // multiplier < neutral
	Neutral int
	Min     float64
	Max     float64
	Mean    float64
}

func baseFor(c domain.Classification) float64 {
	switch c {
	case domain.ClassPeak:
		return basePeak
	case domain.ClassGood:
		return baseGood
	case domain.ClassPoor:
		return basePoor
	case domain.ClassDead:
		return baseDead
	default:
		return baseAverage
	}
}

func factorFor(c domain.ConfidenceLevel) float64 {
	switch c {
	case domain.ConfidenceHigh:
		return factorHigh
	case domain.ConfidenceMedium:
		return factorMedium
	case domain.ConfidenceLow:
		return factorLow
	default:
		return 0
	}
}

// Recommend returns the damped multiplier for a classification at a given
// confidence: 1 + (base - 1) * factor. INSUFFICIENT confidence always
// recommends neutral regardless of classification.
func Recommend(classification domain.Classification, confidence domain.ConfidenceLevel) float64 {
	if confidence == domain.ConfidenceInsufficient {
		return domain.NeutralMultiplier
	}
	return 1 + (baseFor(classification)-1)*factorFor(confidence)
}

// rawValue computes the pre-smoothing multiplier for one bucket.
func rawValue(r *domain.BucketResult, applyConfidence bool) float64 {
	if r.Confidence == domain.ConfidenceInsufficient {
		return domain.NeutralMultiplier
	}
	if !applyConfidence {
		return baseFor(r.Classification)
	}
	return Recommend(r.Classification, r.Confidence)
}

// Calculate converts bucket analysis results into bid multiplier records:
// raw value per bucket, optional circular smoothing over (hour-1, hour+1)
// within the same weekday group, clip to [min, max], round to 2 decimals.
// Records are created active with an open effective window starting at now.
func Calculate(results []domain.BucketResult, opts Options, now time.Time) ([]domain.BidMultiplier, Stats) {
	if len(results) == 0 {
		return nil, Stats{}
	}

	raw := make([]float64, len(results))
	for i := range results {
		raw[i] = rawValue(&results[i], opts.ApplyConfidenceAdjustment)
	}

	if opts.ApplySmoothing {
		raw = smooth(results, raw, opts.SmoothingWeight)
	}

	records := make([]domain.BidMultiplier, 0, len(results))
	stats := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0

	for i := range results {
		r := &results[i]
		value := round2(clip(raw[i], opts.MinMultiplier, opts.MaxMultiplier))

		rec := domain.BidMultiplier{
			ID:             idhash.MultiplierID(r.EntityID, r.Hour, r.Weekday, now),
			EntityID:       r.EntityID,
			Hour:           r.Hour,
			Weekday:        r.Weekday,
			Multiplier:     value,
			Confidence:     r.Confidence,
			Classification: r.Classification,
			EffectiveFrom:  now,
			Active:         true,
		}
		records = append(records, rec)

		stats.Total++
		switch {
		case value > domain.NeutralMultiplier:
			stats.Raised++
		case value < domain.NeutralMultiplier:
			stats.Lowered++
		default:
			stats.Neutral++
		}
		if value < stats.Min {
			stats.Min = value
		}
		if value > stats.Max {
			stats.Max = value
		}
		sum += value
	}
	stats.Mean = sum / float64(stats.Total)

	return records, stats
}

// smooth averages each bucket's raw value with its circular hour neighbors.
// Weekday-keyed results are smoothed within their own weekday group so that
// Monday 23h never bleeds into Tuesday 0h.
func smooth(results []domain.BucketResult, raw []float64, centerWeight float64) []float64 {
	if centerWeight <= 0 || centerWeight > 1 {
		centerWeight = DefaultSmoothingWeight
	}
	neighborWeight := (1 - centerWeight) / 2

	// Index raw values by (weekday, hour) for neighbor lookup.
	type key struct {
		weekday int // -1 for all-weekday buckets
		hour    int
	}
	byKey := make(map[key]float64, len(raw))
	for i := range results {
		wd := -1
		if results[i].Weekday != nil {
			wd = *results[i].Weekday
		}
		byKey[key{wd, results[i].Hour}] = raw[i]
	}

	out := make([]float64, len(raw))
	for i := range results {
		wd := -1
		if results[i].Weekday != nil {
			wd = *results[i].Weekday
		}
		h := results[i].Hour
		prev, okPrev := byKey[key{wd, (h + 23) % 24}]
		next, okNext := byKey[key{wd, (h + 1) % 24}]
		if !okPrev || !okNext {
			out[i] = raw[i]
			continue
		}
		out[i] = centerWeight*raw[i] + neighborWeight*prev + neighborWeight*next
	}
	return out
}

func clip(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// round2 rounds half away from zero to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
