// Package feedback closes the loop on applied multipliers: it records the
// before/after performance of each application, judges success, and exposes
// the success-rate signal consumed by the safety controller.
package feedback

import (
	"errors"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
)

// ErrAlreadyEvaluated is returned when a record that already carries its one
// evaluation is evaluated again. Feedback records are mutated exactly once.
var ErrAlreadyEvaluated = errors.New("feedback record already evaluated")

// DefaultEvaluationDelay is how long after application a record must age
// before its after-metrics are considered meaningful.
const DefaultEvaluationDelay = 48 * time.Hour

// degradationTolerance is how much combined relative decline an application
// may show and still count as a success.
const degradationTolerance = 0.05

// Due reports whether a record has aged past the evaluation delay and has
// not yet been evaluated.
func Due(record *domain.FeedbackRecord, delay time.Duration, now time.Time) bool {
	if record.Evaluated() {
		return false
	}
	if delay <= 0 {
		delay = DefaultEvaluationDelay
	}
	return now.Sub(record.AppliedAt) >= delay
}

// Evaluate sets the after-metrics, the success flag, and the continuous
// success score on a copy of the record. Returns ErrAlreadyEvaluated if the
// record already carries its evaluation.
func Evaluate(record *domain.FeedbackRecord, after domain.BeforeAfterMetrics, now time.Time) (*domain.FeedbackRecord, error) {
	if record.Evaluated() {
		return nil, ErrAlreadyEvaluated
	}

	score := successScore(record.Before, after)
	success := score >= 0.5-degradationTolerance

	evaluated := *record
	evaluated.After = &after
	evaluated.EvaluatedAt = &now
	evaluated.Success = &success
	evaluated.SuccessScore = &score

	return &evaluated, nil
}

// successScore blends the bounded relative change of conversion rate and
// return ratio, equal weight, into [0, 1]. 0.5 means unchanged performance.
func successScore(before, after domain.BeforeAfterMetrics) float64 {
	conv := boundedChange(before.ConversionRate, after.ConversionRate)
	ret := boundedChange(before.ReturnRatio, after.ReturnRatio)
	change := (conv + ret) / 2
	return (change + 1) / 2
}

// boundedChange returns the relative change clamped to [-1, 1].
// Missing or zero baselines carry no signal and contribute 0.
func boundedChange(before, after *float64) float64 {
	if before == nil || *before == 0 || after == nil {
		return 0
	}
	change := (*after - *before) / *before
	if change > 1 {
		return 1
	}
	if change < -1 {
		return -1
	}
	return change
}

// SuccessRate returns the share of evaluated records flagged successful and
// how many evaluated records were seen. Unevaluated records are ignored.
func SuccessRate(records []*domain.FeedbackRecord) (rate float64, evaluated int) {
	successes := 0
	for _, r := range records {
		if !r.Evaluated() || r.Success == nil {
			continue
		}
		evaluated++
		if *r.Success {
			successes++
		}
	}
	if evaluated == 0 {
		return 0, 0
	}
	return float64(successes) / float64(evaluated), evaluated
}
