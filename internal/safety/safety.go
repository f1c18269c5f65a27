// Package safety gates every proposed multiplier change. It validates a
// candidate against bounds, recent feedback, daily loss ceilings, and
// bad-day streaks, and can downgrade, block, or demand a full rollback.
// All outcomes are advisory data; the caller decides whether to honor them.
package safety

import (
	"fmt"
	"math"
	"sort"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/feedback"
)

// Action is the recommended handling for a candidate multiplier.
type Action string

const (
	ActionApply    Action = "APPLY"
	ActionReduce   Action = "REDUCE"
	ActionSkip     Action = "SKIP"
	ActionRollback Action = "ROLLBACK"
)

// Severity ranks actions so the check reduction is an explicit invariant:
// the most severe finding wins, never the last one evaluated.
func (a Action) Severity() int {
	switch a {
	case ActionRollback:
		return 3
	case ActionSkip:
		return 2
	case ActionReduce:
		return 1
	default:
		return 0
	}
}

// MinFeedbackDataPoints is the number of evaluated feedback records required
// before the success-rate check is allowed to fire.
const MinFeedbackDataPoints = 5

// insufficientDeviationLimit is how far from neutral an INSUFFICIENT-confidence
// multiplier may sit before it is pulled back.
const insufficientDeviationLimit = 0.1

// CheckResult is the outcome of evaluating one candidate multiplier.
type CheckResult struct {
	IsSafe             bool
	Warnings           []string
	BlockReason        string
	RecommendedAction  Action
	AdjustedMultiplier *float64
}

// finding is one check's contribution to the result.
type finding struct {
	action   Action
	warning  string
	blocked  string
	adjusted *float64
}

// PerformSafetyCheck evaluates a candidate multiplier against the entity's
// configuration, its recent feedback for the same bucket, and recent daily
// summaries. Checks run in a fixed order; the recommended action is the
// maximum severity across findings, warnings accumulate, and REDUCE findings
// chain (each operates on the value left by the previous one).
func PerformSafetyCheck(m domain.BidMultiplier, cfg *domain.EntityConfig,
	recentFeedback []*domain.FeedbackRecord, dailySummaries []*domain.DailySummary) CheckResult {

	current := m.Multiplier
	findings := []finding{
		checkBounds(current, cfg),
	}
	if f := findings[0].adjusted; f != nil {
		current = *f
	}

	findings = append(findings, checkDailyLoss(dailySummaries, cfg))

	if f := checkFeedbackSuccess(m, current, recentFeedback, cfg); f.action != ActionApply {
		findings = append(findings, f)
		if f.adjusted != nil {
			current = *f.adjusted
		}
	}

	findings = append(findings, checkConsecutiveBadDays(dailySummaries, cfg))
	findings = append(findings, checkInsufficientDeviation(m, current))

	return reduceFindings(findings)
}

// PerformSafetyChecks is the batch form over a multiplier set. Feedback is
// matched to each multiplier's (hour, weekday) bucket.
func PerformSafetyChecks(multipliers []domain.BidMultiplier, cfg *domain.EntityConfig,
	recentFeedback []*domain.FeedbackRecord, dailySummaries []*domain.DailySummary) []CheckResult {

	results := make([]CheckResult, 0, len(multipliers))
	for _, m := range multipliers {
		bucket := feedbackForBucket(recentFeedback, m.Hour, m.Weekday)
		results = append(results, PerformSafetyCheck(m, cfg, bucket, dailySummaries))
	}
	return results
}

// reduceFindings folds findings into a result: max severity wins, warnings
// accumulate, the adjusted value comes from the last REDUCE in check order
// (each reducer already chained off the previous value).
func reduceFindings(findings []finding) CheckResult {
	res := CheckResult{RecommendedAction: ActionApply}

	for _, f := range findings {
		if f.warning != "" {
			res.Warnings = append(res.Warnings, f.warning)
		}
		if f.action.Severity() > res.RecommendedAction.Severity() {
			res.RecommendedAction = f.action
			res.BlockReason = f.blocked
		}
		if f.action == ActionReduce && f.adjusted != nil {
			res.AdjustedMultiplier = f.adjusted
		}
	}

	// SKIP and ROLLBACK block the change outright; an adjusted value would
	// be misleading.
	if res.RecommendedAction.Severity() > ActionReduce.Severity() {
		res.AdjustedMultiplier = nil
	}
	res.IsSafe = res.RecommendedAction == ActionApply

	return res
}

// checkBounds re-validates the configured range. The calculator already
// clips, so a violation here means an upstream bug; reduce to the nearest
// bound rather than failing.
func checkBounds(value float64, cfg *domain.EntityConfig) finding {
	switch {
	case value < cfg.MinMultiplier:
		adj := cfg.MinMultiplier
		return finding{
			action:   ActionReduce,
			warning:  fmt.Sprintf("multiplier %.2f below configured minimum %.2f, reduced to bound", value, cfg.MinMultiplier),
			adjusted: &adj,
		}
	case value > cfg.MaxMultiplier:
		adj := cfg.MaxMultiplier
		return finding{
			action:   ActionReduce,
			warning:  fmt.Sprintf("multiplier %.2f above configured maximum %.2f, reduced to bound", value, cfg.MaxMultiplier),
			adjusted: &adj,
		}
	}
	return finding{action: ActionApply}
}

// checkDailyLoss blocks any change while today's realized loss exceeds the
// configured ceiling.
func checkDailyLoss(summaries []*domain.DailySummary, cfg *domain.EntityConfig) finding {
	today := latestSummary(summaries)
	if today == nil {
		return finding{action: ActionApply}
	}

	loss := today.Loss()
	if loss > cfg.MaxDailyLoss {
		reason := fmt.Sprintf("daily loss %.2f exceeds configured ceiling %.2f (spend %.2f, sales %.2f on %s)",
			loss, cfg.MaxDailyLoss, today.Spend, today.Sales, today.Date.Format("2006-01-02"))
		return finding{action: ActionSkip, warning: reason, blocked: reason}
	}
	return finding{action: ActionApply}
}

// checkFeedbackSuccess pulls the multiplier halfway back toward neutral when
// the bucket's evaluated feedback success rate falls below
// 1 - RollbackThreshold. Fires only with enough evaluated data points.
func checkFeedbackSuccess(m domain.BidMultiplier, current float64,
	records []*domain.FeedbackRecord, cfg *domain.EntityConfig) finding {

	rate, evaluated := feedback.SuccessRate(records)
	if evaluated < MinFeedbackDataPoints {
		return finding{action: ActionApply}
	}

	floor := 1 - cfg.RollbackThreshold
	if rate >= floor {
		return finding{action: ActionApply}
	}

	adj := (current + domain.NeutralMultiplier) / 2
	return finding{
		action: ActionReduce,
		warning: fmt.Sprintf("bucket h%02d success rate %.2f below floor %.2f over %d evaluations, pulled halfway to neutral",
			m.Hour, rate, floor, evaluated),
		adjusted: &adj,
	}
}

// checkConsecutiveBadDays demands a rollback once the trailing streak of
// degraded-ROI days reaches the configured maximum.
func checkConsecutiveBadDays(summaries []*domain.DailySummary, cfg *domain.EntityConfig) finding {
	streak := trailingBadDays(summaries, cfg.RollbackThreshold)
	if streak >= cfg.MaxConsecutiveBadDays {
		reason := fmt.Sprintf("%d consecutive days with ROI below %.2f (maximum %d)",
			streak, 1-cfg.RollbackThreshold, cfg.MaxConsecutiveBadDays)
		return finding{action: ActionRollback, warning: reason, blocked: reason}
	}
	return finding{action: ActionApply}
}

// checkInsufficientDeviation pulls an INSUFFICIENT-confidence multiplier back
// to neutral when it strays more than the deviation limit.
func checkInsufficientDeviation(m domain.BidMultiplier, current float64) finding {
	if m.Confidence != domain.ConfidenceInsufficient {
		return finding{action: ActionApply}
	}
	if math.Abs(current-domain.NeutralMultiplier) <= insufficientDeviationLimit {
		return finding{action: ActionApply}
	}

	adj := domain.NeutralMultiplier
	return finding{
		action: ActionReduce,
		warning: fmt.Sprintf("multiplier %.2f deviates from neutral with INSUFFICIENT confidence, reset to neutral",
			current),
		adjusted: &adj,
	}
}

// trailingBadDays counts degraded days from the most recent summary backward,
// stopping at the first day whose ROI is not below 1 - threshold.
func trailingBadDays(summaries []*domain.DailySummary, threshold float64) int {
	sorted := make([]*domain.DailySummary, len(summaries))
	copy(sorted, summaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })

	floor := 1 - threshold
	streak := 0
	for _, s := range sorted {
		// Zero-spend days carry no ROI signal and end the streak.
		if s.Spend == 0 || s.ROI() >= floor {
			break
		}
		streak++
	}
	return streak
}

// latestSummary returns the most recent daily summary, nil when none exist.
func latestSummary(summaries []*domain.DailySummary) *domain.DailySummary {
	var latest *domain.DailySummary
	for _, s := range summaries {
		if latest == nil || s.Date.After(latest.Date) {
			latest = s
		}
	}
	return latest
}

// feedbackForBucket selects records matching an (hour, weekday) bucket.
// A nil weekday matches only all-weekday records.
func feedbackForBucket(records []*domain.FeedbackRecord, hour int, weekday *int) []*domain.FeedbackRecord {
	var out []*domain.FeedbackRecord
	for _, r := range records {
		if r.Hour != hour {
			continue
		}
		if (r.Weekday == nil) != (weekday == nil) {
			continue
		}
		if weekday != nil && *r.Weekday != *weekday {
			continue
		}
		out = append(out, r)
	}
	return out
}
