package safety

import (
	"fmt"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/feedback"
)

// Anomaly is one detector's verdict. ShouldRollback marks anomalies severe
// enough that the caller should reset the entity to neutral.
type Anomaly struct {
	IsAnomalous    bool
	Message        string
	ShouldRollback bool
}

// recentRollbackWindow is how long after a rollback the health check keeps
// flagging the entity as recovering.
const recentRollbackWindow = 7 * 24 * time.Hour

// DetectLossExceeded flags an entity whose most recent day breached the
// configured loss ceiling.
func DetectLossExceeded(summaries []*domain.DailySummary, cfg *domain.EntityConfig) Anomaly {
	today := latestSummary(summaries)
	if today == nil {
		return Anomaly{}
	}

	loss := today.Loss()
	if loss <= cfg.MaxDailyLoss {
		return Anomaly{}
	}
	return Anomaly{
		IsAnomalous: true,
		Message: fmt.Sprintf("daily loss %.2f exceeds ceiling %.2f on %s",
			loss, cfg.MaxDailyLoss, today.Date.Format("2006-01-02")),
	}
}

// DetectPerformanceDrop flags an entity whose evaluated feedback success rate
// has fallen below 1 - RollbackThreshold.
func DetectPerformanceDrop(records []*domain.FeedbackRecord, cfg *domain.EntityConfig) Anomaly {
	rate, evaluated := feedback.SuccessRate(records)
	if evaluated < MinFeedbackDataPoints {
		return Anomaly{}
	}

	floor := 1 - cfg.RollbackThreshold
	if rate >= floor {
		return Anomaly{}
	}
	return Anomaly{
		IsAnomalous: true,
		Message: fmt.Sprintf("feedback success rate %.2f below floor %.2f over %d evaluations",
			rate, floor, evaluated),
	}
}

// DetectConsecutiveBadDays flags an entity with a trailing streak of
// degraded-ROI days at or above the configured maximum. This is the one
// detector severe enough to demand a rollback.
func DetectConsecutiveBadDays(summaries []*domain.DailySummary, cfg *domain.EntityConfig) Anomaly {
	streak := trailingBadDays(summaries, cfg.RollbackThreshold)
	if streak < cfg.MaxConsecutiveBadDays {
		return Anomaly{}
	}
	return Anomaly{
		IsAnomalous:    true,
		Message:        fmt.Sprintf("%d consecutive degraded days (maximum %d)", streak, cfg.MaxConsecutiveBadDays),
		ShouldRollback: true,
	}
}

// HealthStatus is the composite health verdict for an entity.
type HealthStatus struct {
	Healthy  bool
	Warnings []string
}

// CheckHealth aggregates the anomaly detectors, the recent success rate, and
// time since the last rollback into a single health verdict.
func CheckHealth(records []*domain.FeedbackRecord, summaries []*domain.DailySummary,
	lastRollback *time.Time, cfg *domain.EntityConfig, now time.Time) HealthStatus {

	status := HealthStatus{Healthy: true}

	detectors := []Anomaly{
		DetectLossExceeded(summaries, cfg),
		DetectPerformanceDrop(records, cfg),
		DetectConsecutiveBadDays(summaries, cfg),
	}
	for _, a := range detectors {
		if a.IsAnomalous {
			status.Healthy = false
			status.Warnings = append(status.Warnings, a.Message)
		}
	}

	if rate, evaluated := feedback.SuccessRate(records); evaluated >= MinFeedbackDataPoints && rate < 0.5 {
		status.Warnings = append(status.Warnings,
			fmt.Sprintf("success rate %.2f below 0.50 over %d evaluations", rate, evaluated))
	}

	if lastRollback != nil && now.Sub(*lastRollback) < recentRollbackWindow {
		status.Healthy = false
		status.Warnings = append(status.Warnings,
			fmt.Sprintf("rolled back %s ago, still in recovery window",
				now.Sub(*lastRollback).Round(time.Hour)))
	}

	return status
}
