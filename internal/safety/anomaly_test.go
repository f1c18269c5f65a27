package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
)

func TestDetectLossExceeded(t *testing.T) {
	cfg := safetyConfig()

	a := DetectLossExceeded([]*domain.DailySummary{summary(0, 200000, 150000)}, cfg)
	assert.True(t, a.IsAnomalous)
	assert.False(t, a.ShouldRollback)
	assert.NotEmpty(t, a.Message)

	a = DetectLossExceeded([]*domain.DailySummary{summary(0, 100000, 90000)}, cfg)
	assert.False(t, a.IsAnomalous)

	a = DetectLossExceeded(nil, cfg)
	assert.False(t, a.IsAnomalous)
}

func TestDetectLossExceeded_UsesLatestDay(t *testing.T) {
	cfg := safetyConfig()
	summaries := []*domain.DailySummary{
		summary(2, 200000, 100000), // old breach
		summary(0, 50000, 60000),   // today is fine
	}
	assert.False(t, DetectLossExceeded(summaries, cfg).IsAnomalous)
}

func TestDetectPerformanceDrop(t *testing.T) {
	cfg := safetyConfig()

	var bad []*domain.FeedbackRecord
	for i := 0; i < 6; i++ {
		bad = append(bad, evaluatedFeedback(20, false))
	}
	a := DetectPerformanceDrop(bad, cfg)
	assert.True(t, a.IsAnomalous)
	assert.False(t, a.ShouldRollback)

	// Too few evaluations: stays quiet.
	a = DetectPerformanceDrop(bad[:3], cfg)
	assert.False(t, a.IsAnomalous)

	var good []*domain.FeedbackRecord
	for i := 0; i < 6; i++ {
		good = append(good, evaluatedFeedback(20, true))
	}
	assert.False(t, DetectPerformanceDrop(good, cfg).IsAnomalous)
}

func TestDetectConsecutiveBadDays(t *testing.T) {
	cfg := safetyConfig()
	summaries := []*domain.DailySummary{
		summary(0, 10000, 5000),
		summary(1, 10000, 5000),
		summary(2, 10000, 5000),
	}

	a := DetectConsecutiveBadDays(summaries, cfg)
	assert.True(t, a.IsAnomalous)
	assert.True(t, a.ShouldRollback)

	assert.False(t, DetectConsecutiveBadDays(summaries[:2], cfg).IsAnomalous)
}

func TestCheckHealth(t *testing.T) {
	cfg := safetyConfig()

	healthy := CheckHealth(nil, []*domain.DailySummary{summary(0, 50000, 60000)}, nil, cfg, checkTime)
	assert.True(t, healthy.Healthy)
	assert.Empty(t, healthy.Warnings)

	// Breached loss ceiling turns the entity unhealthy.
	lossy := CheckHealth(nil, []*domain.DailySummary{summary(0, 200000, 150000)}, nil, cfg, checkTime)
	assert.False(t, lossy.Healthy)
	assert.NotEmpty(t, lossy.Warnings)
}

func TestCheckHealth_RecentRollback(t *testing.T) {
	cfg := safetyConfig()

	recent := checkTime.Add(-24 * time.Hour)
	status := CheckHealth(nil, nil, &recent, cfg, checkTime)
	assert.False(t, status.Healthy)

	old := checkTime.Add(-30 * 24 * time.Hour)
	status = CheckHealth(nil, nil, &old, cfg, checkTime)
	assert.True(t, status.Healthy)
}
