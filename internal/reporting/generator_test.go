package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/analyzer"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage/memory"
)

type testStores struct {
	configs     *memory.ConfigStore
	multipliers *memory.MultiplierStore
	feedbacks   *memory.FeedbackStore
	rollbacks   *memory.RollbackStore
	samples     *memory.SampleStore
}

func newTestStores() *testStores {
	return &testStores{
		configs:     memory.NewConfigStore(),
		multipliers: memory.NewMultiplierStore(),
		feedbacks:   memory.NewFeedbackStore(),
		rollbacks:   memory.NewRollbackStore(),
		samples:     memory.NewSampleStore(),
	}
}

func newTestGenerator(s *testStores, now time.Time) *Generator {
	th := analyzer.DefaultThresholds()
	th.Confidence.Medium = analyzer.ConfidenceTier{MinSamples: 30, MaxPValue: 0.05}
	th.Confidence.Low = analyzer.ConfidenceTier{MinSamples: 20, MaxPValue: 0.10}

	return NewGenerator(s.configs, s.multipliers, s.feedbacks, s.rollbacks, s.samples).
		WithThresholds(th).
		WithClock(func() time.Time { return now })
}

var reportTime = time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC)

// seedSamples loads 40 strong hour-20 samples against 160 hour-10 baseline
// samples.
func seedSamples(t *testing.T, s *testStores) {
	t.Helper()
	mk := func(day, hour, weekday int, conversions int64, revenue float64) *domain.PerformanceSample {
		date := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, day)
		return domain.NewPerformanceSample("camp-1", date, hour, weekday,
			10000, 100, conversions, 100, revenue)
	}
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			require.NoError(t, s.samples.Add(mk(i%28, 20, i%7, 6, 250)))
		} else {
			require.NoError(t, s.samples.Add(mk(i%28, 20, i%7, 10, 350)))
		}
	}
	for i := 0; i < 160; i++ {
		if i%2 == 0 {
			require.NoError(t, s.samples.Add(mk(i%28, 10, i%7, 3, 150)))
		} else {
			require.NoError(t, s.samples.Add(mk(i%28, 10, i%7, 5, 250)))
		}
	}
}

func TestGenerate_FullReport(t *testing.T) {
	stores := newTestStores()
	seedSamples(t, stores)
	ctx := context.Background()

	cfg := domain.DefaultConfig("camp-1")
	require.NoError(t, stores.configs.Upsert(ctx, cfg))

	// One active record for hour 20 so the proposed set produces a change.
	appliedAt := reportTime.Add(-24 * time.Hour)
	require.NoError(t, stores.multipliers.ReplaceActive(ctx, "camp-1", []*domain.BidMultiplier{
		{
			ID:            "m-20",
			EntityID:      "camp-1",
			Hour:          20,
			Multiplier:    1.0,
			Confidence:    domain.ConfidenceLow,
			EffectiveFrom: appliedAt,
			Active:        true,
		},
	}, appliedAt))

	// One evaluated and one pending feedback record.
	evaluatedAt := reportTime.Add(-2 * time.Hour)
	score := 0.7
	success := true
	require.NoError(t, stores.feedbacks.Insert(ctx, &domain.FeedbackRecord{
		ID:                "f-1",
		EntityID:          "camp-1",
		Hour:              20,
		AppliedMultiplier: 1.05,
		AppliedAt:         appliedAt,
	}))
	require.NoError(t, stores.feedbacks.MarkEvaluated(ctx, &domain.FeedbackRecord{
		ID:                "f-1",
		EntityID:          "camp-1",
		Hour:              20,
		AppliedMultiplier: 1.05,
		AppliedAt:         appliedAt,
		EvaluatedAt:       &evaluatedAt,
		After:             &domain.BeforeAfterMetrics{},
		SuccessScore:      &score,
		Success:           &success,
	}))
	require.NoError(t, stores.feedbacks.Insert(ctx, &domain.FeedbackRecord{
		ID:                "f-2",
		EntityID:          "camp-1",
		Hour:              10,
		AppliedMultiplier: 0.95,
		AppliedAt:         reportTime.Add(-1 * time.Hour),
	}))

	require.NoError(t, stores.rollbacks.Insert(ctx, &domain.RollbackRecord{
		ID:           "rb-1",
		EntityID:     "camp-1",
		Reason:       "3 consecutive days with ROI below 0.70 (maximum 3)",
		Snapshot:     []domain.BidMultiplier{{EntityID: "camp-1", Hour: 20, Multiplier: 1.05}},
		RolledBackAt: reportTime.Add(-48 * time.Hour),
	}))

	report, err := newTestGenerator(stores, reportTime).Generate(ctx, "camp-1")
	require.NoError(t, err)

	assert.Equal(t, "camp-1", report.EntityID)
	assert.Equal(t, reportTime, report.GeneratedAt)
	assert.Equal(t, domain.ModeShadow, report.Mode)
	assert.Equal(t, cfg.AnalysisWindowDays, report.WindowDays)

	assert.Equal(t, 200, report.DataSummary.Samples)
	assert.Equal(t, int64(200*10000), report.DataSummary.Impressions)
	assert.Equal(t, int64(200*100), report.DataSummary.Clicks)

	require.Len(t, report.Buckets, 24)
	var hour20 *BucketRow
	for i := range report.Buckets {
		if report.Buckets[i].Key == "w*h20" {
			hour20 = &report.Buckets[i]
		}
	}
	require.NotNil(t, hour20)
	assert.Equal(t, 40, hour20.Samples)
	assert.Equal(t, domain.ClassPeak, hour20.Classification)
	assert.InDelta(t, 0.08, hour20.ConvRateMean, 1e-9)

	// Hour 20 proposes above neutral against the active 1.0 record.
	require.Len(t, report.Proposed, 24)
	var proposed20 *ProposedRow
	for i := range report.Proposed {
		if report.Proposed[i].Key == "w*h20" {
			proposed20 = &report.Proposed[i]
		}
	}
	require.NotNil(t, proposed20)
	require.NotNil(t, proposed20.Current)
	assert.Equal(t, 1.0, *proposed20.Current)
	assert.Greater(t, proposed20.Proposed, 1.0)

	// The diff sees 23 added keys and one changed key.
	assert.Len(t, report.Diff.Added, 23)
	require.Len(t, report.Diff.Changed, 1)
	assert.Equal(t, "w*h20", report.Diff.Changed[0].Key)
	assert.Empty(t, report.Diff.Removed)

	assert.Equal(t, 2, report.Feedback.Total)
	assert.Equal(t, 1, report.Feedback.Evaluated)
	assert.Equal(t, 1.0, report.Feedback.SuccessRate)
	require.Len(t, report.Feedback.Rows, 1)
	assert.Equal(t, "w*h20", report.Feedback.Rows[0].Key)
	assert.InDelta(t, 0.7, report.Feedback.Rows[0].Score, 1e-9)

	require.Len(t, report.Rollbacks, 1)
	assert.Equal(t, 1, report.Rollbacks[0].Snapshot)
	assert.False(t, report.Rollbacks[0].Restored)
}

func TestGenerate_UnknownEntity(t *testing.T) {
	stores := newTestStores()

	_, err := newTestGenerator(stores, reportTime).Generate(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGenerate_EmptyWindow(t *testing.T) {
	stores := newTestStores()
	ctx := context.Background()
	require.NoError(t, stores.configs.Upsert(ctx, domain.DefaultConfig("camp-1")))

	report, err := newTestGenerator(stores, reportTime).Generate(ctx, "camp-1")
	require.NoError(t, err)

	assert.Equal(t, 0, report.DataSummary.Samples)
	require.Len(t, report.Buckets, 24)
	for _, b := range report.Buckets {
		assert.Equal(t, domain.ConfidenceInsufficient, b.Confidence)
		assert.Equal(t, domain.NeutralMultiplier, b.Recommended)
	}
	assert.Empty(t, report.Feedback.Rows)
	assert.Empty(t, report.Rollbacks)
}

func TestRenderMarkdown_Sections(t *testing.T) {
	stores := newTestStores()
	seedSamples(t, stores)
	ctx := context.Background()
	require.NoError(t, stores.configs.Upsert(ctx, domain.DefaultConfig("camp-1")))

	report, err := newTestGenerator(stores, reportTime).Generate(ctx, "camp-1")
	require.NoError(t, err)

	md := RenderMarkdown(report)
	assert.Contains(t, md, "# Hourly Bid Analysis: camp-1")
	assert.Contains(t, md, "## Data Summary")
	assert.Contains(t, md, "## Bucket Analysis")
	assert.Contains(t, md, "## Proposed Multipliers")
	assert.Contains(t, md, "## Changes vs Active Set")
	assert.Contains(t, md, "## Feedback")
	assert.Contains(t, md, "## Rollbacks")
	assert.Contains(t, md, "| w*h20 |")
	assert.Contains(t, md, "No rollbacks on record.")

	// Deterministic with an injected clock.
	again, err := newTestGenerator(stores, reportTime).Generate(ctx, "camp-1")
	require.NoError(t, err)
	assert.Equal(t, md, RenderMarkdown(again))
}

func TestRenderCSV(t *testing.T) {
	stores := newTestStores()
	seedSamples(t, stores)
	ctx := context.Background()
	require.NoError(t, stores.configs.Upsert(ctx, domain.DefaultConfig("camp-1")))

	report, err := newTestGenerator(stores, reportTime).Generate(ctx, "camp-1")
	require.NoError(t, err)

	csv := RenderCSV(report.Buckets)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 25) // header + 24 buckets
	assert.Equal(t,
		"bucket,samples,conv_rate_mean,conv_relative,conv_p_value,"+
			"return_mean,return_relative,return_p_value,"+
			"confidence,classification,recommended",
		lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "w*h00,"))
}
