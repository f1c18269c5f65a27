package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/analyzer"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/feedback"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/multiplier"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// Generator produces entity reports from stored data. The proposed set is a
// fresh calculation over the window; nothing is persisted.
type Generator struct {
	configStore     storage.ConfigStore
	multiplierStore storage.MultiplierStore
	feedbackStore   storage.FeedbackStore
	rollbackStore   storage.RollbackStore
	sampleStore     storage.SampleStore

	analyzer  *analyzer.Analyzer
	byWeekday bool
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator with default analysis thresholds.
func NewGenerator(
	configStore storage.ConfigStore,
	multiplierStore storage.MultiplierStore,
	feedbackStore storage.FeedbackStore,
	rollbackStore storage.RollbackStore,
	sampleStore storage.SampleStore,
) *Generator {
	return &Generator{
		configStore:     configStore,
		multiplierStore: multiplierStore,
		feedbackStore:   feedbackStore,
		rollbackStore:   rollbackStore,
		sampleStore:     sampleStore,
		analyzer:        analyzer.New(analyzer.DefaultThresholds()),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithThresholds sets custom analysis thresholds.
func (g *Generator) WithThresholds(th analyzer.Thresholds) *Generator {
	g.analyzer = analyzer.New(th)
	return g
}

// WithWeekday additionally analyzes (hour, weekday) buckets.
func (g *Generator) WithWeekday(enabled bool) *Generator {
	g.byWeekday = enabled
	return g
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report for one entity.
func (g *Generator) Generate(ctx context.Context, entityID string) (*Report, error) {
	now := g.now()

	cfg, err := g.configStore.Get(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	windowFrom := now.AddDate(0, 0, -cfg.AnalysisWindowDays)
	samples, err := g.sampleStore.GetByEntityWindow(ctx, entityID, windowFrom, now)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}

	buckets := g.analyzer.Analyze(samples, cfg)
	if g.byWeekday {
		buckets = append(buckets, g.analyzer.AnalyzeByWeekday(samples, cfg)...)
	}

	proposed, stats := multiplier.Calculate(buckets, multiplier.OptionsFromConfig(cfg), now)

	active, err := g.multiplierStore.GetActive(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load active multipliers: %w", err)
	}
	current := make([]domain.BidMultiplier, len(active))
	for i, m := range active {
		current[i] = *m
	}

	records, err := g.feedbackStore.GetRecent(ctx, entityID, windowFrom)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}

	rollbacks, err := g.rollbackStore.GetByEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load rollbacks: %w", err)
	}

	return &Report{
		EntityID:    entityID,
		GeneratedAt: now,
		Mode:        cfg.Mode,
		WindowDays:  cfg.AnalysisWindowDays,
		WindowFrom:  windowFrom,
		WindowTo:    now,
		DataSummary: buildDataSummary(samples),
		Buckets:     buildBucketRows(buckets),
		Proposed:    buildProposedRows(proposed, current),
		Diff:        multiplier.Diff(current, proposed, 0),
		Stats:       stats,
		Feedback:    buildFeedbackSummary(records),
		Rollbacks:   buildRollbackRows(rollbacks),
	}, nil
}

func buildDataSummary(samples []*domain.PerformanceSample) DataSummary {
	var s DataSummary
	s.Samples = len(samples)
	for i, sample := range samples {
		s.Impressions += sample.Impressions
		s.Clicks += sample.Clicks
		s.Conversions += sample.Conversions
		s.Spend += sample.Spend
		s.Revenue += sample.Revenue

		if i == 0 || sample.Date.Before(s.FirstDate) {
			s.FirstDate = sample.Date
		}
		if i == 0 || sample.Date.After(s.LastDate) {
			s.LastDate = sample.Date
		}
	}
	return s
}

func buildBucketRows(buckets []domain.BucketResult) []BucketRow {
	rows := make([]BucketRow, len(buckets))
	for i := range buckets {
		b := &buckets[i]
		rows[i] = BucketRow{
			Key:            b.Key(),
			Samples:        b.ConversionRate.SampleSize,
			ConvRateMean:   b.ConversionRate.Mean,
			ConvRelative:   b.ConversionRate.Relative,
			ConvPValue:     b.ConversionRate.PValue,
			ReturnMean:     b.ReturnRatio.Mean,
			ReturnRelative: b.ReturnRatio.Relative,
			ReturnPValue:   b.ReturnRatio.PValue,
			Confidence:     b.Confidence,
			Classification: b.Classification,
			Recommended:    b.RecommendedMultiplier,
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

func buildProposedRows(proposed []domain.BidMultiplier, current []domain.BidMultiplier) []ProposedRow {
	currentByKey := make(map[string]float64, len(current))
	for i := range current {
		currentByKey[current[i].Key()] = current[i].Multiplier
	}

	rows := make([]ProposedRow, len(proposed))
	for i := range proposed {
		m := &proposed[i]
		row := ProposedRow{
			Key:            m.Key(),
			Proposed:       m.Multiplier,
			Confidence:     m.Confidence,
			Classification: m.Classification,
		}
		if v, ok := currentByKey[row.Key]; ok {
			row.Current = &v
		}
		rows[i] = row
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

func buildFeedbackSummary(records []*domain.FeedbackRecord) FeedbackSummary {
	summary := FeedbackSummary{Total: len(records)}
	rate, evaluated := feedback.SuccessRate(records)
	summary.Evaluated = evaluated
	summary.SuccessRate = rate

	for _, r := range records {
		if !r.Evaluated() {
			continue
		}
		key := domain.BidMultiplier{Hour: r.Hour, Weekday: r.Weekday}
		row := FeedbackRow{
			Key:         key.Key(),
			Applied:     r.AppliedMultiplier,
			AppliedAt:   r.AppliedAt,
			EvaluatedAt: *r.EvaluatedAt,
		}
		if r.SuccessScore != nil {
			row.Score = *r.SuccessScore
		}
		if r.Success != nil {
			row.Success = *r.Success
		}
		summary.Rows = append(summary.Rows, row)
	}

	sort.Slice(summary.Rows, func(i, j int) bool {
		if !summary.Rows[i].AppliedAt.Equal(summary.Rows[j].AppliedAt) {
			return summary.Rows[i].AppliedAt.Before(summary.Rows[j].AppliedAt)
		}
		return summary.Rows[i].Key < summary.Rows[j].Key
	})
	return summary
}

func buildRollbackRows(records []*domain.RollbackRecord) []RollbackRow {
	rows := make([]RollbackRow, len(records))
	for i, r := range records {
		rows[i] = RollbackRow{
			RolledBackAt: r.RolledBackAt,
			Reason:       r.Reason,
			Snapshot:     len(r.Snapshot),
			Restored:     r.RestoredAt != nil,
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].RolledBackAt.After(rows[j].RolledBackAt)
	})
	return rows
}
