// Package orchestrator runs one full analysis pass for an entity:
// load → analyze → calculate → safety-check → persist → feedback.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/analyzer"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/feedback"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/idhash"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/multiplier"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/observability"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/safety"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/storage"
)

// Publisher receives the run result of every completed pass.
// *stream.Hub satisfies it.
type Publisher interface {
	Broadcast(v any)
}

// Runner coordinates one entity analysis pass end to end.
type Runner struct {
	configs     storage.ConfigStore
	multipliers storage.MultiplierStore
	feedbacks   storage.FeedbackStore
	rollbacks   storage.RollbackStore
	samples     storage.SampleStore
	summaries   storage.DailySummaryStore

	analyzer        *analyzer.Analyzer
	byWeekday       bool
	evaluationDelay time.Duration

	logger  *log.Logger
	metrics *observability.Metrics
	hub     Publisher
	now     func() time.Time
}

// Options for creating a Runner.
type Options struct {
	// Required stores
	ConfigStore       storage.ConfigStore
	MultiplierStore   storage.MultiplierStore
	FeedbackStore     storage.FeedbackStore
	RollbackStore     storage.RollbackStore
	SampleStore       storage.SampleStore
	DailySummaryStore storage.DailySummaryStore

	// Thresholds defaults to analyzer.DefaultThresholds when zero.
	Thresholds analyzer.Thresholds

	// ByWeekday additionally analyzes 24x7 (hour, weekday) buckets.
	ByWeekday bool

	// EvaluationDelay defaults to feedback.DefaultEvaluationDelay when zero.
	EvaluationDelay time.Duration

	Logger  *log.Logger            // nil disables run logging
	Metrics *observability.Metrics // nil disables metrics
	Hub     Publisher              // nil disables result broadcasting
	Now     func() time.Time       // nil uses time.Now
}

// New creates a new Runner.
func New(opts Options) *Runner {
	thresholds := opts.Thresholds
	if thresholds == (analyzer.Thresholds{}) {
		thresholds = analyzer.DefaultThresholds()
	}
	delay := opts.EvaluationDelay
	if delay <= 0 {
		delay = feedback.DefaultEvaluationDelay
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		configs:         opts.ConfigStore,
		multipliers:     opts.MultiplierStore,
		feedbacks:       opts.FeedbackStore,
		rollbacks:       opts.RollbackStore,
		samples:         opts.SampleStore,
		summaries:       opts.DailySummaryStore,
		analyzer:        analyzer.New(thresholds),
		byWeekday:       opts.ByWeekday,
		evaluationDelay: delay,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		hub:             opts.Hub,
		now:             now,
	}
}

// RunResult summarizes one entity pass. Broadcast to stream observers.
type RunResult struct {
	EntityID string      `json:"entity_id"`
	Mode     domain.Mode `json:"mode"`
	RunAt    time.Time   `json:"run_at"`

	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`

	RolledBack     bool   `json:"rolled_back"`
	RollbackReason string `json:"rollback_reason,omitempty"`

	SamplesLoaded     int `json:"samples_loaded"`
	BucketsAnalyzed   int `json:"buckets_analyzed"`
	Calculated        int `json:"calculated"`
	Persisted         int `json:"persisted"`
	Reduced           int `json:"reduced"`
	ChangesDropped    int `json:"changes_dropped"`
	FeedbackSeeded    int `json:"feedback_seeded"`
	FeedbackEvaluated int `json:"feedback_evaluated"`

	Warnings []string `json:"warnings,omitempty"`
}

const runOutcome = "ok"

// RunEntity executes one full pass for an entity. The only fatal errors are
// store failures and an invalid configuration; data-quality conditions
// surface as warnings on the result.
func (r *Runner) RunEntity(ctx context.Context, entityID string) (*RunResult, error) {
	started := r.now()
	result := &RunResult{EntityID: entityID, RunAt: started}

	cfg, err := r.loadOrCreateConfig(ctx, entityID)
	if err != nil {
		return nil, err
	}
	result.Mode = cfg.Mode

	if validation := cfg.Validate(); !validation.Valid {
		return nil, fmt.Errorf("config for %s invalid: %s", entityID, strings.Join(validation.Errors, "; "))
	}

	if cfg.Mode == domain.ModeOff || !cfg.Enabled {
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("mode=%s enabled=%v", cfg.Mode, cfg.Enabled)
		r.finish(result, started)
		return result, nil
	}

	now := r.now()
	windowFrom := now.AddDate(0, 0, -cfg.AnalysisWindowDays)

	samples, err := r.samples.GetByEntityWindow(ctx, entityID, windowFrom, now)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	result.SamplesLoaded = len(samples)

	summaries, err := r.summaries.GetRecent(ctx, entityID, cfg.AnalysisWindowDays)
	if err != nil {
		return nil, fmt.Errorf("load daily summaries: %w", err)
	}

	recentFeedback, err := r.feedbacks.GetRecent(ctx, entityID, windowFrom)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}

	buckets := r.analyzer.Analyze(samples, cfg)
	if r.byWeekday {
		buckets = append(buckets, r.analyzer.AnalyzeByWeekday(samples, cfg)...)
	}
	result.BucketsAnalyzed = len(buckets)
	if r.metrics != nil {
		r.metrics.BucketsAnalyzed.Add(float64(len(buckets)))
	}

	candidates, _ := multiplier.Calculate(buckets, multiplier.OptionsFromConfig(cfg), now)
	result.Calculated = len(candidates)

	active, err := r.multipliers.GetActive(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load active multipliers: %w", err)
	}
	currentByKey := make(map[string]*domain.BidMultiplier, len(active))
	for _, m := range active {
		currentByKey[m.Key()] = m
	}

	checks := safety.PerformSafetyChecks(candidates, cfg, recentFeedback, summaries)

	// A single ROLLBACK verdict resets the whole active set.
	for i, check := range checks {
		r.recordSafetyAction(check.RecommendedAction)
		result.Warnings = append(result.Warnings, check.Warnings...)

		if check.RecommendedAction == safety.ActionRollback {
			if err := r.executeRollback(ctx, entityID, active, check.BlockReason, now, result); err != nil {
				return nil, err
			}
			r.logf("entity %s: rollback after check on %s: %s",
				entityID, candidates[i].Key(), check.BlockReason)
			r.finish(result, started)
			return result, nil
		}
	}

	next := r.applyVerdicts(entityID, candidates, checks, currentByKey, cfg, now, result)

	if err := r.multipliers.ReplaceActive(ctx, entityID, next, now); err != nil {
		return nil, fmt.Errorf("persist multipliers: %w", err)
	}
	result.Persisted = len(next)
	if r.metrics != nil {
		r.metrics.SetActiveMultipliers(entityID, len(next))
		r.metrics.MultipliersWritten.WithLabelValues(string(cfg.Mode)).Add(float64(len(next)))
	}

	// Feedback only tracks authorized applications, so SHADOW never seeds.
	if cfg.Mode == domain.ModeApply {
		seeded, err := r.seedFeedback(ctx, entityID, next, samples, now)
		if err != nil {
			return nil, err
		}
		result.FeedbackSeeded = seeded
	}

	evaluated, err := r.evaluateDueFeedback(ctx, entityID, samples, now)
	if err != nil {
		return nil, err
	}
	result.FeedbackEvaluated = evaluated

	r.logf("entity %s: mode=%s buckets=%d persisted=%d reduced=%d dropped=%d warnings=%d",
		entityID, cfg.Mode, result.BucketsAnalyzed, result.Persisted,
		result.Reduced, result.ChangesDropped, len(result.Warnings))

	r.finish(result, started)
	return result, nil
}

// loadOrCreateConfig returns the entity's config, creating the default on
// first use.
func (r *Runner) loadOrCreateConfig(ctx context.Context, entityID string) (*domain.EntityConfig, error) {
	cfg, err := r.configs.Get(ctx, entityID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg = domain.DefaultConfig(entityID)
	if err := r.configs.Upsert(ctx, cfg); err != nil {
		return nil, fmt.Errorf("create default config: %w", err)
	}
	r.logf("entity %s: created default config", entityID)
	return cfg, nil
}

// applyVerdicts folds the safety verdicts into the next active set:
// SKIP keeps the current record's value, REDUCE uses the adjusted value,
// and every change is capped by the gradual-change step.
func (r *Runner) applyVerdicts(entityID string, candidates []domain.BidMultiplier,
	checks []safety.CheckResult, currentByKey map[string]*domain.BidMultiplier,
	cfg *domain.EntityConfig, now time.Time, result *RunResult) []*domain.BidMultiplier {

	next := make([]*domain.BidMultiplier, 0, len(candidates))
	for i, candidate := range candidates {
		check := checks[i]

		currentValue := domain.NeutralMultiplier
		if current, ok := currentByKey[candidate.Key()]; ok {
			currentValue = current.Multiplier
		}

		m := candidate
		switch check.RecommendedAction {
		case safety.ActionSkip:
			// Drop the change: carry the current value forward.
			m.Multiplier = currentValue
			m.EffectiveFrom = now
			m.ID = idhash.MultiplierID(entityID, m.Hour, m.Weekday, now)
			result.ChangesDropped++
			next = append(next, &m)
			continue
		case safety.ActionReduce:
			if check.AdjustedMultiplier != nil {
				m.Multiplier = *check.AdjustedMultiplier
			}
			result.Reduced++
		}

		stepped := safety.ApplyGradualChange(currentValue, m.Multiplier, cfg.MaxStepDelta)
		m.Multiplier = math.Round(stepped*100) / 100
		next = append(next, &m)
	}
	return next
}

// executeRollback resets the active set to neutral and records the snapshot.
func (r *Runner) executeRollback(ctx context.Context, entityID string,
	active []*domain.BidMultiplier, reason string, now time.Time, result *RunResult) error {

	snapshot := make([]domain.BidMultiplier, len(active))
	for i, m := range active {
		snapshot[i] = *m
	}

	neutral, record := safety.ExecuteRollback(entityID, snapshot, reason, now)
	if err := r.rollbacks.Insert(ctx, &record); err != nil {
		return fmt.Errorf("persist rollback record: %w", err)
	}

	next := make([]*domain.BidMultiplier, len(neutral))
	for i := range neutral {
		next[i] = &neutral[i]
	}
	if err := r.multipliers.ReplaceActive(ctx, entityID, next, now); err != nil {
		return fmt.Errorf("persist neutral multipliers: %w", err)
	}

	result.RolledBack = true
	result.RollbackReason = reason
	result.Persisted = len(next)
	if r.metrics != nil {
		r.metrics.RollbacksTotal.Inc()
		r.metrics.SetActiveMultipliers(entityID, len(next))
	}
	return nil
}

// seedFeedback creates one feedback record per non-neutral applied
// multiplier, captured with the bucket's before metrics.
func (r *Runner) seedFeedback(ctx context.Context, entityID string,
	applied []*domain.BidMultiplier, samples []*domain.PerformanceSample, now time.Time) (int, error) {

	var records []*domain.FeedbackRecord
	for _, m := range applied {
		if m.IsNeutral(1e-9) {
			continue
		}
		records = append(records, &domain.FeedbackRecord{
			ID:                idhash.FeedbackID(entityID, m.Hour, m.Weekday, now),
			EntityID:          entityID,
			Hour:              m.Hour,
			Weekday:           m.Weekday,
			AppliedMultiplier: m.Multiplier,
			AppliedAt:         now,
			Before:            bucketMetrics(samples, m.Hour, m.Weekday, time.Time{}),
		})
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := r.feedbacks.InsertBatch(ctx, records); err != nil {
		// Re-running within the same timestamp grain re-derives the same IDs.
		if errors.Is(err, storage.ErrDuplicateKey) {
			return 0, nil
		}
		return 0, fmt.Errorf("seed feedback: %w", err)
	}
	if r.metrics != nil {
		r.metrics.FeedbackSeeded.Add(float64(len(records)))
	}
	return len(records), nil
}

// evaluateDueFeedback evaluates records that aged past the delay, using the
// bucket's post-application samples as the after metrics.
func (r *Runner) evaluateDueFeedback(ctx context.Context, entityID string,
	samples []*domain.PerformanceSample, now time.Time) (int, error) {

	pending, err := r.feedbacks.GetPending(ctx, entityID, now.Add(-r.evaluationDelay))
	if err != nil {
		return 0, fmt.Errorf("load pending feedback: %w", err)
	}

	evaluated := 0
	for _, record := range pending {
		if !feedback.Due(record, r.evaluationDelay, now) {
			continue
		}

		after := bucketMetrics(samples, record.Hour, record.Weekday, record.AppliedAt)
		updated, err := feedback.Evaluate(record, after, now)
		if err != nil {
			// Raced with another evaluator; the record is already final.
			if errors.Is(err, feedback.ErrAlreadyEvaluated) {
				continue
			}
			return evaluated, fmt.Errorf("evaluate feedback %s: %w", record.ID, err)
		}

		if err := r.feedbacks.MarkEvaluated(ctx, updated); err != nil {
			if errors.Is(err, storage.ErrAlreadyEvaluated) {
				continue
			}
			return evaluated, fmt.Errorf("persist feedback evaluation: %w", err)
		}
		evaluated++
		if r.metrics != nil && updated.Success != nil {
			r.metrics.RecordFeedbackEvaluated(*updated.Success)
		}
	}
	return evaluated, nil
}

// bucketMetrics aggregates the (hour, weekday) bucket's samples dated after
// the cutoff into before/after metrics. Ratio fields stay nil when the
// denominator never materialized.
func bucketMetrics(samples []*domain.PerformanceSample, hour int, weekday *int, after time.Time) domain.BeforeAfterMetrics {
	var clicks, conversions int64
	var spend, revenue float64

	for _, s := range samples {
		if s.Hour != hour {
			continue
		}
		if weekday != nil && s.Weekday != *weekday {
			continue
		}
		if !after.IsZero() && !s.Date.After(after) {
			continue
		}
		clicks += s.Clicks
		conversions += s.Conversions
		spend += s.Spend
		revenue += s.Revenue
	}

	m := domain.BeforeAfterMetrics{Spend: spend, Revenue: revenue}
	if clicks > 0 {
		v := float64(conversions) / float64(clicks)
		m.ConversionRate = &v
	}
	if spend > 0 {
		v := revenue / spend
		m.ReturnRatio = &v
	}
	return m
}

func (r *Runner) recordSafetyAction(action safety.Action) {
	if r.metrics != nil {
		r.metrics.RecordSafetyAction(string(action))
	}
}

func (r *Runner) finish(result *RunResult, started time.Time) {
	if r.metrics != nil {
		r.metrics.RecordRun(string(result.Mode), runOutcome, r.now().Sub(started).Seconds())
		r.metrics.LastSuccessfulRun.Set(float64(r.now().Unix()))
	}
	if r.hub != nil {
		r.hub.Broadcast(result)
		if r.metrics != nil {
			r.metrics.StreamMessages.Inc()
		}
	}
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
