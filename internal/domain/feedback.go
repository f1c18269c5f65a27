package domain

import "time"

// BeforeAfterMetrics is the performance snapshot captured around a multiplier
// application. Ratio fields are nil when their denominator was zero.
type BeforeAfterMetrics struct {
	ConversionRate *float64
	ReturnRatio    *float64
	Spend          float64
	Revenue        float64
}

// FeedbackRecord tracks one applied multiplier instance. Created at apply
// time with the before snapshot; mutated exactly once at evaluation time,
// never deleted.
type FeedbackRecord struct {
	ID       string
	EntityID string
	Hour     int
	Weekday  *int

	AppliedMultiplier float64
	Before            BeforeAfterMetrics
	AppliedAt         time.Time

	// Set at evaluation time, all-or-nothing.
	EvaluatedAt  *time.Time
	After        *BeforeAfterMetrics
	Success      *bool
	SuccessScore *float64 // in [0, 1]
}

// Evaluated reports whether the record has received its one evaluation.
func (f *FeedbackRecord) Evaluated() bool {
	return f.EvaluatedAt != nil
}
