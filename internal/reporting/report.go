package reporting

import (
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/multiplier"
)

// Report is the analysis report for one entity: what the window data looks
// like, what the engine recommends, and how that compares to the active set.
type Report struct {
	// Metadata
	EntityID    string
	GeneratedAt time.Time
	Mode        domain.Mode
	WindowDays  int
	WindowFrom  time.Time
	WindowTo    time.Time

	// Data Summary
	DataSummary DataSummary

	// Bucket analysis (sorted by weekday-group, hour)
	Buckets []BucketRow

	// Proposed set vs the currently active set
	Proposed []ProposedRow
	Diff     multiplier.DiffResult
	Stats    multiplier.Stats

	// Feedback outcomes inside the window
	Feedback FeedbackSummary

	// Rollback audit trail, most recent first
	Rollbacks []RollbackRow
}

// DataSummary describes the sample window.
type DataSummary struct {
	Samples     int
	Impressions int64
	Clicks      int64
	Conversions int64
	Spend       float64
	Revenue     float64
	FirstDate   time.Time
	LastDate    time.Time
}

// BucketRow is one analyzed (hour[, weekday]) bucket.
type BucketRow struct {
	Key            string
	Samples        int
	ConvRateMean   float64
	ConvRelative   float64
	ConvPValue     float64
	ReturnMean     float64
	ReturnRelative float64
	ReturnPValue   float64
	Confidence     domain.ConfidenceLevel
	Classification domain.Classification
	Recommended    float64
}

// ProposedRow pairs a proposed multiplier with the currently active value
// for the same bucket key. Current is nil when the key has no active record.
type ProposedRow struct {
	Key            string
	Proposed       float64
	Current        *float64
	Confidence     domain.ConfidenceLevel
	Classification domain.Classification
}

// FeedbackSummary aggregates feedback evaluation outcomes.
type FeedbackSummary struct {
	Total       int
	Evaluated   int
	SuccessRate float64 // over evaluated records only
	Rows        []FeedbackRow
}

// FeedbackRow is one evaluated feedback record.
type FeedbackRow struct {
	Key         string
	Applied     float64
	AppliedAt   time.Time
	EvaluatedAt time.Time
	Score       float64
	Success     bool
}

// RollbackRow is one rollback event.
type RollbackRow struct {
	RolledBackAt time.Time
	Reason       string
	Snapshot     int // multipliers captured
	Restored     bool
}
