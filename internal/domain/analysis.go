package domain

// ConfidenceLevel is the qualitative reliability tier of a bucket analysis,
// derived jointly from sample size and statistical significance.
type ConfidenceLevel string

const (
	ConfidenceHigh         ConfidenceLevel = "HIGH"
	ConfidenceMedium       ConfidenceLevel = "MEDIUM"
	ConfidenceLow          ConfidenceLevel = "LOW"
	ConfidenceInsufficient ConfidenceLevel = "INSUFFICIENT"
)

// rank orders confidence levels from INSUFFICIENT (0) upward.
func (c ConfidenceLevel) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Worse returns the lower of the two confidence levels.
func (c ConfidenceLevel) Worse(other ConfidenceLevel) ConfidenceLevel {
	if other.rank() < c.rank() {
		return other
	}
	return c
}

// Classification is the qualitative performance tier of a bucket relative to
// the entity's overall baseline.
type Classification string

const (
	ClassPeak    Classification = "PEAK"
	ClassGood    Classification = "GOOD"
	ClassAverage Classification = "AVERAGE"
	ClassPoor    Classification = "POOR"
	ClassDead    Classification = "DEAD"
)

// NeutralMultiplier is the no-op bid adjustment.
const NeutralMultiplier = 1.0

// MetricStats holds per-metric sample statistics and significance for one bucket.
type MetricStats struct {
	SampleSize int
	Mean       float64
	Stddev     float64
	Relative   float64 // bucket mean / overall mean, 1 when overall mean is 0
	TStat      float64
	PValue     float64
}

// BucketResult is the analysis outcome for one (hour[, weekday]) bucket.
// Weekday is nil for hour-only analysis.
//
// Invariant: Confidence == INSUFFICIENT implies
// RecommendedMultiplier == NeutralMultiplier.
type BucketResult struct {
	EntityID string
	Hour     int
	Weekday  *int

	ConversionRate MetricStats
	ReturnRatio    MetricStats

	Confidence            ConfidenceLevel
	Classification        Classification
	RecommendedMultiplier float64
}

// Key returns the same (hour, weekday) identity BidMultiplier.Key uses.
func (r *BucketResult) Key() string {
	if r.Weekday == nil {
		return bucketKey(r.Hour, -1)
	}
	return bucketKey(r.Hour, *r.Weekday)
}
