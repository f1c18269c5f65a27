package safety

import "github.com/mbicorp/amazonbid-engine-sub000/internal/domain"

// DailyEffect estimates how much of a day's spend and sales is attributable
// to the multiplier change, by comparing the observed day to an expected
// (pre-change) sales level.
type DailyEffect struct {
	IncrementalSales float64
	IncrementalSpend float64
	NetEffect        float64 // incremental sales minus attributed spend
}

// CalculateDailySummaryEffect attributes spend to incremental sales via the
// ratio of incremental to actual sales. A day with zero actual sales
// contributes a zero effect rather than being skipped, so the day stays
// visible to streak-based detectors.
func CalculateDailySummaryEffect(actual *domain.DailySummary, expectedSales float64) DailyEffect {
	if actual == nil || actual.Sales == 0 {
		return DailyEffect{}
	}

	incrementalSales := actual.Sales - expectedSales
	ratio := incrementalSales / actual.Sales
	incrementalSpend := actual.Spend * ratio

	return DailyEffect{
		IncrementalSales: incrementalSales,
		IncrementalSpend: incrementalSpend,
		NetEffect:        incrementalSales - incrementalSpend,
	}
}
