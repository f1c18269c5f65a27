package domain

import "time"

// PerformanceSample is one observation for an (entity, hour, weekday) bucket
// over a single reporting day. Produced by the metrics warehouse; read-only.
type PerformanceSample struct {
	EntityID string
	Date     time.Time // reporting day (UTC midnight)
	Hour     int       // 0-23
	Weekday  int       // 0-6, Sunday = 0

	Impressions int64
	Clicks      int64
	Conversions int64
	Spend       float64
	Revenue     float64

	// Derived ratios. Nil when the denominator is zero.
	CTR            *float64 // clicks / impressions
	ConversionRate *float64 // conversions / clicks
	CostOfSale     *float64 // spend / revenue
	ReturnRatio    *float64 // revenue / spend
}

// NewPerformanceSample builds a sample and fills the derived ratios.
func NewPerformanceSample(entityID string, date time.Time, hour, weekday int,
	impressions, clicks, conversions int64, spend, revenue float64) *PerformanceSample {

	s := &PerformanceSample{
		EntityID:    entityID,
		Date:        date,
		Hour:        hour,
		Weekday:     weekday,
		Impressions: impressions,
		Clicks:      clicks,
		Conversions: conversions,
		Spend:       spend,
		Revenue:     revenue,
	}

	if impressions > 0 {
		v := float64(clicks) / float64(impressions)
		s.CTR = &v
	}
	if clicks > 0 {
		v := float64(conversions) / float64(clicks)
		s.ConversionRate = &v
	}
	if revenue > 0 {
		v := spend / revenue
		s.CostOfSale = &v
	}
	if spend > 0 {
		v := revenue / spend
		s.ReturnRatio = &v
	}
	return s
}

// DailySummary is one day of entity-level spend/revenue totals from the
// warehouse. Used by the safety controller for loss and ROI checks.
type DailySummary struct {
	EntityID    string
	Date        time.Time
	Spend       float64
	Sales       float64 // attributed revenue
	Conversions int64
}

// Loss returns realized loss for the day (negative when profitable).
func (d *DailySummary) Loss() float64 {
	return d.Spend - d.Sales
}

// ROI returns sales per unit spend. Zero-spend days report ROI 0.
func (d *DailySummary) ROI() float64 {
	if d.Spend == 0 {
		return 0
	}
	return d.Sales / d.Spend
}
