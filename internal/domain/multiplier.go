package domain

import "time"

// BidMultiplier is one hour-of-day bid adjustment for an entity.
// Weekday nil means the multiplier applies on all weekdays.
// At most one active record exists per (entity, hour, weekday) key.
type BidMultiplier struct {
	ID       string
	EntityID string
	Hour     int
	Weekday  *int

	Multiplier     float64
	Confidence     ConfidenceLevel
	Classification Classification

	EffectiveFrom time.Time
	EffectiveTo   *time.Time // nil while the record is the current one
	Active        bool
}

// Key returns the (hour, weekday) identity used for supersede/diff matching.
func (m *BidMultiplier) Key() string {
	if m.Weekday == nil {
		return bucketKey(m.Hour, -1)
	}
	return bucketKey(m.Hour, *m.Weekday)
}

func bucketKey(hour, weekday int) string {
	// Fixed-width so lexical order matches (weekday, hour) order.
	const digits = "0123456789"
	b := []byte{'w', '0', 'h', '0', '0'}
	if weekday >= 0 {
		b[1] = digits[weekday%10]
	} else {
		b[1] = '*'
	}
	b[3] = digits[(hour/10)%10]
	b[4] = digits[hour%10]
	return string(b)
}

// IsNeutral reports whether the multiplier deviates from neutral by less
// than epsilon.
func (m *BidMultiplier) IsNeutral(epsilon float64) bool {
	d := m.Multiplier - NeutralMultiplier
	if d < 0 {
		d = -d
	}
	return d < epsilon
}
