package safety

import (
	"time"

	"github.com/mbicorp/amazonbid-engine-sub000/internal/domain"
	"github.com/mbicorp/amazonbid-engine-sub000/internal/idhash"
)

// CreateRollbackInfo snapshots the active multipliers for an entity into an
// append-only rollback record. The snapshot is a deep copy; later mutation of
// the inputs cannot alter the audit trail.
func CreateRollbackInfo(entityID string, active []domain.BidMultiplier, reason string, now time.Time) domain.RollbackRecord {
	snapshot := make([]domain.BidMultiplier, len(active))
	copy(snapshot, active)

	return domain.RollbackRecord{
		ID:           idhash.RollbackID(entityID, now),
		EntityID:     entityID,
		Reason:       reason,
		Snapshot:     snapshot,
		RolledBackAt: now,
	}
}

// ExecuteRollback resets every active multiplier to neutral and returns the
// new neutral set together with the rollback record holding the pre-rollback
// snapshot unchanged. The caller persists both: the prior records must be
// marked inactive (effective-to = now) and the returned set inserted.
func ExecuteRollback(entityID string, active []domain.BidMultiplier, reason string, now time.Time) ([]domain.BidMultiplier, domain.RollbackRecord) {
	record := CreateRollbackInfo(entityID, active, reason, now)

	neutral := make([]domain.BidMultiplier, len(active))
	for i, m := range active {
		n := m
		n.ID = idhash.MultiplierID(m.EntityID, m.Hour, m.Weekday, now)
		n.Multiplier = domain.NeutralMultiplier
		n.EffectiveFrom = now
		n.EffectiveTo = nil
		n.Active = true
		neutral[i] = n
	}

	return neutral, record
}

// RestoreFromRollback reactivates a rollback record's snapshot unchanged:
// the prior multiplier values come back with a fresh effective window. The
// returned record copy carries RestoredAt for the audit trail.
func RestoreFromRollback(record domain.RollbackRecord, now time.Time) ([]domain.BidMultiplier, domain.RollbackRecord) {
	restored := make([]domain.BidMultiplier, len(record.Snapshot))
	for i, m := range record.Snapshot {
		r := m
		r.EffectiveFrom = now
		r.EffectiveTo = nil
		r.Active = true
		restored[i] = r
	}

	updated := record
	updated.RestoredAt = &now

	return restored, updated
}

// ApplyGradualChange limits the magnitude of one step from current toward
// target to maxStep, letting large swings converge over multiple analysis
// cycles instead of jumping immediately. maxStep <= 0 falls back to 0.05.
func ApplyGradualChange(current, target, maxStep float64) float64 {
	if maxStep <= 0 {
		maxStep = 0.05
	}

	delta := target - current
	if delta > maxStep {
		return current + maxStep
	}
	if delta < -maxStep {
		return current - maxStep
	}
	return target
}
