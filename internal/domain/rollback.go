package domain

import "time"

// RollbackRecord is the append-only audit entry written when all active
// multipliers for an entity are reset to neutral. Snapshot preserves the
// pre-rollback multipliers unchanged for later manual restore.
type RollbackRecord struct {
	ID       string
	EntityID string
	Reason   string

	Snapshot []BidMultiplier

	RolledBackAt time.Time
	RestoredAt   *time.Time // set when the snapshot was restored
}
