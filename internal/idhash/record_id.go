// Package idhash derives deterministic record identifiers. Every ID is the
// SHA-256 of the record's pipe-joined key fields, base58-encoded (Bitcoin
// alphabet) for compact storage and log readability.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

func hashID(data string) string {
	sum := sha256.Sum256([]byte(data))
	return base58.Encode(sum[:])
}

// MultiplierID computes the ID for a bid multiplier record.
// Formula: SHA256(entity_id|hour|weekday|effective_from_unix_ms).
// Weekday nil (all weekdays) hashes as "*".
func MultiplierID(entityID string, hour int, weekday *int, effectiveFrom time.Time) string {
	wd := "*"
	if weekday != nil {
		wd = fmt.Sprintf("%d", *weekday)
	}
	return hashID(fmt.Sprintf("%s|%d|%s|%d", entityID, hour, wd, effectiveFrom.UnixMilli()))
}

// FeedbackID computes the ID for a feedback record.
// Formula: SHA256(entity_id|hour|weekday|applied_at_unix_ms).
func FeedbackID(entityID string, hour int, weekday *int, appliedAt time.Time) string {
	wd := "*"
	if weekday != nil {
		wd = fmt.Sprintf("%d", *weekday)
	}
	return hashID(fmt.Sprintf("fb|%s|%d|%s|%d", entityID, hour, wd, appliedAt.UnixMilli()))
}

// RollbackID computes the ID for a rollback record.
// Formula: SHA256(entity_id|rolled_back_at_unix_ms).
func RollbackID(entityID string, rolledBackAt time.Time) string {
	return hashID(fmt.Sprintf("rb|%s|%d", entityID, rolledBackAt.UnixMilli()))
}
