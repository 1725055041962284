package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one field change on a booking, written in the same
// transaction as the change itself. Used for compliance trace, not business
// logic.
type AuditEntry struct {
	ID        int64
	BookingID uuid.UUID
	Field     string
	OldValue  string
	NewValue  string
	Actor     string
	CreatedAt time.Time
}
