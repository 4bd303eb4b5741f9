package entity

import "github.com/google/uuid"

// OverrideFilter is a domain-level filter for querying date overrides.
// Used by repository layer to avoid coupling with delivery DTOs.
type OverrideFilter struct {
	DoctorID     uuid.UUID // required
	DispensaryID uuid.UUID // optional, uuid.Nil means any
	From         string    // Format: YYYY-MM-DD
	To           string    // Format: YYYY-MM-DD
}

// SessionFilter selects the bookings of one session.
type SessionFilter struct {
	DoctorID       uuid.UUID
	DispensaryID   uuid.UUID
	Date           string // Format: YYYY-MM-DD
	IncludeCancels bool
}

// AuditLogFilter narrows the audit trail. Page is 1-based.
type AuditLogFilter struct {
	Action string
	UserID *uuid.UUID
	Page   int
	Limit  int
}
