package service

import (
	"errors"
	"fmt"

	"dispensary-queue/internal/domain/entity"
)

var (
	// ErrFullyBooked is returned when the session has issued all of its appointment numbers.
	ErrFullyBooked = errors.New("session is fully booked")

	// ErrCorrelationConflict is returned when a correlation id was already spent on another session.
	ErrCorrelationConflict = errors.New("correlation id already used for a different session")
)

// AvailabilityError reports that no session can be booked for the requested key.
type AvailabilityError struct {
	Reason entity.UnavailableReason
}

func (e *AvailabilityError) Error() string {
	switch e.Reason {
	case entity.ReasonAbsent:
		return "doctor unavailable this date"
	case entity.ReasonNoConfig:
		return "no schedule available"
	case entity.ReasonCutoverPassed:
		return "booking window has closed"
	default:
		return fmt.Sprintf("session unavailable: %s", e.Reason)
	}
}

// TransientError wraps an infrastructure failure. Unknown is set when a mutating call timed
// out and may or may not have committed; callers must retry with the same correlation id.
type TransientError struct {
	Op      string
	Err     error
	Unknown bool
}

func (e *TransientError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("%s: outcome unknown: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// UnavailableReasonOf extracts the reason from an *AvailabilityError anywhere in err's chain.
func UnavailableReasonOf(err error) (entity.UnavailableReason, bool) {
	var availErr *AvailabilityError
	if errors.As(err, &availErr) {
		return availErr.Reason, true
	}
	return "", false
}

// IsUnknownOutcome reports whether err is a transient error with an unknown outcome.
func IsUnknownOutcome(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient) && transient.Unknown
}

// IsTransient reports whether err is a transient infrastructure error.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
