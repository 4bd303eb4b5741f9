package handler

import (
	"errors"
	"net/http"

	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/service"
	"dispensary-queue/internal/usecase"
	"dispensary-queue/pkg/response"
)

// Clients are asked to back off this long after a transient store failure.
const transientRetryAfterSeconds = 1

// writeReservationError maps queue engine and booking errors to responses.
// It reports false when err is not one of them so the caller can fall back.
func writeReservationError(w http.ResponseWriter, err error) bool {
	if reason, ok := service.UnavailableReasonOf(err); ok {
		switch reason {
		case entity.ReasonNoConfig:
			response.Error(w, http.StatusNotFound, "No schedule available", reason)
		case entity.ReasonAbsent:
			response.Conflict(w, "Doctor unavailable this date", reason)
		case entity.ReasonCutoverPassed:
			response.Conflict(w, "Booking window has closed for this session", reason)
		default:
			response.Conflict(w, "Session unavailable", reason)
		}
		return true
	}

	switch {
	case errors.Is(err, service.ErrFullyBooked):
		response.Conflict(w, "Session is fully booked", entity.ReasonFullyBooked)
	case errors.Is(err, service.ErrCorrelationConflict), errors.Is(err, usecase.ErrIdempotencyKeyReused):
		response.Conflict(w, "Idempotency key was already used for a different booking", nil)
	case service.IsUnknownOutcome(err):
		response.Error(w, http.StatusGatewayTimeout,
			"Booking outcome unknown, retry with the same Idempotency-Key", nil)
	case service.IsTransient(err):
		response.ServiceUnavailable(w, "Booking service temporarily unavailable, please retry", transientRetryAfterSeconds)
	case errors.Is(err, usecase.ErrInvalidDate):
		response.Error(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD", nil)
	case errors.Is(err, usecase.ErrUserNotInContext):
		response.Unauthorized(w, "")
	default:
		return false
	}
	return true
}
