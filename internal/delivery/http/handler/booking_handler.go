package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"dispensary-queue/internal/delivery/dto"
	"dispensary-queue/internal/usecase"
	"dispensary-queue/pkg/response"
	"dispensary-queue/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// IdempotencyKeyHeader carries the client's retry key; it takes precedence over correlation_id in the body.
const IdempotencyKeyHeader = "Idempotency-Key"

type BookingHandler struct {
	bookingUsecase usecase.BookingUsecase
	validator      *validator.CustomValidator
}

func NewBookingHandler(bookingUsecase usecase.BookingUsecase, validator *validator.CustomValidator) *BookingHandler {
	return &BookingHandler{
		bookingUsecase: bookingUsecase,
		validator:      validator,
	}
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
		req.CorrelationID = key
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	booking, err := h.bookingUsecase.CreateBooking(r.Context(), &req)
	if err != nil {
		if writeReservationError(w, err) {
			return
		}
		response.InternalServerError(w, "Failed to create booking")
		return
	}

	response.Success(w, http.StatusCreated, "Booking created successfully", booking)
}

func (h *BookingHandler) CreateWalkInBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateWalkInBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
		req.CorrelationID = key
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	booking, err := h.bookingUsecase.CreateWalkInBooking(r.Context(), &req)
	if err != nil {
		if writeReservationError(w, err) {
			return
		}
		response.InternalServerError(w, "Failed to create walk-in booking")
		return
	}

	response.Success(w, http.StatusCreated, "Walk-in booking created successfully", booking)
}

func (h *BookingHandler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingUsecase.GetMyBookings(r.Context())
	if err != nil {
		if err == usecase.ErrUserNotInContext {
			response.Unauthorized(w, "")
			return
		}
		response.InternalServerError(w, "Failed to get bookings")
		return
	}

	response.Success(w, http.StatusOK, "Bookings retrieved successfully", bookings)
}

// ListSessionBookings handles GET /admin/bookings?doctor_id=&dispensary_id=&date=&include_cancelled=
func (h *BookingHandler) ListSessionBookings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	doctorID, err := uuid.Parse(query.Get("doctor_id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid doctor_id", nil)
		return
	}
	dispensaryID, err := uuid.Parse(query.Get("dispensary_id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid dispensary_id", nil)
		return
	}
	includeCancelled, _ := strconv.ParseBool(query.Get("include_cancelled"))

	req := dto.SessionBookingsRequest{
		DoctorID:         doctorID,
		DispensaryID:     dispensaryID,
		Date:             query.Get("date"),
		IncludeCancelled: includeCancelled,
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	bookings, err := h.bookingUsecase.ListSessionBookings(r.Context(), &req)
	if err != nil {
		if err == usecase.ErrInvalidDate {
			response.Error(w, http.StatusBadRequest, "Invalid date format, use YYYY-MM-DD", nil)
			return
		}
		response.InternalServerError(w, "Failed to get session bookings")
		return
	}

	response.Success(w, http.StatusOK, "Session bookings retrieved successfully", bookings)
}

func (h *BookingHandler) CancelMyBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(w, r)
	if !ok {
		return
	}

	h.writeCancelResult(w, h.bookingUsecase.CancelMyBooking(r.Context(), bookingID))
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := bookingIDFromPath(w, r)
	if !ok {
		return
	}

	h.writeCancelResult(w, h.bookingUsecase.CancelBooking(r.Context(), bookingID))
}

func (h *BookingHandler) writeCancelResult(w http.ResponseWriter, err error) {
	if err != nil {
		switch err {
		case usecase.ErrBookingNotFound:
			response.NotFound(w, "Booking not found")
		case usecase.ErrBookingNotOwned:
			response.Forbidden(w, "Booking does not belong to you")
		case usecase.ErrBookingAlreadyCancelled:
			response.Conflict(w, "Booking is already cancelled", nil)
		case usecase.ErrUserNotInContext:
			response.Unauthorized(w, "")
		default:
			response.InternalServerError(w, "Failed to cancel booking")
		}
		return
	}

	response.Success(w, http.StatusOK, "Booking cancelled successfully", nil)
}

func bookingIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	vars := mux.Vars(r)
	bookingID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid booking ID", nil)
		return uuid.Nil, false
	}
	return bookingID, true
}
