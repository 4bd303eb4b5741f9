package handler

import (
	"net/http"

	"dispensary-queue/internal/delivery/dto"
	"dispensary-queue/internal/usecase"
	"dispensary-queue/pkg/response"
	"dispensary-queue/pkg/validator"

	"github.com/google/uuid"
)

type AvailabilityHandler struct {
	availabilityUsecase usecase.AvailabilityUsecase
	validator           *validator.CustomValidator
}

func NewAvailabilityHandler(availabilityUsecase usecase.AvailabilityUsecase, validator *validator.CustomValidator) *AvailabilityHandler {
	return &AvailabilityHandler{
		availabilityUsecase: availabilityUsecase,
		validator:           validator,
	}
}

// GetAvailability handles GET /availability?doctor_id=&dispensary_id=&date=
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
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

	req := dto.AvailabilityRequest{
		DoctorID:     doctorID,
		DispensaryID: dispensaryID,
		Date:         query.Get("date"),
	}
	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	availability, err := h.availabilityUsecase.GetAvailability(r.Context(), &req)
	if err != nil {
		if writeReservationError(w, err) {
			return
		}
		response.InternalServerError(w, "Failed to get availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability retrieved successfully", availability)
}
