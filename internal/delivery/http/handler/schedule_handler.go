package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"dispensary-queue/internal/delivery/dto"
	"dispensary-queue/internal/domain/entity"
	"dispensary-queue/internal/usecase"
	"dispensary-queue/pkg/response"
	"dispensary-queue/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ScheduleHandler struct {
	scheduleUsecase usecase.ScheduleAdminUsecase
	validator       *validator.CustomValidator
}

func NewScheduleHandler(scheduleUsecase usecase.ScheduleAdminUsecase, validator *validator.CustomValidator) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleUsecase: scheduleUsecase,
		validator:       validator,
	}
}

// Weekly schedules

func (h *ScheduleHandler) CreateWeeklySchedule(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateWeeklyScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	schedule, err := h.scheduleUsecase.CreateWeeklySchedule(r.Context(), &req)
	if err != nil {
		writeScheduleError(w, err, "Failed to create weekly schedule")
		return
	}

	response.Success(w, http.StatusCreated, "Weekly schedule created successfully", schedule)
}

func (h *ScheduleHandler) GetWeeklySchedule(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := intIDFromPath(w, r, "Invalid schedule ID")
	if !ok {
		return
	}

	schedule, err := h.scheduleUsecase.GetWeeklySchedule(r.Context(), scheduleID)
	if err != nil {
		writeScheduleError(w, err, "Failed to get weekly schedule")
		return
	}

	response.Success(w, http.StatusOK, "Weekly schedule retrieved successfully", schedule)
}

// ListWeeklySchedules handles GET /admin/weekly-schedules?doctor_id=
func (h *ScheduleHandler) ListWeeklySchedules(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid doctor_id", nil)
		return
	}

	schedules, err := h.scheduleUsecase.ListWeeklySchedules(r.Context(), doctorID)
	if err != nil {
		response.InternalServerError(w, "Failed to get weekly schedules")
		return
	}

	response.Success(w, http.StatusOK, "Weekly schedules retrieved successfully", schedules)
}

func (h *ScheduleHandler) UpdateWeeklySchedule(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := intIDFromPath(w, r, "Invalid schedule ID")
	if !ok {
		return
	}

	var req dto.UpdateWeeklyScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	schedule, err := h.scheduleUsecase.UpdateWeeklySchedule(r.Context(), scheduleID, &req)
	if err != nil {
		writeScheduleError(w, err, "Failed to update weekly schedule")
		return
	}

	response.Success(w, http.StatusOK, "Weekly schedule updated successfully", schedule)
}

// DeactivateWeeklySchedule handles DELETE /admin/weekly-schedules/{id}. The row is kept inactive.
func (h *ScheduleHandler) DeactivateWeeklySchedule(w http.ResponseWriter, r *http.Request) {
	scheduleID, ok := intIDFromPath(w, r, "Invalid schedule ID")
	if !ok {
		return
	}

	if err := h.scheduleUsecase.DeactivateWeeklySchedule(r.Context(), scheduleID); err != nil {
		writeScheduleError(w, err, "Failed to deactivate weekly schedule")
		return
	}

	response.Success(w, http.StatusOK, "Weekly schedule deactivated successfully", nil)
}

// Date overrides

// SaveOverride handles PUT /admin/overrides, creating or replacing the override for a date.
func (h *ScheduleHandler) SaveOverride(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	override, err := h.scheduleUsecase.SaveOverride(r.Context(), &req)
	if err != nil {
		writeScheduleError(w, err, "Failed to save date override")
		return
	}

	response.Success(w, http.StatusOK, "Date override saved successfully", override)
}

func (h *ScheduleHandler) GetOverride(w http.ResponseWriter, r *http.Request) {
	overrideID, ok := intIDFromPath(w, r, "Invalid override ID")
	if !ok {
		return
	}

	override, err := h.scheduleUsecase.GetOverride(r.Context(), overrideID)
	if err != nil {
		writeScheduleError(w, err, "Failed to get date override")
		return
	}

	response.Success(w, http.StatusOK, "Date override retrieved successfully", override)
}

// ListOverrides handles GET /admin/overrides?doctor_id=&dispensary_id=&from=&to=
func (h *ScheduleHandler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	doctorID, err := uuid.Parse(query.Get("doctor_id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid doctor_id", nil)
		return
	}

	req := dto.OverrideListRequest{
		DoctorID: doctorID,
		From:     query.Get("from"),
		To:       query.Get("to"),
	}
	if raw := query.Get("dispensary_id"); raw != "" {
		if req.DispensaryID, err = uuid.Parse(raw); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid dispensary_id", nil)
			return
		}
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	overrides, err := h.scheduleUsecase.ListOverrides(r.Context(), &req)
	if err != nil {
		response.InternalServerError(w, "Failed to get date overrides")
		return
	}

	response.Success(w, http.StatusOK, "Date overrides retrieved successfully", overrides)
}

func (h *ScheduleHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	overrideID, ok := intIDFromPath(w, r, "Invalid override ID")
	if !ok {
		return
	}

	if err := h.scheduleUsecase.DeleteOverride(r.Context(), overrideID); err != nil {
		writeScheduleError(w, err, "Failed to delete date override")
		return
	}

	response.Success(w, http.StatusOK, "Date override deleted successfully", nil)
}

func writeScheduleError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case usecase.ErrWeeklyScheduleNotFound:
		response.NotFound(w, "Weekly schedule not found")
	case usecase.ErrOverrideNotFound:
		response.NotFound(w, "Date override not found")
	case usecase.ErrActiveScheduleExists:
		response.Conflict(w, "An active schedule already exists for this weekday", nil)
	case usecase.ErrInvalidSessionWindow, usecase.ErrModifiedSessionIncomplete:
		response.Error(w, http.StatusBadRequest, err.Error(), nil)
	case usecase.ErrInvalidDate, entity.ErrInvalidClockTime:
		response.Error(w, http.StatusBadRequest, err.Error(), nil)
	default:
		response.InternalServerError(w, fallback)
	}
}

func intIDFromPath(w http.ResponseWriter, r *http.Request, message string) (int, bool) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, message, nil)
		return 0, false
	}
	return id, true
}
