package converter

import (
	"dispensary-queue/internal/delivery/dto"
	"dispensary-queue/internal/domain/entity"
)

// WeeklyScheduleToResponse converts a WeeklyScheduleConfig entity to WeeklyScheduleResponse DTO
func WeeklyScheduleToResponse(config *entity.WeeklyScheduleConfig) *dto.WeeklyScheduleResponse {
	if config == nil {
		return nil
	}

	return &dto.WeeklyScheduleResponse{
		ID:                    config.ID,
		DoctorID:              config.DoctorID,
		DispensaryID:          config.DispensaryID,
		DayOfWeek:             int(config.DayOfWeek),
		DayName:               config.DayOfWeek.String(),
		StartTime:             config.StartTime.String(),
		EndTime:               config.EndTime.String(),
		MaxPatients:           config.MaxPatients,
		MinutesPerPatient:     config.MinutesPerPatient,
		BookingCutoverMinutes: config.BookingCutoverMinutes,
		IsActive:              config.IsActive,
		CreatedAt:             config.CreatedAt,
		UpdatedAt:             config.UpdatedAt,
	}
}

func WeeklySchedulesToResponses(configs []entity.WeeklyScheduleConfig) []dto.WeeklyScheduleResponse {
	responses := make([]dto.WeeklyScheduleResponse, len(configs))
	for i := range configs {
		responses[i] = *WeeklyScheduleToResponse(&configs[i])
	}
	return responses
}

// OverrideToResponse converts a DateOverride entity to OverrideResponse DTO
func OverrideToResponse(override *entity.DateOverride) *dto.OverrideResponse {
	if override == nil {
		return nil
	}

	response := &dto.OverrideResponse{
		ID:                override.ID,
		DoctorID:          override.DoctorID,
		DispensaryID:      override.DispensaryID,
		Date:              override.OverrideDate.Format(entity.DateLayout),
		IsModifiedSession: override.IsModifiedSession,
		MaxPatients:       override.MaxPatients,
		MinutesPerPatient: override.MinutesPerPatient,
		Reason:            override.Reason,
		CreatedAt:         override.CreatedAt,
		UpdatedAt:         override.UpdatedAt,
	}

	if override.StartTime != nil {
		response.StartTime = override.StartTime.String()
	}
	if override.EndTime != nil {
		response.EndTime = override.EndTime.String()
	}

	return response
}

func OverridesToResponses(overrides []entity.DateOverride) []dto.OverrideResponse {
	responses := make([]dto.OverrideResponse, len(overrides))
	for i := range overrides {
		responses[i] = *OverrideToResponse(&overrides[i])
	}
	return responses
}
