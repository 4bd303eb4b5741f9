package converter

import (
	"dispensary-queue/internal/delivery/dto"
	"dispensary-queue/internal/domain/entity"
)

// BookingToResponse converts a Booking entity to BookingResponse DTO
func BookingToResponse(booking *entity.Booking) *dto.BookingResponse {
	if booking == nil {
		return nil
	}

	return &dto.BookingResponse{
		ID:                booking.ID,
		BookingCode:       booking.BookingCode,
		PatientID:         booking.PatientID,
		PatientName:       booking.PatientName,
		PatientPhone:      booking.PatientPhone,
		DoctorID:          booking.DoctorID,
		DispensaryID:      booking.DispensaryID,
		AppointmentDate:   booking.AppointmentDate.Format(entity.DateLayout),
		AppointmentNumber: booking.AppointmentNumber,
		EstimatedTime:     booking.EstimatedTime.String(),
		TimeSlot:          booking.TimeSlot,
		IsModified:        booking.IsModifiedSession,
		Overflow:          booking.Overflow,
		Channel:           string(booking.Channel),
		Status:            string(booking.Status),
		CreatedAt:         booking.CreatedAt,
		UpdatedAt:         booking.UpdatedAt,
	}
}

// BookingsToResponses converts a slice of Booking entities to slice of BookingResponse DTOs
func BookingsToResponses(bookings []entity.Booking) []dto.BookingResponse {
	responses := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		responses[i] = *BookingToResponse(&bookings[i])
	}
	return responses
}

// AvailabilityToResponse renders an availability preview for the given key.
func AvailabilityToResponse(key entity.QueueKey, availability *entity.Availability) *dto.AvailabilityResponse {
	response := &dto.AvailabilityResponse{
		DoctorID:      key.DoctorID,
		DispensaryID:  key.DispensaryID,
		Date:          key.DateString(),
		Available:     availability.Available,
		Reason:        string(availability.Reason),
		IsModified:    availability.IsModified,
		CurrentNumber: availability.CurrentNumber,
		NextNumber:    availability.NextNumber,
		Slots:         make([]dto.SlotResponse, len(availability.Slots)),
	}

	if w := availability.Window; w != nil {
		response.SessionInfo = &dto.SessionInfoResponse{
			StartTime:         w.StartTime.String(),
			EndTime:           w.EndTime.String(),
			MinutesPerPatient: w.MinutesPerPatient,
			MaxPatients:       w.MaxPatients,
		}
	}

	for i, slot := range availability.Slots {
		response.Slots[i] = dto.SlotResponse{
			AppointmentNumber: slot.AppointmentNumber,
			EstimatedTime:     slot.EstimatedTime.String(),
		}
	}

	return response
}
