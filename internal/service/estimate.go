package service

import "dispensary-queue/internal/domain/entity"

// Estimate returns the clock time at which appointment number n is expected to be seen:
// start + (n-1) * minutesPerPatient. overflow is set when that time falls after the session end,
// which happens when capacity is larger than the window supports at the configured pace.
func Estimate(window entity.SessionWindow, n int) (estimated entity.ClockTime, overflow bool) {
	estimated = window.StartTime.Add((n - 1) * window.MinutesPerPatient)
	return estimated, estimated > window.EndTime
}

// PreviewSlots lists the numbers still to be issued after current, up to the window's capacity.
func PreviewSlots(window entity.SessionWindow, current int) []entity.SlotPreview {
	if current >= window.MaxPatients {
		return []entity.SlotPreview{}
	}

	slots := make([]entity.SlotPreview, 0, window.MaxPatients-current)
	for n := current + 1; n <= window.MaxPatients; n++ {
		estimated, _ := Estimate(window, n)
		slots = append(slots, entity.SlotPreview{AppointmentNumber: n, EstimatedTime: estimated})
	}
	return slots
}
