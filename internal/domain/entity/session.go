package entity

import (
	"fmt"
	"time"
)

// SessionSource tags where a resolved session came from.
type SessionSource string

const (
	SourceWeeklyConfig     SessionSource = "weekly_config"
	SourceModifiedOverride SessionSource = "modified_override"
	SourceAbsent           SessionSource = "absent"
	SourceNoConfig         SessionSource = "no_config"
)

// UnavailableReason explains why no booking can be made for a date.
type UnavailableReason string

const (
	ReasonAbsent        UnavailableReason = "absent"
	ReasonNoConfig      UnavailableReason = "no_config"
	ReasonCutoverPassed UnavailableReason = "cutover_passed"

	// ReasonFullyBooked only appears in availability previews; Reserve reports it as an error.
	ReasonFullyBooked UnavailableReason = "fully_booked"
)

// SessionWindow is the concrete session in effect for one doctor/dispensary/date.
type SessionWindow struct {
	StartTime         ClockTime `json:"start_time"`
	EndTime           ClockTime `json:"end_time"`
	MaxPatients       int       `json:"max_patients"`
	MinutesPerPatient int       `json:"minutes_per_patient"`
	IsModified        bool      `json:"is_modified"`
}

// Label renders the window as "HH:MM-HH:MM".
func (w SessionWindow) Label() string {
	return fmt.Sprintf("%s-%s", w.StartTime, w.EndTime)
}

// Resolution is the outcome of resolving availability for a key.
// Window is set whenever a session exists, even if Reason says it can no longer be booked.
type Resolution struct {
	Source    SessionSource
	Window    *SessionWindow
	Reason    UnavailableReason
	CutoverAt time.Time
}

// Available reports whether a booking may be attempted.
func (r Resolution) Available() bool {
	return r.Reason == "" && r.Window != nil
}

// Channel is the booking channel a request arrives through.
type Channel string

const (
	ChannelPatient Channel = "patient"
	ChannelWalkIn  Channel = "walk_in"
)

// ChannelPolicy carries per-channel booking rules into the engine.
type ChannelPolicy struct {
	Channel       Channel
	BypassCutover bool
}

// PatientPolicy is the default policy: the cutover rule applies.
func PatientPolicy() ChannelPolicy {
	return ChannelPolicy{Channel: ChannelPatient}
}

// ReservationResult is what a successful reservation hands back to the caller for persisting.
type ReservationResult struct {
	Key               QueueKey
	AppointmentNumber int
	EstimatedTime     ClockTime
	TimeSlotLabel     string
	IsModified        bool
	Overflow          bool
	CorrelationID     string
}

// SlotPreview is a not-yet-issued appointment number with its estimated time.
type SlotPreview struct {
	AppointmentNumber int       `json:"appointment_number"`
	EstimatedTime     ClockTime `json:"estimated_time"`
}

// Availability is the read-only preview of a session's bookable state.
type Availability struct {
	Available     bool
	Reason        UnavailableReason
	Window        *SessionWindow
	IsModified    bool
	CurrentNumber int
	NextNumber    int
	Slots         []SlotPreview
}
