package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidClockTime is returned when a value is not a valid "HH:MM" time of day.
var ErrInvalidClockTime = errors.New("invalid time format, use HH:MM")

// ClockTime is a time of day expressed as minutes since midnight.
// Estimated times may run past midnight for over-booked sessions, so values >= 24:00 are kept as is.
type ClockTime int

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, ErrInvalidClockTime
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// MustParseClockTime is ParseClockTime for literals known to be valid.
func MustParseClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns c shifted by the given number of minutes.
func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

// On anchors the clock time to the calendar day of date in date's location.
func (c ClockTime) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(c) * time.Minute)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the clock time as minutes since midnight in an INTEGER column.
// A TIME column would reject estimates past 24:00.
func (c ClockTime) Value() (driver.Value, error) {
	return int64(c), nil
}

// Scan reads integer minutes, and also "HH:MM[:SS]" text and time.Time from TIME columns.
func (c *ClockTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*c = 0
		return nil
	case int64:
		*c = ClockTime(v)
		return nil
	case int32:
		*c = ClockTime(v)
		return nil
	case time.Time:
		*c = ClockTime(v.Hour()*60 + v.Minute())
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", value)
	}
}

func (c *ClockTime) scanString(s string) error {
	if minutes, err := strconv.Atoi(s); err == nil {
		*c = ClockTime(minutes)
		return nil
	}
	if len(s) >= 5 {
		s = s[:5]
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
