package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("09:15")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(9*60+15), c)
	assert.Equal(t, "09:15", c.String())

	_, err = ParseClockTime("9am")
	assert.ErrorIs(t, err, ErrInvalidClockTime)

	_, err = ParseClockTime("24:30")
	assert.ErrorIs(t, err, ErrInvalidClockTime)
}

func TestClockTime_AddPastMidnight(t *testing.T) {
	c := MustParseClockTime("23:30").Add(45)
	assert.Equal(t, "24:15", c.String())
}

func TestClockTime_On(t *testing.T) {
	loc := time.FixedZone("LKT", 5*3600+1800)
	date := time.Date(2024, 5, 6, 17, 0, 0, 0, loc)

	got := MustParseClockTime("10:15").On(date)
	assert.Equal(t, time.Date(2024, 5, 6, 10, 15, 0, 0, loc), got)
}

func TestClockTime_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		At ClockTime `json:"at"`
	}{At: MustParseClockTime("14:00")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"14:00"}`, string(data))

	var decoded struct {
		At ClockTime `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"08:05"}`), &decoded))
	assert.Equal(t, MustParseClockTime("08:05"), decoded.At)
}

func TestClockTime_Scan(t *testing.T) {
	var c ClockTime
	require.NoError(t, c.Scan("16:30:00"))
	assert.Equal(t, "16:30", c.String())

	require.NoError(t, c.Scan([]byte("07:45:00")))
	assert.Equal(t, "07:45", c.String())

	require.NoError(t, c.Scan(int64(1470)))
	assert.Equal(t, "24:30", c.String())

	require.NoError(t, c.Scan([]byte("615")))
	assert.Equal(t, "10:15", c.String())
}

func TestClockTime_ValuePastMidnight(t *testing.T) {
	v, err := MustParseClockTime("12:00").Value()
	require.NoError(t, err)
	assert.Equal(t, int64(720), v)

	late := MustParseClockTime("23:45").Add(45)
	v, err = late.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(24*60+30), v)

	var back ClockTime
	require.NoError(t, back.Scan(v))
	assert.Equal(t, late, back)
	assert.Equal(t, "24:30", back.String())
}
