package types

import (
	"encoding/json"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWindow(t *testing.T, start, end string) TimeWindow {
	t.Helper()
	w, err := ParseTimeWindow(start, end)
	require.NoError(t, err)
	return w
}

func TestNewTimeWindow_RejectsEmptyAndInverted(t *testing.T) {
	_, err := ParseTimeWindow("10:00", "10:00")
	assert.Error(t, err)
	_, err = ParseTimeWindow("11:00", "09:00")
	assert.Error(t, err)
	_, err = ParseTimeWindow("25:00", "26:00")
	assert.Error(t, err)
}

func TestTimeWindow_Contains(t *testing.T) {
	shift := mustWindow(t, "08:00", "16:00")
	assert.True(t, shift.Contains(mustWindow(t, "09:00", "11:00")))
	assert.True(t, shift.Contains(mustWindow(t, "08:00", "16:00")))
	assert.False(t, shift.Contains(mustWindow(t, "15:00", "17:00")))
	assert.False(t, shift.Contains(mustWindow(t, "07:30", "09:00")))
}

func TestTimeWindow_OverlapsIsHalfOpen(t *testing.T) {
	a := mustWindow(t, "09:00", "11:00")
	assert.True(t, a.Overlaps(mustWindow(t, "10:00", "12:00")))
	assert.False(t, a.Overlaps(mustWindow(t, "11:00", "12:00")))
	assert.False(t, a.Overlaps(mustWindow(t, "07:00", "09:00")))
	assert.True(t, a.Overlaps(mustWindow(t, "08:00", "13:00")))
}

func TestWeekday_SundayIsZero(t *testing.T) {
	assert.Equal(t, 1, Weekday(civil.Date{Year: 2025, Month: 6, Day: 2}))
	assert.Equal(t, 0, Weekday(civil.Date{Year: 2025, Month: 6, Day: 8}))
}

func TestDateInRange(t *testing.T) {
	from := civil.Date{Year: 2025, Month: 1, Day: 1}
	until := civil.Date{Year: 2025, Month: 1, Day: 31}
	assert.True(t, DateInRange(civil.Date{Year: 2025, Month: 1, Day: 31}, &from, &until))
	assert.False(t, DateInRange(civil.Date{Year: 2025, Month: 2, Day: 1}, &from, &until))
	assert.True(t, DateInRange(civil.Date{Year: 2030, Month: 2, Day: 1}, &from, nil))
}

func TestTimeWindow_JSON(t *testing.T) {
	w := mustWindow(t, "09:00", "11:30")
	raw, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"09:00","end":"11:30"}`, string(raw))

	var back TimeWindow
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, w, back)

	assert.Error(t, json.Unmarshal([]byte(`{"start":"12:00","end":"11:00"}`), &back))
}

func TestTimeOfDayMicros(t *testing.T) {
	tod, err := ParseTimeOfDay("13:45:10")
	require.NoError(t, err)
	assert.Equal(t, tod, TimeOfDayFromMicros(MicrosOf(tod)))
}
