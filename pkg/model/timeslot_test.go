package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeSlot(t *testing.T) {
	slot, err := ParseTimeSlot("10:30")
	require.NoError(t, err)
	assert.Equal(t, TimeSlot{Hour: 10, Minute: 30}, slot)
	assert.Equal(t, "10:30", slot.String())
	assert.Equal(t, 630, slot.Minutes())

	_, err = ParseTimeSlot("25:00")
	assert.Error(t, err)
	_, err = ParseTimeSlot("morning")
	assert.Error(t, err)
}

func TestTimeSlotOn(t *testing.T) {
	date := time.Date(2025, time.January, 21, 17, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.January, 21, 8, 0, 0, 0, time.UTC), TimeSlot{Hour: 8}.On(date))
}

func TestTimeSlotJson(t *testing.T) {
	data, err := json.Marshal(struct{ Slot TimeSlot }{TimeSlot{Hour: 15, Minute: 30}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Slot": "15:30"}`, string(data))

	var decoded struct{ Slot TimeSlot }
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TimeSlot{Hour: 15, Minute: 30}, decoded.Slot)
}

func TestBusinessDays(t *testing.T) {
	//** Arrange
	friday := time.Date(2025, time.January, 24, 9, 0, 0, 0, time.UTC)
	tuesday := time.Date(2025, time.January, 28, 0, 0, 0, 0, time.UTC)

	//** Act
	days := BusinessDays(friday, tuesday)

	//** Assert
	assert.Equal(t, []time.Time{
		time.Date(2025, time.January, 24, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 27, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 28, 0, 0, 0, 0, time.UTC),
	}, days)
	assert.Empty(t, BusinessDays(tuesday, friday))
}

func TestDefaultConfiguration(t *testing.T) {
	config := DefaultConfiguration()

	assert.NoError(t, config.Validate())
	assert.Len(t, config.Days(), 20)
	assert.Equal(t, "2025-01-20", DateKey(config.Days()[0]))
	assert.Equal(t, "2025-02-14", DateKey(config.Days()[19]))
	assert.Equal(t, []TimeSlot{{8, 0}, {10, 30}, {13, 0}, {15, 30}}, config.TimeSlots)
	assert.Equal(t, Constraints{MaxSessionsPerDayPerStudent: 1, MaxInvigilationsPerDay: 3, MaxStudentsPerRoom: 20}, config.Constraints)
}
