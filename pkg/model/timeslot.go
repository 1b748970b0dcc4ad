package model

import (
	"fmt"
	"time"
)

// TimeSlot is a wall-clock start time shared by every exam day.
type TimeSlot struct {
	Hour   int
	Minute int
}

func ParseTimeSlot(value string) (TimeSlot, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return TimeSlot{}, fmt.Errorf("invalid time slot %q: %w", value, err)
	}
	return TimeSlot{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

func MustParseTimeSlots(values ...string) []TimeSlot {
	slots := make([]TimeSlot, 0, len(values))
	for _, value := range values {
		slot, err := ParseTimeSlot(value)
		if err != nil {
			panic(err)
		}
		slots = append(slots, slot)
	}
	return slots
}

func (slot TimeSlot) String() string {
	return fmt.Sprintf("%02d:%02d", slot.Hour, slot.Minute)
}

// Minutes returns the offset from midnight.
func (slot TimeSlot) Minutes() int {
	return slot.Hour*60 + slot.Minute
}

// On anchors the slot to the calendar day of date.
func (slot TimeSlot) On(date time.Time) time.Time {
	year, month, day := date.Date()
	return time.Date(year, month, day, slot.Hour, slot.Minute, 0, 0, time.UTC)
}

func (slot TimeSlot) MarshalText() ([]byte, error) {
	return []byte(slot.String()), nil
}

func (slot *TimeSlot) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeSlot(string(text))
	if err != nil {
		return err
	}
	*slot = parsed
	return nil
}

// Date truncates t to a UTC calendar day.
func Date(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateKey is the canonical map key for a calendar day.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// BusinessDays enumerates Monday to Friday dates in [from, to].
func BusinessDays(from, to time.Time) []time.Time {
	days := make([]time.Time, 0)
	for day, last := Date(from), Date(to); !day.After(last); day = day.AddDate(0, 0, 1) {
		if weekday := day.Weekday(); weekday == time.Saturday || weekday == time.Sunday {
			continue
		}
		days = append(days, day)
	}
	return days
}
