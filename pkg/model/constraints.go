package model

import (
	"fmt"
	"time"
)

const (
	DefaultMaxSessionsPerDayPerStudent = 1
	DefaultMaxInvigilationsPerDay      = 3
	DefaultMaxStudentsPerRoom          = 20
	DefaultIdleSampleSize              = 10
	DefaultTimeBudget                  = 45 * time.Second
)

// Constraints are shared by the scheduler and the verifier so a schedule can be
// audited under the settings it was produced with, or any other.
type Constraints struct {
	MaxSessionsPerDayPerStudent int
	MaxInvigilationsPerDay      int
	MaxStudentsPerRoom          int
}

func DefaultConstraints() Constraints {
	return Constraints{
		MaxSessionsPerDayPerStudent: DefaultMaxSessionsPerDayPerStudent,
		MaxInvigilationsPerDay:      DefaultMaxInvigilationsPerDay,
		MaxStudentsPerRoom:          DefaultMaxStudentsPerRoom,
	}
}

// Relaxation configures the optional second pass over failed courses.
type Relaxation struct {
	Enabled              bool
	RoomOverflow         int  // Extra seats tolerated per room
	CrossDepartmentFirst bool // Prefer other-department invigilators over same-department ones
}

type UnplaceablePolicy string

const (
	FailCleanly  UnplaceablePolicy = "fail"
	PlaceAndFlag UnplaceablePolicy = "flag"
)

type Configuration struct {
	StartDate    time.Time
	EndDate      time.Time
	TimeSlots    []TimeSlot
	Constraints  Constraints
	AcademicYear string
	Session      string

	TimeBudget     time.Duration // Zero disables the wall-clock budget
	Relaxation     Relaxation
	Unplaceable    UnplaceablePolicy
	IdleSampleSize int
}

func DefaultConfiguration() Configuration {
	return Configuration{
		StartDate:      time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC),
		TimeSlots:      MustParseTimeSlots("08:00", "10:30", "13:00", "15:30"),
		Constraints:    DefaultConstraints(),
		AcademicYear:   "2024-2025",
		Session:        "Normale",
		TimeBudget:     DefaultTimeBudget,
		Unplaceable:    FailCleanly,
		IdleSampleSize: DefaultIdleSampleSize,
	}
}

// Days returns the ordered business days of the configured range.
func (config Configuration) Days() []time.Time {
	return BusinessDays(config.StartDate, config.EndDate)
}

func (config Configuration) Validate() error {
	if Date(config.EndDate).Before(Date(config.StartDate)) {
		return &ConfigurationError{Field: "date range", Reason: fmt.Sprintf("end %v precedes start %v", DateKey(config.EndDate), DateKey(config.StartDate))}
	}
	if len(config.Days()) == 0 {
		return &ConfigurationError{Field: "date range", Reason: "no business day between start and end"}
	}
	if len(config.TimeSlots) == 0 {
		return &ConfigurationError{Field: "time slots", Reason: "at least one daily time slot is required"}
	}
	seen := make(map[TimeSlot]bool, len(config.TimeSlots))
	for _, slot := range config.TimeSlots {
		if slot.Hour < 0 || slot.Hour > 23 || slot.Minute < 0 || slot.Minute > 59 {
			return &ConfigurationError{Field: "time slots", Reason: fmt.Sprintf("%v is not a wall-clock time", slot)}
		}
		if seen[slot] {
			return &ConfigurationError{Field: "time slots", Reason: fmt.Sprintf("%v is listed more than once", slot)}
		}
		seen[slot] = true
	}
	if config.Constraints.MaxSessionsPerDayPerStudent != 1 {
		return &ConfigurationError{Field: "max sessions per day per student", Reason: "only 1 is supported"}
	}
	if config.Constraints.MaxInvigilationsPerDay <= 0 {
		return &ConfigurationError{Field: "max invigilations per day", Reason: "must be positive"}
	}
	if config.Constraints.MaxStudentsPerRoom <= 0 {
		return &ConfigurationError{Field: "max students per room", Reason: "must be positive"}
	}
	if config.Relaxation.RoomOverflow < 0 {
		return &ConfigurationError{Field: "relaxation room overflow", Reason: "must not be negative"}
	}
	switch config.Unplaceable {
	case "", FailCleanly, PlaceAndFlag:
	default:
		return &ConfigurationError{Field: "unplaceable policy", Reason: fmt.Sprintf("unknown policy %q", config.Unplaceable)}
	}
	if config.TimeBudget < 0 {
		return &ConfigurationError{Field: "time budget", Reason: "must not be negative"}
	}
	return nil
}
