package model

import "fmt"

const (
	EntityCourse      = "course"
	EntityRoom        = "room"
	EntityInvigilator = "invigilator"
	EntityStudent     = "student"
	EntitySession     = "session"
)

// ConfigurationError aborts a run before any placement.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %v: %v", err.Field, err.Reason)
}

// DataIntegrityError reports a snapshot entity that is missing or ambiguous.
type DataIntegrityError struct {
	Entity string
	Id     uint64
	Reason string
}

func (err *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity violation: %v %d: %v", err.Entity, err.Id, err.Reason)
}

// PlacementFailure wraps a course the scheduler could not place. The scheduler
// itself never returns it; it records the Failure and carries on.
type PlacementFailure struct {
	Failure Failure
}

func (err *PlacementFailure) Error() string {
	return fmt.Sprintf("course %v (%v, %d students) could not be placed: %v",
		err.Failure.Code, err.Failure.Name, err.Failure.EnrollmentCount, err.Failure.Reason)
}

// PersistenceError is returned by stores when a schedule could not be committed
// or read. The previously committed schedule stays authoritative.
type PersistenceError struct {
	Op  string
	Err error
}

func (err *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %v failed: %v", err.Op, err.Err)
}

func (err *PersistenceError) Unwrap() error {
	return err.Err
}
