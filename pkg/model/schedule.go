package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	Principal Role = "Principal"
	Secondary Role = "Secondary"
)

type InvigilatorAssignment struct {
	Invigilator uint64 `json:"invigilator"`
	Role        Role   `json:"role"`
}

// ExamSession is one scheduled exam occurrence.
type ExamSession struct {
	Course          uint64                  `json:"course"`
	Date            time.Time               `json:"date"`
	Slot            TimeSlot                `json:"slot"`
	DurationMinutes int                     `json:"duration_minutes"`
	Rooms           []uint64                `json:"rooms"`
	Invigilators    []InvigilatorAssignment `json:"invigilators"`
	Headcount       int                     `json:"headcount"`
	Relaxed         bool                    `json:"relaxed,omitempty"` // Placed by the relaxed pass or the flag policy
}

func (session ExamSession) Start() time.Time {
	return session.Slot.On(session.Date)
}

func (session ExamSession) End() time.Time {
	return session.Start().Add(time.Duration(session.DurationMinutes) * time.Minute)
}

func (session ExamSession) Principal() (uint64, bool) {
	for _, assignment := range session.Invigilators {
		if assignment.Role == Principal {
			return assignment.Invigilator, true
		}
	}
	return 0, false
}

// Schedule is the persisted unit: it is always replaced as a whole.
type Schedule struct {
	RunId        string        `json:"run_id"`
	AcademicYear string        `json:"academic_year"`
	Session      string        `json:"session"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Sessions     []ExamSession `json:"sessions"`
}

func NewSchedule(result Result, config Configuration, generatedAt time.Time) Schedule {
	return Schedule{
		RunId:        uuid.NewString(),
		AcademicYear: config.AcademicYear,
		Session:      config.Session,
		GeneratedAt:  generatedAt.UTC(),
		Sessions:     result.Sessions,
	}
}

type FailureReason string

const (
	ReasonStudents     FailureReason = "students"     // Every date already holds an exam for some enrolled student
	ReasonRooms        FailureReason = "rooms"        // Not enough free rooms at any eligible slot
	ReasonInvigilators FailureReason = "invigilators" // Rooms were found but invigilators were exhausted
	ReasonBudget       FailureReason = "budget"       // The run ran out of time before reaching the course
)

type Failure struct {
	Course          uint64        `json:"course"`
	Code            string        `json:"code"`
	Name            string        `json:"name"`
	EnrollmentCount int           `json:"enrollment_count"`
	Reason          FailureReason `json:"reason"`
}

type Result struct {
	Sessions       []ExamSession `json:"sessions"`
	Failures       []Failure     `json:"failures"`
	Flagged        []Failure     `json:"flagged"` // Courses placed imperfectly under the flag policy
	ScheduledCount int           `json:"scheduled_count"`
	TotalCount     int           `json:"total_count"`
	Elapsed        time.Duration `json:"elapsed"`
	Truncated      bool          `json:"truncated"`
}

// Err joins every failure as a PlacementFailure, or returns nil when all
// courses were placed.
func (result Result) Err() error {
	errs := make([]error, 0, len(result.Failures))
	for _, failure := range result.Failures {
		errs = append(errs, &PlacementFailure{Failure: failure})
	}
	return errors.Join(errs...)
}
