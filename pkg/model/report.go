package model

import "time"

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
)

const (
	StatusOK                = "OK"
	StatusConflictsDetected = "CONFLICTS_DETECTED"
)

type StudentConflict struct {
	Student   uint64    `json:"student"`
	Date      time.Time `json:"date"`
	ExamCount int       `json:"exam_count"`
	Courses   []string  `json:"courses"` // Ordered by session start
	Severity  Severity  `json:"severity"`
}

type InvigilatorOverload struct {
	Invigilator uint64    `json:"invigilator"`
	Date        time.Time `json:"date"`
	Count       int       `json:"count"`
	Courses     []string  `json:"courses"`
	Severity    Severity  `json:"severity"`
}

type RoomOverrun struct {
	Course    uint64    `json:"course"`
	Code      string    `json:"code"`
	Date      time.Time `json:"date"`
	Start     TimeSlot  `json:"start"`
	Rooms     []uint64  `json:"rooms"`
	Capacity  int       `json:"capacity"`
	Headcount int       `json:"headcount"`
	Overrun   int       `json:"overrun"`
	Severity  Severity  `json:"severity"`
}

type RoomOverlap struct {
	Room         uint64    `json:"room"`
	Date         time.Time `json:"date"`
	FirstCourse  string    `json:"first_course"`
	FirstStart   TimeSlot  `json:"first_start"`
	SecondCourse string    `json:"second_course"`
	SecondStart  TimeSlot  `json:"second_start"`
	Severity     Severity  `json:"severity"`
}

// IntegrityFinding flags a session that references something absent from the
// catalog, or that is structurally malformed.
type IntegrityFinding struct {
	Session  int      `json:"session"` // Position in the verified schedule
	Course   uint64   `json:"course"`
	Entity   string   `json:"entity"`
	Id       uint64   `json:"id"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

type LoadStats struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

type Summary struct {
	CriticalCount int    `json:"critical_count"`
	WarningCount  int    `json:"warning_count"`
	Status        string `json:"status"`
}

type ConflictReport struct {
	GeneratedAt          time.Time             `json:"generated_at"`
	AcademicYear         string                `json:"academic_year"`
	Session              string                `json:"session"`
	Summary              Summary               `json:"summary"`
	StudentConflicts     []StudentConflict     `json:"student_conflicts"`
	InvigilatorOverloads []InvigilatorOverload `json:"invigilator_overloads"`
	RoomOverruns         []RoomOverrun         `json:"room_overruns"`
	RoomOverlaps         []RoomOverlap         `json:"room_overlaps"`
	IntegrityFindings    []IntegrityFinding    `json:"integrity_findings"`
	LoadStats            LoadStats             `json:"load_stats"`
	IdleInvigilators     []uint64              `json:"idle_invigilators"` // Bounded sample
	IdleCount            int                   `json:"idle_count"`
}
