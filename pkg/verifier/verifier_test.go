package verifier

import (
	"math"
	"testing"
	"time"

	"github.com/limaJavier/examtabling/pkg/model"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	monday  = time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)
	tuesday = monday.AddDate(0, 0, 1)
	stamp   = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return stamp }

func testCatalog() model.Catalog {
	return model.Catalog{
		Courses: []model.Course{
			{Id: 1, Code: "MATH101", Name: "Analysis", DurationMinutes: 90, Department: 1, Students: []uint64{1, 2, 3}},
			{Id: 2, Code: "PHYS101", Name: "Mechanics", DurationMinutes: 90, Department: 2, Students: []uint64{1, 4}},
			{Id: 3, Code: "CHEM101", Name: "Chemistry", DurationMinutes: 90, Department: 2, Students: []uint64{5}},
			{Id: 4, Code: "BIO101", Name: "Biology", DurationMinutes: 120, Department: 1, Students: []uint64{6, 7}},
		},
		Rooms: []model.Room{
			{Id: 1, Name: "A", ExamCapacity: 2, Available: true},
			{Id: 2, Name: "B", ExamCapacity: 30, Available: true},
			{Id: 3, Name: "C", ExamCapacity: 30, Available: true},
		},
		Invigilators: []model.Invigilator{
			{Id: 1, Name: "Ada", Department: 1},
			{Id: 2, Name: "Bob", Department: 2},
			{Id: 3, Name: "Cyd", Department: 2},
		},
	}
}

func session(course uint64, date time.Time, slot string, duration int, headcount int, rooms []uint64, invigilators ...uint64) model.ExamSession {
	assignments := make([]model.InvigilatorAssignment, 0, len(invigilators))
	for i, invigilator := range invigilators {
		role := model.Secondary
		if i == 0 {
			role = model.Principal
		}
		assignments = append(assignments, model.InvigilatorAssignment{Invigilator: invigilator, Role: role})
	}
	return model.ExamSession{
		Course:          course,
		Date:            date,
		Slot:            model.MustParseTimeSlots(slot)[0],
		DurationMinutes: duration,
		Rooms:           rooms,
		Invigilators:    assignments,
		Headcount:       headcount,
	}
}

func schedule(sessions ...model.ExamSession) model.Schedule {
	return model.Schedule{
		RunId:        "run",
		AcademicYear: "2024-2025",
		Session:      "Normale",
		GeneratedAt:  monday,
		Sessions:     sessions,
	}
}

func newVerifier() model.Verifier {
	return NewConflictVerifier(model.DefaultConstraints(), 0, WithClock(fixedClock))
}

func TestCleanSchedule(t *testing.T) {
	//** Arrange
	clean := schedule(
		session(1, monday, "08:00", 90, 3, []uint64{2}, 1),
		session(2, tuesday, "08:00", 90, 2, []uint64{2}, 2),
	)

	//** Act
	report := newVerifier().Verify(clean, testCatalog())

	//** Assert
	g := NewWithT(t)
	g.Expect(report.GeneratedAt).To(Equal(stamp))
	g.Expect(report.AcademicYear).To(Equal("2024-2025"))
	g.Expect(report.Session).To(Equal("Normale"))
	g.Expect(report.Summary).To(Equal(model.Summary{Status: model.StatusOK}))
	g.Expect(report.StudentConflicts).NotTo(BeNil())
	g.Expect(report.StudentConflicts).To(BeEmpty())
	g.Expect(report.InvigilatorOverloads).To(BeEmpty())
	g.Expect(report.RoomOverruns).To(BeEmpty())
	g.Expect(report.RoomOverlaps).To(BeEmpty())
	g.Expect(report.IntegrityFindings).NotTo(BeNil())
	g.Expect(report.IntegrityFindings).To(BeEmpty())
	g.Expect(report.IdleInvigilators).To(Equal([]uint64{3}))
	g.Expect(report.IdleCount).To(Equal(1))
}

func TestStudentSittingTwoExamsOnOneDay(t *testing.T) {
	//** Arrange
	conflicting := schedule(
		session(1, monday, "13:00", 90, 3, []uint64{2}, 1),
		session(2, monday, "08:00", 90, 2, []uint64{3}, 2),
	)

	//** Act
	report := newVerifier().Verify(conflicting, testCatalog())

	//** Assert
	require.Len(t, report.StudentConflicts, 1)
	assert.Equal(t, model.StudentConflict{
		Student:   1,
		Date:      monday,
		ExamCount: 2,
		Courses:   []string{"PHYS101", "MATH101"},
		Severity:  model.SeverityCritical,
	}, report.StudentConflicts[0])
	assert.Equal(t, 1, report.Summary.CriticalCount)
	assert.Equal(t, model.StatusConflictsDetected, report.Summary.Status)
}

func TestRoomOverlap(t *testing.T) {
	//** Arrange
	overlapping := schedule(
		session(3, monday, "10:30", 90, 1, []uint64{2}, 1),
		session(4, monday, "11:00", 90, 2, []uint64{2}, 2),
	)

	//** Act
	report := newVerifier().Verify(overlapping, testCatalog())

	//** Assert
	require.Len(t, report.RoomOverlaps, 1)
	assert.Equal(t, model.RoomOverlap{
		Room:         2,
		Date:         monday,
		FirstCourse:  "CHEM101",
		FirstStart:   model.TimeSlot{Hour: 10, Minute: 30},
		SecondCourse: "BIO101",
		SecondStart:  model.TimeSlot{Hour: 11},
		Severity:     model.SeverityCritical,
	}, report.RoomOverlaps[0])
	assert.Empty(t, report.StudentConflicts)
	assert.Equal(t, 1, report.Summary.CriticalCount)
}

func TestAdjacentSessionsDoNotOverlap(t *testing.T) {
	//** Arrange
	adjacent := schedule(
		session(3, monday, "08:00", 90, 1, []uint64{2}, 1),
		session(4, monday, "09:30", 90, 2, []uint64{2}, 2),
		session(1, tuesday, "09:30", 90, 3, []uint64{2, 2}, 3),
	)

	//** Act
	report := newVerifier().Verify(adjacent, testCatalog())

	//** Assert
	assert.Empty(t, report.RoomOverlaps)
	assert.Equal(t, model.StatusOK, report.Summary.Status)
}

func TestRoomCapacityOverrun(t *testing.T) {
	//** Arrange
	overrun := schedule(
		session(1, monday, "08:00", 90, 3, []uint64{1}, 1),
		session(4, tuesday, "08:00", 120, 2, []uint64{1}, 2),
		session(2, tuesday, "13:00", 90, 35, []uint64{1, 2}, 3),
	)

	//** Act
	report := newVerifier().Verify(overrun, testCatalog())

	//** Assert
	g := NewWithT(t)
	g.Expect(report.RoomOverruns).To(HaveLen(2))
	g.Expect(report.RoomOverruns[0]).To(Equal(model.RoomOverrun{
		Course:    2,
		Code:      "PHYS101",
		Date:      tuesday,
		Start:     model.TimeSlot{Hour: 13},
		Rooms:     []uint64{1, 2},
		Capacity:  32,
		Headcount: 35,
		Overrun:   3,
		Severity:  model.SeverityCritical,
	}))
	g.Expect(report.RoomOverruns[1].Code).To(Equal("MATH101"))
	g.Expect(report.RoomOverruns[1].Overrun).To(Equal(1))
	g.Expect(report.Summary.CriticalCount).To(Equal(2))
}

func TestInvigilatorOverload(t *testing.T) {
	//** Arrange
	constraints := model.DefaultConstraints()
	constraints.MaxInvigilationsPerDay = 1
	overloaded := schedule(
		session(3, monday, "13:00", 90, 1, []uint64{2}, 1),
		session(1, monday, "08:00", 90, 3, []uint64{3}, 1),
		session(4, tuesday, "08:00", 120, 2, []uint64{2}, 2),
	)

	//** Act
	report := NewConflictVerifier(constraints, 0, WithClock(fixedClock)).Verify(overloaded, testCatalog())

	//** Assert
	require.Len(t, report.InvigilatorOverloads, 1)
	assert.Equal(t, model.InvigilatorOverload{
		Invigilator: 1,
		Date:        monday,
		Count:       2,
		Courses:     []string{"MATH101", "CHEM101"},
		Severity:    model.SeverityHigh,
	}, report.InvigilatorOverloads[0])
	assert.Equal(t, model.Summary{CriticalCount: 0, WarningCount: 1, Status: model.StatusOK}, report.Summary)
}

func TestIntegrityFindings(t *testing.T) {
	//** Arrange
	broken := schedule(
		session(99, monday, "08:00", 90, 1, []uint64{2}, 1),
		session(1, tuesday, "08:00", 90, 3, []uint64{42}, 7),
		session(2, tuesday.AddDate(0, 0, 1), "13:00", 0, 2, nil),
		model.ExamSession{
			Course:          3,
			Date:            monday,
			Slot:            model.TimeSlot{Hour: 13},
			DurationMinutes: 90,
			Rooms:           []uint64{3},
			Invigilators: []model.InvigilatorAssignment{
				{Invigilator: 2, Role: model.Secondary},
				{Invigilator: 2, Role: model.Secondary},
			},
			Headcount: 1,
		},
	)

	//** Act
	report := newVerifier().Verify(broken, testCatalog())

	//** Assert
	g := NewWithT(t)
	reasons := make([]string, 0, len(report.IntegrityFindings))
	for _, finding := range report.IntegrityFindings {
		g.Expect(finding.Severity).To(Equal(model.SeverityCritical))
		reasons = append(reasons, finding.Reason)
	}
	g.Expect(reasons).To(ConsistOf(
		"course is not in the catalog",
		"room is not in the catalog",
		"invigilator is not in the catalog",
		"session has no room",
		"session has no invigilator",
		"session has a non-positive duration",
		"session has 0 principal invigilators",
		"invigilator is assigned twice to the same session",
	))
	// Sessions with an unknown room or without rooms are left out of the capacity check
	g.Expect(report.RoomOverruns).To(BeEmpty())
	g.Expect(report.Summary.CriticalCount).To(Equal(8))
	g.Expect(report.Summary.Status).To(Equal(model.StatusConflictsDetected))
}

func TestLoadStatistics(t *testing.T) {
	//** Arrange
	loaded := schedule(
		session(1, monday, "08:00", 90, 3, []uint64{2}, 1),
		session(2, tuesday, "08:00", 90, 2, []uint64{2}, 1, 2),
		session(3, tuesday, "13:00", 90, 1, []uint64{3}, 1),
	)

	//** Act
	report := newVerifier().Verify(loaded, testCatalog())

	//** Assert
	// Loads are 3, 1 and 0
	assert.Equal(t, 0, report.LoadStats.Min)
	assert.Equal(t, 3, report.LoadStats.Max)
	assert.InDelta(t, 4.0/3.0, report.LoadStats.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(7.0/3.0), report.LoadStats.StdDev, 1e-9)
	assert.Equal(t, []uint64{3}, report.IdleInvigilators)
}

func TestLoadStatisticsWithFewInvigilators(t *testing.T) {
	//** Arrange
	catalog := testCatalog()
	catalog.Invigilators = catalog.Invigilators[:1]

	//** Act
	single := newVerifier().Verify(schedule(session(1, monday, "08:00", 90, 3, []uint64{2}, 1)), catalog)
	catalog.Invigilators = nil
	none := newVerifier().Verify(schedule(), catalog)

	//** Assert
	assert.Equal(t, model.LoadStats{Min: 1, Max: 1, Mean: 1}, single.LoadStats)
	assert.Equal(t, model.LoadStats{}, none.LoadStats)
	assert.NotNil(t, none.IdleInvigilators)
	assert.Empty(t, none.IdleInvigilators)
}

func TestIdleInvigilatorSampleIsBounded(t *testing.T) {
	//** Arrange
	catalog := testCatalog()
	catalog.Invigilators = nil
	for id := uint64(30); id > 0; id-- {
		catalog.Invigilators = append(catalog.Invigilators, model.Invigilator{Id: id, Department: 1})
	}

	//** Act
	report := NewConflictVerifier(model.DefaultConstraints(), 5).Verify(schedule(), catalog)

	//** Assert
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, report.IdleInvigilators)
	assert.Equal(t, 30, report.IdleCount)
}

func TestVerifyIsIdempotent(t *testing.T) {
	//** Arrange
	mixed := schedule(
		session(1, monday, "13:00", 90, 3, []uint64{1}, 1),
		session(2, monday, "08:00", 90, 2, []uint64{1}, 1, 2),
		session(3, monday, "08:30", 90, 1, []uint64{1}, 3),
		session(99, tuesday, "08:00", 90, 1, []uint64{2}, 1),
	)
	catalog := testCatalog()
	verifier := newVerifier()

	//** Act
	first := verifier.Verify(mixed, catalog)
	second := verifier.Verify(mixed, catalog)

	//** Assert
	assert.Equal(t, first, second)
	assert.Equal(t, model.StatusConflictsDetected, first.Summary.Status)
}
