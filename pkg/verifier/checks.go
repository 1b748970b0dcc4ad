package verifier

import (
	"cmp"
	"slices"

	"github.com/limaJavier/examtabling/pkg/model"
	"github.com/samber/lo"
)

func (verifier *conflictVerifier) studentConflicts(index *sessionIndex) []model.StudentConflict {
	conflicts := make([]model.StudentConflict, 0)
	for key, positions := range index.byStudentDay {
		if len(positions) <= verifier.constraints.MaxSessionsPerDayPerStudent {
			continue
		}
		conflicts = append(conflicts, model.StudentConflict{
			Student:   key.student,
			Date:      model.Date(index.sessions[positions[0]].Date),
			ExamCount: len(positions),
			Courses:   index.codes(positions),
			Severity:  model.SeverityCritical,
		})
	}

	slices.SortFunc(conflicts, func(a, b model.StudentConflict) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(b.ExamCount, a.ExamCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Student, b.Student)
	})
	return conflicts
}

func (verifier *conflictVerifier) invigilatorOverloads(index *sessionIndex) []model.InvigilatorOverload {
	overloads := make([]model.InvigilatorOverload, 0)
	for key, positions := range index.byInvigilatorDay {
		if len(positions) <= verifier.constraints.MaxInvigilationsPerDay {
			continue
		}
		overloads = append(overloads, model.InvigilatorOverload{
			Invigilator: key.invigilator,
			Date:        model.Date(index.sessions[positions[0]].Date),
			Count:       len(positions),
			Courses:     index.codes(positions),
			Severity:    model.SeverityHigh,
		})
	}

	slices.SortFunc(overloads, func(a, b model.InvigilatorOverload) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Invigilator, b.Invigilator)
	})
	return overloads
}

// roomOverruns compares each session's headcount with the summed exam
// capacity of its rooms. Sessions without rooms or referencing an unknown room
// are left to the integrity findings.
func (verifier *conflictVerifier) roomOverruns(index *sessionIndex) []model.RoomOverrun {
	overruns := make([]model.RoomOverrun, 0)
	for i, session := range index.sessions {
		capacity := 0
		known := true
		for _, id := range index.roomsOf[i] {
			room, ok := index.rooms[id]
			if !ok {
				known = false
				break
			}
			capacity += room.ExamCapacity
		}
		if !known || len(index.roomsOf[i]) == 0 || session.Headcount <= capacity {
			continue
		}
		overruns = append(overruns, model.RoomOverrun{
			Course:    session.Course,
			Code:      index.code(i),
			Date:      model.Date(session.Date),
			Start:     session.Slot,
			Rooms:     slices.Clone(index.roomsOf[i]),
			Capacity:  capacity,
			Headcount: session.Headcount,
			Overrun:   session.Headcount - capacity,
			Severity:  model.SeverityCritical,
		})
	}

	slices.SortStableFunc(overruns, func(a, b model.RoomOverrun) int {
		return cmp.Compare(b.Overrun, a.Overrun)
	})
	return overruns
}

// roomOverlaps reports every pair of sessions sharing a room on the same date
// whose intervals intersect.
func (verifier *conflictVerifier) roomOverlaps(index *sessionIndex) []model.RoomOverlap {
	overlaps := make([]model.RoomOverlap, 0)

	rooms := lo.Keys(index.byRoom)
	slices.Sort(rooms)
	for _, room := range rooms {
		positions := index.chronological(index.byRoom[room])
		for a := 0; a < len(positions); a++ {
			first := index.sessions[positions[a]]
			for b := a + 1; b < len(positions); b++ {
				second := index.sessions[positions[b]]
				if model.DateKey(first.Date) != model.DateKey(second.Date) {
					break
				}
				// Sorted by start, so nothing later can intersect either
				if !second.Start().Before(first.End()) {
					break
				}
				overlaps = append(overlaps, model.RoomOverlap{
					Room:         room,
					Date:         model.Date(first.Date),
					FirstCourse:  index.code(positions[a]),
					FirstStart:   first.Slot,
					SecondCourse: index.code(positions[b]),
					SecondStart:  second.Slot,
					Severity:     model.SeverityCritical,
				})
			}
		}
	}

	slices.SortStableFunc(overlaps, func(a, b model.RoomOverlap) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.FirstStart.Minutes(), b.FirstStart.Minutes())
	})
	return overlaps
}
