package verifier

import (
	"cmp"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/limaJavier/examtabling/pkg/model"
)

type studentDay struct {
	student uint64
	date    string
}

type invigilatorDay struct {
	invigilator uint64
	date        string
}

// sessionIndex groups a schedule's sessions by every key a check needs. It is
// built once per verification and shared by all checks.
type sessionIndex struct {
	sessions     []model.ExamSession
	courses      map[uint64]model.Course
	rooms        map[uint64]model.Room
	invigilators map[uint64]model.Invigilator

	byStudentDay     map[studentDay][]int
	byInvigilatorDay map[invigilatorDay][]int
	byRoom           map[uint64][]int
	roomsOf          [][]uint64 // Distinct rooms per session, in listed order
	load             map[uint64]int
	integrity        []model.IntegrityFinding
}

func newSessionIndex(schedule model.Schedule, catalog model.Catalog) *sessionIndex {
	index := &sessionIndex{
		sessions:         schedule.Sessions,
		courses:          catalog.CoursesById(),
		rooms:            catalog.RoomsById(),
		invigilators:     catalog.InvigilatorsById(),
		byStudentDay:     make(map[studentDay][]int),
		byInvigilatorDay: make(map[invigilatorDay][]int),
		byRoom:           make(map[uint64][]int),
		roomsOf:          make([][]uint64, len(schedule.Sessions)),
		load:             make(map[uint64]int),
		integrity:        make([]model.IntegrityFinding, 0),
	}

	for i, session := range schedule.Sessions {
		date := model.DateKey(session.Date)
		index.checkStructure(i, session)

		// Students
		course, ok := index.courses[session.Course]
		if !ok {
			index.flag(i, session, model.EntityCourse, session.Course, "course is not in the catalog")
		} else {
			for _, student := range course.Students {
				key := studentDay{student: student, date: date}
				index.byStudentDay[key] = append(index.byStudentDay[key], i)
			}
		}

		// Rooms
		distinctRooms := mapset.NewThreadUnsafeSet[uint64]()
		index.roomsOf[i] = make([]uint64, 0, len(session.Rooms))
		for _, room := range session.Rooms {
			if !distinctRooms.Add(room) {
				continue
			}
			index.roomsOf[i] = append(index.roomsOf[i], room)
			if _, ok := index.rooms[room]; !ok {
				index.flag(i, session, model.EntityRoom, room, "room is not in the catalog")
			}
			index.byRoom[room] = append(index.byRoom[room], i)
		}

		// Invigilators
		distinctInvigilators := mapset.NewThreadUnsafeSet[uint64]()
		for _, assignment := range session.Invigilators {
			if !distinctInvigilators.Add(assignment.Invigilator) {
				index.flag(i, session, model.EntityInvigilator, assignment.Invigilator, "invigilator is assigned twice to the same session")
				continue
			}
			if _, ok := index.invigilators[assignment.Invigilator]; !ok {
				index.flag(i, session, model.EntityInvigilator, assignment.Invigilator, "invigilator is not in the catalog")
			}
			key := invigilatorDay{invigilator: assignment.Invigilator, date: date}
			index.byInvigilatorDay[key] = append(index.byInvigilatorDay[key], i)
			index.load[assignment.Invigilator]++
		}
	}

	return index
}

func (index *sessionIndex) checkStructure(i int, session model.ExamSession) {
	if len(session.Rooms) == 0 {
		index.flag(i, session, model.EntitySession, uint64(i), "session has no room")
	}
	if len(session.Invigilators) == 0 {
		index.flag(i, session, model.EntitySession, uint64(i), "session has no invigilator")
	} else {
		principals := 0
		for _, assignment := range session.Invigilators {
			if assignment.Role == model.Principal {
				principals++
			}
		}
		if principals != 1 {
			index.flag(i, session, model.EntitySession, uint64(i), fmt.Sprintf("session has %d principal invigilators", principals))
		}
	}
	if session.DurationMinutes <= 0 {
		index.flag(i, session, model.EntitySession, uint64(i), "session has a non-positive duration")
	}
}

func (index *sessionIndex) flag(i int, session model.ExamSession, entity string, id uint64, reason string) {
	index.integrity = append(index.integrity, model.IntegrityFinding{
		Session:  i,
		Course:   session.Course,
		Entity:   entity,
		Id:       id,
		Reason:   reason,
		Severity: model.SeverityCritical,
	})
}

// code names a session's course, falling back to its identifier when the
// course is unknown.
func (index *sessionIndex) code(i int) string {
	course, ok := index.courses[index.sessions[i].Course]
	if !ok {
		return fmt.Sprintf("#%d", index.sessions[i].Course)
	}
	return course.Code
}

// chronological sorts session positions by start time, then by course code
// and position so equal starts stay deterministic.
func (index *sessionIndex) chronological(positions []int) []int {
	sorted := slices.Clone(positions)
	slices.SortFunc(sorted, func(a, b int) int {
		if c := index.sessions[a].Start().Compare(index.sessions[b].Start()); c != 0 {
			return c
		}
		if c := cmp.Compare(index.code(a), index.code(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return sorted
}

func (index *sessionIndex) codes(positions []int) []string {
	codes := make([]string, 0, len(positions))
	for _, position := range index.chronological(positions) {
		codes = append(codes, index.code(position))
	}
	return codes
}
