package scheduler

import (
	"cmp"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/limaJavier/examtabling/pkg/model"
)

type slotKey struct {
	date string
	slot model.TimeSlot
}

type roomDay struct {
	date string
	room uint64
}

// interval is a half-open span of minutes from midnight.
type interval struct {
	start int
	end   int
}

func (a interval) overlaps(b interval) bool {
	return a.start < b.end && b.start < a.end
}

type loadKey struct {
	date        string
	invigilator uint64
}

// runState owns every occupancy accumulator of a single Build call. It is
// created at the start of a run and dropped at the end.
type runState struct {
	days         []time.Time
	slots        []model.TimeSlot
	rooms        []model.Room // Available rooms, largest exam capacity first
	invigilators []model.Invigilator
	constraints  model.Constraints

	studentsByDate map[string]mapset.Set[uint64]  // Students already sitting an exam on a date
	roomsBySlot    map[slotKey]mapset.Set[uint64] // Rooms taken at a (date, slot)
	roomSpans      map[roomDay][]interval         // Time spans a room is busy on a date
	load           map[loadKey]int                // Invigilations per (date, invigilator)
}

// placement tunes a single attempt; the main pass uses the zero overflow.
type placement struct {
	roomOverflow         int
	crossDepartmentFirst bool
	partial              bool // Accept fewer rooms and invigilators than required
}

func newRunState(catalog model.Catalog, config model.Configuration) *runState {
	rooms := make([]model.Room, 0, len(catalog.Rooms))
	for _, room := range catalog.Rooms {
		if room.Available {
			rooms = append(rooms, room)
		}
	}
	slices.SortStableFunc(rooms, func(a, b model.Room) int {
		return cmp.Compare(b.ExamCapacity, a.ExamCapacity)
	})

	return &runState{
		days:           config.Days(),
		slots:          config.TimeSlots,
		rooms:          rooms,
		invigilators:   catalog.Invigilators,
		constraints:    config.Constraints,
		studentsByDate: make(map[string]mapset.Set[uint64]),
		roomsBySlot:    make(map[slotKey]mapset.Set[uint64]),
		roomSpans:      make(map[roomDay][]interval),
		load:           make(map[loadKey]int),
	}
}

// studentsBusy checks whether any of the students already sits an exam on the date.
func (state *runState) studentsBusy(date string, students []uint64) bool {
	occupied, ok := state.studentsByDate[date]
	if !ok {
		return false
	}
	for _, student := range students {
		if occupied.Contains(student) {
			return true
		}
	}
	return false
}

// seatsPerRoom is the number of students a room may host under the policy cap.
func (state *runState) seatsPerRoom(room model.Room, overflow int) int {
	return min(room.ExamCapacity, state.constraints.MaxStudentsPerRoom) + overflow
}

// roomBusy checks whether the room already hosts a session intersecting span.
func (state *runState) roomBusy(date string, room uint64, span interval) bool {
	for _, busy := range state.roomSpans[roomDay{date: date, room: room}] {
		if busy.overlaps(span) {
			return true
		}
	}
	return false
}

// freeRooms collects free rooms at (date, slot) until their seats cover the
// headcount. A room is free when it is not taken at the slot and no session
// in it intersects the exam's duration. It returns nil when the free rooms
// cannot cover the headcount, unless the placement is partial.
func (state *runState) freeRooms(key slotKey, durationMinutes int, headcount int, strategy placement) []model.Room {
	occupied := state.roomsBySlot[key]
	span := interval{start: key.slot.Minutes(), end: key.slot.Minutes() + durationMinutes}
	chosen := make([]model.Room, 0)
	seats := 0
	for _, room := range state.rooms {
		if occupied != nil && occupied.Contains(room.Id) {
			continue
		}
		if state.roomBusy(key.date, room.Id, span) {
			continue
		}
		perRoom := state.seatsPerRoom(room, strategy.roomOverflow)
		if perRoom <= 0 {
			continue
		}
		chosen = append(chosen, room)
		seats += perRoom
		if seats >= headcount {
			return chosen
		}
	}
	if strategy.partial {
		return chosen
	}
	return nil
}

func (state *runState) dayLoad(date string, invigilator uint64) int {
	return state.load[loadKey{date: date, invigilator: invigilator}]
}

func (state *runState) underCap(date string, invigilator uint64) bool {
	return state.dayLoad(date, invigilator) < state.constraints.MaxInvigilationsPerDay
}

// commit records a successful placement in every accumulator and returns the
// resulting session.
func (state *runState) commit(course model.Course, day time.Time, slot model.TimeSlot, rooms []model.Room, invigilators []uint64) model.ExamSession {
	date := model.DateKey(day)
	key := slotKey{date: date, slot: slot}

	if _, ok := state.roomsBySlot[key]; !ok {
		state.roomsBySlot[key] = mapset.NewThreadUnsafeSet[uint64]()
	}
	span := interval{start: slot.Minutes(), end: slot.Minutes() + course.DurationMinutes}
	roomIds := make([]uint64, 0, len(rooms))
	for _, room := range rooms {
		state.roomsBySlot[key].Add(room.Id)
		busy := roomDay{date: date, room: room.Id}
		state.roomSpans[busy] = append(state.roomSpans[busy], span)
		roomIds = append(roomIds, room.Id)
	}

	if _, ok := state.studentsByDate[date]; !ok {
		state.studentsByDate[date] = mapset.NewThreadUnsafeSet[uint64]()
	}
	for _, student := range course.Students {
		state.studentsByDate[date].Add(student)
	}

	assignments := make([]model.InvigilatorAssignment, 0, len(invigilators))
	for i, invigilator := range invigilators {
		state.load[loadKey{date: date, invigilator: invigilator}]++
		role := model.Secondary
		if i == 0 {
			role = model.Principal
		}
		assignments = append(assignments, model.InvigilatorAssignment{Invigilator: invigilator, Role: role})
	}

	return model.ExamSession{
		Course:          course.Id,
		Date:            day,
		Slot:            slot,
		DurationMinutes: course.DurationMinutes,
		Rooms:           roomIds,
		Invigilators:    assignments,
		Headcount:       course.Enrollment(),
	}
}

// totals summarises invigilator usage for the run log.
func (state *runState) totals() (invigilations int, used int) {
	invigilators := mapset.NewThreadUnsafeSet[uint64]()
	for key, count := range state.load {
		invigilations += count
		invigilators.Add(key.invigilator)
	}
	return invigilations, invigilators.Cardinality()
}
