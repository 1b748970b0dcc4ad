package scheduler

import (
	"fmt"
	"slices"
	"time"

	"github.com/limaJavier/examtabling/pkg/model"
)

var monday = time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)

// configuration spans days consecutive business days starting on a Monday.
func configuration(days int, slots ...string) model.Configuration {
	config := model.DefaultConfiguration()
	config.StartDate = monday
	config.EndDate = monday.AddDate(0, 0, days-1)
	config.TimeSlots = model.MustParseTimeSlots(slots...)
	config.TimeBudget = 0
	return config
}

func course(id uint64, department uint64, students ...uint64) model.Course {
	students = slices.Clone(students)
	slices.Sort(students)
	return model.Course{
		Id:              id,
		Code:            fmt.Sprintf("C%02d", id),
		Name:            fmt.Sprintf("Course %d", id),
		DurationMinutes: 90,
		Department:      department,
		Students:        students,
	}
}

func studentRange(from uint64, count int) []uint64 {
	students := make([]uint64, 0, count)
	for i := range count {
		students = append(students, from+uint64(i))
	}
	return students
}

func room(id uint64, capacity int) model.Room {
	return model.Room{Id: id, Name: fmt.Sprintf("R%d", id), ExamCapacity: capacity, Available: true}
}

func invigilator(id uint64, department uint64) model.Invigilator {
	return model.Invigilator{Id: id, Name: fmt.Sprintf("I%d", id), Department: department}
}

// generatedCatalog builds a mid-sized catalog where every student sits three
// exams and durations sometimes exceed the gap between slots.
func generatedCatalog() model.Catalog {
	const (
		courses  = 40
		students = 200
	)
	catalog := model.Catalog{
		Rooms: []model.Room{room(1, 60), room(2, 40), room(3, 30), room(4, 25), room(5, 20), room(6, 15)},
	}
	for id := range uint64(10) {
		catalog.Invigilators = append(catalog.Invigilators, invigilator(id+1, id%4+1))
	}

	enrolled := make([][]uint64, courses)
	for student := range uint64(students) {
		for _, index := range []uint64{student % courses, (student*7 + 3) % courses, (student*13 + 5) % courses} {
			if !slices.Contains(enrolled[index], student+1) {
				enrolled[index] = append(enrolled[index], student+1)
			}
		}
	}
	durations := []int{90, 120, 180}
	for index := range courses {
		c := course(uint64(index+1), uint64(index%4+1), enrolled[index]...)
		c.DurationMinutes = durations[index%len(durations)]
		if index%5 == 0 {
			responsible := uint64(index%10 + 1)
			c.ResponsibleInvigilator = &responsible
		}
		catalog.Courses = append(catalog.Courses, c)
	}
	return catalog
}
