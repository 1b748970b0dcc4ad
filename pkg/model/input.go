package model

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

type RawCourse struct {
	Id                     uint64
	Code                   string
	Name                   string
	DurationMinutes        int
	Department             uint64
	ResponsibleInvigilator *uint64
}

type RawEnrollment struct {
	Student uint64
	Course  uint64
}

type Student struct {
	Id   uint64
	Name string
}

type RawCatalog struct {
	Courses      []RawCourse
	Rooms        []Room
	Invigilators []Invigilator
	Students     []Student // Optional; when present every enrollment must reference a known student
	Enrollments  []RawEnrollment
}

type Course struct {
	Id                     uint64
	Code                   string
	Name                   string
	DurationMinutes        int
	Department             uint64
	ResponsibleInvigilator *uint64
	Students               []uint64
}

func (course Course) Enrollment() int {
	return len(course.Students)
}

type Room struct {
	Id           uint64
	Name         string
	ExamCapacity int
	Available    bool
}

type Invigilator struct {
	Id         uint64
	Name       string
	Department uint64
}

// Catalog is an immutable snapshot of everything a scheduling run reads.
type Catalog struct {
	Courses      []Course
	Rooms        []Room
	Invigilators []Invigilator
}

func CatalogFromJson(file string) (Catalog, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Catalog{}, fmt.Errorf("cannot read catalog file: %w", err)
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return Catalog{}, err
	}

	var rawCatalog RawCatalog
	if err := mapstructure.Decode(inputJson, &rawCatalog); err != nil {
		return Catalog{}, fmt.Errorf("cannot decode catalog: %w", err)
	}
	return ProcessRawCatalog(rawCatalog)
}

// ProcessRawCatalog resolves enrollments into per-course student sets. Any
// dangling reference aborts with a DataIntegrityError.
func ProcessRawCatalog(rawCatalog RawCatalog) (Catalog, error) {
	courseIndex := make(map[uint64]int, len(rawCatalog.Courses))
	courses := make([]Course, 0, len(rawCatalog.Courses))
	for _, rawCourse := range rawCatalog.Courses {
		if _, ok := courseIndex[rawCourse.Id]; ok {
			return Catalog{}, &DataIntegrityError{Entity: EntityCourse, Id: rawCourse.Id, Reason: "duplicate identifier"}
		}
		courseIndex[rawCourse.Id] = len(courses)
		courses = append(courses, Course{
			Id:                     rawCourse.Id,
			Code:                   rawCourse.Code,
			Name:                   rawCourse.Name,
			DurationMinutes:        rawCourse.DurationMinutes,
			Department:             rawCourse.Department,
			ResponsibleInvigilator: rawCourse.ResponsibleInvigilator,
			Students:               make([]uint64, 0),
		})
	}

	students := lo.SliceToMap(rawCatalog.Students, func(student Student) (uint64, bool) { return student.Id, true })

	// Enrollment pairs are a set: repeated rows for the same student and course count once
	enrolled := make(map[[2]uint64]bool, len(rawCatalog.Enrollments))
	for _, enrollment := range rawCatalog.Enrollments {
		index, ok := courseIndex[enrollment.Course]
		if !ok {
			return Catalog{}, &DataIntegrityError{Entity: EntityCourse, Id: enrollment.Course, Reason: fmt.Sprintf("enrollment of student %d references an unknown course", enrollment.Student)}
		}
		if len(students) > 0 && !students[enrollment.Student] {
			return Catalog{}, &DataIntegrityError{Entity: EntityStudent, Id: enrollment.Student, Reason: fmt.Sprintf("enrolled in course %v but missing from the student list", courses[index].Code)}
		}
		key := [2]uint64{enrollment.Student, enrollment.Course}
		if enrolled[key] {
			continue
		}
		enrolled[key] = true
		courses[index].Students = append(courses[index].Students, enrollment.Student)
	}

	for i := range courses {
		slices.Sort(courses[i].Students) // Sort students to keep the snapshot canonical
	}

	catalog := Catalog{
		Courses:      courses,
		Rooms:        rawCatalog.Rooms,
		Invigilators: rawCatalog.Invigilators,
	}
	return catalog, catalog.Validate()
}

// Validate checks identifier uniqueness, that every course lasts a positive
// number of minutes and that its responsible invigilator exists.
func (catalog Catalog) Validate() error {
	if id, ok := firstDuplicate(lo.Map(catalog.Courses, func(course Course, _ int) uint64 { return course.Id })); ok {
		return &DataIntegrityError{Entity: EntityCourse, Id: id, Reason: "duplicate identifier"}
	}
	if id, ok := firstDuplicate(lo.Map(catalog.Rooms, func(room Room, _ int) uint64 { return room.Id })); ok {
		return &DataIntegrityError{Entity: EntityRoom, Id: id, Reason: "duplicate identifier"}
	}
	if id, ok := firstDuplicate(lo.Map(catalog.Invigilators, func(invigilator Invigilator, _ int) uint64 { return invigilator.Id })); ok {
		return &DataIntegrityError{Entity: EntityInvigilator, Id: id, Reason: "duplicate identifier"}
	}

	invigilators := catalog.InvigilatorsById()
	for _, course := range catalog.Courses {
		if course.DurationMinutes <= 0 {
			return &DataIntegrityError{
				Entity: EntityCourse,
				Id:     course.Id,
				Reason: fmt.Sprintf("course %v has a non-positive duration of %d minutes", course.Code, course.DurationMinutes),
			}
		}
		if course.ResponsibleInvigilator == nil {
			continue
		}
		if _, ok := invigilators[*course.ResponsibleInvigilator]; !ok {
			return &DataIntegrityError{
				Entity: EntityInvigilator,
				Id:     *course.ResponsibleInvigilator,
				Reason: fmt.Sprintf("responsible invigilator of course %v does not exist", course.Code),
			}
		}
	}
	return nil
}

func (catalog Catalog) CoursesById() map[uint64]Course {
	return lo.KeyBy(catalog.Courses, func(course Course) uint64 { return course.Id })
}

func (catalog Catalog) RoomsById() map[uint64]Room {
	return lo.KeyBy(catalog.Rooms, func(room Room) uint64 { return room.Id })
}

func (catalog Catalog) InvigilatorsById() map[uint64]Invigilator {
	return lo.KeyBy(catalog.Invigilators, func(invigilator Invigilator) uint64 { return invigilator.Id })
}

func firstDuplicate(ids []uint64) (uint64, bool) {
	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id, true
		}
		seen[id] = true
	}
	return 0, false
}
