package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJson = `{
	"Courses": [
		{"Id": 1, "Code": "MATH101", "Name": "Analysis", "DurationMinutes": 120, "Department": 1, "ResponsibleInvigilator": 2},
		{"Id": 2, "Code": "PHYS101", "Name": "Mechanics", "DurationMinutes": 90, "Department": 2, "ResponsibleInvigilator": null}
	],
	"Rooms": [
		{"Id": 1, "Name": "Aula Magna", "ExamCapacity": 120, "Available": true},
		{"Id": 2, "Name": "B12", "ExamCapacity": 25, "Available": false}
	],
	"Invigilators": [
		{"Id": 1, "Name": "Ada", "Department": 1},
		{"Id": 2, "Name": "Bob", "Department": 2}
	],
	"Enrollments": [
		{"Student": 30, "Course": 1},
		{"Student": 10, "Course": 1},
		{"Student": 10, "Course": 1},
		{"Student": 20, "Course": 2}
	]
}`

func TestCatalogFromJson(t *testing.T) {
	//** Arrange
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(catalogJson), 0o644))

	//** Act
	catalog, err := CatalogFromJson(path)

	//** Assert
	g := NewWithT(t)
	require.NoError(t, err)
	g.Expect(catalog.Courses).To(HaveLen(2))
	g.Expect(catalog.Rooms).To(HaveLen(2))
	g.Expect(catalog.Invigilators).To(HaveLen(2))

	math := catalog.Courses[0]
	g.Expect(math.Code).To(Equal("MATH101"))
	g.Expect(math.DurationMinutes).To(Equal(120))
	g.Expect(math.Students).To(Equal([]uint64{10, 30}))
	g.Expect(math.Enrollment()).To(Equal(2))
	g.Expect(math.ResponsibleInvigilator).NotTo(BeNil())
	g.Expect(*math.ResponsibleInvigilator).To(Equal(uint64(2)))

	g.Expect(catalog.Courses[1].ResponsibleInvigilator).To(BeNil())
	g.Expect(catalog.Rooms[1].Available).To(BeFalse())
	g.Expect(catalog.RoomsById()[1].Name).To(Equal("Aula Magna"))
}

func TestCatalogFromJsonMissingFile(t *testing.T) {
	_, err := CatalogFromJson(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestProcessRawCatalogIntegrity(t *testing.T) {
	unknown := uint64(9)
	cases := map[string]struct {
		raw    RawCatalog
		entity string
		id     uint64
	}{
		"enrollment to an unknown course": {
			raw:    RawCatalog{Courses: []RawCourse{{Id: 1}}, Enrollments: []RawEnrollment{{Student: 1, Course: 2}}},
			entity: EntityCourse,
			id:     2,
		},
		"enrollment of an unknown student": {
			raw: RawCatalog{
				Courses:     []RawCourse{{Id: 1}},
				Students:    []Student{{Id: 1}},
				Enrollments: []RawEnrollment{{Student: 1, Course: 1}, {Student: 5, Course: 1}},
			},
			entity: EntityStudent,
			id:     5,
		},
		"duplicate course": {
			raw:    RawCatalog{Courses: []RawCourse{{Id: 1}, {Id: 1}}},
			entity: EntityCourse,
			id:     1,
		},
		"unknown responsible invigilator": {
			raw:    RawCatalog{Courses: []RawCourse{{Id: 1, Code: "X", DurationMinutes: 90, ResponsibleInvigilator: &unknown}}},
			entity: EntityInvigilator,
			id:     9,
		},
		"zero-length exam": {
			raw:    RawCatalog{Courses: []RawCourse{{Id: 1, Code: "X", DurationMinutes: 90}, {Id: 4, Code: "Y"}}},
			entity: EntityCourse,
			id:     4,
		},
		"duplicate room": {
			raw:    RawCatalog{Rooms: []Room{{Id: 3}, {Id: 3}}},
			entity: EntityRoom,
			id:     3,
		},
	}

	for name, test := range cases {
		t.Run(name, func(t *testing.T) {
			//** Act
			_, err := ProcessRawCatalog(test.raw)

			//** Assert
			var integrityError *DataIntegrityError
			require.True(t, errors.As(err, &integrityError), "%v", err)
			assert.Equal(t, test.entity, integrityError.Entity)
			assert.Equal(t, test.id, integrityError.Id)
		})
	}
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Result{}.Err())

	err := Result{Failures: []Failure{
		{Course: 1, Code: "A", Reason: ReasonRooms},
		{Course: 2, Code: "B", Reason: ReasonStudents},
	}}.Err()

	var failure *PlacementFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "A", failure.Failure.Code)
	assert.Contains(t, err.Error(), "course B")
}
