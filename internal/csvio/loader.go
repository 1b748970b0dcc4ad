// Package csvio reads catalog snapshots from delimited files and exports
// schedules back to CSV.
package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/examtabling/pkg/model"
	"golang.org/x/sync/errgroup"
)

const (
	CoursesFile      = "courses.csv"
	RoomsFile        = "rooms.csv"
	InvigilatorsFile = "invigilators.csv"
	EnrollmentsFile  = "enrollments.csv"
)

type courseRecord struct {
	Id                     uint64 `csv:"id"`
	Code                   string `csv:"code"`
	Name                   string `csv:"name"`
	DurationMinutes        int    `csv:"duration_minutes"`
	Department             uint64 `csv:"department"`
	ResponsibleInvigilator string `csv:"responsible_invigilator"` // Empty when the course has none
}

type roomRecord struct {
	Id           uint64 `csv:"id"`
	Name         string `csv:"name"`
	ExamCapacity int    `csv:"exam_capacity"`
	Available    bool   `csv:"available"`
}

type invigilatorRecord struct {
	Id         uint64 `csv:"id"`
	Name       string `csv:"name"`
	Department uint64 `csv:"department"`
}

type enrollmentRecord struct {
	Student uint64 `csv:"student"`
	Course  uint64 `csv:"course"`
}

// LoadCatalog reads the four catalog files of dir concurrently and resolves
// them into a validated snapshot.
func LoadCatalog(ctx context.Context, dir string, delim rune) (model.Catalog, error) {
	var (
		courses      []*courseRecord
		rooms        []*roomRecord
		invigilators []*invigilatorRecord
		enrollments  []*enrollmentRecord
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return readFile(ctx, filepath.Join(dir, CoursesFile), delim, &courses) })
	group.Go(func() error { return readFile(ctx, filepath.Join(dir, RoomsFile), delim, &rooms) })
	group.Go(func() error { return readFile(ctx, filepath.Join(dir, InvigilatorsFile), delim, &invigilators) })
	group.Go(func() error { return readFile(ctx, filepath.Join(dir, EnrollmentsFile), delim, &enrollments) })
	if err := group.Wait(); err != nil {
		return model.Catalog{}, err
	}

	raw := model.RawCatalog{
		Courses:      make([]model.RawCourse, 0, len(courses)),
		Rooms:        make([]model.Room, 0, len(rooms)),
		Invigilators: make([]model.Invigilator, 0, len(invigilators)),
		Enrollments:  make([]model.RawEnrollment, 0, len(enrollments)),
	}
	for _, record := range courses {
		course := model.RawCourse{
			Id:              record.Id,
			Code:            record.Code,
			Name:            record.Name,
			DurationMinutes: record.DurationMinutes,
			Department:      record.Department,
		}
		if responsible := strings.TrimSpace(record.ResponsibleInvigilator); responsible != "" {
			id, err := strconv.ParseUint(responsible, 10, 64)
			if err != nil {
				return model.Catalog{}, fmt.Errorf("%s: course %d: invalid responsible invigilator %q: %w", CoursesFile, record.Id, responsible, err)
			}
			course.ResponsibleInvigilator = &id
		}
		raw.Courses = append(raw.Courses, course)
	}
	for _, record := range rooms {
		raw.Rooms = append(raw.Rooms, model.Room(*record))
	}
	for _, record := range invigilators {
		raw.Invigilators = append(raw.Invigilators, model.Invigilator(*record))
	}
	for _, record := range enrollments {
		raw.Enrollments = append(raw.Enrollments, model.RawEnrollment(*record))
	}

	return model.ProcessRawCatalog(raw)
}

func readFile[T any](ctx context.Context, path string, delim rune, out *[]*T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delim
	reader.TrimLeadingSpace = true
	if err := gocsv.UnmarshalCSV(reader, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
