package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/examtabling/pkg/model"
	"github.com/samber/lo"
)

// ScheduleRow is the flat export of one session.
type ScheduleRow struct {
	Date        string `csv:"date"`
	Start       string `csv:"start"`
	End         string `csv:"end"`
	Code        string `csv:"code"`
	Name        string `csv:"name"`
	Headcount   int    `csv:"headcount"`
	Rooms       string `csv:"rooms"`
	Principal   string `csv:"principal"`
	Secondaries string `csv:"secondaries"`
	Relaxed     bool   `csv:"relaxed"`
}

// ScheduleRows formats sessions in chronological order, naming courses, rooms
// and invigilators from the catalog when it knows them.
func ScheduleRows(schedule model.Schedule, catalog model.Catalog) []*ScheduleRow {
	courses := catalog.CoursesById()
	rooms := catalog.RoomsById()
	invigilators := catalog.InvigilatorsById()

	invigilatorName := func(id uint64) string {
		if invigilator, ok := invigilators[id]; ok {
			return invigilator.Name
		}
		return "#" + strconv.FormatUint(id, 10)
	}

	sessions := slices.Clone(schedule.Sessions)
	slices.SortStableFunc(sessions, func(a, b model.ExamSession) int {
		return a.Start().Compare(b.Start())
	})

	rows := make([]*ScheduleRow, 0, len(sessions))
	for _, session := range sessions {
		row := &ScheduleRow{
			Date:      model.DateKey(session.Date),
			Start:     session.Slot.String(),
			End:       session.End().Format("15:04"),
			Code:      "#" + strconv.FormatUint(session.Course, 10),
			Headcount: session.Headcount,
			Relaxed:   session.Relaxed,
		}
		if course, ok := courses[session.Course]; ok {
			row.Code, row.Name = course.Code, course.Name
		}
		row.Rooms = strings.Join(lo.Map(session.Rooms, func(id uint64, _ int) string {
			if room, ok := rooms[id]; ok {
				return room.Name
			}
			return "#" + strconv.FormatUint(id, 10)
		}), ", ")

		secondaries := make([]string, 0, len(session.Invigilators))
		for _, assignment := range session.Invigilators {
			if assignment.Role == model.Principal {
				row.Principal = invigilatorName(assignment.Invigilator)
			} else {
				secondaries = append(secondaries, invigilatorName(assignment.Invigilator))
			}
		}
		row.Secondaries = strings.Join(secondaries, ", ")
		rows = append(rows, row)
	}
	return rows
}

// WriteSchedule writes the rows of a schedule as delimited text.
func WriteSchedule(w io.Writer, schedule model.Schedule, catalog model.Catalog, delim rune) error {
	rows := ScheduleRows(schedule, catalog)
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(writer)); err != nil {
		return fmt.Errorf("failed to write schedule: %w", err)
	}
	return nil
}

// ExportSchedule writes the schedule to path, replacing any existing file.
func ExportSchedule(path string, schedule model.Schedule, catalog model.Catalog, delim rune) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteSchedule(out, schedule, catalog, delim); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
