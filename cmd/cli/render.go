package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/limaJavier/examtabling/internal/csvio"
	"github.com/limaJavier/examtabling/pkg/model"
	"github.com/samber/lo"
)

func newTable(out io.Writer, title string, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(title)
	t.AppendHeader(header)
	t.SetStyle(table.StyleColoredDark)
	return t
}

func renderResult(out io.Writer, result model.Result, catalog model.Catalog) {
	schedule := model.Schedule{Sessions: result.Sessions}
	rows := csvio.ScheduleRows(schedule, catalog)

	t := newTable(out, "Sessions", table.Row{"Date", "Start", "End", "Course", "Students", "Rooms", "Principal", "Secondaries", "Relaxed"})
	for _, row := range rows {
		t.AppendRow(table.Row{row.Date, row.Start, row.End, row.Code, row.Headcount, row.Rooms, row.Principal, row.Secondaries, lo.Ternary(row.Relaxed, "yes", "")})
	}
	t.Render()

	if len(result.Failures) > 0 || len(result.Flagged) > 0 {
		f := newTable(out, "Unplaced or flagged courses", table.Row{"Course", "Name", "Students", "Reason", "Outcome"})
		for _, failure := range result.Failures {
			f.AppendRow(table.Row{failure.Code, failure.Name, failure.EnrollmentCount, failure.Reason, "FAILED"})
		}
		for _, flagged := range result.Flagged {
			f.AppendRow(table.Row{flagged.Code, flagged.Name, flagged.EnrollmentCount, flagged.Reason, "FLAGGED"})
		}
		f.SetColumnConfigs([]table.ColumnConfig{{Name: "Outcome", Transformer: outcomeColor, Align: text.AlignCenter}})
		f.Render()
	}

	status := color.New(color.FgGreen, color.Bold)
	if len(result.Failures) > 0 || result.Truncated {
		status = color.New(color.FgYellow, color.Bold)
	}
	status.Fprintf(out, "%d/%d courses scheduled in %v", result.ScheduledCount, result.TotalCount, result.Elapsed.Round(time.Millisecond))
	if result.Truncated {
		status.Fprint(out, " (time budget exhausted)")
	}
	fmt.Fprintln(out)
}

var outcomeColor = text.Transformer(func(value interface{}) string {
	switch value {
	case "FAILED", model.SeverityCritical:
		return text.FgHiRed.Sprint(value)
	case "FLAGGED", model.SeverityHigh:
		return text.FgHiYellow.Sprint(value)
	}
	return fmt.Sprint(value)
})

func renderReport(out io.Writer, report model.ConflictReport, catalog model.Catalog) {
	if len(report.StudentConflicts) > 0 {
		t := newTable(out, "Students with several exams on one day", table.Row{"Student", "Date", "Exams", "Courses", "Severity"})
		for _, conflict := range report.StudentConflicts {
			t.AppendRow(table.Row{conflict.Student, model.DateKey(conflict.Date), conflict.ExamCount, strings.Join(conflict.Courses, ", "), conflict.Severity})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Name: "Severity", Transformer: outcomeColor}})
		t.Render()
	}

	if len(report.InvigilatorOverloads) > 0 {
		invigilators := catalog.InvigilatorsById()
		t := newTable(out, "Overloaded invigilators", table.Row{"Invigilator", "Date", "Sessions", "Courses", "Severity"})
		for _, overload := range report.InvigilatorOverloads {
			name := fmt.Sprintf("#%d", overload.Invigilator)
			if invigilator, ok := invigilators[overload.Invigilator]; ok {
				name = invigilator.Name
			}
			t.AppendRow(table.Row{name, model.DateKey(overload.Date), overload.Count, strings.Join(overload.Courses, ", "), overload.Severity})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Name: "Severity", Transformer: outcomeColor}})
		t.Render()
	}

	if len(report.RoomOverruns) > 0 {
		t := newTable(out, "Room capacity overruns", table.Row{"Course", "Date", "Start", "Capacity", "Students", "Overrun", "Severity"})
		for _, overrun := range report.RoomOverruns {
			t.AppendRow(table.Row{overrun.Code, model.DateKey(overrun.Date), overrun.Start, overrun.Capacity, overrun.Headcount, overrun.Overrun, overrun.Severity})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Name: "Severity", Transformer: outcomeColor}})
		t.Render()
	}

	if len(report.RoomOverlaps) > 0 {
		rooms := catalog.RoomsById()
		t := newTable(out, "Room overlaps", table.Row{"Room", "Date", "First", "Second", "Severity"})
		for _, overlap := range report.RoomOverlaps {
			name := fmt.Sprintf("#%d", overlap.Room)
			if room, ok := rooms[overlap.Room]; ok {
				name = room.Name
			}
			t.AppendRow(table.Row{
				name,
				model.DateKey(overlap.Date),
				fmt.Sprintf("%v %v", overlap.FirstCourse, overlap.FirstStart),
				fmt.Sprintf("%v %v", overlap.SecondCourse, overlap.SecondStart),
				overlap.Severity,
			})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Name: "Severity", Transformer: outcomeColor}})
		t.Render()
	}

	if len(report.IntegrityFindings) > 0 {
		t := newTable(out, "Integrity findings", table.Row{"Session", "Course", "Entity", "Id", "Reason", "Severity"})
		for _, finding := range report.IntegrityFindings {
			t.AppendRow(table.Row{finding.Session, finding.Course, finding.Entity, finding.Id, finding.Reason, finding.Severity})
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Name: "Severity", Transformer: outcomeColor}})
		t.Render()
	}

	stats := report.LoadStats
	fmt.Fprintf(out, "Invigilator load: min %d, max %d, mean %.2f, stddev %.2f; %d idle %v\n",
		stats.Min, stats.Max, stats.Mean, stats.StdDev, report.IdleCount, report.IdleInvigilators)

	status := color.New(color.FgGreen, color.Bold)
	if report.Summary.Status != model.StatusOK {
		status = color.New(color.FgRed, color.Bold)
	}
	status.Fprintf(out, "%v: %d critical, %d warnings\n", report.Summary.Status, report.Summary.CriticalCount, report.Summary.WarningCount)
}

func renderSchedule(out io.Writer, schedule model.Schedule) {
	t := newTable(out, fmt.Sprintf("%v %v (run %v)", schedule.AcademicYear, schedule.Session, schedule.RunId),
		table.Row{"Date", "Start", "Duration", "Course", "Students", "Rooms", "Invigilators"})
	for _, session := range schedule.Sessions {
		invigilators := lo.Map(session.Invigilators, func(assignment model.InvigilatorAssignment, _ int) string {
			return fmt.Sprintf("%d (%v)", assignment.Invigilator, assignment.Role)
		})
		t.AppendRow(table.Row{
			model.DateKey(session.Date),
			session.Slot,
			session.DurationMinutes,
			session.Course,
			session.Headcount,
			fmt.Sprint(session.Rooms),
			strings.Join(invigilators, ", "),
		})
	}
	t.SortBy([]table.SortBy{{Name: "Date", Mode: table.Asc}, {Name: "Start", Mode: table.Asc}})
	t.Render()
}
