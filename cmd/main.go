package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/limaJavier/examtabling/internal/logging"
	"github.com/limaJavier/examtabling/pkg/model"
	"github.com/limaJavier/examtabling/pkg/scheduler"
	"github.com/limaJavier/examtabling/pkg/verifier"
)

// Catalog used when no path is given on the command line
const File string = "../test/catalogs/small.json"

func main() {
	file := File
	if len(os.Args) > 1 {
		file = os.Args[1]
	}

	catalog, err := model.CatalogFromJson(file)
	if err != nil {
		log.Fatalf("cannot parse catalog file: %v", err)
	}

	config := model.DefaultConfiguration()
	logger := logging.New(slog.LevelInfo, os.Stderr)
	greedy := scheduler.NewGreedyScheduler(scheduler.WithLogger(logger))

	result, err := greedy.Build(context.Background(), catalog, config)
	if err != nil {
		log.Fatal(err)
	}

	courses := catalog.CoursesById()
	rooms := catalog.RoomsById()
	sessions := slices.Clone(result.Sessions)
	slices.SortFunc(sessions, func(a, b model.ExamSession) int {
		return a.Start().Compare(b.Start())
	})

	for _, session := range sessions {
		roomNames := make([]string, 0, len(session.Rooms))
		for _, id := range session.Rooms {
			roomNames = append(roomNames, rooms[id].Name)
		}
		principal, _ := session.Principal()
		fmt.Printf("Day: %v %v, Start: %v, Course: %v, Students: %v, Rooms: %v, Principal: %v, Invigilators: %v\n",
			session.Date.Weekday(), model.DateKey(session.Date), session.Slot, courses[session.Course].Code,
			session.Headcount, strings.Join(roomNames, ", "), principal, len(session.Invigilators))
	}
	for _, failure := range result.Failures {
		fmt.Printf("Not placed: %v (%v students): %v\n", failure.Code, failure.EnrollmentCount, failure.Reason)
	}

	schedule := model.NewSchedule(result, config, time.Now())
	report := verifier.NewConflictVerifier(config.Constraints, config.IdleSampleSize).Verify(schedule, catalog)
	if report.Summary.CriticalCount > 0 {
		log.Fatalf("Verification failed: %d critical findings", report.Summary.CriticalCount)
	}

	fmt.Printf("Well done! %d of %d courses placed\n", result.ScheduledCount, result.TotalCount)
}
