package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/examtabling/internal/logging"
	"github.com/limaJavier/examtabling/pkg/model"
	"github.com/limaJavier/examtabling/pkg/scheduler"
	"github.com/limaJavier/examtabling/pkg/verifier"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

const (
	defaultTestDirectory = "../../test/catalogs/"
	defaultOutput        = "benchmark_results.csv"
)

type BenchmarkResult struct {
	Test          string  `csv:"Test"`
	Courses       int     `csv:"Courses"`
	Rooms         int     `csv:"Rooms"`
	Invigilators  int     `csv:"Invigilators"`
	Enrollments   int     `csv:"Enrollments"`
	Scheduled     int     `csv:"Scheduled"`
	Failures      int     `csv:"Failures"`
	Flagged       int     `csv:"Flagged"`
	Duration      float64 `csv:"Duration(ms)"`
	CriticalCount int     `csv:"Critical"`
	WarningCount  int     `csv:"Warnings"`
	WithinBudget  bool    `csv:"Within Budget"`
}

func main() {
	app := &cli.Command{
		Name:  "benchmark",
		Usage: "Run the scheduler and the verifier over every JSON catalog of a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: defaultTestDirectory, Usage: "Directory holding *.json catalogs"},
			&cli.StringFlag{Name: "out", Value: defaultOutput, Usage: "CSV file receiving one row per catalog"},
			&cli.IntFlag{Name: "repetitions", Value: 3, Usage: "Runs per catalog; durations are averaged"},
			&cli.StringFlag{Name: "budget", Value: "00:00:45.00", Usage: "Time budget per run as h:mm:ss.hh or m:ss.hh"},
		},
		Action: run,
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	budgetMillis, err := parseDuration(cmd.String("budget"))
	if err != nil {
		return err
	}
	repetitions := max(int(cmd.Int("repetitions")), 1)

	config := model.DefaultConfiguration()
	config.TimeBudget = time.Duration(budgetMillis) * time.Millisecond

	logger := logging.New(slog.LevelInfo, os.Stderr)
	tests, err := getTests(cmd.String("dir"))
	if err != nil {
		return err
	}

	results := make([]*BenchmarkResult, 0, len(tests))
	for _, test := range tests {
		logger.Info("benchmarking", slog.String("test", test))
		result, err := measure(ctx, test, config, repetitions)
		if err != nil {
			return fmt.Errorf("test %v: %w", test, err)
		}
		results = append(results, result)
	}

	return toCsv(cmd.String("out"), results)
}

func getTests(directory string) ([]string, error) {
	tests, err := filepath.Glob(filepath.Join(directory, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}
	slices.Sort(tests)
	return tests, nil
}

func measure(ctx context.Context, test string, config model.Configuration, repetitions int) (*BenchmarkResult, error) {
	catalog, err := model.CatalogFromJson(test)
	if err != nil {
		return nil, fmt.Errorf("cannot parse catalog file: %w", err)
	}

	engine := scheduler.NewGreedyScheduler()
	durations := make([]time.Duration, 0, repetitions)
	var result model.Result
	for range repetitions {
		result, err = engine.Build(ctx, catalog, config)
		if err != nil {
			return nil, err
		}
		durations = append(durations, result.Elapsed)
	}

	report := verifier.NewConflictVerifier(config.Constraints, config.IdleSampleSize).
		Verify(model.NewSchedule(result, config, time.Now()), catalog)

	mean := lo.Sum(durations) / time.Duration(len(durations))
	return &BenchmarkResult{
		Test:          filepath.Base(test),
		Courses:       len(catalog.Courses),
		Rooms:         len(catalog.Rooms),
		Invigilators:  len(catalog.Invigilators),
		Enrollments:   lo.SumBy(catalog.Courses, func(course model.Course) int { return course.Enrollment() }),
		Scheduled:     result.ScheduledCount,
		Failures:      len(result.Failures),
		Flagged:       len(result.Flagged),
		Duration:      float64(mean.Microseconds()) / 1000,
		CriticalCount: report.Summary.CriticalCount,
		WarningCount:  report.Summary.WarningCount,
		WithinBudget:  !result.Truncated,
	}, nil
}

func toCsv(path string, results []*BenchmarkResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create CSV file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		return fmt.Errorf("cannot write CSV records: %w", err)
	}
	return nil
}

// parseDuration converts h:mm:ss.hh or m:ss.hh into milliseconds.
func parseDuration(durationStr string) (int64, error) {
	parts := strings.Split(durationStr, ":")
	secondsParts := strings.Split(parts[len(parts)-1], ".")
	if len(secondsParts) != 2 || (len(parts) != 2 && len(parts) != 3) {
		return 0, fmt.Errorf("unexpected duration format: %v", durationStr)
	}

	numbers := make([]int, 0, len(parts)+1)
	for _, part := range append(parts[:len(parts)-1:len(parts)-1], secondsParts...) {
		number, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("unexpected duration format: %v: %w", durationStr, err)
		}
		numbers = append(numbers, number)
	}

	var hours, minutes, seconds, hundredthOfSeconds int
	if len(parts) == 3 { // h:mm:ss
		hours, minutes, seconds, hundredthOfSeconds = numbers[0], numbers[1], numbers[2], numbers[3]
	} else { // m:ss
		minutes, seconds, hundredthOfSeconds = numbers[0], numbers[1], numbers[2]
	}
	return int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10), nil
}
