package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/limaJavier/examtabling/internal/config"
	"github.com/limaJavier/examtabling/internal/csvio"
	"github.com/limaJavier/examtabling/internal/logging"
	"github.com/limaJavier/examtabling/pkg/model"
	"github.com/limaJavier/examtabling/pkg/scheduler"
	"github.com/limaJavier/examtabling/pkg/store"
	"github.com/limaJavier/examtabling/pkg/verifier"
	"github.com/urfave/cli/v3"
)

var errConflicts = errors.New("conflicts detected")

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a TOML or YAML configuration file; defaults are used when empty",
	}
	catalogFlag := &cli.StringFlag{
		Name:     "catalog",
		Usage:    "Catalog to read: a JSON file or a directory holding courses.csv, rooms.csv, invigilators.csv and enrollments.csv",
		Required: true,
	}

	app := &cli.Command{
		Name:  "examtabling",
		Usage: "Build and audit exam session schedules",
		Commands: []*cli.Command{
			{
				Name:  "schedule",
				Usage: "Place every course of the catalog and replace the stored schedule",
				Flags: []cli.Flag{
					configFlag,
					catalogFlag,
					&cli.BoolFlag{Name: "dry-run", Usage: "Do not persist the schedule"},
					&cli.StringFlag{Name: "export", Usage: "Also write the schedule as CSV to this path"},
				},
				Action: runSchedule,
			},
			{
				Name:  "verify",
				Usage: "Audit the stored schedule against the catalog",
				Flags: []cli.Flag{
					configFlag,
					catalogFlag,
					&cli.BoolFlag{Name: "json", Usage: "Print the report as JSON"},
				},
				Action: runVerify,
			},
			{
				Name:   "show",
				Usage:  "List the sessions of the stored schedule",
				Flags:  []cli.Flag{configFlag},
				Action: runShow,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, errConflicts) {
			os.Exit(1)
		}
		log.Fatalf("%v", err)
	}
}

func runSchedule(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(ctx, cmd.String("catalog"), cfg.Delimiter)
	if err != nil {
		return err
	}

	engine := scheduler.NewGreedyScheduler(scheduler.WithLogger(logger))
	result, err := engine.Build(ctx, catalog, cfg.Scheduling)
	if err != nil {
		return fmt.Errorf("an error occurred during schedule construction: %w", err)
	}
	schedule := model.NewSchedule(result, cfg.Scheduling, time.Now())

	renderResult(os.Stdout, result, catalog)

	if path := cmd.String("export"); path != "" {
		if err := csvio.ExportSchedule(path, schedule, catalog, cfg.Delimiter); err != nil {
			return err
		}
		logger.Info("schedule exported", slog.String("path", path))
	}

	if cmd.Bool("dry-run") {
		logger.Info("dry run, schedule not persisted")
		return nil
	}
	persistence, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := persistence.Replace(ctx, schedule); err != nil {
		return fmt.Errorf("the previous schedule was kept: %w", err)
	}
	return nil
}

func runVerify(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(ctx, cmd.String("catalog"), cfg.Delimiter)
	if err != nil {
		return err
	}
	persistence, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	schedule, err := persistence.Load(ctx, cfg.Scheduling.AcademicYear, cfg.Scheduling.Session)
	if err != nil {
		return fmt.Errorf("cannot load schedule %v %v: %w", cfg.Scheduling.AcademicYear, cfg.Scheduling.Session, err)
	}

	auditor := verifier.NewConflictVerifier(cfg.Scheduling.Constraints, cfg.Scheduling.IdleSampleSize, verifier.WithLogger(logger))
	report := auditor.Verify(schedule, catalog)

	if cmd.Bool("json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
	} else {
		renderReport(os.Stdout, report, catalog)
	}

	if report.Summary.Status != model.StatusOK {
		return errConflicts
	}
	return nil
}

func runShow(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	persistence, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	schedule, err := persistence.Load(ctx, cfg.Scheduling.AcademicYear, cfg.Scheduling.Session)
	if err != nil {
		return fmt.Errorf("cannot load schedule %v %v: %w", cfg.Scheduling.AcademicYear, cfg.Scheduling.Session, err)
	}
	renderSchedule(os.Stdout, schedule)
	return nil
}

func setup(cmd *cli.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(cfg.LogLevel, os.Stderr), nil
}

func loadCatalog(ctx context.Context, path string, delimiter rune) (model.Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.Catalog{}, fmt.Errorf("cannot open catalog: %w", err)
	}
	if info.IsDir() {
		return csvio.LoadCatalog(ctx, path, delimiter)
	}
	return model.CatalogFromJson(path)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (model.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		fileStore, err := store.NewFileStore(cfg.StoreDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return fileStore, func() {}, nil
	}

	postgresStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := postgresStore.Migrate(ctx); err != nil {
		postgresStore.Close()
		return nil, nil, err
	}
	return postgresStore, func() {
		if err := postgresStore.Close(); err != nil {
			logger.Error("cannot close database", slog.String("error", err.Error()))
		}
	}, nil
}
