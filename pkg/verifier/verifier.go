// Package verifier audits a stored schedule against the catalog it was built
// from and reports every conflict it finds.
package verifier

import (
	"log/slog"
	"time"

	"github.com/limaJavier/examtabling/pkg/model"
)

type conflictVerifier struct {
	constraints    model.Constraints
	idleSampleSize int
	logger         *slog.Logger
	now            func() time.Time
}

type Option func(*conflictVerifier)

func WithLogger(logger *slog.Logger) Option {
	return func(verifier *conflictVerifier) {
		if logger != nil {
			verifier.logger = logger
		}
	}
}

// WithClock replaces the clock stamping GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(verifier *conflictVerifier) {
		if now != nil {
			verifier.now = now
		}
	}
}

// NewConflictVerifier audits schedules under the given constraints, which need
// not match the ones the schedule was produced with.
func NewConflictVerifier(constraints model.Constraints, idleSampleSize int, options ...Option) model.Verifier {
	if idleSampleSize <= 0 {
		idleSampleSize = model.DefaultIdleSampleSize
	}
	verifier := &conflictVerifier{
		constraints:    constraints,
		idleSampleSize: idleSampleSize,
		logger:         slog.New(slog.DiscardHandler),
		now:            time.Now,
	}
	for _, option := range options {
		option(verifier)
	}
	return verifier
}

func (verifier *conflictVerifier) Verify(schedule model.Schedule, catalog model.Catalog) model.ConflictReport {
	index := newSessionIndex(schedule, catalog)

	report := model.ConflictReport{
		GeneratedAt:          verifier.now().UTC(),
		AcademicYear:         schedule.AcademicYear,
		Session:              schedule.Session,
		StudentConflicts:     verifier.studentConflicts(index),
		InvigilatorOverloads: verifier.invigilatorOverloads(index),
		RoomOverruns:         verifier.roomOverruns(index),
		RoomOverlaps:         verifier.roomOverlaps(index),
		IntegrityFindings:    index.integrity,
		LoadStats:            loadStats(index, catalog.Invigilators),
	}
	report.IdleInvigilators, report.IdleCount = idleInvigilators(index, catalog.Invigilators, verifier.idleSampleSize)
	report.Summary = summarize(report)

	verifier.logger.Info("verification finished",
		slog.String("academicYear", report.AcademicYear),
		slog.String("session", report.Session),
		slog.Int("sessions", len(schedule.Sessions)),
		slog.Int("critical", report.Summary.CriticalCount),
		slog.Int("warnings", report.Summary.WarningCount),
		slog.String("status", report.Summary.Status),
	)
	return report
}

func summarize(report model.ConflictReport) model.Summary {
	summary := model.Summary{
		CriticalCount: len(report.StudentConflicts) +
			len(report.RoomOverruns) +
			len(report.RoomOverlaps) +
			len(report.IntegrityFindings),
		WarningCount: len(report.InvigilatorOverloads),
		Status:       model.StatusOK,
	}
	if summary.CriticalCount > 0 {
		summary.Status = model.StatusConflictsDetected
	}
	return summary
}
