// Package scheduler places exam sessions with a single greedy pass over
// candidate slots. Decisions are never revisited once committed.
package scheduler

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/limaJavier/examtabling/pkg/model"
)

const progressInterval = 50

type greedyScheduler struct {
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*greedyScheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(scheduler *greedyScheduler) {
		if logger != nil {
			scheduler.logger = logger
		}
	}
}

// WithClock replaces the clock used for elapsed time and the time budget.
func WithClock(now func() time.Time) Option {
	return func(scheduler *greedyScheduler) {
		if now != nil {
			scheduler.now = now
		}
	}
}

func NewGreedyScheduler(options ...Option) model.Scheduler {
	scheduler := &greedyScheduler{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, option := range options {
		option(scheduler)
	}
	return scheduler
}

type pendingCourse struct {
	course model.Course
	reason model.FailureReason
}

func (scheduler *greedyScheduler) Build(ctx context.Context, catalog model.Catalog, config model.Configuration) (model.Result, error) {
	started := scheduler.now()

	//** Validate input before any placement
	if err := config.Validate(); err != nil {
		return model.Result{}, err
	}
	if err := catalog.Validate(); err != nil {
		return model.Result{}, err
	}

	//** Initialize run
	state := newRunState(catalog, config)
	courses := sortCourses(catalog.Courses)
	var deadline time.Time
	if config.TimeBudget > 0 {
		deadline = started.Add(config.TimeBudget)
	}

	result := model.Result{
		Sessions:   make([]model.ExamSession, 0, len(courses)),
		Failures:   make([]model.Failure, 0),
		Flagged:    make([]model.Failure, 0),
		TotalCount: len(courses),
	}
	scheduler.logger.Info("scheduling started",
		slog.Int("courses", len(courses)),
		slog.Int("rooms", len(state.rooms)),
		slog.Int("invigilators", len(state.invigilators)),
		slog.Int("days", len(state.days)),
		slog.Int("slots", len(state.slots)),
	)

	//** Main pass
	pending := make([]pendingCourse, 0)
	for i, course := range courses {
		if scheduler.exhausted(ctx, deadline) {
			result.Truncated = true
			for _, skipped := range courses[i:] {
				result.Failures = append(result.Failures, failureOf(skipped, model.ReasonBudget))
			}
			scheduler.logger.Warn("time budget exhausted", slog.Int("skipped", len(courses)-i))
			break
		}

		session, reason, ok := state.place(course, placement{})
		if !ok {
			pending = append(pending, pendingCourse{course: course, reason: reason})
			continue
		}
		result.Sessions = append(result.Sessions, session)
		if len(result.Sessions)%progressInterval == 0 {
			scheduler.logger.Debug("scheduling progress", slog.Int("placed", len(result.Sessions)), slog.Int("total", len(courses)))
		}
	}

	//** Relaxed pass
	if config.Relaxation.Enabled && len(pending) > 0 && !result.Truncated {
		relaxed := placement{
			roomOverflow:         config.Relaxation.RoomOverflow,
			crossDepartmentFirst: config.Relaxation.CrossDepartmentFirst,
		}
		pending = scheduler.retry(ctx, state, pending, relaxed, deadline, &result, nil)
	}

	//** Imperfect placement of whatever is left
	if config.Unplaceable == model.PlaceAndFlag && len(pending) > 0 && !result.Truncated {
		pending = scheduler.retry(ctx, state, pending, placement{partial: true}, deadline, &result, &result.Flagged)
	}

	for _, course := range pending {
		result.Failures = append(result.Failures, failureOf(course.course, course.reason))
	}
	// Failures are reported in placement order
	order := make(map[uint64]int, len(courses))
	for i, course := range courses {
		order[course.Id] = i
	}
	slices.SortStableFunc(result.Failures, func(a, b model.Failure) int {
		return cmp.Compare(order[a.Course], order[b.Course])
	})

	result.ScheduledCount = len(result.Sessions)
	result.Elapsed = scheduler.now().Sub(started)

	invigilations, used := state.totals()
	scheduler.logger.Info("scheduling finished",
		slog.Int("scheduled", result.ScheduledCount),
		slog.Int("total", result.TotalCount),
		slog.Int("failures", len(result.Failures)),
		slog.Int("flagged", len(result.Flagged)),
		slog.Int("invigilations", invigilations),
		slog.Int("invigilatorsUsed", used),
		slog.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// retry runs an additional pass over the pending courses and returns those
// still unplaced. Sessions it creates are marked relaxed.
func (scheduler *greedyScheduler) retry(ctx context.Context, state *runState, pending []pendingCourse, strategy placement, deadline time.Time, result *model.Result, flagged *[]model.Failure) []pendingCourse {
	remaining := make([]pendingCourse, 0, len(pending))
	for i, course := range pending {
		if scheduler.exhausted(ctx, deadline) {
			result.Truncated = true
			for _, skipped := range pending[i:] {
				remaining = append(remaining, pendingCourse{course: skipped.course, reason: model.ReasonBudget})
			}
			break
		}
		session, _, ok := state.place(course.course, strategy)
		if !ok {
			remaining = append(remaining, course)
			continue
		}
		session.Relaxed = true
		result.Sessions = append(result.Sessions, session)
		if flagged != nil {
			*flagged = append(*flagged, failureOf(course.course, course.reason))
		}
	}
	return remaining
}

func (scheduler *greedyScheduler) exhausted(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	return !deadline.IsZero() && scheduler.now().After(deadline)
}

// place walks candidate slots in chronological order and commits the first
// one where rooms and invigilators can be resolved. On failure it reports the
// furthest stage any candidate reached.
func (state *runState) place(course model.Course, strategy placement) (model.ExamSession, model.FailureReason, bool) {
	reason := model.ReasonStudents
	for _, day := range state.days {
		date := model.DateKey(day)
		if state.studentsBusy(date, course.Students) {
			continue
		}
		if reason == model.ReasonStudents {
			reason = model.ReasonRooms
		}

		for _, slot := range state.slots {
			rooms := state.freeRooms(slotKey{date: date, slot: slot}, course.DurationMinutes, course.Enrollment(), strategy)
			if len(rooms) == 0 {
				continue
			}
			reason = model.ReasonInvigilators

			invigilators := state.pickInvigilators(date, course, len(rooms), strategy.crossDepartmentFirst)
			if len(invigilators) == 0 || (!strategy.partial && len(invigilators) < len(rooms)) {
				continue
			}
			return state.commit(course, day, slot, rooms, invigilators), "", true
		}
	}
	return model.ExamSession{}, reason, false
}

// sortCourses orders courses by enrollment, largest first, keeping input order
// among equals.
func sortCourses(courses []model.Course) []model.Course {
	sorted := slices.Clone(courses)
	slices.SortStableFunc(sorted, func(a, b model.Course) int {
		return cmp.Compare(b.Enrollment(), a.Enrollment())
	})
	return sorted
}

func failureOf(course model.Course, reason model.FailureReason) model.Failure {
	return model.Failure{
		Course:          course.Id,
		Code:            course.Code,
		Name:            course.Name,
		EnrollmentCount: course.Enrollment(),
		Reason:          reason,
	}
}
