package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/limaJavier/examtabling/pkg/model"
	"github.com/samber/lo"
)

const schema = `
CREATE TABLE IF NOT EXISTS schedules (
	academic_year TEXT NOT NULL,
	session       TEXT NOT NULL,
	run_id        TEXT NOT NULL,
	generated_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (academic_year, session)
);
CREATE TABLE IF NOT EXISTS exam_sessions (
	id               BIGSERIAL PRIMARY KEY,
	academic_year    TEXT NOT NULL,
	session          TEXT NOT NULL,
	position         INTEGER NOT NULL,
	course_id        BIGINT NOT NULL,
	exam_date        DATE NOT NULL,
	start_time       TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL,
	headcount        INTEGER NOT NULL,
	relaxed          BOOLEAN NOT NULL DEFAULT FALSE,
	FOREIGN KEY (academic_year, session) REFERENCES schedules (academic_year, session) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS exam_session_rooms (
	exam_session_id BIGINT NOT NULL REFERENCES exam_sessions (id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	room_id         BIGINT NOT NULL,
	PRIMARY KEY (exam_session_id, position)
);
CREATE TABLE IF NOT EXISTS exam_session_invigilators (
	exam_session_id BIGINT NOT NULL REFERENCES exam_sessions (id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	invigilator_id  BIGINT NOT NULL,
	role            TEXT NOT NULL,
	PRIMARY KEY (exam_session_id, position)
);`

type scheduleRow struct {
	AcademicYear string    `db:"academic_year"`
	Session      string    `db:"session"`
	RunId        string    `db:"run_id"`
	GeneratedAt  time.Time `db:"generated_at"`
}

type sessionRow struct {
	Id              int64     `db:"id"`
	CourseId        int64     `db:"course_id"`
	ExamDate        time.Time `db:"exam_date"`
	StartTime       string    `db:"start_time"`
	DurationMinutes int       `db:"duration_minutes"`
	Headcount       int       `db:"headcount"`
	Relaxed         bool      `db:"relaxed"`
}

type roomRow struct {
	ExamSessionId int64 `db:"exam_session_id"`
	RoomId        int64 `db:"room_id"`
}

type invigilatorRow struct {
	ExamSessionId int64  `db:"exam_session_id"`
	InvigilatorId int64  `db:"invigilator_id"`
	Role          string `db:"role"`
}

// PostgresStore replaces a schedule inside one transaction: the previous rows
// stay visible to readers until the commit.
type PostgresStore struct {
	db  *sqlx.DB
	log *slog.Logger
}

func NewPostgresStore(ctx context.Context, connString string, log *slog.Logger) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connString)
	if err != nil {
		return nil, &model.PersistenceError{Op: "connect", Err: err}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &PostgresStore{db: db, log: log}, nil
}

var _ model.Store = (*PostgresStore)(nil)

func (ps *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, schema); err != nil {
		return &model.PersistenceError{Op: "migrate", Err: err}
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func (ps *PostgresStore) Replace(ctx context.Context, schedule model.Schedule) (err error) {
	tx, err := ps.db.BeginTxx(ctx, nil)
	if err != nil {
		return &model.PersistenceError{Op: "replace", Err: err}
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				ps.log.Error("rollback failed", slog.String("error", rollbackErr.Error()))
			}
			err = &model.PersistenceError{Op: "replace", Err: err}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"DELETE FROM schedules WHERE academic_year = $1 AND session = $2",
		schedule.AcademicYear, schedule.Session,
	); err != nil {
		return fmt.Errorf("delete previous schedule: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx,
		"INSERT INTO schedules (academic_year, session, run_id, generated_at) VALUES (:academic_year, :session, :run_id, :generated_at)",
		scheduleRow{
			AcademicYear: schedule.AcademicYear,
			Session:      schedule.Session,
			RunId:        schedule.RunId,
			GeneratedAt:  schedule.GeneratedAt,
		},
	); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}

	for position, session := range schedule.Sessions {
		var id int64
		if err = tx.GetContext(ctx, &id,
			`INSERT INTO exam_sessions (academic_year, session, position, course_id, exam_date, start_time, duration_minutes, headcount, relaxed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
			schedule.AcademicYear, schedule.Session, position, int64(session.Course), model.Date(session.Date),
			session.Slot.String(), session.DurationMinutes, session.Headcount, session.Relaxed,
		); err != nil {
			return fmt.Errorf("insert session %d: %w", position, err)
		}
		for i, room := range session.Rooms {
			if _, err = tx.ExecContext(ctx,
				"INSERT INTO exam_session_rooms (exam_session_id, position, room_id) VALUES ($1, $2, $3)",
				id, i, int64(room),
			); err != nil {
				return fmt.Errorf("insert room of session %d: %w", position, err)
			}
		}
		for i, assignment := range session.Invigilators {
			if _, err = tx.ExecContext(ctx,
				"INSERT INTO exam_session_invigilators (exam_session_id, position, invigilator_id, role) VALUES ($1, $2, $3, $4)",
				id, i, int64(assignment.Invigilator), string(assignment.Role),
			); err != nil {
				return fmt.Errorf("insert invigilator of session %d: %w", position, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	ps.log.Info("schedule replaced",
		slog.String("academicYear", schedule.AcademicYear),
		slog.String("session", schedule.Session),
		slog.String("runId", schedule.RunId),
		slog.Int("sessions", len(schedule.Sessions)),
	)
	return nil
}

// Load reads the schedule header and its sessions, rooms and invigilators
// from a single snapshot, so a concurrent Replace is seen entirely or not at
// all.
func (ps *PostgresStore) Load(ctx context.Context, academicYear, session string) (model.Schedule, error) {
	tx, err := ps.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "load", Err: err}
	}
	defer tx.Rollback() // No-op once committed

	var header scheduleRow
	err = tx.GetContext(ctx, &header,
		"SELECT academic_year, session, run_id, generated_at FROM schedules WHERE academic_year = $1 AND session = $2",
		academicYear, session,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schedule{}, ErrNotFound
	}
	if err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "load", Err: err}
	}

	var sessions []sessionRow
	if err := tx.SelectContext(ctx, &sessions,
		`SELECT id, course_id, exam_date, start_time, duration_minutes, headcount, relaxed
		FROM exam_sessions WHERE academic_year = $1 AND session = $2 ORDER BY position`,
		academicYear, session,
	); err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "load", Err: err}
	}

	var rooms []roomRow
	if err := tx.SelectContext(ctx, &rooms,
		`SELECT r.exam_session_id, r.room_id FROM exam_session_rooms r
		JOIN exam_sessions s ON s.id = r.exam_session_id
		WHERE s.academic_year = $1 AND s.session = $2 ORDER BY r.exam_session_id, r.position`,
		academicYear, session,
	); err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "load", Err: err}
	}

	var invigilators []invigilatorRow
	if err := tx.SelectContext(ctx, &invigilators,
		`SELECT i.exam_session_id, i.invigilator_id, i.role FROM exam_session_invigilators i
		JOIN exam_sessions s ON s.id = i.exam_session_id
		WHERE s.academic_year = $1 AND s.session = $2 ORDER BY i.exam_session_id, i.position`,
		academicYear, session,
	); err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "load", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "load", Err: fmt.Errorf("commit: %w", err)}
	}

	roomsBySession := lo.GroupBy(rooms, func(row roomRow) int64 { return row.ExamSessionId })
	invigilatorsBySession := lo.GroupBy(invigilators, func(row invigilatorRow) int64 { return row.ExamSessionId })

	schedule := model.Schedule{
		RunId:        header.RunId,
		AcademicYear: header.AcademicYear,
		Session:      header.Session,
		GeneratedAt:  header.GeneratedAt.UTC(),
		Sessions:     make([]model.ExamSession, 0, len(sessions)),
	}
	for _, row := range sessions {
		slot, err := model.ParseTimeSlot(row.StartTime)
		if err != nil {
			return model.Schedule{}, &model.PersistenceError{Op: "load", Err: err}
		}
		schedule.Sessions = append(schedule.Sessions, model.ExamSession{
			Course:          uint64(row.CourseId),
			Date:            model.Date(row.ExamDate),
			Slot:            slot,
			DurationMinutes: row.DurationMinutes,
			Rooms: lo.Map(roomsBySession[row.Id], func(room roomRow, _ int) uint64 {
				return uint64(room.RoomId)
			}),
			Invigilators: lo.Map(invigilatorsBySession[row.Id], func(invigilator invigilatorRow, _ int) model.InvigilatorAssignment {
				return model.InvigilatorAssignment{Invigilator: uint64(invigilator.InvigilatorId), Role: model.Role(invigilator.Role)}
			}),
			Headcount: row.Headcount,
			Relaxed:   row.Relaxed,
		})
	}
	return schedule, nil
}
