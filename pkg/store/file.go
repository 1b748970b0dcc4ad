// Package store persists schedules with replace-all semantics.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/limaJavier/examtabling/pkg/model"
)

var ErrNotFound = errors.New("schedule not found")

const historyDir = "history"

// FileStore keeps one JSON document per (academic year, session). Replacing a
// schedule swaps the new document in with an atomic rename, then archives the
// previous one as a zstd compressed copy. A failed replace leaves both the
// document and its history untouched.
type FileStore struct {
	mu     sync.RWMutex
	dir    string
	log    *slog.Logger
	now    func() time.Time
	rename func(oldpath, newpath string) error
}

func NewFileStore(dir string, log *slog.Logger) (*FileStore, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Join(dir, historyDir), 0o755); err != nil {
		return nil, &model.PersistenceError{Op: "open", Err: err}
	}
	return &FileStore{dir: dir, log: log, now: time.Now, rename: os.Rename}, nil
}

var _ model.Store = (*FileStore)(nil)

func (fs *FileStore) Replace(ctx context.Context, schedule model.Schedule) error {
	if err := ctx.Err(); err != nil {
		return &model.PersistenceError{Op: "replace", Err: err}
	}
	data, err := json.MarshalIndent(schedule, "", "  ")
	if err != nil {
		return &model.PersistenceError{Op: "replace", Err: fmt.Errorf("encode schedule: %w", err)}
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.path(schedule.AcademicYear, schedule.Session)
	previous, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &model.PersistenceError{Op: "replace", Err: fmt.Errorf("read previous schedule: %w", err)}
	}

	tmp, err := os.CreateTemp(fs.dir, ".schedule-*.tmp")
	if err != nil {
		return &model.PersistenceError{Op: "replace", Err: err}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &model.PersistenceError{Op: "replace", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &model.PersistenceError{Op: "replace", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &model.PersistenceError{Op: "replace", Err: err}
	}
	if err := fs.rename(tmp.Name(), path); err != nil {
		return &model.PersistenceError{Op: "replace", Err: err}
	}

	// The new document is committed: a failed archive only loses history
	archived, err := fs.archive(previous, schedule.AcademicYear, schedule.Session)
	if err != nil {
		fs.log.Warn("previous schedule not archived",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}

	fs.log.Info("schedule replaced",
		slog.String("path", path),
		slog.String("runId", schedule.RunId),
		slog.Int("sessions", len(schedule.Sessions)),
		slog.String("archived", archived),
	)
	return nil
}

func (fs *FileStore) Load(ctx context.Context, academicYear, session string) (model.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "load", Err: err}
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.path(academicYear, session))
	if errors.Is(err, os.ErrNotExist) {
		return model.Schedule{}, ErrNotFound
	}
	if err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "load", Err: err}
	}
	return decode(data)
}

// History lists archived schedules for a year and session, oldest first.
func (fs *FileStore) History(academicYear, session string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	pattern := filepath.Join(fs.dir, historyDir, fs.name(academicYear, session)+"-*.json.zst")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, &model.PersistenceError{Op: "history", Err: err}
	}
	slices.Sort(matches)
	return matches, nil
}

// ReadArchive decodes a schedule written by a previous Replace.
func ReadArchive(path string) (model.Schedule, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "read archive", Err: err}
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "read archive", Err: err}
	}
	defer decoder.Close()
	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "read archive", Err: fmt.Errorf("decompress %s: %w", path, err)}
	}
	return decode(data)
}

// archive compresses a replaced document, if there was one, into the history
// folder and returns the archive path.
func (fs *FileStore) archive(data []byte, academicYear, session string) (string, error) {
	if data == nil {
		return "", nil
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return "", err
	}
	defer encoder.Close()

	stamp := fs.now().UTC().Format("20060102T150405.000000000")
	target := filepath.Join(fs.dir, historyDir, fmt.Sprintf("%s-%s.json.zst", fs.name(academicYear, session), stamp))
	if err := os.WriteFile(target, encoder.EncodeAll(data, nil), 0o644); err != nil {
		return "", err
	}
	return target, nil
}

func (fs *FileStore) path(academicYear, session string) string {
	return filepath.Join(fs.dir, fs.name(academicYear, session)+".json")
}

func (fs *FileStore) name(academicYear, session string) string {
	clean := func(value string) string {
		return strings.Map(func(r rune) rune {
			if r == '/' || r == '\\' || r == ' ' {
				return '_'
			}
			return r
		}, value)
	}
	return clean(academicYear) + "_" + clean(session)
}

func decode(data []byte) (model.Schedule, error) {
	var schedule model.Schedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return model.Schedule{}, &model.PersistenceError{Op: "load", Err: fmt.Errorf("decode schedule: %w", err)}
	}
	if schedule.Sessions == nil {
		schedule.Sessions = make([]model.ExamSession, 0)
	}
	return schedule, nil
}
