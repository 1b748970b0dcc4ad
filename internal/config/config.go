// Package config resolves the settings of a scheduling run from an optional
// TOML or YAML file, an optional .env file and EXAMS_* environment variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/limaJavier/examtabling/pkg/model"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	EnvStoreDir     = "EXAMS_STORE_DIR"
	EnvDatabaseURL  = "EXAMS_DATABASE_URL"
	EnvLogLevel     = "EXAMS_LOG_LEVEL"
	EnvAcademicYear = "EXAMS_ACADEMIC_YEAR"
	EnvSession      = "EXAMS_SESSION"

	DefaultStoreDir = "data"
)

type Period struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

type Constraints struct {
	MaxSessionsPerDayPerStudent int `mapstructure:"max_sessions_per_day_per_student"`
	MaxInvigilationsPerDay      int `mapstructure:"max_invigilations_per_day"`
	MaxStudentsPerRoom          int `mapstructure:"max_students_per_room"`
}

type Relaxation struct {
	Enabled              bool `mapstructure:"enabled"`
	RoomOverflow         int  `mapstructure:"room_overflow"`
	CrossDepartmentFirst bool `mapstructure:"cross_department_first"`
}

// File mirrors the on-disk layout. Absent keys keep their defaults.
type File struct {
	AcademicYear   string        `mapstructure:"academic_year"`
	Session        string        `mapstructure:"session"`
	Period         Period        `mapstructure:"period"`
	TimeSlots      []string      `mapstructure:"time_slots"`
	Constraints    Constraints   `mapstructure:"constraints"`
	TimeBudget     time.Duration `mapstructure:"time_budget"`
	Relaxation     Relaxation    `mapstructure:"relaxation"`
	Unplaceable    string        `mapstructure:"unplaceable"`
	IdleSampleSize int           `mapstructure:"idle_sample_size"`

	StoreDir    string `mapstructure:"store_dir"`
	DatabaseURL string `mapstructure:"database_url"`
	LogLevel    string `mapstructure:"log_level"`
	Delimiter   string `mapstructure:"delimiter"`
}

type Config struct {
	Scheduling  model.Configuration
	StoreDir    string
	DatabaseURL string // Selects the Postgres store when set
	LogLevel    slog.Level
	Delimiter   rune
}

func defaultFile() File {
	defaults := model.DefaultConfiguration()
	return File{
		AcademicYear: defaults.AcademicYear,
		Session:      defaults.Session,
		Period: Period{
			Start: model.DateKey(defaults.StartDate),
			End:   model.DateKey(defaults.EndDate),
		},
		TimeSlots: []string{"08:00", "10:30", "13:00", "15:30"},
		Constraints: Constraints{
			MaxSessionsPerDayPerStudent: defaults.Constraints.MaxSessionsPerDayPerStudent,
			MaxInvigilationsPerDay:      defaults.Constraints.MaxInvigilationsPerDay,
			MaxStudentsPerRoom:          defaults.Constraints.MaxStudentsPerRoom,
		},
		TimeBudget:     defaults.TimeBudget,
		Unplaceable:    string(defaults.Unplaceable),
		IdleSampleSize: defaults.IdleSampleSize,
		StoreDir:       DefaultStoreDir,
		LogLevel:       "info",
		Delimiter:      ";",
	}
}

// Load reads path when it is not empty, then the given .env files (".env"
// when none is given, silently skipped when missing) and the environment.
func Load(path string, envFiles ...string) (Config, error) {
	file := defaultFile()
	if path != "" {
		values, err := readValues(path)
		if err != nil {
			return Config{}, err
		}
		if err := decode(values, &file); err != nil {
			return Config{}, fmt.Errorf("cannot decode config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("cannot load %s: %w", envFile, err)
		}
	}
	applyEnv(&file)

	return file.resolve()
}

func readValues(path string) (map[string]any, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	values := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(bytes, &values)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &values)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	return values, nil
}

func decode(values map[string]any, file *File) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true, // Replace default lists instead of merging into them
		Result:           file,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(values)
}

func applyEnv(file *File) {
	overrides := map[string]*string{
		EnvStoreDir:     &file.StoreDir,
		EnvDatabaseURL:  &file.DatabaseURL,
		EnvLogLevel:     &file.LogLevel,
		EnvAcademicYear: &file.AcademicYear,
		EnvSession:      &file.Session,
	}
	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*target = value
		}
	}
}

func (file File) resolve() (Config, error) {
	start, err := time.Parse(time.DateOnly, file.Period.Start)
	if err != nil {
		return Config{}, &model.ConfigurationError{Field: "period.start", Reason: err.Error()}
	}
	end, err := time.Parse(time.DateOnly, file.Period.End)
	if err != nil {
		return Config{}, &model.ConfigurationError{Field: "period.end", Reason: err.Error()}
	}

	slots := make([]model.TimeSlot, 0, len(file.TimeSlots))
	for _, value := range file.TimeSlots {
		slot, err := model.ParseTimeSlot(value)
		if err != nil {
			return Config{}, &model.ConfigurationError{Field: "time_slots", Reason: err.Error()}
		}
		slots = append(slots, slot)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(file.LogLevel)); err != nil {
		return Config{}, &model.ConfigurationError{Field: "log_level", Reason: err.Error()}
	}

	delimiter := []rune(file.Delimiter)
	if len(delimiter) != 1 {
		return Config{}, &model.ConfigurationError{Field: "delimiter", Reason: fmt.Sprintf("%q is not a single character", file.Delimiter)}
	}

	scheduling := model.Configuration{
		StartDate: start,
		EndDate:   end,
		TimeSlots: slots,
		Constraints: model.Constraints{
			MaxSessionsPerDayPerStudent: file.Constraints.MaxSessionsPerDayPerStudent,
			MaxInvigilationsPerDay:      file.Constraints.MaxInvigilationsPerDay,
			MaxStudentsPerRoom:          file.Constraints.MaxStudentsPerRoom,
		},
		AcademicYear: file.AcademicYear,
		Session:      file.Session,
		TimeBudget:   file.TimeBudget,
		Relaxation: model.Relaxation{
			Enabled:              file.Relaxation.Enabled,
			RoomOverflow:         file.Relaxation.RoomOverflow,
			CrossDepartmentFirst: file.Relaxation.CrossDepartmentFirst,
		},
		Unplaceable:    model.UnplaceablePolicy(file.Unplaceable),
		IdleSampleSize: file.IdleSampleSize,
	}
	if err := scheduling.Validate(); err != nil {
		return Config{}, err
	}

	return Config{
		Scheduling:  scheduling,
		StoreDir:    file.StoreDir,
		DatabaseURL: file.DatabaseURL,
		LogLevel:    level,
		Delimiter:   delimiter[0],
	}, nil
}
