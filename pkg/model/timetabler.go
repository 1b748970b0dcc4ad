package model

import "context"

// Scheduler builds a fresh schedule for a catalog snapshot. Implementations
// must not touch storage.
type Scheduler interface {
	Build(
		ctx context.Context,
		catalog Catalog,
		config Configuration,
	) (Result, error)
}

// Verifier audits any schedule, whatever produced it. It never fails: every
// defect becomes a finding in the report.
type Verifier interface {
	Verify(
		schedule Schedule,
		catalog Catalog,
	) ConflictReport
}

// Store persists schedules with replace-all semantics: readers observe either
// the previous schedule or the new one, never a mix.
type Store interface {
	Replace(ctx context.Context, schedule Schedule) error
	Load(ctx context.Context, academicYear, session string) (Schedule, error)
}
