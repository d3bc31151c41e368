package kardex

import (
	"context"

	"github.com/google/uuid"
)

// Lookups return (nil, nil) when no row matches. Create returns
// ErrDuplicateKey (wrapped) when a row with the same natural key already
// exists, and must leave the surrounding transaction usable afterwards so
// the caller can retry its lookup and proceed with the winner's row.

// StudyPlanRepository defines the interface for study plan data access
type StudyPlanRepository interface {
	Create(ctx context.Context, plan *StudyPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*StudyPlan, error)
	GetByVersion(ctx context.Context, version string) (*StudyPlan, error)
}

// PeriodRepository defines the interface for academic period data access
type PeriodRepository interface {
	Create(ctx context.Context, period *Period) error
	GetByID(ctx context.Context, id uuid.UUID) (*Period, error)
	GetByLabel(ctx context.Context, label string) (*Period, error)
}

// CourseRepository defines the interface for course data access
type CourseRepository interface {
	Create(ctx context.Context, course *Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*Course, error)
	GetByCode(ctx context.Context, courseCode string) (*Course, error)
}

// StudentRepository defines the interface for student data access
type StudentRepository interface {
	Create(ctx context.Context, student *Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*Student, error)
	GetByEnrollmentID(ctx context.Context, enrollmentID string) (*Student, error)
}

// TranscriptRepository defines the interface for transcript entry data access
type TranscriptRepository interface {
	Create(ctx context.Context, entry *TranscriptEntry) error
	GetByTriple(ctx context.Context, studentID, courseID, periodID uuid.UUID) (*TranscriptEntry, error)
	GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*TranscriptEntry, error)
}

// Store bundles the entity repositories behind one transactional boundary.
// InTransaction runs work against a Store whose writes commit together or
// roll back together; the fn argument receives the transaction-scoped Store.
type Store interface {
	Plans() StudyPlanRepository
	Periods() PeriodRepository
	Courses() CourseRepository
	Students() StudentRepository
	Transcripts() TranscriptRepository
	InTransaction(ctx context.Context, fn func(tx Store) error) error
}
