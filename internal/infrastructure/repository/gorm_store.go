package repository

import (
	"context"

	domain "kardex-ingest/internal/domain/kardex"

	"gorm.io/gorm"
)

var _ domain.Store = (*GormStore)(nil)

// GormStore bundles the GORM repositories behind the domain Store contract.
// InTransaction hands callers a Store whose repositories share one
// database transaction, so a whole kardex payload commits or rolls back
// as a unit.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by the given database handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Plans() domain.StudyPlanRepository {
	return NewStudyPlanRepository(s.db)
}

func (s *GormStore) Periods() domain.PeriodRepository {
	return NewPeriodRepository(s.db)
}

func (s *GormStore) Courses() domain.CourseRepository {
	return NewCourseRepository(s.db)
}

func (s *GormStore) Students() domain.StudentRepository {
	return NewStudentRepository(s.db)
}

func (s *GormStore) Transcripts() domain.TranscriptRepository {
	return NewTranscriptRepository(s.db)
}

// InTransaction runs fn against a transaction-scoped Store. Any error from
// fn rolls back every write made through that Store.
func (s *GormStore) InTransaction(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
