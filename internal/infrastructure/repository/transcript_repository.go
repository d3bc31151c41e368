package repository

import (
	"context"

	domain "kardex-ingest/internal/domain/kardex"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TranscriptRepository implements TranscriptRepository using GORM
type TranscriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository creates a new GORM transcript repository
func NewTranscriptRepository(db *gorm.DB) domain.TranscriptRepository {
	return &TranscriptRepository{
		db: db,
	}
}

// Create creates a new transcript entry
func (r *TranscriptRepository) Create(ctx context.Context, entry *domain.TranscriptEntry) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return errDuplicate("transcript entry", entry.StudentID.String())
	}
	return nil
}

// GetByTriple retrieves the transcript entry for a (student, course, period)
// combination, the logical uniqueness key for kardex line items
func (r *TranscriptRepository) GetByTriple(ctx context.Context, studentID, courseID, periodID uuid.UUID) (*domain.TranscriptEntry, error) {
	var entry domain.TranscriptEntry
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND period_id = ?", studentID, courseID, periodID).
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetByStudentID retrieves all transcript entries for a student
func (r *TranscriptRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]*domain.TranscriptEntry, error) {
	var entries []*domain.TranscriptEntry
	err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Period").
		Where("student_id = ?", studentID).
		Order("created_at").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
