package repository

import (
	"context"

	domain "kardex-ingest/internal/domain/kardex"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PeriodRepository implements PeriodRepository using GORM
type PeriodRepository struct {
	db *gorm.DB
}

// NewPeriodRepository creates a new GORM period repository
func NewPeriodRepository(db *gorm.DB) domain.PeriodRepository {
	return &PeriodRepository{
		db: db,
	}
}

// Create creates a new academic period
func (r *PeriodRepository) Create(ctx context.Context, period *domain.Period) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(period)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return errDuplicate("period", period.Label)
	}
	return nil
}

// GetByID retrieves a period by ID
func (r *PeriodRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Period, error) {
	var period domain.Period
	err := r.db.WithContext(ctx).First(&period, "period_id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &period, nil
}

// GetByLabel retrieves a period by its natural key, e.g. "2023-1"
func (r *PeriodRepository) GetByLabel(ctx context.Context, label string) (*domain.Period, error) {
	var period domain.Period
	err := r.db.WithContext(ctx).First(&period, "label = ?", label).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &period, nil
}
