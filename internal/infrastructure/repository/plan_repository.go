package repository

import (
	"context"

	domain "kardex-ingest/internal/domain/kardex"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StudyPlanRepository struct {
	db *gorm.DB
}

func NewStudyPlanRepository(db *gorm.DB) domain.StudyPlanRepository {
	return &StudyPlanRepository{
		db: db,
	}
}

func (r *StudyPlanRepository) Create(ctx context.Context, plan *domain.StudyPlan) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(plan)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return errDuplicate("study plan", plan.Version)
	}
	return nil
}

func (r *StudyPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.StudyPlan, error) {
	var plan domain.StudyPlan
	err := r.db.WithContext(ctx).First(&plan, "plan_id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *StudyPlanRepository) GetByVersion(ctx context.Context, version string) (*domain.StudyPlan, error) {
	var plan domain.StudyPlan
	err := r.db.WithContext(ctx).First(&plan, "version = ?", version).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}
