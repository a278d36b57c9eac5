package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/shared"
	"github.com/labflow/backend/internal/domain/workorder"
	"github.com/labflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormWorkPlanRepository implements WorkPlanRepository using GORM
type GormWorkPlanRepository struct {
	db *gorm.DB
}

// NewGormWorkPlanRepository creates a new GormWorkPlanRepository
func NewGormWorkPlanRepository(db *gorm.DB) *GormWorkPlanRepository {
	return &GormWorkPlanRepository{db: db}
}

// FindByID finds a work plan by its ID
func (r *GormWorkPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*workorder.WorkPlan, error) {
	var model models.WorkPlanModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a work plan
func (r *GormWorkPlanRepository) Save(ctx context.Context, plan *workorder.WorkPlan) error {
	return r.db.WithContext(ctx).Save(models.WorkPlanModelFromDomain(plan)).Error
}

var _ workorder.WorkPlanRepository = (*GormWorkPlanRepository)(nil)
