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

// GormWorkOrderRepository implements WorkOrderRepository using GORM
type GormWorkOrderRepository struct {
	db *gorm.DB
}

// NewGormWorkOrderRepository creates a new GormWorkOrderRepository
func NewGormWorkOrderRepository(db *gorm.DB) *GormWorkOrderRepository {
	return &GormWorkOrderRepository{db: db}
}

// FindByID finds a work order by its ID
func (r *GormWorkOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*workorder.WorkOrder, error) {
	var model models.WorkOrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByWorkPlan lists the work orders of a plan
func (r *GormWorkOrderRepository) FindByWorkPlan(ctx context.Context, workPlanID uuid.UUID, filter shared.Filter) ([]workorder.WorkOrder, error) {
	var rows []models.WorkOrderModel
	query := workOrderSort.apply(
		r.db.WithContext(ctx).Model(&models.WorkOrderModel{}).Where("work_plan_id = ?", workPlanID),
		filter,
	)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	orders := make([]workorder.WorkOrder, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

// Save creates or updates a work order
func (r *GormWorkOrderRepository) Save(ctx context.Context, order *workorder.WorkOrder) error {
	order.Touch()
	return r.db.WithContext(ctx).Save(models.WorkOrderModelFromDomain(order)).Error
}

var _ workorder.WorkOrderRepository = (*GormWorkOrderRepository)(nil)
