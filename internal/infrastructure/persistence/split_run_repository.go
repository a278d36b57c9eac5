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

// GormSplitRunRepository implements SplitRunRepository using GORM.
// It must be given the root connection, never a transaction, so ledger rows
// survive the rollback of the split they describe.
type GormSplitRunRepository struct {
	db *gorm.DB
}

// NewGormSplitRunRepository creates a new GormSplitRunRepository
func NewGormSplitRunRepository(db *gorm.DB) *GormSplitRunRepository {
	return &GormSplitRunRepository{db: db}
}

// FindByID finds a split run by its ID
func (r *GormSplitRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*workorder.SplitRun, error) {
	var model models.SplitRunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByWorkOrder lists the split runs of a work order, newest first by default
func (r *GormSplitRunRepository) FindByWorkOrder(ctx context.Context, workOrderID uuid.UUID, filter shared.Filter) ([]workorder.SplitRun, error) {
	var rows []models.SplitRunModel
	query := splitRunSort.apply(
		r.db.WithContext(ctx).Model(&models.SplitRunModel{}).Where("work_order_id = ?", workOrderID),
		filter,
	)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	runs := make([]workorder.SplitRun, len(rows))
	for i := range rows {
		runs[i] = *rows[i].ToDomain()
	}
	return runs, nil
}

// Save creates or updates a split run
func (r *GormSplitRunRepository) Save(ctx context.Context, run *workorder.SplitRun) error {
	run.Touch()
	return r.db.WithContext(ctx).Save(models.SplitRunModelFromDomain(run)).Error
}

var _ workorder.SplitRunRepository = (*GormSplitRunRepository)(nil)
