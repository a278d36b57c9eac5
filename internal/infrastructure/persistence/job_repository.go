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

// GormJobRepository implements JobRepository using GORM
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a new GormJobRepository
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// FindByID finds a job by its ID
func (r *GormJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*workorder.Job, error) {
	var model models.JobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByWorkOrder lists the jobs of a work order in creation order
func (r *GormJobRepository) FindByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]workorder.Job, error) {
	var rows []models.JobModel
	if err := r.db.WithContext(ctx).
		Where("work_order_id = ?", workOrderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	jobs := make([]workorder.Job, len(rows))
	for i := range rows {
		jobs[i] = *rows[i].ToDomain()
	}
	return jobs, nil
}

// CountByWorkOrder counts the jobs of a work order
func (r *GormJobRepository) CountByWorkOrder(ctx context.Context, workOrderID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.JobModel{}).
		Where("work_order_id = ?", workOrderID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a job
func (r *GormJobRepository) Save(ctx context.Context, job *workorder.Job) error {
	return r.db.WithContext(ctx).Save(models.JobModelFromDomain(job)).Error
}

var _ workorder.JobRepository = (*GormJobRepository)(nil)
