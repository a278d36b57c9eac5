package workorder

import (
	"context"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/shared"
)

// WorkPlanRepository defines the interface for work plan persistence
type WorkPlanRepository interface {
	// FindByID finds a work plan by ID
	FindByID(ctx context.Context, id uuid.UUID) (*WorkPlan, error)

	// Save creates or updates a work plan
	Save(ctx context.Context, plan *WorkPlan) error
}

// WorkOrderRepository defines the interface for work order persistence
type WorkOrderRepository interface {
	// FindByID finds a work order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*WorkOrder, error)

	// FindByWorkPlan lists the work orders of a plan ordered by order index
	FindByWorkPlan(ctx context.Context, workPlanID uuid.UUID, filter shared.Filter) ([]WorkOrder, error)

	// Save creates or updates a work order
	Save(ctx context.Context, order *WorkOrder) error
}

// JobRepository defines the interface for job persistence
type JobRepository interface {
	// FindByID finds a job by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// FindByWorkOrder lists the jobs of a work order in creation order
	FindByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]Job, error)

	// CountByWorkOrder counts the jobs of a work order
	CountByWorkOrder(ctx context.Context, workOrderID uuid.UUID) (int64, error)

	// Save creates or updates a job
	Save(ctx context.Context, job *Job) error
}

// SplitRunRepository persists the split audit ledger
type SplitRunRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SplitRun, error)
	FindByWorkOrder(ctx context.Context, workOrderID uuid.UUID, filter shared.Filter) ([]SplitRun, error)
	Save(ctx context.Context, run *SplitRun) error
}
