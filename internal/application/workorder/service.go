package workorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/reference"
	"github.com/labflow/backend/internal/domain/remote"
	"github.com/labflow/backend/internal/domain/shared"
	"github.com/labflow/backend/internal/domain/workorder"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WorkOrderService runs set life-cycle operations as load, operate, save.
type WorkOrderService struct {
	workOrders workorder.WorkOrderRepository
	workPlans  workorder.WorkPlanRepository
	jobs       workorder.JobRepository
	splitRuns  workorder.SplitRunRepository
	decorator  *Decorator
	logger     *zap.Logger
}

// NewWorkOrderService creates a new work order service
func NewWorkOrderService(
	workOrders workorder.WorkOrderRepository,
	workPlans workorder.WorkPlanRepository,
	jobs workorder.JobRepository,
	splitRuns workorder.SplitRunRepository,
	decorator *Decorator,
	logger *zap.Logger,
) *WorkOrderService {
	return &WorkOrderService{
		workOrders: workOrders,
		workPlans:  workPlans,
		jobs:       jobs,
		splitRuns:  splitRuns,
		decorator:  decorator,
		logger:     logger,
	}
}

// FinaliseSet locks or adopts the working set of a work order and saves it.
// The bool reports whether a new lock was performed.
func (s *WorkOrderService) FinaliseSet(ctx context.Context, id uuid.UUID) (bool, error) {
	order, err := s.workOrders.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	decorated := s.decorator.WorkOrder(order)
	before := order.SetUUID

	locked, err := decorated.FinaliseSet(ctx)
	if err != nil {
		return false, err
	}
	if order.SetUUID != before {
		order.Touch()
		if err := s.workOrders.Save(ctx, order); err != nil {
			return false, fmt.Errorf("save work order %s: %w", id, err)
		}
	}

	s.logger.Info("work order set finalised",
		zap.String("work_order_id", id.String()),
		zap.String("set_uuid", order.SetUUID),
		zap.Bool("new_lock", locked),
	)
	return locked, nil
}

// CreateEditableSet gives the work order an unlocked copy of its original set.
func (s *WorkOrderService) CreateEditableSet(ctx context.Context, id uuid.UUID) (*remote.Set, error) {
	return s.adoptClone(ctx, id, "editable", (*DecoratedWorkOrder).CreateEditableSet)
}

// CreateLockedSet gives the work order a locked copy of its original set.
func (s *WorkOrderService) CreateLockedSet(ctx context.Context, id uuid.UUID) (*remote.Set, error) {
	return s.adoptClone(ctx, id, "locked", (*DecoratedWorkOrder).CreateLockedSet)
}

func (s *WorkOrderService) adoptClone(
	ctx context.Context,
	id uuid.UUID,
	kind string,
	create func(*DecoratedWorkOrder, context.Context) (*remote.Set, error),
) (*remote.Set, error) {
	order, err := s.workOrders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set, err := create(s.decorator.WorkOrder(order), ctx)
	if err != nil {
		return nil, err
	}
	order.Touch()
	if err := s.workOrders.Save(ctx, order); err != nil {
		s.logger.Error("cloned set not recorded on work order",
			zap.String("work_order_id", id.String()),
			zap.String("set_uuid", set.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("save work order %s: %w", id, err)
	}

	s.logger.Info("work order set cloned",
		zap.String("work_order_id", id.String()),
		zap.String("kind", kind),
		zap.String("set_uuid", set.ID),
	)
	return set, nil
}

// Describe loads a work order with its sets and jobs resolved.
func (s *WorkOrderService) Describe(ctx context.Context, id uuid.UUID) (*WorkOrderResponse, error) {
	order, err := s.workOrders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	decorated := s.decorator.WorkOrder(order)

	resp := &WorkOrderResponse{
		ID:           order.ID,
		Name:         order.Name(),
		Status:       order.Status.String(),
		WorkPlanID:   order.WorkPlanID,
		TotalCost:    order.TotalCost,
		OrderIndex:   order.OrderIndex,
		DispatchDate: order.DispatchDate,
		Jobs:         []JobResponse{},
	}

	plan, err := s.workPlans.FindByID(ctx, order.WorkPlanID)
	switch {
	case err == nil:
		resp.OwnerEmail = plan.OwnerEmail
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("load work plan %s: %w", order.WorkPlanID, err)
	}
	if resp.OriginalSet, err = summarize(ctx, decorated.OriginalSet); err != nil {
		return nil, err
	}
	if resp.Set, err = summarize(ctx, decorated.Set); err != nil {
		return nil, err
	}
	if resp.FinishedSet, err = summarize(ctx, decorated.FinishedSet); err != nil {
		return nil, err
	}
	proposal, err := decorated.Proposal.Get(ctx)
	if err != nil {
		return nil, err
	}
	if proposal != nil {
		resp.Proposal = proposal.Name
	}

	jobs, err := s.jobs.FindByWorkOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		job := s.decorator.Job(&jobs[i])
		input, err := summarize(ctx, job.InputSet)
		if err != nil {
			return nil, err
		}
		resp.Jobs = append(resp.Jobs, jobResponse(job.Job, input))
	}

	latest, err := s.splitRuns.FindByWorkOrder(ctx, order.ID, shared.Filter{Page: 1, PageSize: 1})
	if err != nil {
		return nil, fmt.Errorf("load split runs: %w", err)
	}
	if len(latest) > 0 {
		resp.LatestRun = splitRunResponse(&latest[0])
	}
	return resp, nil
}

// SplitRuns lists the recorded split attempts of a work order, newest first
// unless filter orders them otherwise.
func (s *WorkOrderService) SplitRuns(ctx context.Context, workOrderID uuid.UUID, filter shared.Filter) ([]*SplitRunResponse, error) {
	if _, err := s.workOrders.FindByID(ctx, workOrderID); err != nil {
		return nil, err
	}
	runs, err := s.splitRuns.FindByWorkOrder(ctx, workOrderID, filter)
	if err != nil {
		return nil, err
	}
	resp := make([]*SplitRunResponse, len(runs))
	for i := range runs {
		resp[i] = splitRunResponse(&runs[i])
	}
	return resp, nil
}

// SplitRun loads one recorded split attempt
func (s *WorkOrderService) SplitRun(ctx context.Context, runID uuid.UUID) (*SplitRunResponse, error) {
	run, err := s.splitRuns.FindByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return splitRunResponse(run), nil
}

// WorkOrders lists the work orders of a plan with their job counts
func (s *WorkOrderService) WorkOrders(ctx context.Context, workPlanID uuid.UUID, filter shared.Filter) ([]WorkOrderSummary, error) {
	if _, err := s.workPlans.FindByID(ctx, workPlanID); err != nil {
		return nil, err
	}
	orders, err := s.workOrders.FindByWorkPlan(ctx, workPlanID, filter)
	if err != nil {
		return nil, err
	}
	resp := make([]WorkOrderSummary, 0, len(orders))
	for i := range orders {
		count, err := s.jobs.CountByWorkOrder(ctx, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("count jobs of work order %s: %w", orders[i].ID, err)
		}
		resp = append(resp, workOrderSummary(&orders[i], count))
	}
	return resp, nil
}

// Activate dispatches a pending work order
func (s *WorkOrderService) Activate(ctx context.Context, id uuid.UUID, at time.Time) (*WorkOrderSummary, error) {
	return s.updateWorkOrder(ctx, id, "work order activated", func(order *workorder.WorkOrder) error {
		return order.Activate(at)
	})
}

// SetTotalCost records the quoted cost of a work order
func (s *WorkOrderService) SetTotalCost(ctx context.Context, id uuid.UUID, cost decimal.Decimal) (*WorkOrderSummary, error) {
	return s.updateWorkOrder(ctx, id, "work order cost set", func(order *workorder.WorkOrder) error {
		return order.SetTotalCost(cost)
	})
}

func (s *WorkOrderService) updateWorkOrder(ctx context.Context, id uuid.UUID, msg string, op func(*workorder.WorkOrder) error) (*WorkOrderSummary, error) {
	order, err := s.workOrders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := op(order); err != nil {
		return nil, err
	}
	if err := s.workOrders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save work order %s: %w", id, err)
	}
	count, err := s.jobs.CountByWorkOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count jobs of work order %s: %w", id, err)
	}

	s.logger.Info(msg,
		zap.String("work_order_id", id.String()),
		zap.String("status", order.Status.String()),
		zap.String("total_cost", order.TotalCost.String()),
	)
	summary := workOrderSummary(order, count)
	return &summary, nil
}

// StartJob marks a job as started
func (s *WorkOrderService) StartJob(ctx context.Context, id uuid.UUID, at time.Time) (*JobResponse, error) {
	return s.updateJob(ctx, id, "job started", func(job *workorder.Job) error {
		return job.Start(at)
	})
}

// CompleteJob closes a started job with a comment
func (s *WorkOrderService) CompleteJob(ctx context.Context, id uuid.UUID, at time.Time, comment string) (*JobResponse, error) {
	return s.updateJob(ctx, id, "job completed", func(job *workorder.Job) error {
		return job.Complete(at, comment)
	})
}

// CancelJob closes a job that will not be completed
func (s *WorkOrderService) CancelJob(ctx context.Context, id uuid.UUID, at time.Time, comment string) (*JobResponse, error) {
	return s.updateJob(ctx, id, "job cancelled", func(job *workorder.Job) error {
		return job.Cancel(at, comment)
	})
}

func (s *WorkOrderService) updateJob(ctx context.Context, id uuid.UUID, msg string, op func(*workorder.Job) error) (*JobResponse, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := op(job); err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job %s: %w", id, err)
	}

	s.logger.Info(msg,
		zap.String("job_id", id.String()),
		zap.String("work_order_id", job.WorkOrderID.String()),
	)
	decorated := s.decorator.Job(job)
	input, err := summarize(ctx, decorated.InputSet)
	if err != nil {
		return nil, err
	}
	resp := jobResponse(job, input)
	return &resp, nil
}

func workOrderSummary(order *workorder.WorkOrder, jobs int64) WorkOrderSummary {
	return WorkOrderSummary{
		ID:           order.ID,
		Name:         order.Name(),
		Status:       order.Status.String(),
		OrderIndex:   order.OrderIndex,
		SetUUID:      order.SetUUID,
		TotalCost:    order.TotalCost,
		DispatchDate: order.DispatchDate,
		JobCount:     jobs,
	}
}

func summarize(ctx context.Context, ref *reference.SetRef) (*SetSummary, error) {
	set, err := ref.Get(ctx)
	if err != nil || set == nil {
		return nil, err
	}
	return &SetSummary{
		ID:     set.ID,
		Name:   set.Name,
		Owner:  set.Owner,
		Locked: set.Locked,
		Size:   set.Size(),
	}, nil
}
