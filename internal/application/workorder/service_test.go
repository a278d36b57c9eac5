package workorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/reference"
	"github.com/labflow/backend/internal/domain/shared"
	"github.com/labflow/backend/internal/domain/workorder"
	"github.com/labflow/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockWorkOrderRepository is a mock implementation of WorkOrderRepository
type MockWorkOrderRepository struct {
	mock.Mock
}

func (m *MockWorkOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*workorder.WorkOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workorder.WorkOrder), args.Error(1)
}

func (m *MockWorkOrderRepository) FindByWorkPlan(ctx context.Context, workPlanID uuid.UUID, filter shared.Filter) ([]workorder.WorkOrder, error) {
	args := m.Called(ctx, workPlanID, filter)
	return args.Get(0).([]workorder.WorkOrder), args.Error(1)
}

func (m *MockWorkOrderRepository) Save(ctx context.Context, order *workorder.WorkOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockWorkPlanRepository is a mock implementation of WorkPlanRepository
type MockWorkPlanRepository struct {
	mock.Mock
}

func (m *MockWorkPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*workorder.WorkPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workorder.WorkPlan), args.Error(1)
}

func (m *MockWorkPlanRepository) Save(ctx context.Context, plan *workorder.WorkPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*workorder.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workorder.Job), args.Error(1)
}

func (m *MockJobRepository) FindByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]workorder.Job, error) {
	args := m.Called(ctx, workOrderID)
	return args.Get(0).([]workorder.Job), args.Error(1)
}

func (m *MockJobRepository) CountByWorkOrder(ctx context.Context, workOrderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, workOrderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockJobRepository) Save(ctx context.Context, job *workorder.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockSplitRunRepository is a mock implementation of SplitRunRepository
type MockSplitRunRepository struct {
	mock.Mock
}

func (m *MockSplitRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*workorder.SplitRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workorder.SplitRun), args.Error(1)
}

func (m *MockSplitRunRepository) FindByWorkOrder(ctx context.Context, workOrderID uuid.UUID, filter shared.Filter) ([]workorder.SplitRun, error) {
	args := m.Called(ctx, workOrderID, filter)
	return args.Get(0).([]workorder.SplitRun), args.Error(1)
}

func (m *MockSplitRunRepository) Save(ctx context.Context, run *workorder.SplitRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

type serviceFixture struct {
	lab     *testutil.FakeLab
	orders  *MockWorkOrderRepository
	plans   *MockWorkPlanRepository
	jobs    *MockJobRepository
	runs    *MockSplitRunRepository
	service *WorkOrderService
}

func newServiceFixture() *serviceFixture {
	lab := testutil.NewFakeLab()
	f := &serviceFixture{
		lab:    lab,
		orders: new(MockWorkOrderRepository),
		plans:  new(MockWorkPlanRepository),
		jobs:   new(MockJobRepository),
		runs:   new(MockSplitRunRepository),
	}
	resolver := reference.NewResolver(lab.Sets(), lab.Materials(), lab.Containers(), lab.Study())
	f.service = NewWorkOrderService(f.orders, f.plans, f.jobs, f.runs, NewDecorator(resolver), zap.NewNop())
	return f
}

func TestWorkOrderService_FinaliseSet(t *testing.T) {
	ctx := context.Background()

	t.Run("saves the adopted clone", func(t *testing.T) {
		f := newServiceFixture()
		original := f.lab.AddSet("original", false, "m1", "m2")
		order := newTestOrder(t)
		order.OriginalSetUUID = original.ID
		f.orders.On("FindByID", ctx, order.ID).Return(order, nil)
		f.orders.On("Save", ctx, order).Return(nil).Once()

		locked, err := f.service.FinaliseSet(ctx, order.ID)

		require.NoError(t, err)
		assert.True(t, locked)
		require.NotEmpty(t, order.SetUUID)
		clone := f.lab.Set(order.SetUUID)
		require.NotNil(t, clone)
		assert.True(t, clone.Locked)
		assert.Equal(t, order.Name(), clone.Name)
		f.orders.AssertExpectations(t)
	})

	t.Run("does not save when nothing changed", func(t *testing.T) {
		f := newServiceFixture()
		working := f.lab.AddSet("working", true)
		order := newTestOrder(t)
		order.SetUUID = working.ID
		f.orders.On("FindByID", ctx, order.ID).Return(order, nil)

		locked, err := f.service.FinaliseSet(ctx, order.ID)

		require.NoError(t, err)
		assert.False(t, locked)
		f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		f := newServiceFixture()
		id := uuid.New()
		f.orders.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.FinaliseSet(ctx, id)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestWorkOrderService_CreateEditableSet(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	original := f.lab.AddSet("original", true, "m1")
	order := newTestOrder(t)
	order.OriginalSetUUID = original.ID
	f.orders.On("FindByID", ctx, order.ID).Return(order, nil)
	f.orders.On("Save", ctx, order).Return(errors.New("db down")).Once()

	set, err := f.service.CreateEditableSet(ctx, order.ID)

	require.Error(t, err)
	assert.Nil(t, set)
	assert.Contains(t, err.Error(), "db down")
}

func TestWorkOrderService_Describe(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	original := f.lab.AddSet("original", true, "m1", "m2", "m3")
	input := f.lab.AddSet("input", true, "m1")
	f.lab.AddNode("prop-1", "Proposal One", "S0042")

	plan, err := workorder.NewWorkPlan("owner@lab.example")
	require.NoError(t, err)
	order, err := workorder.NewWorkOrder(plan.ID, 1)
	require.NoError(t, err)
	order.OriginalSetUUID = original.ID
	order.SetUUID = original.ID
	order.ProposalID = "prop-1"
	job, err := workorder.NewJob(order.ID)
	require.NoError(t, err)
	job.InputSetUUID = input.ID

	f.orders.On("FindByID", ctx, order.ID).Return(order, nil)
	f.plans.On("FindByID", ctx, plan.ID).Return(plan, nil)
	f.jobs.On("FindByWorkOrder", ctx, order.ID).Return([]workorder.Job{*job}, nil)
	run := workorder.NewSplitRun(order.ID)
	run.Succeed("SetsLocked", 1, 1)
	f.runs.On("FindByWorkOrder", ctx, order.ID, shared.Filter{Page: 1, PageSize: 1}).Return([]workorder.SplitRun{*run}, nil)

	resp, err := f.service.Describe(ctx, order.ID)

	require.NoError(t, err)
	assert.Equal(t, order.Name(), resp.Name)
	assert.Equal(t, "owner@lab.example", resp.OwnerEmail)
	assert.Equal(t, "Proposal One", resp.Proposal)
	require.NotNil(t, resp.OriginalSet)
	assert.Equal(t, 3, *resp.OriginalSet.Size)
	assert.Nil(t, resp.FinishedSet)
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, input.ID, resp.Jobs[0].InputSet.ID)
	require.NotNil(t, resp.LatestRun)
	assert.Equal(t, run.ID, resp.LatestRun.ID)
	assert.Equal(t, "succeeded", resp.LatestRun.Status)
}

func TestWorkOrderService_DescribeWorkPlanLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("missing plan leaves owner empty", func(t *testing.T) {
		f := newServiceFixture()
		order := newTestOrder(t)
		f.orders.On("FindByID", ctx, order.ID).Return(order, nil)
		f.plans.On("FindByID", ctx, order.WorkPlanID).Return(nil, shared.ErrNotFound)
		f.jobs.On("FindByWorkOrder", ctx, order.ID).Return([]workorder.Job{}, nil)
		f.runs.On("FindByWorkOrder", ctx, order.ID, mock.Anything).Return([]workorder.SplitRun{}, nil)

		resp, err := f.service.Describe(ctx, order.ID)

		require.NoError(t, err)
		assert.Empty(t, resp.OwnerEmail)
		assert.Nil(t, resp.LatestRun)
	})

	t.Run("database failure is returned", func(t *testing.T) {
		f := newServiceFixture()
		order := newTestOrder(t)
		f.orders.On("FindByID", ctx, order.ID).Return(order, nil)
		f.plans.On("FindByID", ctx, order.WorkPlanID).Return(nil, errors.New("connection reset"))

		resp, err := f.service.Describe(ctx, order.ID)

		require.Error(t, err)
		assert.Nil(t, resp)
		assert.Contains(t, err.Error(), "load work plan")
		assert.Contains(t, err.Error(), "connection reset")
		f.jobs.AssertNotCalled(t, "FindByWorkOrder", mock.Anything, mock.Anything)
	})
}

func TestWorkOrderService_SplitRuns(t *testing.T) {
	ctx := context.Background()

	t.Run("lists runs of an existing work order", func(t *testing.T) {
		f := newServiceFixture()
		order := newTestOrder(t)
		filter := shared.Filter{Page: 2, PageSize: 5}
		failed := workorder.NewSplitRun(order.ID)
		failed.Compensate("JobsCreated", 2, 1, 1, errors.New("lock rejected"))
		f.orders.On("FindByID", ctx, order.ID).Return(order, nil)
		f.runs.On("FindByWorkOrder", ctx, order.ID, filter).Return([]workorder.SplitRun{*failed}, nil)

		runs, err := f.service.SplitRuns(ctx, order.ID, filter)

		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "compensated", runs[0].Status)
		assert.Equal(t, "JobsCreated", runs[0].State)
		assert.Equal(t, 1, runs[0].CompensationFailures)
		assert.Equal(t, "lock rejected", runs[0].Error)
	})

	t.Run("unknown work order", func(t *testing.T) {
		f := newServiceFixture()
		id := uuid.New()
		f.orders.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.SplitRuns(ctx, id, shared.Filter{})

		assert.ErrorIs(t, err, shared.ErrNotFound)
		f.runs.AssertNotCalled(t, "FindByWorkOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("single run", func(t *testing.T) {
		f := newServiceFixture()
		run := workorder.NewSplitRun(uuid.New())
		f.runs.On("FindByID", ctx, run.ID).Return(run, nil)

		got, err := f.service.SplitRun(ctx, run.ID)

		require.NoError(t, err)
		assert.Equal(t, "running", got.Status)
		assert.Nil(t, got.FinishedAt)
	})
}

func TestWorkOrderService_WorkOrders(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	plan, err := workorder.NewWorkPlan("owner@lab.example")
	require.NoError(t, err)
	first, err := workorder.NewWorkOrder(plan.ID, 0)
	require.NoError(t, err)
	second, err := workorder.NewWorkOrder(plan.ID, 1)
	require.NoError(t, err)
	filter := shared.Filter{OrderBy: "order_index"}

	f.plans.On("FindByID", ctx, plan.ID).Return(plan, nil)
	f.orders.On("FindByWorkPlan", ctx, plan.ID, filter).Return([]workorder.WorkOrder{*first, *second}, nil)
	f.jobs.On("CountByWorkOrder", ctx, first.ID).Return(int64(3), nil)
	f.jobs.On("CountByWorkOrder", ctx, second.ID).Return(int64(0), nil)

	orders, err := f.service.WorkOrders(ctx, plan.ID, filter)

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, first.ID, orders[0].ID)
	assert.Equal(t, int64(3), orders[0].JobCount)
	assert.Equal(t, 1, orders[1].OrderIndex)
	assert.Zero(t, orders[1].JobCount)
}

func TestWorkOrderService_UpdateWorkOrder(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("activate dispatches and saves", func(t *testing.T) {
		f := newServiceFixture()
		order := newTestOrder(t)
		f.orders.On("FindByID", ctx, order.ID).Return(order, nil)
		f.orders.On("Save", ctx, order).Return(nil).Once()
		f.jobs.On("CountByWorkOrder", ctx, order.ID).Return(int64(0), nil)

		got, err := f.service.Activate(ctx, order.ID, at)

		require.NoError(t, err)
		assert.Equal(t, "active", got.Status)
		require.NotNil(t, got.DispatchDate)
		assert.Equal(t, at, *got.DispatchDate)
		f.orders.AssertExpectations(t)
	})

	t.Run("activating twice is rejected without saving", func(t *testing.T) {
		f := newServiceFixture()
		order := newTestOrder(t)
		require.NoError(t, order.Activate(at))
		f.orders.On("FindByID", ctx, order.ID).Return(order, nil)

		_, err := f.service.Activate(ctx, order.ID, at)

		assert.ErrorIs(t, err, shared.ErrInvalidState)
		f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("total cost", func(t *testing.T) {
		f := newServiceFixture()
		order := newTestOrder(t)
		f.orders.On("FindByID", ctx, order.ID).Return(order, nil)
		f.orders.On("Save", ctx, order).Return(nil).Once()
		f.jobs.On("CountByWorkOrder", ctx, order.ID).Return(int64(2), nil)

		got, err := f.service.SetTotalCost(ctx, order.ID, decimal.RequireFromString("125.50"))

		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("125.5").Equal(got.TotalCost))
		assert.Equal(t, int64(2), got.JobCount)
	})

	t.Run("negative cost is rejected", func(t *testing.T) {
		f := newServiceFixture()
		order := newTestOrder(t)
		f.orders.On("FindByID", ctx, order.ID).Return(order, nil)

		_, err := f.service.SetTotalCost(ctx, order.ID, decimal.NewFromInt(-1))

		require.Error(t, err)
		f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestWorkOrderService_JobLifecycle(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newServiceFixture()
	input := f.lab.AddSet("input", true, "m1", "m2")
	job, err := workorder.NewJob(uuid.New())
	require.NoError(t, err)
	job.InputSetUUID = input.ID
	f.jobs.On("FindByID", ctx, job.ID).Return(job, nil)
	f.jobs.On("Save", ctx, job).Return(nil)

	_, err = f.service.CompleteJob(ctx, job.ID, at, "done")
	assert.ErrorIs(t, err, shared.ErrInvalidState, "a job completes only after it starts")

	started, err := f.service.StartJob(ctx, job.ID, at)
	require.NoError(t, err)
	require.NotNil(t, started.Started)
	require.NotNil(t, started.InputSet)
	assert.Equal(t, 2, *started.InputSet.Size)

	completed, err := f.service.CompleteJob(ctx, job.ID, at.Add(time.Hour), "all plates read")
	require.NoError(t, err)
	require.NotNil(t, completed.Completed)
	assert.Equal(t, "all plates read", completed.CloseComment)

	_, err = f.service.CancelJob(ctx, job.ID, at, "too late")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	f.jobs.AssertNumberOfCalls(t, "Save", 2)
}
