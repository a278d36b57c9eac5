// Package splitter splits a work order into jobs, one per partition of its
// working set, creating and locking one remote input set per job.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appwo "github.com/labflow/backend/internal/application/workorder"
	"github.com/labflow/backend/internal/domain/remote"
	"github.com/labflow/backend/internal/domain/shared"
	"github.com/labflow/backend/internal/domain/workorder"
	"github.com/labflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AfterCreateFunc runs after each job has its populated input set.
// A returned error fails the split.
type AfterCreateFunc func(ctx context.Context, job *appwo.DecoratedJob) error

// Result describes the outcome of one split run.
type Result struct {
	WorkOrderID uuid.UUID
	RunID       uuid.UUID
	State       State
	// FailedIn is the state the run was in when it failed
	FailedIn      State
	Jobs          []*workorder.Job
	Sets          []*remote.Set
	Compensations []CompensationResult
	Duration      time.Duration
}

// Success reports whether every job was created and every set locked
func (r *Result) Success() bool {
	return r.State == StateSetsLocked
}

// CompensationFailures counts remote deletes that did not succeed
func (r *Result) CompensationFailures() int {
	return failedCompensations(r.Compensations)
}

// Splitter orchestrates a split as one local transaction plus remote set
// creation, with compensation of the remote side on failure.
type Splitter struct {
	txScope     TransactionScope
	sets        remote.SetService
	decorator   *appwo.Decorator
	strategy    Strategy
	runs        workorder.SplitRunRepository
	guard       shared.AdvisoryLock
	guardTTL    time.Duration
	afterCreate AfterCreateFunc
	metrics     *telemetry.SplitMetrics
	logger      *zap.Logger
}

// Option is a functional option for configuring the Splitter
type Option func(*Splitter)

// WithSplitRunRepository records every run in the split ledger
func WithSplitRunRepository(repo workorder.SplitRunRepository) Option {
	return func(s *Splitter) {
		s.runs = repo
	}
}

// WithGuard refuses concurrent splits of the same work order
func WithGuard(guard shared.AdvisoryLock, ttl time.Duration) Option {
	return func(s *Splitter) {
		s.guard = guard
		if ttl > 0 {
			s.guardTTL = ttl
		}
	}
}

// WithAfterCreate sets the hook run after each job is created
func WithAfterCreate(fn AfterCreateFunc) Option {
	return func(s *Splitter) {
		s.afterCreate = fn
	}
}

// WithSplitMetrics sets the split metrics recorder
func WithSplitMetrics(m *telemetry.SplitMetrics) Option {
	return func(s *Splitter) {
		s.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Splitter) {
		s.logger = logger
	}
}

// New creates a Splitter
func New(
	txScope TransactionScope,
	decorator *appwo.Decorator,
	strategy Strategy,
	opts ...Option,
) *Splitter {
	s := &Splitter{
		txScope:   txScope,
		sets:      decorator.Resolver().Sets,
		decorator: decorator,
		strategy:  strategy,
		guardTTL:  shared.DefaultAdvisoryLockTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// splitRun holds the mutable state of one invocation
type splitRun struct {
	result       *Result
	compensation Compensation
	created      []*remote.Set
	jobs         []*workorder.Job
}

// Split partitions the work order's working set and creates one job and one
// locked input set per partition. It is all-or-nothing: on any failure the
// sets created so far are destroyed, the job rows are rolled back, and the
// returned error wraps the cause. The Result is returned in both cases.
func (s *Splitter) Split(ctx context.Context, workOrderID uuid.UUID) (*Result, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "splitter", "split",
		telemetry.WithAttribute(telemetry.AttrKeyWorkOrderID, workOrderID.String()),
	)
	defer span.End()

	log := s.logger.With(zap.String("work_order_id", workOrderID.String()))
	run := &splitRun{result: &Result{WorkOrderID: workOrderID, State: StateNotStarted}}

	if s.guard != nil {
		key := guardKey(workOrderID)
		token, ok, err := s.guard.TryLock(ctx, key, s.guardTTL)
		if err != nil {
			telemetry.RecordError(span, err)
			return run.result, fmt.Errorf("split work order %s: acquire guard: %w", workOrderID, err)
		}
		if !ok {
			log.Warn("split refused, another split holds the guard")
			s.metrics.RecordRefused(ctx)
			telemetry.RecordError(span, workorder.ErrSplitInProgress)
			return run.result, workorder.ErrSplitInProgress
		}
		defer func() {
			if err := s.guard.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn("failed to release split guard", zap.Error(err))
			}
		}()
	}

	ledger := workorder.NewSplitRun(workOrderID)
	run.result.RunID = ledger.ID
	s.saveRun(ctx, log, ledger)

	log.Info("split started", zap.String("run_id", ledger.ID.String()))

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.execute(ctx, log, repos, workOrderID, run)
	})
	run.result.Duration = time.Since(start)

	if err != nil {
		run.result.FailedIn = run.result.State
		run.result.State = StateRolledBack
		run.result.Jobs = nil

		if run.compensation.Len() > 0 {
			log.Info("starting compensation for failed split",
				zap.Int("sets_to_destroy", run.compensation.Len()),
				zap.String("failed_in", run.result.FailedIn.String()),
			)
		}
		// compensation must run even if the caller's context is already done
		run.result.Compensations = run.compensation.Run(context.WithoutCancel(ctx), log)
		failures := run.result.CompensationFailures()

		log.Error("split rolled back",
			zap.String("failed_in", run.result.FailedIn.String()),
			zap.Int("sets_created", len(run.created)),
			zap.Int("failed_compensations", failures),
			zap.Error(err),
		)

		ledger.Compensate(run.result.FailedIn.String(), len(run.created), len(run.result.Compensations)-failures, failures, err)
		s.saveRun(ctx, log, ledger)
		s.metrics.RecordSplit(ctx, telemetry.SplitOutcomeCompensated, 0, len(run.result.Compensations)-failures, failures, run.result.Duration)
		telemetry.RecordError(span, err)

		return run.result, fmt.Errorf("split work order %s: %w", workOrderID, err)
	}

	run.result.Jobs = run.jobs
	run.result.Sets = run.created
	ledger.Succeed(run.result.State.String(), len(run.jobs), len(run.created))
	s.saveRun(ctx, log, ledger)
	s.metrics.RecordSplit(ctx, telemetry.SplitOutcomeSucceeded, len(run.jobs), 0, 0, run.result.Duration)
	telemetry.SetAttribute(span, telemetry.AttrKeyJobsCreated, len(run.jobs))
	telemetry.SetOK(span)

	log.Info("split completed",
		zap.Int("jobs_created", len(run.jobs)),
		zap.Duration("duration", run.result.Duration),
	)
	return run.result, nil
}

func (s *Splitter) execute(ctx context.Context, log *zap.Logger, repos TransactionalRepositories, workOrderID uuid.UUID, run *splitRun) error {
	order, err := repos.WorkOrderRepo().FindByID(ctx, workOrderID)
	if err != nil {
		return err
	}
	plan, err := repos.WorkPlanRepo().FindByID(ctx, order.WorkPlanID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return workorder.ErrNoWorkPlan
		}
		return err
	}
	decorated := s.decorator.WorkOrder(order)
	if !decorated.Set.IsSet() {
		return workorder.ErrNoSetSelected
	}

	run.result.State = StatePartitioningInProgress
	err = s.strategy.Partitions(ctx, decorated, func(p Partition) error {
		return s.createJob(ctx, log, repos.JobRepo(), order, p, run)
	})
	if err != nil {
		return err
	}
	run.result.State = StateJobsCreated

	if len(run.created) == 0 {
		log.Warn("split produced no partitions")
	}

	// locking is irreversible, so it only starts once every job exists
	owner := plan.OwnerEmail
	locked := true
	for i, set := range run.created {
		updated, err := s.sets.Update(ctx, set.ID, remote.SetUpdate{Owner: &owner, Locked: &locked})
		if err != nil {
			return fmt.Errorf("lock set %s: %w", set.ID, err)
		}
		if !updated.IsLocked() {
			return workorder.NewLockFailedError(set.Name)
		}
		run.created[i] = updated
	}
	run.result.State = StateSetsLocked
	return nil
}

func (s *Splitter) createJob(
	ctx context.Context,
	log *zap.Logger,
	jobs workorder.JobRepository,
	order *workorder.WorkOrder,
	p Partition,
	run *splitRun,
) error {
	job, err := workorder.NewJob(order.ID)
	if err != nil {
		return err
	}
	job.ContainerUUID = p.ContainerID
	if err := jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	set, err := s.sets.Create(ctx, job.InputSetName())
	if err != nil {
		return fmt.Errorf("create input set for job %s: %w", job.ID, err)
	}
	setID := set.ID
	run.compensation.Add("destroy input set", setID, func(ctx context.Context) error {
		return s.sets.Destroy(ctx, setID)
	})
	run.created = append(run.created, set)

	if err := s.sets.SetMaterials(ctx, setID, p.MaterialIDs); err != nil {
		return fmt.Errorf("populate input set %s: %w", setID, err)
	}

	decorated := s.decorator.Job(job)
	decorated.InputSet.Set(set)
	if err := jobs.Save(ctx, job); err != nil {
		return fmt.Errorf("link job %s to set %s: %w", job.ID, setID, err)
	}

	if s.afterCreate != nil {
		if err := s.afterCreate(ctx, decorated); err != nil {
			return fmt.Errorf("after create job %s: %w", job.ID, err)
		}
	}

	run.jobs = append(run.jobs, job)
	log.Debug("job created",
		zap.String("job_id", job.ID.String()),
		zap.String("input_set_uuid", setID),
		zap.String("container_uuid", p.ContainerID),
		zap.Int("materials", len(p.MaterialIDs)),
	)
	return nil
}

func (s *Splitter) saveRun(ctx context.Context, log *zap.Logger, run *workorder.SplitRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("failed to record split run",
			zap.String("run_id", run.ID.String()),
			zap.String("status", string(run.Status)),
			zap.Error(err),
		)
	}
}

func guardKey(workOrderID uuid.UUID) string {
	return "split:work_order:" + workOrderID.String()
}
