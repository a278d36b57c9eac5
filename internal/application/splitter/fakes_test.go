package splitter_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/application/splitter"
	"github.com/labflow/backend/internal/domain/shared"
	"github.com/labflow/backend/internal/domain/workorder"
)

// memStore is an in-memory work order database with copy-on-commit transactions.
type memStore struct {
	mu     sync.Mutex
	plans  map[uuid.UUID]workorder.WorkPlan
	orders map[uuid.UUID]workorder.WorkOrder
	jobs   map[uuid.UUID]workorder.Job
	// seq preserves job insertion order
	seq map[uuid.UUID]int
	n   int
}

func newMemStore() *memStore {
	return &memStore{
		plans:  map[uuid.UUID]workorder.WorkPlan{},
		orders: map[uuid.UUID]workorder.WorkOrder{},
		jobs:   map[uuid.UUID]workorder.Job{},
		seq:    map[uuid.UUID]int{},
	}
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.plans {
		c.plans[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.jobs {
		c.jobs[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	c.n = s.n
	return c
}

// Execute implements splitter.TransactionScope
func (s *memStore) Execute(ctx context.Context, fn func(repos splitter.TransactionalRepositories) error) error {
	s.mu.Lock()
	tx := s.clone()
	s.mu.Unlock()

	if err := fn(memRepos{tx}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans, s.orders, s.jobs, s.seq, s.n = tx.plans, tx.orders, tx.jobs, tx.seq, tx.n
	return nil
}

func (s *memStore) jobsOf(workOrderID uuid.UUID) []workorder.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memJobs{s}.list(workOrderID)
}

type memRepos struct{ s *memStore }

func (r memRepos) WorkOrderRepo() workorder.WorkOrderRepository { return memOrders{r.s} }
func (r memRepos) WorkPlanRepo() workorder.WorkPlanRepository   { return memPlans{r.s} }
func (r memRepos) JobRepo() workorder.JobRepository             { return memJobs{r.s} }

type memPlans struct{ s *memStore }

func (r memPlans) FindByID(_ context.Context, id uuid.UUID) (*workorder.WorkPlan, error) {
	p, ok := r.s.plans[id]
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", "work plan not found")
	}
	return &p, nil
}

func (r memPlans) Save(_ context.Context, plan *workorder.WorkPlan) error {
	r.s.plans[plan.ID] = *plan
	return nil
}

type memOrders struct{ s *memStore }

func (r memOrders) FindByID(_ context.Context, id uuid.UUID) (*workorder.WorkOrder, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", "work order not found")
	}
	return &o, nil
}

func (r memOrders) FindByWorkPlan(_ context.Context, planID uuid.UUID, _ shared.Filter) ([]workorder.WorkOrder, error) {
	var out []workorder.WorkOrder
	for _, o := range r.s.orders {
		if o.WorkPlanID == planID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r memOrders) Save(_ context.Context, order *workorder.WorkOrder) error {
	r.s.orders[order.ID] = *order
	return nil
}

type memJobs struct{ s *memStore }

func (r memJobs) FindByID(_ context.Context, id uuid.UUID) (*workorder.Job, error) {
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", "job not found")
	}
	return &j, nil
}

func (r memJobs) list(workOrderID uuid.UUID) []workorder.Job {
	var out []workorder.Job
	for _, j := range r.s.jobs {
		if j.WorkOrderID == workOrderID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return r.s.seq[out[i].ID] < r.s.seq[out[k].ID] })
	return out
}

func (r memJobs) FindByWorkOrder(_ context.Context, workOrderID uuid.UUID) ([]workorder.Job, error) {
	return r.list(workOrderID), nil
}

func (r memJobs) CountByWorkOrder(_ context.Context, workOrderID uuid.UUID) (int64, error) {
	return int64(len(r.list(workOrderID))), nil
}

func (r memJobs) Save(_ context.Context, job *workorder.Job) error {
	if _, ok := r.s.seq[job.ID]; !ok {
		r.s.n++
		r.s.seq[job.ID] = r.s.n
	}
	r.s.jobs[job.ID] = *job
	return nil
}

// memRuns records every saved ledger snapshot.
type memRuns struct {
	mu    sync.Mutex
	saved []workorder.SplitRun
}

func (r *memRuns) FindByID(_ context.Context, id uuid.UUID) (*workorder.SplitRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.saved) - 1; i >= 0; i-- {
		if r.saved[i].ID == id {
			run := r.saved[i]
			return &run, nil
		}
	}
	return nil, shared.NewDomainError("NOT_FOUND", "split run not found")
}

func (r *memRuns) FindByWorkOrder(_ context.Context, workOrderID uuid.UUID, _ shared.Filter) ([]workorder.SplitRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []workorder.SplitRun
	for _, run := range r.saved {
		if run.WorkOrderID == workOrderID {
			out = append(out, run)
		}
	}
	return out, nil
}

func (r *memRuns) Save(_ context.Context, run *workorder.SplitRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, *run)
	return nil
}

func (r *memRuns) last() workorder.SplitRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[len(r.saved)-1]
}

// stubGuard grants or refuses every lock.
type stubGuard struct {
	grant    bool
	unlocked []string
}

func (g *stubGuard) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if !g.grant {
		return "", false, nil
	}
	return "token-" + key, true, nil
}

func (g *stubGuard) Unlock(_ context.Context, key, _ string) error {
	g.unlocked = append(g.unlocked, key)
	return nil
}

func (g *stubGuard) Close() error { return nil }

var (
	_ splitter.TransactionScope = (*memStore)(nil)
	_ shared.AdvisoryLock       = (*stubGuard)(nil)
)
