package workorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/shared"
)

// SplitRunStatus is the outcome recorded for one split attempt
type SplitRunStatus string

const (
	SplitRunRunning     SplitRunStatus = "running"
	SplitRunSucceeded   SplitRunStatus = "succeeded"
	SplitRunCompensated SplitRunStatus = "compensated"
)

// SplitRun is the audit record of one split attempt. It is written outside
// the split transaction so failed attempts survive the rollback.
type SplitRun struct {
	shared.BaseEntity
	WorkOrderID          uuid.UUID
	Status               SplitRunStatus
	State                string
	JobsCreated          int
	SetsCreated          int
	SetsCompensated      int
	CompensationFailures int
	Error                string
	FinishedAt           *time.Time
}

// NewSplitRun starts a ledger entry for workOrderID
func NewSplitRun(workOrderID uuid.UUID) *SplitRun {
	return &SplitRun{
		BaseEntity:  shared.NewBaseEntity(),
		WorkOrderID: workOrderID,
		Status:      SplitRunRunning,
	}
}

// Succeed records a committed split
func (r *SplitRun) Succeed(state string, jobs, sets int) {
	r.finish(SplitRunSucceeded, state)
	r.JobsCreated = jobs
	r.SetsCreated = sets
}

// Compensate records a rolled back split and its compensation outcome
func (r *SplitRun) Compensate(state string, sets, compensated, failures int, cause error) {
	r.finish(SplitRunCompensated, state)
	r.SetsCreated = sets
	r.SetsCompensated = compensated
	r.CompensationFailures = failures
	if cause != nil {
		r.Error = cause.Error()
	}
}

func (r *SplitRun) finish(status SplitRunStatus, state string) {
	now := time.Now()
	r.Status = status
	r.State = state
	r.FinishedAt = &now
	r.UpdatedAt = now
}
