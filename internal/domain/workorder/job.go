package workorder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/shared"
)

// Job is one partition of a split work order
type Job struct {
	shared.BaseEntity
	WorkOrderID   uuid.UUID
	InputSetUUID  string
	SetUUID       string
	ContainerUUID string
	Started       *time.Time
	Completed     *time.Time
	Cancelled     *time.Time
	CloseComment  string
}

// NewJob creates a job attached to a work order
func NewJob(workOrderID uuid.UUID) (*Job, error) {
	if workOrderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WORK_ORDER", "Work order ID cannot be empty")
	}
	return &Job{
		BaseEntity:  shared.NewBaseEntity(),
		WorkOrderID: workOrderID,
	}, nil
}

// InputSetName is the name given to the set created for this job's input.
func (j *Job) InputSetName() string {
	return fmt.Sprintf("Job %s Input Set", j.ID)
}

// IsClosed reports whether the job was completed or cancelled
func (j *Job) IsClosed() bool {
	return j.Completed != nil || j.Cancelled != nil
}

// Start marks the job as started
func (j *Job) Start(at time.Time) error {
	if j.Started != nil {
		return shared.ErrInvalidState.Withf("Job has already started")
	}
	if j.IsClosed() {
		return shared.ErrInvalidState.Withf("Job is already closed")
	}
	j.Started = &at
	j.Touch()
	return nil
}

// Complete closes a started job
func (j *Job) Complete(at time.Time, comment string) error {
	if j.Started == nil {
		return shared.ErrInvalidState.Withf("Job has not started")
	}
	if j.IsClosed() {
		return shared.ErrInvalidState.Withf("Job is already closed")
	}
	j.Completed = &at
	j.CloseComment = comment
	j.Touch()
	return nil
}

// Cancel closes a job that will not be completed
func (j *Job) Cancel(at time.Time, comment string) error {
	if j.IsClosed() {
		return shared.ErrInvalidState.Withf("Job is already closed")
	}
	j.Cancelled = &at
	j.CloseComment = comment
	j.Touch()
	return nil
}
