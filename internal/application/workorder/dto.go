package workorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/workorder"
	"github.com/shopspring/decimal"
)

// SetSummary describes a resolved remote set
type SetSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Owner  string `json:"owner,omitempty"`
	Locked bool   `json:"locked"`
	Size   *int   `json:"size,omitempty"`
}

// JobResponse describes a job and its input set
type JobResponse struct {
	ID            uuid.UUID   `json:"id"`
	InputSet      *SetSummary `json:"input_set,omitempty"`
	ContainerUUID string      `json:"container_uuid,omitempty"`
	Started       *time.Time  `json:"started,omitempty"`
	Completed     *time.Time  `json:"completed,omitempty"`
	Cancelled     *time.Time  `json:"cancelled,omitempty"`
	CloseComment  string      `json:"close_comment,omitempty"`
}

// WorkOrderResponse describes a work order with its sets resolved
type WorkOrderResponse struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Status       string            `json:"status"`
	WorkPlanID   uuid.UUID         `json:"work_plan_id"`
	OwnerEmail   string            `json:"owner_email,omitempty"`
	TotalCost    decimal.Decimal   `json:"total_cost"`
	OrderIndex   int               `json:"order_index"`
	DispatchDate *time.Time        `json:"dispatch_date,omitempty"`
	Proposal     string            `json:"proposal,omitempty"`
	OriginalSet  *SetSummary       `json:"original_set,omitempty"`
	Set          *SetSummary       `json:"set,omitempty"`
	FinishedSet  *SetSummary       `json:"finished_set,omitempty"`
	Jobs         []JobResponse     `json:"jobs"`
	LatestRun    *SplitRunResponse `json:"latest_split_run,omitempty"`
}

// SplitRunResponse describes one recorded split attempt
type SplitRunResponse struct {
	ID                   uuid.UUID  `json:"id"`
	WorkOrderID          uuid.UUID  `json:"work_order_id"`
	Status               string     `json:"status"`
	State                string     `json:"state,omitempty"`
	JobsCreated          int        `json:"jobs_created"`
	SetsCreated          int        `json:"sets_created"`
	SetsCompensated      int        `json:"sets_compensated"`
	CompensationFailures int        `json:"compensation_failures"`
	Error                string     `json:"error,omitempty"`
	StartedAt            time.Time  `json:"started_at"`
	FinishedAt           *time.Time `json:"finished_at,omitempty"`
}

func splitRunResponse(r *workorder.SplitRun) *SplitRunResponse {
	return &SplitRunResponse{
		ID:                   r.ID,
		WorkOrderID:          r.WorkOrderID,
		Status:               string(r.Status),
		State:                r.State,
		JobsCreated:          r.JobsCreated,
		SetsCreated:          r.SetsCreated,
		SetsCompensated:      r.SetsCompensated,
		CompensationFailures: r.CompensationFailures,
		Error:                r.Error,
		StartedAt:            r.CreatedAt,
		FinishedAt:           r.FinishedAt,
	}
}

// WorkOrderSummary is one row of a work plan listing
type WorkOrderSummary struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Status       string          `json:"status"`
	OrderIndex   int             `json:"order_index"`
	SetUUID      string          `json:"set_uuid,omitempty"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	DispatchDate *time.Time      `json:"dispatch_date,omitempty"`
	JobCount     int64           `json:"job_count"`
}

func jobResponse(job *workorder.Job, input *SetSummary) JobResponse {
	return JobResponse{
		ID:            job.ID,
		InputSet:      input,
		ContainerUUID: job.ContainerUUID,
		Started:       job.Started,
		Completed:     job.Completed,
		Cancelled:     job.Cancelled,
		CloseComment:  job.CloseComment,
	}
}
