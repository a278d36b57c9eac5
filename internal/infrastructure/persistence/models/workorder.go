package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/workorder"
	"github.com/shopspring/decimal"
)

// WorkPlanModel is the persistence model for the WorkPlan entity.
type WorkPlanModel struct {
	BaseModel
	OwnerEmail            string `gorm:"type:varchar(255);not null"`
	ProjectID             string `gorm:"type:varchar(64)"`
	OriginalSetUUID       string `gorm:"column:original_set_uuid;type:varchar(64)"`
	Comment               string `gorm:"type:text"`
	DataReleaseStrategyID string `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (WorkPlanModel) TableName() string {
	return "work_plans"
}

// ToDomain converts the persistence model to a domain WorkPlan entity.
func (m *WorkPlanModel) ToDomain() *workorder.WorkPlan {
	return &workorder.WorkPlan{
		BaseEntity:            m.BaseModel.Entity(),
		OwnerEmail:            m.OwnerEmail,
		ProjectID:             m.ProjectID,
		OriginalSetUUID:       m.OriginalSetUUID,
		Comment:               m.Comment,
		DataReleaseStrategyID: m.DataReleaseStrategyID,
	}
}

// WorkPlanModelFromDomain creates a persistence model from a domain WorkPlan.
func WorkPlanModelFromDomain(p *workorder.WorkPlan) *WorkPlanModel {
	return &WorkPlanModel{
		BaseModel:             baseModelOf(p.BaseEntity),
		OwnerEmail:            p.OwnerEmail,
		ProjectID:             p.ProjectID,
		OriginalSetUUID:       p.OriginalSetUUID,
		Comment:               p.Comment,
		DataReleaseStrategyID: p.DataReleaseStrategyID,
	}
}

// WorkOrderModel is the persistence model for the WorkOrder entity.
type WorkOrderModel struct {
	BaseModel
	WorkPlanID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_work_orders_plan_index,priority:1"`
	Status          workorder.Status `gorm:"type:varchar(20);not null;default:'pending'"`
	OriginalSetUUID string           `gorm:"column:original_set_uuid;type:varchar(64)"`
	SetUUID         string           `gorm:"column:set_uuid;type:varchar(64)"`
	FinishedSetUUID string           `gorm:"column:finished_set_uuid;type:varchar(64)"`
	ProposalID      string           `gorm:"type:varchar(64)"`
	ProductID       string           `gorm:"type:varchar(64)"`
	TotalCost       decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	OrderIndex      int              `gorm:"not null;default:0;index:idx_work_orders_plan_index,priority:2"`
	DispatchDate    *time.Time
}

// TableName returns the table name for GORM
func (WorkOrderModel) TableName() string {
	return "work_orders"
}

// ToDomain converts the persistence model to a domain WorkOrder entity.
func (m *WorkOrderModel) ToDomain() *workorder.WorkOrder {
	return &workorder.WorkOrder{
		BaseEntity:      m.BaseModel.Entity(),
		WorkPlanID:      m.WorkPlanID,
		Status:          m.Status,
		OriginalSetUUID: m.OriginalSetUUID,
		SetUUID:         m.SetUUID,
		FinishedSetUUID: m.FinishedSetUUID,
		ProposalID:      m.ProposalID,
		ProductID:       m.ProductID,
		TotalCost:       m.TotalCost,
		OrderIndex:      m.OrderIndex,
		DispatchDate:    m.DispatchDate,
	}
}

// WorkOrderModelFromDomain creates a persistence model from a domain WorkOrder.
func WorkOrderModelFromDomain(o *workorder.WorkOrder) *WorkOrderModel {
	return &WorkOrderModel{
		BaseModel:       baseModelOf(o.BaseEntity),
		WorkPlanID:      o.WorkPlanID,
		Status:          o.Status,
		OriginalSetUUID: o.OriginalSetUUID,
		SetUUID:         o.SetUUID,
		FinishedSetUUID: o.FinishedSetUUID,
		ProposalID:      o.ProposalID,
		ProductID:       o.ProductID,
		TotalCost:       o.TotalCost,
		OrderIndex:      o.OrderIndex,
		DispatchDate:    o.DispatchDate,
	}
}

// JobModel is the persistence model for the Job entity.
type JobModel struct {
	BaseModel
	WorkOrderID   uuid.UUID `gorm:"type:uuid;not null;index"`
	InputSetUUID  string    `gorm:"column:input_set_uuid;type:varchar(64)"`
	SetUUID       string    `gorm:"column:set_uuid;type:varchar(64)"`
	ContainerUUID string    `gorm:"column:container_uuid;type:varchar(64)"`
	Started       *time.Time
	Completed     *time.Time
	Cancelled     *time.Time
	CloseComment  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (JobModel) TableName() string {
	return "jobs"
}

// ToDomain converts the persistence model to a domain Job entity.
func (m *JobModel) ToDomain() *workorder.Job {
	return &workorder.Job{
		BaseEntity:    m.BaseModel.Entity(),
		WorkOrderID:   m.WorkOrderID,
		InputSetUUID:  m.InputSetUUID,
		SetUUID:       m.SetUUID,
		ContainerUUID: m.ContainerUUID,
		Started:       m.Started,
		Completed:     m.Completed,
		Cancelled:     m.Cancelled,
		CloseComment:  m.CloseComment,
	}
}

// JobModelFromDomain creates a persistence model from a domain Job.
func JobModelFromDomain(j *workorder.Job) *JobModel {
	return &JobModel{
		BaseModel:     baseModelOf(j.BaseEntity),
		WorkOrderID:   j.WorkOrderID,
		InputSetUUID:  j.InputSetUUID,
		SetUUID:       j.SetUUID,
		ContainerUUID: j.ContainerUUID,
		Started:       j.Started,
		Completed:     j.Completed,
		Cancelled:     j.Cancelled,
		CloseComment:  j.CloseComment,
	}
}

// SplitRunModel is the persistence model for the split audit ledger.
type SplitRunModel struct {
	BaseModel
	WorkOrderID          uuid.UUID                `gorm:"type:uuid;not null;index"`
	Status               workorder.SplitRunStatus `gorm:"type:varchar(20);not null"`
	State                string                   `gorm:"type:varchar(40)"`
	JobsCreated          int                      `gorm:"not null;default:0"`
	SetsCreated          int                      `gorm:"not null;default:0"`
	SetsCompensated      int                      `gorm:"not null;default:0"`
	CompensationFailures int                      `gorm:"not null;default:0"`
	Error                string                   `gorm:"type:text"`
	FinishedAt           *time.Time
}

// TableName returns the table name for GORM
func (SplitRunModel) TableName() string {
	return "split_runs"
}

// ToDomain converts the persistence model to a domain SplitRun.
func (m *SplitRunModel) ToDomain() *workorder.SplitRun {
	return &workorder.SplitRun{
		BaseEntity:           m.BaseModel.Entity(),
		WorkOrderID:          m.WorkOrderID,
		Status:               m.Status,
		State:                m.State,
		JobsCreated:          m.JobsCreated,
		SetsCreated:          m.SetsCreated,
		SetsCompensated:      m.SetsCompensated,
		CompensationFailures: m.CompensationFailures,
		Error:                m.Error,
		FinishedAt:           m.FinishedAt,
	}
}

// SplitRunModelFromDomain creates a persistence model from a domain SplitRun.
func SplitRunModelFromDomain(r *workorder.SplitRun) *SplitRunModel {
	return &SplitRunModel{
		BaseModel:            baseModelOf(r.BaseEntity),
		WorkOrderID:          r.WorkOrderID,
		Status:               r.Status,
		State:                r.State,
		JobsCreated:          r.JobsCreated,
		SetsCreated:          r.SetsCreated,
		SetsCompensated:      r.SetsCompensated,
		CompensationFailures: r.CompensationFailures,
		Error:                r.Error,
		FinishedAt:           r.FinishedAt,
	}
}

// AllModels lists every model in migration order
func AllModels() []any {
	return []any{&WorkPlanModel{}, &WorkOrderModel{}, &JobModel{}, &SplitRunModel{}}
}
