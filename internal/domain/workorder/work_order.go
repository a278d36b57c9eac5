package workorder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status represents the status of a work order
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Transitions are monotone: nothing moves back to pending.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusActive || target == StatusCancelled
	case StatusActive:
		return target == StatusCompleted || target == StatusCancelled
	case StatusCompleted, StatusCancelled:
		return false // Terminal states
	}
	return false
}

// WorkOrder is a unit of lab work over a set of materials. The three set
// fields hold Set service UUIDs; the sets themselves are never stored here.
type WorkOrder struct {
	shared.BaseEntity
	WorkPlanID      uuid.UUID
	Status          Status
	OriginalSetUUID string
	SetUUID         string
	FinishedSetUUID string
	ProposalID      string // Study node id
	ProductID       string
	TotalCost       decimal.Decimal
	OrderIndex      int
	DispatchDate    *time.Time
}

// NewWorkOrder creates a pending work order under a work plan
func NewWorkOrder(workPlanID uuid.UUID, orderIndex int) (*WorkOrder, error) {
	if workPlanID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WORK_PLAN", "Work plan ID cannot be empty")
	}
	if orderIndex < 0 {
		return nil, shared.NewDomainError("INVALID_ORDER_INDEX", "Order index cannot be negative")
	}
	return &WorkOrder{
		BaseEntity: shared.NewBaseEntity(),
		WorkPlanID: workPlanID,
		Status:     StatusPending,
		TotalCost:  decimal.Zero,
		OrderIndex: orderIndex,
	}, nil
}

// Name is the display name, also used to label cloned sets.
func (w *WorkOrder) Name() string {
	return fmt.Sprintf("Work Order %s", w.ID)
}

// IsActive reports whether the order has been dispatched
func (w *WorkOrder) IsActive() bool {
	return w.Status == StatusActive
}

// HasInputSet reports whether a working set has been chosen
func (w *WorkOrder) HasInputSet() bool {
	return w.SetUUID != ""
}

// TransitionTo moves the order to target if allowed
func (w *WorkOrder) TransitionTo(target Status) error {
	if !w.Status.CanTransitionTo(target) {
		return shared.ErrInvalidState.Withf("Cannot change work order from %s to %s", w.Status, target)
	}
	w.Status = target
	w.Touch()
	return nil
}

// Activate dispatches the order at the given time
func (w *WorkOrder) Activate(at time.Time) error {
	if err := w.TransitionTo(StatusActive); err != nil {
		return err
	}
	w.DispatchDate = &at
	return nil
}

// SetTotalCost records the cost quoted for the order
func (w *WorkOrder) SetTotalCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Total cost cannot be negative")
	}
	w.TotalCost = cost
	w.Touch()
	return nil
}
