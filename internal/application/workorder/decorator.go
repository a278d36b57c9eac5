// Package workorder decorates local work order records with references to the
// remote entities they name and implements the set life-cycle operations on top.
package workorder

import (
	"github.com/labflow/backend/internal/domain/reference"
	"github.com/labflow/backend/internal/domain/remote"
	"github.com/labflow/backend/internal/domain/workorder"
)

// Decorator binds records to the remote services through a reference.Resolver.
type Decorator struct {
	resolver *reference.Resolver
}

// NewDecorator creates a Decorator
func NewDecorator(resolver *reference.Resolver) *Decorator {
	return &Decorator{resolver: resolver}
}

// Resolver returns the underlying resolver
func (d *Decorator) Resolver() *reference.Resolver {
	return d.resolver
}

// DecoratedWorkPlan is a work plan with its remote references
type DecoratedWorkPlan struct {
	*workorder.WorkPlan
	OriginalSet *reference.SetRef
	Project     *reference.Reference[*remote.Node]
}

// WorkPlan decorates plan. References write through to plan's fields.
func (d *Decorator) WorkPlan(plan *workorder.WorkPlan) *DecoratedWorkPlan {
	return &DecoratedWorkPlan{
		WorkPlan:    plan,
		OriginalSet: d.resolver.SetRef(&plan.OriginalSetUUID),
		Project:     d.resolver.NodeRef(&plan.ProjectID),
	}
}

// DecoratedJob is a job with its remote references
type DecoratedJob struct {
	*workorder.Job
	InputSet  *reference.SetRef
	Set       *reference.SetRef
	Container *reference.Reference[*remote.Container]
}

// Job decorates job. References write through to job's fields.
func (d *Decorator) Job(job *workorder.Job) *DecoratedJob {
	return &DecoratedJob{
		Job:       job,
		InputSet:  d.resolver.SetRef(&job.InputSetUUID),
		Set:       d.resolver.SetRef(&job.SetUUID),
		Container: d.resolver.ContainerRef(&job.ContainerUUID),
	}
}

// DecoratedWorkOrder is a work order with its remote references
type DecoratedWorkOrder struct {
	*workorder.WorkOrder
	OriginalSet *reference.SetRef
	Set         *reference.SetRef
	FinishedSet *reference.SetRef
	Proposal    *reference.Reference[*remote.Node]
	sets        remote.SetService
}

// WorkOrder decorates order. References write through to order's fields.
func (d *Decorator) WorkOrder(order *workorder.WorkOrder) *DecoratedWorkOrder {
	return &DecoratedWorkOrder{
		WorkOrder:   order,
		OriginalSet: d.resolver.SetRef(&order.OriginalSetUUID),
		Set:         d.resolver.SetRef(&order.SetUUID),
		FinishedSet: d.resolver.SetRef(&order.FinishedSetUUID),
		Proposal:    d.resolver.NodeRef(&order.ProposalID),
		sets:        d.resolver.Sets,
	}
}
