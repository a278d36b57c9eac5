package splitter

import (
	"context"

	"github.com/labflow/backend/internal/domain/workorder"
)

// TransactionScope provides transactional boundaries for the split.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the work order repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// WorkOrderRepo returns the work order repository scoped to the current transaction
	WorkOrderRepo() workorder.WorkOrderRepository
	// WorkPlanRepo returns the work plan repository scoped to the current transaction
	WorkPlanRepo() workorder.WorkPlanRepository
	// JobRepo returns the job repository scoped to the current transaction
	JobRepo() workorder.JobRepository
}
