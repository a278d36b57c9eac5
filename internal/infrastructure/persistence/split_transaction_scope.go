package persistence

import (
	"context"

	"github.com/labflow/backend/internal/application/splitter"
	"github.com/labflow/backend/internal/domain/workorder"
	"gorm.io/gorm"
)

// GormTransactionScope implements splitter.TransactionScope using GORM transactions.
// The transaction stays open for the whole split, remote calls included.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos splitter.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// WorkOrderRepo returns the work order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) WorkOrderRepo() workorder.WorkOrderRepository {
	return NewGormWorkOrderRepository(r.tx)
}

// WorkPlanRepo returns the work plan repository scoped to the current transaction.
func (r *gormTransactionalRepositories) WorkPlanRepo() workorder.WorkPlanRepository {
	return NewGormWorkPlanRepository(r.tx)
}

// JobRepo returns the job repository scoped to the current transaction.
func (r *gormTransactionalRepositories) JobRepo() workorder.JobRepository {
	return NewGormJobRepository(r.tx)
}

var (
	_ splitter.TransactionScope          = (*GormTransactionScope)(nil)
	_ splitter.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
