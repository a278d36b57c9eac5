package workorder

import "github.com/labflow/backend/internal/domain/shared"

// Precondition violations surfaced to callers. Messages are shown verbatim.
var (
	ErrNoSetSelected      = shared.NewDomainError("NO_SET_SELECTED", "No set selected for Work Order")
	ErrAlreadyHasInputSet = shared.NewDomainError("ALREADY_HAS_INPUT_SET", "Work order already has input set")
	ErrNoOriginalSet      = shared.NewDomainError("NO_ORIGINAL_SET", "Work order has no original set")
	ErrNoWorkPlan         = shared.NewDomainError("NO_WORK_PLAN", "Work order has no work plan")
	ErrSplitInProgress    = shared.NewDomainError("SPLIT_IN_PROGRESS", "A split is already in progress for this Work Order")
	ErrLockFailed         = shared.NewDomainError("LOCK_FAILED", "Failed to lock set")
)

// NewLockFailedError reports that the named set could not be locked.
// It matches ErrLockFailed with errors.Is.
func NewLockFailedError(setName string) error {
	return ErrLockFailed.Withf("Failed to lock set %s", setName)
}
