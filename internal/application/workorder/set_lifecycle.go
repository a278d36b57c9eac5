package workorder

import (
	"context"

	"github.com/labflow/backend/internal/domain/remote"
	"github.com/labflow/backend/internal/domain/workorder"
)

// FinaliseSet makes sure the work order has a locked working set.
//
// It reports true when this call locked something (an existing working set
// or a fresh locked clone of the original set), and false when the state was
// already satisfied: the working set was locked, or the original set was
// locked and has been adopted as is.
func (w *DecoratedWorkOrder) FinaliseSet(ctx context.Context) (bool, error) {
	set, err := w.Set.Get(ctx)
	if err != nil {
		return false, err
	}
	if set != nil {
		if set.IsLocked() {
			return false, nil
		}
		locked := true
		updated, err := w.sets.Update(ctx, set.ID, remote.SetUpdate{Locked: &locked})
		if err != nil {
			return false, err
		}
		if !updated.IsLocked() {
			return false, workorder.NewLockFailedError(set.Name)
		}
		w.Set.Set(updated)
		return true, nil
	}

	original, err := w.OriginalSet.Get(ctx)
	if err != nil {
		return false, err
	}
	if original == nil {
		return false, workorder.ErrNoSetSelected
	}
	if original.IsLocked() {
		w.Set.Set(original)
		return false, nil
	}

	clone, err := w.sets.CreateLockedClone(ctx, original.ID, w.Name())
	if err != nil {
		return false, err
	}
	w.Set.Set(clone)
	return true, nil
}

// CreateEditableSet clones the original set, unlocked, into a new working set.
func (w *DecoratedWorkOrder) CreateEditableSet(ctx context.Context) (*remote.Set, error) {
	if w.Set.IsSet() {
		return nil, workorder.ErrAlreadyHasInputSet
	}
	original, err := w.originalSet(ctx)
	if err != nil {
		return nil, err
	}
	clone, err := w.sets.CreateUnlockedClone(ctx, original.ID, w.Name())
	if err != nil {
		return nil, err
	}
	w.Set.Set(clone)
	return clone, nil
}

// CreateLockedSet clones the original set, locked, into the working set.
func (w *DecoratedWorkOrder) CreateLockedSet(ctx context.Context) (*remote.Set, error) {
	original, err := w.originalSet(ctx)
	if err != nil {
		return nil, err
	}
	clone, err := w.sets.CreateLockedClone(ctx, original.ID, w.Name())
	if err != nil {
		return nil, err
	}
	w.Set.Set(clone)
	return clone, nil
}

func (w *DecoratedWorkOrder) originalSet(ctx context.Context) (*remote.Set, error) {
	original, err := w.OriginalSet.Get(ctx)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, workorder.ErrNoOriginalSet
	}
	return original, nil
}
