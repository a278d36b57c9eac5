package splitter

import (
	"context"
	"fmt"
	"slices"

	appwo "github.com/labflow/backend/internal/application/workorder"
	"github.com/labflow/backend/internal/domain/remote"
)

// Partition is one group of materials that becomes one Job.
type Partition struct {
	MaterialIDs []string
	// ContainerID is set when the partition is scoped to one physical container
	ContainerID string
}

// Strategy computes the partitions of a work order's working set.
//
// Partitions are produced lazily: yield is called once per partition and a
// non-nil error from yield stops production and is returned unchanged.
// Partitions need not be disjoint or cover every material.
type Strategy interface {
	Partitions(ctx context.Context, order *appwo.DecoratedWorkOrder, yield func(Partition) error) error
}

// StrategyFunc adapts a function to the Strategy interface
type StrategyFunc func(ctx context.Context, order *appwo.DecoratedWorkOrder, yield func(Partition) error) error

// Partitions calls f
func (f StrategyFunc) Partitions(ctx context.Context, order *appwo.DecoratedWorkOrder, yield func(Partition) error) error {
	return f(ctx, order, yield)
}

// ByContainer emits, for every distinct container holding a member of the
// working set, the members held in that container.
type ByContainer struct {
	containers remote.ContainerService
}

// NewByContainer creates a ByContainer strategy
func NewByContainer(containers remote.ContainerService) *ByContainer {
	return &ByContainer{containers: containers}
}

// Partitions implements Strategy
func (b *ByContainer) Partitions(ctx context.Context, order *appwo.DecoratedWorkOrder, yield func(Partition) error) error {
	ids, err := order.Set.MaterialIDs(ctx)
	if err != nil {
		return fmt.Errorf("read working set materials: %w", err)
	}
	members := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := members[id]; !ok {
			members[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil
	}

	page, err := b.containers.Where(ctx, remote.In("slots.material", unique))
	if err != nil {
		return fmt.Errorf("query containers: %w", err)
	}
	containers, err := remote.Drain(ctx, page)
	if err != nil {
		return fmt.Errorf("query containers: %w", err)
	}

	seen := make(map[string]struct{}, len(containers))
	for _, container := range containers {
		if _, ok := seen[container.ID]; ok {
			continue
		}
		seen[container.ID] = struct{}{}

		partition := Partition{ContainerID: container.ID}
		for _, id := range container.MaterialIDs() {
			if _, ok := members[id]; ok && !slices.Contains(partition.MaterialIDs, id) {
				partition.MaterialIDs = append(partition.MaterialIDs, id)
			}
		}
		if len(partition.MaterialIDs) == 0 {
			continue
		}
		if err := yield(partition); err != nil {
			return err
		}
	}
	return nil
}

var _ Strategy = (*ByContainer)(nil)
