package reference

import (
	"context"

	"github.com/labflow/backend/internal/domain/remote"
)

// SetRef is a reference to a remote Set with accessors over its membership.
type SetRef struct {
	*Reference[*remote.Set]
	sets       remote.SetService
	materials  remote.MaterialService
	containers remote.ContainerService
}

// Size returns the sample count of the referenced set, nil when the field is
// empty or the service does not report one.
func (r *SetRef) Size(ctx context.Context) (*int, error) {
	set, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}
	return set.Size(), nil
}

// Materials refetches the set together with its materials in one call.
func (r *SetRef) Materials(ctx context.Context) ([]remote.SetMaterial, error) {
	if !r.IsSet() {
		return nil, nil
	}
	id := r.ID()
	set, err := r.sets.FindWithMaterials(ctx, id)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, remote.NotFound(remote.ServiceSets, id)
	}
	return set.Materials, nil
}

// MaterialIDs returns the ids of the set's materials in set order.
func (r *SetRef) MaterialIDs(ctx context.Context) ([]string, error) {
	members, err := r.Materials(ctx)
	if err != nil || members == nil {
		return nil, err
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids, nil
}

// FullMaterials loads every member from the Material service, across all pages.
func (r *SetRef) FullMaterials(ctx context.Context) ([]*remote.Material, error) {
	ids, err := r.MaterialIDs(ctx)
	if err != nil || ids == nil {
		return nil, err
	}
	page, err := r.materials.Where(ctx, remote.In("_id", ids))
	if err != nil {
		return nil, err
	}
	return remote.Drain(ctx, page)
}

// Containers returns every container holding at least one member of the set,
// across all pages.
func (r *SetRef) Containers(ctx context.Context) ([]*remote.Container, error) {
	ids, err := r.MaterialIDs(ctx)
	if err != nil || ids == nil {
		return nil, err
	}
	page, err := r.containers.Where(ctx, remote.In("slots.material", ids))
	if err != nil {
		return nil, err
	}
	return remote.Drain(ctx, page)
}
