package reference

import (
	"context"

	"github.com/labflow/backend/internal/domain/remote"
)

// Resolver builds references bound to record fields over the remote services.
type Resolver struct {
	Sets       remote.SetService
	Materials  remote.MaterialService
	Containers remote.ContainerService
	Study      remote.StudyService
}

// NewResolver creates a Resolver
func NewResolver(sets remote.SetService, materials remote.MaterialService, containers remote.ContainerService, study remote.StudyService) *Resolver {
	return &Resolver{Sets: sets, Materials: materials, Containers: containers, Study: study}
}

// SetRef binds field to a remote Set
func (r *Resolver) SetRef(field *string) *SetRef {
	fetch := func(ctx context.Context, id string) (*remote.Set, error) {
		return r.Sets.Find(ctx, id)
	}
	return &SetRef{
		Reference:  New[*remote.Set](remote.ServiceSets, field, fetch),
		sets:       r.Sets,
		materials:  r.Materials,
		containers: r.Containers,
	}
}

// ContainerRef binds field to a remote Container
func (r *Resolver) ContainerRef(field *string) *Reference[*remote.Container] {
	return New[*remote.Container](remote.ServiceContainers, field, func(ctx context.Context, id string) (*remote.Container, error) {
		return r.Containers.Find(ctx, id)
	})
}

// MaterialRef binds field to a remote Material
func (r *Resolver) MaterialRef(field *string) *Reference[*remote.Material] {
	return New[*remote.Material](remote.ServiceMaterials, field, func(ctx context.Context, id string) (*remote.Material, error) {
		return r.Materials.Find(ctx, id)
	})
}

// NodeRef binds field to a Study node
func (r *Resolver) NodeRef(field *string) *Reference[*remote.Node] {
	return New[*remote.Node](remote.ServiceStudy, field, func(ctx context.Context, id string) (*remote.Node, error) {
		return r.Study.FindNode(ctx, id)
	})
}
