package remote

import "context"

// Filter is a document-style query understood by the Material service,
// e.g. {"_id": {"$in": [...]}}.
type Filter map[string]any

// In builds a filter matching documents whose field is one of values.
func In(field string, values []string) Filter {
	if values == nil {
		values = []string{}
	}
	return Filter{field: map[string]any{"$in": values}}
}

// SetUpdate carries the mutable attributes of a Set. Nil fields are left untouched.
type SetUpdate struct {
	Owner  *string
	Locked *bool
}

// SetService is the client contract of the Set service.
type SetService interface {
	Find(ctx context.Context, id string) (*Set, error)
	FindWithMaterials(ctx context.Context, id string) (*Set, error)
	Create(ctx context.Context, name string) (*Set, error)
	SetMaterials(ctx context.Context, id string, materialIDs []string) error
	Update(ctx context.Context, id string, update SetUpdate) (*Set, error)
	CreateLockedClone(ctx context.Context, id, name string) (*Set, error)
	CreateUnlockedClone(ctx context.Context, id, name string) (*Set, error)
	Destroy(ctx context.Context, id string) error
}

// MaterialService is the material half of the Material/Container service.
type MaterialService interface {
	Find(ctx context.Context, id string) (*Material, error)
	Where(ctx context.Context, filter Filter) (Page[*Material], error)
}

// ContainerService is the container half of the Material/Container service.
type ContainerService interface {
	Find(ctx context.Context, id string) (*Container, error)
	Where(ctx context.Context, filter Filter) (Page[*Container], error)
}

// StudyService is the read-only client contract of the Study service.
type StudyService interface {
	FindNode(ctx context.Context, id string) (*Node, error)
}
