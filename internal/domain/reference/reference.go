// Package reference binds foreign UUID fields of local records to the remote
// entities they name. A Reference fetches lazily and caches the entity for the
// lifetime of the wrapper; the cache is not shared and is not synchronized.
package reference

import (
	"context"

	"github.com/labflow/backend/internal/domain/remote"
)

// Fetcher loads a remote entity by id.
type Fetcher[T remote.Identifiable] func(ctx context.Context, id string) (T, error)

// Reference resolves the UUID stored in a record field to a remote entity.
//
// The cache is validated against the field by identity on every Get: writing
// the field directly, without Set, causes exactly one refetch on the next Get.
type Reference[T remote.Identifiable] struct {
	service string
	field   *string
	fetch   Fetcher[T]
	cached  T
	loaded  bool
	fetches int
}

// New creates a reference over field. service names the owning remote service
// in not-found errors.
func New[T remote.Identifiable](service string, field *string, fetch Fetcher[T]) *Reference[T] {
	if field == nil {
		field = new(string)
	}
	return &Reference[T]{service: service, field: field, fetch: fetch}
}

// ID returns the UUID currently stored in the field
func (r *Reference[T]) ID() string {
	return *r.field
}

// IsSet reports whether the field holds a UUID
func (r *Reference[T]) IsSet() bool {
	return *r.field != ""
}

// Get returns the referenced entity, or the zero value when the field is empty.
// A fetch that yields no entity is reported as remote.ErrNotFound.
func (r *Reference[T]) Get(ctx context.Context) (T, error) {
	var zero T
	id := *r.field
	if id == "" {
		return zero, nil
	}
	if r.loaded && r.cached.GetID() == id {
		return r.cached, nil
	}
	r.fetches++
	entity, err := r.fetch(ctx, id)
	if err != nil {
		return zero, err
	}
	if entity.GetID() == "" {
		return zero, remote.NotFound(r.service, id)
	}
	r.cached = entity
	r.loaded = true
	return entity, nil
}

// Set stores entity's UUID in the field and caches entity without a remote
// round-trip. Passing an entity with an empty id (e.g. a nil pointer) clears both.
func (r *Reference[T]) Set(entity T) {
	var zero T
	id := entity.GetID()
	*r.field = id
	if id == "" {
		r.cached = zero
		r.loaded = false
		return
	}
	r.cached = entity
	r.loaded = true
}

// Fetches returns how many remote fetches this reference has issued.
func (r *Reference[T]) Fetches() int {
	return r.fetches
}
