package labclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labflow/backend/internal/domain/remote"
)

const setsPath = "/api/v1/sets"

// SetClient is the JSON:API client of the Set service
type SetClient struct {
	t *transport
}

// NewSetClient creates a SetClient
func NewSetClient(cfg ServiceConfig, opts ...Option) (*SetClient, error) {
	t, err := newTransport(remote.ServiceSets, jsonAPIContentType, cfg, opts)
	if err != nil {
		return nil, err
	}
	return &SetClient{t: t}, nil
}

type setAttributes struct {
	Name   string `json:"name"`
	Owner  string `json:"owner_id,omitempty"`
	Locked bool   `json:"locked"`
}

type setUpdateAttributes struct {
	Owner  *string `json:"owner_id,omitempty"`
	Locked *bool   `json:"locked,omitempty"`
}

type cloneAttributes struct {
	Name   string `json:"name"`
	Locked bool   `json:"locked"`
}

// Find fetches the set without its materials
func (c *SetClient) Find(ctx context.Context, id string) (*remote.Set, error) {
	return c.get(ctx, "find", id, nil)
}

// FindWithMaterials fetches the set and its material linkage in one request
func (c *SetClient) FindWithMaterials(ctx context.Context, id string) (*remote.Set, error) {
	return c.get(ctx, "find_with_materials", id, url.Values{"include": {"materials"}})
}

func (c *SetClient) get(ctx context.Context, operation, id string, query url.Values) (*remote.Set, error) {
	var doc document
	err := c.t.do(ctx, call{
		operation: operation,
		method:    http.MethodGet,
		path:      setsPath + "/" + url.PathEscape(id),
		query:     query,
	}, &doc)
	if err != nil {
		return nil, err
	}
	return decodeSet(doc.Data)
}

// Create creates an empty unlocked set named name
func (c *SetClient) Create(ctx context.Context, name string) (*remote.Set, error) {
	var doc document
	err := c.t.do(ctx, call{
		operation: "create",
		method:    http.MethodPost,
		path:      setsPath,
		body:      requestDocument{Data: requestResource{Type: "sets", Attributes: setAttributes{Name: name}}},
	}, &doc)
	if err != nil {
		return nil, err
	}
	return decodeSet(doc.Data)
}

// SetMaterials replaces the membership of the set
func (c *SetClient) SetMaterials(ctx context.Context, id string, materialIDs []string) error {
	linkage := make([]resourceIdentifier, len(materialIDs))
	for i, m := range materialIDs {
		linkage[i] = resourceIdentifier{Type: "materials", ID: m}
	}
	return c.t.do(ctx, call{
		operation: "set_materials",
		method:    http.MethodPatch,
		path:      setsPath + "/" + url.PathEscape(id) + "/relationships/materials",
		body:      requestDocument{Data: linkage},
	}, nil)
}

// Update changes the owner and/or locked flag and returns the stored set
func (c *SetClient) Update(ctx context.Context, id string, update remote.SetUpdate) (*remote.Set, error) {
	var doc document
	err := c.t.do(ctx, call{
		operation: "update",
		method:    http.MethodPatch,
		path:      setsPath + "/" + url.PathEscape(id),
		body: requestDocument{Data: requestResource{
			Type:       "sets",
			ID:         id,
			Attributes: setUpdateAttributes{Owner: update.Owner, Locked: update.Locked},
		}},
	}, &doc)
	if err != nil {
		return nil, err
	}
	return decodeSet(doc.Data)
}

// CreateLockedClone copies the set's membership into a new locked set
func (c *SetClient) CreateLockedClone(ctx context.Context, id, name string) (*remote.Set, error) {
	return c.clone(ctx, id, name, true)
}

// CreateUnlockedClone copies the set's membership into a new unlocked set
func (c *SetClient) CreateUnlockedClone(ctx context.Context, id, name string) (*remote.Set, error) {
	return c.clone(ctx, id, name, false)
}

func (c *SetClient) clone(ctx context.Context, id, name string, locked bool) (*remote.Set, error) {
	var doc document
	err := c.t.do(ctx, call{
		operation: "clone",
		method:    http.MethodPost,
		path:      setsPath + "/" + url.PathEscape(id) + "/clone",
		body:      requestDocument{Data: requestResource{Type: "sets", Attributes: cloneAttributes{Name: name, Locked: locked}}},
	}, &doc)
	if err != nil {
		return nil, err
	}
	return decodeSet(doc.Data)
}

// Destroy deletes the set
func (c *SetClient) Destroy(ctx context.Context, id string) error {
	return c.t.do(ctx, call{
		operation: "destroy",
		method:    http.MethodDelete,
		path:      setsPath + "/" + url.PathEscape(id),
	}, nil)
}

func decodeSet(r resource) (*remote.Set, error) {
	if r.ID == "" {
		return nil, &remote.ServiceError{Service: remote.ServiceSets, Operation: "decode", Err: fmt.Errorf("%w: set without id", remote.ErrRequestFailed)}
	}
	set := &remote.Set{ID: r.ID}
	if len(r.Attributes) > 0 {
		var attrs setAttributes
		if err := json.Unmarshal(r.Attributes, &attrs); err != nil {
			return nil, &remote.ServiceError{Service: remote.ServiceSets, Operation: "decode", Err: fmt.Errorf("%w: %v", remote.ErrRequestFailed, err)}
		}
		set.Name, set.Owner, set.Locked = attrs.Name, attrs.Owner, attrs.Locked
	}
	if len(r.Meta) > 0 {
		if err := json.Unmarshal(r.Meta, &set.Meta); err != nil {
			return nil, &remote.ServiceError{Service: remote.ServiceSets, Operation: "decode", Err: fmt.Errorf("%w: %v", remote.ErrRequestFailed, err)}
		}
	}
	if rel, ok := r.Relationships["materials"]; ok {
		set.Materials = make([]remote.SetMaterial, len(rel.Data))
		for i, m := range rel.Data {
			set.Materials[i] = remote.SetMaterial{ID: m.ID}
		}
	}
	return set, nil
}

var _ remote.SetService = (*SetClient)(nil)
