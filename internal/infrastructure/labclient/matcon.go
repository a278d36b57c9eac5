package labclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labflow/backend/internal/domain/remote"
)

// MatconClient is the client of the Material/Container service. Query
// results are Eve-style pages followed through their next link.
type MatconClient struct {
	materials  *transport
	containers *transport
	pageSize   int
}

// NewMatconClient creates a MatconClient
func NewMatconClient(cfg ServiceConfig, opts ...Option) (*MatconClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("matcon: %w", err)
	}
	materials, err := newTransport(remote.ServiceMaterials, "application/json", cfg, opts)
	if err != nil {
		return nil, err
	}
	containers, err := newTransport(remote.ServiceContainers, "application/json", cfg, opts)
	if err != nil {
		return nil, err
	}
	return &MatconClient{materials: materials, containers: containers, pageSize: cfg.PageSize}, nil
}

// Materials returns the Material service facade
func (c *MatconClient) Materials() remote.MaterialService {
	return materialClient{c}
}

// Containers returns the Container service facade
func (c *MatconClient) Containers() remote.ContainerService {
	return containerClient{c}
}

// evePage is one page of an Eve collection response
type evePage struct {
	Items []json.RawMessage `json:"_items"`
	Links struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
	Meta struct {
		Page       int `json:"page"`
		MaxResults int `json:"max_results"`
		Total      int `json:"total"`
	} `json:"_meta"`
}

type searchBody struct {
	Where remote.Filter `json:"where"`
}

// cursor is a remote.Page over an Eve search resource
type cursor[T any] struct {
	t        *transport
	path     string
	filter   remote.Filter
	pageSize int
	decode   func(json.RawMessage) (T, error)

	items    []T
	page     int
	nextPage int
}

func (c *cursor[T]) Items() []T {
	return c.items
}

func (c *cursor[T]) HasNext() bool {
	return c.nextPage > 0
}

func (c *cursor[T]) Next(ctx context.Context) (remote.Page[T], error) {
	if !c.HasNext() {
		return nil, &remote.ServiceError{Service: c.t.service, Operation: "search", Err: fmt.Errorf("%w: no next page", remote.ErrRequestFailed)}
	}
	return c.fetch(ctx, c.nextPage)
}

// fetch requests page n of the same query
func (c *cursor[T]) fetch(ctx context.Context, n int) (*cursor[T], error) {
	var page evePage
	err := c.t.do(ctx, call{
		operation: "search",
		method:    http.MethodPost,
		path:      c.path,
		query:     url.Values{"page": {strconv.Itoa(n)}, "max_results": {strconv.Itoa(c.pageSize)}},
		body:      searchBody{Where: c.filter},
	}, &page)
	if err != nil {
		return nil, err
	}

	next := &cursor[T]{t: c.t, path: c.path, filter: c.filter, pageSize: c.pageSize, decode: c.decode, page: n}
	next.items = make([]T, 0, len(page.Items))
	for _, raw := range page.Items {
		item, err := c.decode(raw)
		if err != nil {
			return nil, &remote.ServiceError{Service: c.t.service, Operation: "search", Err: fmt.Errorf("%w: %v", remote.ErrRequestFailed, err)}
		}
		next.items = append(next.items, item)
	}
	if page.Links.Next != nil {
		next.nextPage = nextPageNumber(page.Links.Next.Href, n)
	}
	return next, nil
}

// nextPageNumber reads the page parameter of an Eve next link, falling back
// to current+1 when the link carries none.
func nextPageNumber(href string, current int) int {
	if u, err := url.Parse(href); err == nil {
		if n, err := strconv.Atoi(u.Query().Get("page")); err == nil && n > current {
			return n
		}
	}
	return current + 1
}

func search[T any](ctx context.Context, t *transport, path string, pageSize int, filter remote.Filter, decode func(json.RawMessage) (T, error)) (remote.Page[T], error) {
	if filter == nil {
		filter = remote.Filter{}
	}
	first := &cursor[T]{t: t, path: path, filter: filter, pageSize: pageSize, decode: decode}
	return first.fetch(ctx, 1)
}

func decodeMaterial(raw json.RawMessage) (*remote.Material, error) {
	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, err
	}
	id, _ := attrs["_id"].(string)
	return &remote.Material{ID: id, Attributes: attrs}, nil
}

func decodeContainer(raw json.RawMessage) (*remote.Container, error) {
	var container remote.Container
	if err := json.Unmarshal(raw, &container); err != nil {
		return nil, err
	}
	return &container, nil
}

type materialClient struct{ c *MatconClient }

// Find fetches one material with all of its attributes
func (m materialClient) Find(ctx context.Context, id string) (*remote.Material, error) {
	var raw json.RawMessage
	err := m.c.materials.do(ctx, call{
		operation: "find",
		method:    http.MethodGet,
		path:      "/materials/" + url.PathEscape(id),
	}, &raw)
	if err != nil {
		return nil, err
	}
	material, err := decodeMaterial(raw)
	if err != nil {
		return nil, &remote.ServiceError{Service: remote.ServiceMaterials, Operation: "find", Err: fmt.Errorf("%w: %v", remote.ErrRequestFailed, err)}
	}
	return material, nil
}

// Where queries materials matching filter
func (m materialClient) Where(ctx context.Context, filter remote.Filter) (remote.Page[*remote.Material], error) {
	return search(ctx, m.c.materials, "/materials/search", m.c.pageSize, filter, decodeMaterial)
}

type containerClient struct{ c *MatconClient }

// Find fetches one container with its slots
func (cc containerClient) Find(ctx context.Context, id string) (*remote.Container, error) {
	var container remote.Container
	err := cc.c.containers.do(ctx, call{
		operation: "find",
		method:    http.MethodGet,
		path:      "/containers/" + url.PathEscape(id),
	}, &container)
	if err != nil {
		return nil, err
	}
	return &container, nil
}

// Where queries containers matching filter
func (cc containerClient) Where(ctx context.Context, filter remote.Filter) (remote.Page[*remote.Container], error) {
	return search(ctx, cc.c.containers, "/containers/search", cc.c.pageSize, filter, decodeContainer)
}

var (
	_ remote.MaterialService  = materialClient{}
	_ remote.ContainerService = containerClient{}
)
