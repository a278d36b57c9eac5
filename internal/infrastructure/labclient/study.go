package labclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labflow/backend/internal/domain/remote"
)

// StudyClient is the read-only JSON:API client of the Study service
type StudyClient struct {
	t *transport
}

// NewStudyClient creates a StudyClient
func NewStudyClient(cfg ServiceConfig, opts ...Option) (*StudyClient, error) {
	t, err := newTransport(remote.ServiceStudy, jsonAPIContentType, cfg, opts)
	if err != nil {
		return nil, err
	}
	return &StudyClient{t: t}, nil
}

type nodeAttributes struct {
	Name     string `json:"name"`
	CostCode string `json:"cost-code"`
}

// FindNode fetches a project node
func (c *StudyClient) FindNode(ctx context.Context, id string) (*remote.Node, error) {
	var doc document
	err := c.t.do(ctx, call{
		operation: "find_node",
		method:    http.MethodGet,
		path:      "/api/v1/nodes/" + url.PathEscape(id),
	}, &doc)
	if err != nil {
		return nil, err
	}

	node := &remote.Node{ID: doc.Data.ID}
	if len(doc.Data.Attributes) > 0 {
		var attrs nodeAttributes
		if err := json.Unmarshal(doc.Data.Attributes, &attrs); err != nil {
			return nil, &remote.ServiceError{Service: remote.ServiceStudy, Operation: "decode", Err: fmt.Errorf("%w: %v", remote.ErrRequestFailed, err)}
		}
		node.Name, node.CostCode = attrs.Name, attrs.CostCode
	}
	return node, nil
}

var _ remote.StudyService = (*StudyClient)(nil)
