package labclient

import "encoding/json"

const jsonAPIContentType = "application/vnd.api+json"

// resourceIdentifier is a JSON:API resource linkage
type resourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type relationship struct {
	Data []resourceIdentifier `json:"data"`
}

// resource is a JSON:API resource object
type resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Attributes    json.RawMessage         `json:"attributes,omitempty"`
	Meta          json.RawMessage         `json:"meta,omitempty"`
	Relationships map[string]relationship `json:"relationships,omitempty"`
}

// document is a JSON:API top-level document with a single primary resource
type document struct {
	Data     resource   `json:"data"`
	Included []resource `json:"included,omitempty"`
}

// requestDocument wraps a primary resource for POST/PATCH bodies
type requestDocument struct {
	Data any `json:"data"`
}

type requestResource struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	Attributes any    `json:"attributes,omitempty"`
}
