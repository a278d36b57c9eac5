package workorder

import (
	"strings"

	"github.com/labflow/backend/internal/domain/shared"
)

// WorkPlan groups the work orders of one request. Its owner becomes the owner
// of every set locked during a split.
type WorkPlan struct {
	shared.BaseEntity
	OwnerEmail            string
	ProjectID             string // Study node id
	OriginalSetUUID       string
	Comment               string
	DataReleaseStrategyID string
}

// NewWorkPlan creates a new work plan owned by ownerEmail
func NewWorkPlan(ownerEmail string) (*WorkPlan, error) {
	ownerEmail = strings.TrimSpace(ownerEmail)
	if ownerEmail == "" {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner email cannot be empty")
	}
	if !strings.Contains(ownerEmail, "@") {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner email is not valid")
	}
	return &WorkPlan{
		BaseEntity: shared.NewBaseEntity(),
		OwnerEmail: ownerEmail,
	}, nil
}
