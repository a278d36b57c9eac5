package remote

// Identifiable is implemented by every remote entity. GetID must be safe to
// call on a nil receiver and return "" in that case.
type Identifiable interface {
	GetID() string
}

// MaterialBearing is implemented by remote entities that reference materials.
type MaterialBearing interface {
	Identifiable
	MaterialIDs() []string
}

// Lockable is implemented by remote entities carrying a locked flag.
type Lockable interface {
	Identifiable
	IsLocked() bool
}

// SetMeta carries the metadata block returned with a Set.
type SetMeta struct {
	Size *int `json:"size,omitempty"`
}

// SetMaterial is a material reference as seen by the Set service.
type SetMaterial struct {
	ID string `json:"id"`
}

// GetID returns the material UUID
func (m *SetMaterial) GetID() string {
	if m == nil {
		return ""
	}
	return m.ID
}

// Set is a named, owned, lockable group of material references.
type Set struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Owner     string        `json:"owner_id,omitempty"`
	Locked    bool          `json:"locked"`
	Meta      SetMeta       `json:"meta"`
	Materials []SetMaterial `json:"materials,omitempty"`
}

// GetID returns the set UUID
func (s *Set) GetID() string {
	if s == nil {
		return ""
	}
	return s.ID
}

// IsLocked reports whether the set membership is frozen
func (s *Set) IsLocked() bool {
	return s != nil && s.Locked
}

// Size returns the sample count reported by the Set service, or nil when unknown.
func (s *Set) Size() *int {
	if s == nil {
		return nil
	}
	return s.Meta.Size
}

// MaterialIDs returns the ids of the materials loaded with the set, in order.
func (s *Set) MaterialIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.Materials))
	for i, m := range s.Materials {
		ids[i] = m.ID
	}
	return ids
}

// Material is a physical sample owned by the Material service.
type Material struct {
	ID         string         `json:"_id"`
	Attributes map[string]any `json:"-"`
}

// GetID returns the material UUID
func (m *Material) GetID() string {
	if m == nil {
		return ""
	}
	return m.ID
}

// Slot is one position of a container, optionally holding a material.
type Slot struct {
	Address    string `json:"address"`
	MaterialID string `json:"material,omitempty"`
}

// Container is a physical holder with slots.
type Container struct {
	ID        string `json:"_id"`
	Barcode   string `json:"barcode,omitempty"`
	NumOfRows int    `json:"num_of_rows,omitempty"`
	NumOfCols int    `json:"num_of_cols,omitempty"`
	Slots     []Slot `json:"slots"`
}

// GetID returns the container UUID
func (c *Container) GetID() string {
	if c == nil {
		return ""
	}
	return c.ID
}

// MaterialIDs returns the ids of materials in occupied slots, in slot order.
func (c *Container) MaterialIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Slots))
	for _, slot := range c.Slots {
		if slot.MaterialID != "" {
			ids = append(ids, slot.MaterialID)
		}
	}
	return ids
}

// Node is a project metadata node owned by the Study service.
type Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CostCode string `json:"cost-code,omitempty"`
}

// GetID returns the node id
func (n *Node) GetID() string {
	if n == nil {
		return ""
	}
	return n.ID
}

var (
	_ Lockable        = (*Set)(nil)
	_ MaterialBearing = (*Set)(nil)
	_ MaterialBearing = (*Container)(nil)
	_ Identifiable    = (*Material)(nil)
	_ Identifiable    = (*Node)(nil)
)
