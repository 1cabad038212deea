package model

import "time"

// EntityKind identifies which side of a statement an entity came from.
// Vendors and counterparties are structurally identical; the kind only
// partitions them in storage.
type EntityKind string

// Entity kind constants.
const (
	KindVendor       EntityKind = "vendor"
	KindCounterparty EntityKind = "counterparty"
)

// Entity represents a merchant or counterparty name, optionally grouped
// under a parent entity. The hierarchy is at most two levels deep: an
// entity with a ParentID must never itself have children.
type Entity struct {
	CreatedAt time.Time  `json:"created_at"`
	ParentID  *int64     `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	Kind      EntityKind `json:"kind"`
	ID        int64      `json:"id"`
}

// IsRoot reports whether the entity has no parent.
func (e *Entity) IsRoot() bool {
	return e.ParentID == nil
}

// ParentWithChildren is an existing two-level tree: a root entity together
// with its direct children. Used by the grouping engine for sibling matching.
type ParentWithChildren struct {
	Parent   Entity
	Children []Entity
}

// GroupingSuggestion proposes placing a set of ungrouped entities under a
// parent. When ParentID is nil the parent does not exist yet and ParentName
// is a synthesized display name; otherwise the suggestion extends the
// existing entity with that id.
type GroupingSuggestion struct {
	ParentID       *int64   `json:"parent_id,omitempty"`
	ParentName     string   `json:"parent_name"`
	NormalizedForm string   `json:"normalized_form"`
	ChildIDs       []int64  `json:"child_ids"`
	ChildNames     []string `json:"child_names"`
}

// TargetsExistingParent reports whether the suggestion extends an existing
// tree rather than proposing a brand-new parent.
func (s *GroupingSuggestion) TargetsExistingParent() bool {
	return s.ParentID != nil
}
