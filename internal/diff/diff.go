// Package diff computes what an upgrade will change in a live Teddy install
// by comparing each managed resource against the extracted release.
package diff

import (
	"github.com/teddyful/teddy-upgrader/internal/types"
)

// Action represents what the upgrade does to a resource.
type Action string

const (
	ActionNone   Action = "none"   // Identical in release and install
	ActionAdd    Action = "add"    // Present in release only
	ActionUpdate Action = "update" // Content differs
	ActionRemove Action = "remove" // Deleted and not replaced
)

// ResourceDiff represents the diff for one manifest entry or generated path.
type ResourceDiff struct {
	Path   string             `json:"path" yaml:"path"`
	Kind   types.ResourceKind `json:"kind" yaml:"kind"`
	Action Action             `json:"action" yaml:"action"`

	// File level counts, populated for directories.
	Added   int `json:"added,omitempty" yaml:"added,omitempty"`
	Changed int `json:"changed,omitempty" yaml:"changed,omitempty"`
	Removed int `json:"removed,omitempty" yaml:"removed,omitempty"`

	// Generated marks build output that is removed and rebuilt by Teddy.
	Generated bool `json:"generated,omitempty" yaml:"generated,omitempty"`
}

// Result contains the complete upgrade plan in manifest order.
type Result struct {
	Resources []ResourceDiff `json:"resources" yaml:"resources"`
}

// Summary returns counts of actions planned.
func (r *Result) Summary() (add, update, remove, unchanged int) {
	for _, res := range r.Resources {
		switch res.Action {
		case ActionAdd:
			add++
		case ActionUpdate:
			update++
		case ActionRemove:
			remove++
		case ActionNone:
			unchanged++
		}
	}
	return
}

// Changes returns the resources whose action is not ActionNone.
func (r *Result) Changes() []ResourceDiff {
	var changes []ResourceDiff
	for _, res := range r.Resources {
		if res.Action != ActionNone {
			changes = append(changes, res)
		}
	}
	return changes
}

// HasChanges returns true if the upgrade touches any resource content.
func (r *Result) HasChanges() bool {
	return len(r.Changes()) > 0
}
