package mrml

import (
	"slices"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/event"
)

// Reference is one slot in a role's ordered list. It holds the target by ID
// only; the target node is looked up in the owning scene on every access.
type Reference struct {
	owner    *BaseNode
	role     string
	targetID string
	events   []event.Kind
}

func (r *Reference) Role() string     { return r.role }
func (r *Reference) TargetID() string { return r.targetID }

// Events returns the event kinds forwarded from the target to the owner.
func (r *Reference) Events() []event.Kind { return slices.Clone(r.events) }

// Target resolves the reference, returning nil when the target is not in
// the owner's scene.
func (r *Reference) Target() Node { return r.owner.resolve(r.targetID) }

func (r *Reference) forwards(kind event.Kind) bool {
	return slices.Contains(r.events, kind)
}

// ReferenceEvent is the payload of ReferenceAdded, ReferenceModified and
// ReferenceRemoved.
type ReferenceEvent struct {
	Role        string
	Index       int
	TargetID    string
	OldTargetID string // ReferenceModified only
	Target      Node   // nil when the target does not resolve
}

// Forwarded is the payload of an event re-emitted by a referencing node on
// behalf of the node it references.
type Forwarded struct {
	Origin  Node
	Role    string
	Payload any
}

func (n *BaseNode) resolve(id string) Node {
	if id == "" || n.scene == nil {
		return nil
	}
	return n.scene.NodeByID(id)
}

// AddReferenceID appends a reference and returns its index. An empty id
// appends nothing and returns -1.
func (n *BaseNode) AddReferenceID(role, id string) int {
	return n.AddAndObserveReferenceID(role, id, nil)
}

// AddAndObserveReferenceID appends a reference whose target forwards the
// given event kinds to this node.
func (n *BaseNode) AddAndObserveReferenceID(role, id string, events []event.Kind) int {
	count := len(n.refs[role])
	if !n.SetAndObserveNthReferenceID(role, count, id, events) {
		return -1
	}
	return count
}

// SetReferenceID sets the first reference of the role.
func (n *BaseNode) SetReferenceID(role, id string) {
	n.SetAndObserveNthReferenceID(role, 0, id, nil)
}

// SetAndObserveReferenceID sets the first reference of the role with forwarded events.
func (n *BaseNode) SetAndObserveReferenceID(role, id string, events []event.Kind) {
	n.SetAndObserveNthReferenceID(role, 0, id, events)
}

// SetNthReferenceID sets the reference at index idx of the role.
func (n *BaseNode) SetNthReferenceID(role string, idx int, id string) {
	n.SetAndObserveNthReferenceID(role, idx, id, nil)
}

// SetAndObserveNthReferenceID is the single mutator behind all the setters.
//
// idx == count appends (a no-op for an empty id). idx < count replaces the
// slot, and an empty id removes it so later indices shift down. Any other
// idx is logged and ignored. It reports whether the reference list changed.
func (n *BaseNode) SetAndObserveNthReferenceID(role string, idx int, id string, events []event.Kind) bool {
	refs := n.refs[role]
	count := len(refs)
	if idx < 0 || idx > count {
		n.logger().Warn("reference index out of range, ignored",
			"node", n.id, "role", role, "index", idx, "count", count)
		return false
	}

	if idx == count {
		if id == "" {
			return false
		}
		ref := &Reference{owner: n, role: role, targetID: id, events: slices.Clone(events)}
		if n.refs == nil {
			n.refs = make(map[string][]*Reference)
		}
		if !slices.Contains(n.roles, role) {
			n.roles = append(n.roles, role)
		}
		n.refs[role] = append(refs, ref)
		if n.scene != nil {
			n.scene.addReferenceEntry(n, id)
			n.scene.touch()
		}
		if n.isAnnounced() {
			if target := n.resolve(id); target != nil && n.scene.isAnnounced(target.Base()) {
				n.InvokeEvent(event.ReferenceAdded, ReferenceEvent{Role: role, Index: idx, TargetID: id, Target: target})
			}
		}
		n.Modified()
		return true
	}

	if id == "" {
		n.RemoveNthReferenceID(role, idx)
		return true
	}

	ref := refs[idx]
	if ref.targetID == id {
		if !slices.Equal(ref.events, events) {
			ref.events = slices.Clone(events)
			n.Modified()
			return true
		}
		return false
	}
	old := ref.targetID
	ref.targetID = id
	ref.events = slices.Clone(events)
	if n.scene != nil {
		n.scene.removeReferenceEntry(n, old)
		n.scene.addReferenceEntry(n, id)
		n.scene.touch()
	}
	n.InvokeEvent(event.ReferenceModified, ReferenceEvent{
		Role: role, Index: idx, TargetID: id, OldTargetID: old, Target: n.resolve(id),
	})
	n.Modified()
	return true
}

// RemoveNthReferenceID deletes the slot at idx; later slots shift down.
func (n *BaseNode) RemoveNthReferenceID(role string, idx int) {
	refs := n.refs[role]
	if idx < 0 || idx >= len(refs) {
		n.logger().Warn("reference index out of range, ignored",
			"node", n.id, "role", role, "index", idx, "count", len(refs))
		return
	}
	ref := refs[idx]
	n.refs[role] = slices.Delete(refs, idx, idx+1)
	if n.scene != nil {
		n.scene.removeReferenceEntry(n, ref.targetID)
		n.scene.touch()
	}
	n.InvokeEvent(event.ReferenceRemoved, ReferenceEvent{
		Role: role, Index: idx, TargetID: ref.targetID, Target: n.resolve(ref.targetID),
	})
	n.Modified()
}

// RemoveReferenceIDs removes every reference of the role, last first.
func (n *BaseNode) RemoveReferenceIDs(role string) {
	if len(n.refs[role]) == 0 {
		return
	}
	n.StartModify()
	for i := len(n.refs[role]) - 1; i >= 0; i-- {
		n.RemoveNthReferenceID(role, i)
	}
	n.EndModify()
}

// RemoveAllReferenceIDs removes the references of every role.
func (n *BaseNode) RemoveAllReferenceIDs() {
	n.StartModify()
	for _, role := range slices.Clone(n.roles) {
		n.RemoveReferenceIDs(role)
	}
	n.EndModify()
}

// NthReferenceID returns the target ID at idx, or "" when idx is out of range.
func (n *BaseNode) NthReferenceID(role string, idx int) string {
	refs := n.refs[role]
	if idx < 0 || idx >= len(refs) {
		return ""
	}
	return refs[idx].targetID
}

// NthReference returns the resolved target at idx, or nil.
func (n *BaseNode) NthReference(role string, idx int) Node {
	return n.resolve(n.NthReferenceID(role, idx))
}

func (n *BaseNode) ReferenceID(role string) string { return n.NthReferenceID(role, 0) }
func (n *BaseNode) Reference(role string) Node     { return n.NthReference(role, 0) }

// ReferenceCount returns the number of slots in the role, resolved or not.
func (n *BaseNode) ReferenceCount(role string) int { return len(n.refs[role]) }

// HasReference reports whether the role holds at least one slot.
func (n *BaseNode) HasReference(role string) bool { return len(n.refs[role]) > 0 }

// ReferenceIDs returns the target IDs of the role in order.
func (n *BaseNode) ReferenceIDs(role string) []string {
	refs := n.refs[role]
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.targetID
	}
	return out
}

// ReferencedNodes returns the resolvable targets of the role in order.
func (n *BaseNode) ReferencedNodes(role string) []Node {
	var out []Node
	for _, r := range n.refs[role] {
		if t := n.resolve(r.targetID); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// References returns the reference slots of the role.
func (n *BaseNode) References(role string) []*Reference {
	return slices.Clone(n.refs[role])
}

// ReferenceRoles returns the roles that currently hold references, in the
// order each role was first used.
func (n *BaseNode) ReferenceRoles() []string {
	var out []string
	for _, role := range n.roles {
		if len(n.refs[role]) > 0 {
			out = append(out, role)
		}
	}
	return out
}

// UpdateReferenceID implements Node for the generic reference list.
func (n *BaseNode) UpdateReferenceID(oldID, newID string) {
	if oldID == "" || oldID == newID {
		return
	}
	for _, role := range slices.Clone(n.roles) {
		for i := 0; i < len(n.refs[role]); i++ {
			ref := n.refs[role][i]
			if ref.targetID != oldID {
				continue
			}
			n.SetAndObserveNthReferenceID(role, i, newID, ref.events)
			if newID == "" {
				i--
			}
		}
	}
}

// UpdateReferences implements Node: references whose target is no longer in
// the scene are removed. Detached nodes are left alone.
func (n *BaseNode) UpdateReferences() {
	if n.scene == nil {
		return
	}
	for _, role := range slices.Clone(n.roles) {
		for i := 0; i < len(n.refs[role]); i++ {
			if n.resolve(n.refs[role][i].targetID) == nil {
				n.RemoveNthReferenceID(role, i)
				i--
			}
		}
	}
}

func (n *BaseNode) isAnnounced() bool {
	return n.scene != nil && n.scene.isAnnounced(n)
}
