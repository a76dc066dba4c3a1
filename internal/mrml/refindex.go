package mrml

import (
	"slices"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/event"
)

// referrers lists the in-scene nodes holding at least one reference to a
// target ID, in the order they first referenced it.
type referrers struct {
	order []*BaseNode
	count map[*BaseNode]int
}

// ReferenceLocation names one reference slot pointing at a target.
type ReferenceLocation struct {
	Node  Node
	Role  string
	Index int
}

func (s *Scene) addReferenceEntry(b *BaseNode, id string) {
	if id == "" {
		return
	}
	r := s.refIndex[id]
	if r == nil {
		r = &referrers{count: make(map[*BaseNode]int)}
		s.refIndex[id] = r
	}
	if r.count[b] == 0 {
		r.order = append(r.order, b)
	}
	r.count[b]++
}

func (s *Scene) removeReferenceEntry(b *BaseNode, id string) {
	r := s.refIndex[id]
	if r == nil || r.count[b] == 0 {
		return
	}
	r.count[b]--
	if r.count[b] > 0 {
		return
	}
	delete(r.count, b)
	if i := slices.Index(r.order, b); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	if len(r.order) == 0 {
		delete(s.refIndex, id)
	}
}

// ReferencingNodes returns the in-scene nodes that reference id, whether or
// not id currently resolves.
func (s *Scene) ReferencingNodes(id string) []Node {
	r := s.refIndex[id]
	if r == nil {
		return nil
	}
	out := make([]Node, 0, len(r.order))
	for _, b := range r.order {
		out = append(out, b.self)
	}
	return out
}

// ReferencesTo returns every reference slot in the scene that targets id.
func (s *Scene) ReferencesTo(id string) []ReferenceLocation {
	r := s.refIndex[id]
	if r == nil {
		return nil
	}
	var out []ReferenceLocation
	for _, b := range r.order {
		out = append(out, b.locationsOf(id)...)
	}
	return out
}

// ReferencedIDs returns every target ID held by an in-scene node.
func (s *Scene) ReferencedIDs() []string {
	out := make([]string, 0, len(s.refIndex))
	for id := range s.refIndex {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (n *BaseNode) locationsOf(id string) []ReferenceLocation {
	var out []ReferenceLocation
	for _, role := range n.roles {
		for i, ref := range n.refs[role] {
			if ref.targetID == id {
				out = append(out, ReferenceLocation{Node: n.self, Role: role, Index: i})
			}
		}
	}
	return out
}

// nodeEvent is called for every event a node in this scene emits.
func (s *Scene) nodeEvent(b *BaseNode, kind event.Kind, payload any) {
	if kind == event.Modified {
		s.touch()
	}
	s.forward(b, kind, payload)
}

// forward re-emits kind on every node that references b with kind in its
// reference's event list. A node already forwarding is skipped, which cuts
// cycles of mutually observing nodes.
func (s *Scene) forward(b *BaseNode, kind event.Kind, payload any) {
	r := s.refIndex[b.id]
	if r == nil || b.forwarding {
		return
	}
	b.forwarding = true
	defer func() { b.forwarding = false }()
	for _, holder := range slices.Clone(r.order) {
		if holder.forwarding || holder.scene != s {
			continue
		}
		role, ok := holder.forwardingRole(b.id, kind)
		if !ok {
			continue
		}
		holder.InvokeEvent(kind, Forwarded{Origin: b.self, Role: role, Payload: payload})
	}
}

func (n *BaseNode) forwardingRole(id string, kind event.Kind) (string, bool) {
	for _, role := range n.roles {
		for _, ref := range n.refs[role] {
			if ref.targetID == id && ref.forwards(kind) {
				return role, true
			}
		}
	}
	return "", false
}
