// Package mrml implements the scene graph: nodes identified by string IDs,
// weak role-grouped references between them, and the Scene that owns the
// nodes, hands out IDs and names, and keeps the reverse reference index.
//
// A Scene and its nodes are not safe for concurrent use. Drive them from one
// goroutine (see internal/engine for a loop that does this for servers).
package mrml

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/event"
)

// Node is implemented by every node class. Concrete classes embed BaseNode,
// which supplies everything except the class identity.
type Node interface {
	// Base returns the embedded BaseNode.
	Base() *BaseNode
	// ClassName is the registry key and the base of generated IDs.
	ClassName() string
	// Tag is the serialization tag and the base of generated names.
	Tag() string
	// New returns a fresh, detached instance of the same class.
	New() Node

	// CopyContent copies everything except the ID from src.
	CopyContent(src Node)
	// WriteAttributes appends the node's serialized attributes.
	WriteAttributes(attrs *AttributeList)
	// ReadAttributes replays serialized attributes onto the node.
	ReadAttributes(attrs AttributeList)
	// UpdateReferenceID rewrites every stored occurrence of oldID. An empty
	// newID means the target is gone.
	UpdateReferenceID(oldID, newID string)
	// UpdateReferences drops stored IDs that no longer resolve in the scene.
	UpdateReferences()
}

// BaseNode holds identity, attributes and references. Embed it by value and
// call Init from the constructor of the embedding type.
type BaseNode struct {
	self  Node
	scene *Scene

	id              string
	name            string
	description     string
	singletonTag    string
	hideFromEditors bool
	selectable      bool

	attrNames []string
	attrs     map[string]string

	roles []string // first-use order
	refs  map[string][]*Reference

	modifyDepth     int
	modifiedPending bool
	forwarding      bool

	bus event.Bus
}

// Init records the embedding node so events and lookups hand out the full
// node rather than the embedded base.
func (n *BaseNode) Init(self Node) {
	n.self = self
	n.selectable = true
}

// Base implements Node.
func (n *BaseNode) Base() *BaseNode { return n }

// Self returns the node that embeds this base.
func (n *BaseNode) Self() Node { return n.self }

// Scene returns the owning scene, or nil while the node is detached.
func (n *BaseNode) Scene() *Scene { return n.scene }

// ID returns the node ID. It is empty until the node is added to a scene
// unless one was declared up front.
func (n *BaseNode) ID() string { return n.id }

// SetID declares the ID the node should get when it is added to a scene.
// IDs are immutable while the node is in a scene.
func (n *BaseNode) SetID(id string) {
	if n.scene != nil {
		n.logger().Warn("cannot change the ID of a node in a scene", "id", n.id, "requested", id)
		return
	}
	n.id = id
}

func (n *BaseNode) Name() string { return n.name }

func (n *BaseNode) SetName(name string) {
	if n.name == name {
		return
	}
	old := n.name
	n.name = name
	if n.scene != nil {
		n.scene.renamed(old, name)
	}
	n.Modified()
}

func (n *BaseNode) Description() string { return n.description }

func (n *BaseNode) SetDescription(d string) {
	if n.description == d {
		return
	}
	n.description = d
	n.Modified()
}

func (n *BaseNode) HideFromEditors() bool { return n.hideFromEditors }

func (n *BaseNode) SetHideFromEditors(v bool) {
	if n.hideFromEditors == v {
		return
	}
	n.hideFromEditors = v
	n.Modified()
}

func (n *BaseNode) Selectable() bool { return n.selectable }

func (n *BaseNode) SetSelectable(v bool) {
	if n.selectable == v {
		return
	}
	n.selectable = v
	n.Modified()
}

// SingletonTag returns the tag that makes the node a singleton, or "".
func (n *BaseNode) SingletonTag() string { return n.singletonTag }

// SetSingletonTag marks the node as a singleton. Only allowed while detached.
func (n *BaseNode) SetSingletonTag(tag string) {
	if n.scene != nil {
		n.logger().Warn("cannot change the singleton tag of a node in a scene", "id", n.id)
		return
	}
	n.singletonTag = tag
}

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

// SetAttribute sets a free-form string attribute. An empty value is kept and
// is distinct from an absent attribute.
func (n *BaseNode) SetAttribute(name, value string) {
	if name == "" {
		n.logger().Warn("attribute name must not be empty", "id", n.id)
		return
	}
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	if old, ok := n.attrs[name]; ok {
		if old == value {
			return
		}
	} else {
		n.attrNames = append(n.attrNames, name)
	}
	n.attrs[name] = value
	n.Modified()
}

// Attribute returns the attribute value and whether it is set.
func (n *BaseNode) Attribute(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// RemoveAttribute deletes an attribute. Removing an absent one is a no-op.
func (n *BaseNode) RemoveAttribute(name string) {
	if _, ok := n.attrs[name]; !ok {
		return
	}
	delete(n.attrs, name)
	for i, a := range n.attrNames {
		if a == name {
			n.attrNames = append(n.attrNames[:i], n.attrNames[i+1:]...)
			break
		}
	}
	n.Modified()
}

// AttributeNames returns attribute names in insertion order.
func (n *BaseNode) AttributeNames() []string {
	out := make([]string, len(n.attrNames))
	copy(out, n.attrNames)
	return out
}

// ---------------------------------------------------------------------------
// Modification batching and events
// ---------------------------------------------------------------------------

// StartModify defers Modified events until the matching EndModify. Calls nest.
func (n *BaseNode) StartModify() {
	n.modifyDepth++
}

// EndModify closes a StartModify. The outermost call emits a single Modified
// event if anything was modified in between.
func (n *BaseNode) EndModify() {
	if n.modifyDepth == 0 {
		n.logger().Warn("EndModify without StartModify", "id", n.id)
		return
	}
	n.modifyDepth--
	if n.modifyDepth == 0 && n.modifiedPending {
		n.modifiedPending = false
		n.InvokeEvent(event.Modified, nil)
	}
}

// IsModifying reports whether a StartModify is open.
func (n *BaseNode) IsModifying() bool { return n.modifyDepth > 0 }

// Modified emits a Modified event, or records one while modifications are batched.
func (n *BaseNode) Modified() {
	if n.modifyDepth > 0 {
		n.modifiedPending = true
		return
	}
	n.InvokeEvent(event.Modified, nil)
}

// Subscribe registers fn for events emitted by this node.
func (n *BaseNode) Subscribe(fn event.Handler, kinds ...event.Kind) uuid.UUID {
	return n.bus.Subscribe(fn, kinds...)
}

// Unsubscribe removes a subscription made with Subscribe.
func (n *BaseNode) Unsubscribe(id uuid.UUID) bool {
	return n.bus.Unsubscribe(id)
}

// InvokeEvent delivers an event to the node's subscribers, then lets the
// scene forward it to nodes that observe this one through a reference.
func (n *BaseNode) InvokeEvent(kind event.Kind, payload any) {
	n.bus.Publish(event.Event{Kind: kind, Source: n.self, Payload: payload})
	if n.scene != nil {
		n.scene.nodeEvent(n, kind, payload)
	}
}

func (n *BaseNode) logger() *slog.Logger {
	if n.scene != nil {
		return n.scene.logger
	}
	return slog.Default()
}

// ---------------------------------------------------------------------------
// Copy
// ---------------------------------------------------------------------------

// CopyMode selects how many Modified events a copy produces.
type CopyMode int

const (
	// CopySingleModified batches the copy and emits exactly one Modified event.
	CopySingleModified CopyMode = iota
	// CopyRegular lets every changed property emit its own Modified event.
	CopyRegular
)

func (m CopyMode) String() string {
	if m == CopyRegular {
		return "regular"
	}
	return "single_modified"
}

// Copy copies src onto dst using the given mode.
func Copy(dst, src Node, mode CopyMode) {
	b := dst.Base()
	if mode == CopySingleModified {
		b.StartModify()
		defer b.EndModify()
		b.Modified()
	}
	dst.CopyContent(src)
}

// CopyContent implements Node. It copies name (when set), flags,
// attributes and references; the ID is never copied.
func (n *BaseNode) CopyContent(src Node) {
	s := src.Base()
	if s == n {
		return
	}
	if s.name != "" {
		n.SetName(s.name)
	}
	n.SetDescription(s.description)
	n.SetHideFromEditors(s.hideFromEditors)
	n.SetSelectable(s.selectable)
	if n.scene == nil {
		n.singletonTag = s.singletonTag
	}

	for _, name := range n.AttributeNames() {
		if _, ok := s.attrs[name]; !ok {
			n.RemoveAttribute(name)
		}
	}
	for _, name := range s.attrNames {
		n.SetAttribute(name, s.attrs[name])
	}

	roles := make([]string, len(n.roles))
	copy(roles, n.roles)
	for _, role := range roles {
		if len(s.refs[role]) == 0 {
			n.RemoveReferenceIDs(role)
		}
	}
	for _, role := range s.roles {
		srcRefs := s.refs[role]
		for i, r := range srcRefs {
			n.SetAndObserveNthReferenceID(role, i, r.targetID, r.events)
		}
		for len(n.refs[role]) > len(srcRefs) {
			n.RemoveNthReferenceID(role, len(n.refs[role])-1)
		}
	}
}
