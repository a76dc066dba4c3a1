// Package hierarchy provides tree-shaped node collections on top of the
// generic reference mechanism. A hierarchy node stores its parent as a
// reference in ParentRole; the per-scene Index derives the children lists.
package hierarchy

import (
	"strconv"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
)

const (
	// ParentRole is the reference role holding a hierarchy node's parent.
	ParentRole = "parent"
	// AssociatedRole is the reference role holding the data node a
	// hierarchy node stands for.
	AssociatedRole = "associatedNode"
)

// Node is a hierarchy node. Siblings are ordered by SortingValue.
type Node struct {
	mrml.BaseNode
	sortingValue float64
	// sortPending marks a node re-parented outside a scene; it takes the
	// next sorting value when inserted.
	sortPending bool
}

func NewNode() *Node {
	n := &Node{}
	n.Init(n)
	return n
}

func (n *Node) ClassName() string { return "HierarchyNode" }
func (n *Node) Tag() string       { return "Hierarchy" }
func (n *Node) New() mrml.Node    { return NewNode() }

// Register adds the hierarchy node class to the scene's registry and
// attaches the scene's index.
func Register(s *mrml.Scene) error {
	if err := s.RegisterNodeClass(NewNode()); err != nil {
		return err
	}
	For(s)
	return nil
}

func (n *Node) SortingValue() float64 { return n.sortingValue }

func (n *Node) SetSortingValue(v float64) {
	if n.sortingValue == v {
		return
	}
	n.sortingValue = v
	n.Modified()
}

func (n *Node) ParentNodeID() string { return n.ReferenceID(ParentRole) }

// ParentNode returns the resolved parent, or nil for top-level nodes and
// parents that are not in the scene.
func (n *Node) ParentNode() *Node {
	p, _ := n.Reference(ParentRole).(*Node)
	return p
}

// SetParentNodeID re-parents the node. The node gets the next sorting value
// so it lands after its new siblings; outside a scene that happens when it
// is added. Parenting a node under
// itself or one of its descendants is refused.
func (n *Node) SetParentNodeID(id string) {
	if id == n.ParentNodeID() {
		return
	}
	s := n.Scene()
	if id != "" && s != nil && n.isAncestorOf(s, id) {
		s.Logger().Warn("refusing to create a hierarchy cycle", "node", n.ID(), "parent", id)
		return
	}
	n.StartModify()
	defer n.EndModify()
	if s != nil {
		n.SetSortingValue(For(s).nextSortingValue())
	} else {
		n.sortPending = true
	}
	n.SetReferenceID(ParentRole, id)
}

func (n *Node) isAncestorOf(s *mrml.Scene, id string) bool {
	seen := make(map[string]bool)
	for id != "" && !seen[id] {
		if id == n.ID() {
			return true
		}
		seen[id] = true
		p, ok := s.NodeByID(id).(*Node)
		if !ok {
			return false
		}
		id = p.ParentNodeID()
	}
	return false
}

func (n *Node) AssociatedNodeID() string { return n.ReferenceID(AssociatedRole) }

func (n *Node) SetAssociatedNodeID(id string) { n.SetReferenceID(AssociatedRole, id) }

// AssociatedNode returns the resolved associated data node, or nil.
func (n *Node) AssociatedNode() mrml.Node { return n.Reference(AssociatedRole) }

// ChildrenNodes returns the direct children ordered by sorting value.
func (n *Node) ChildrenNodes() []*Node {
	s := n.Scene()
	if s == nil {
		return nil
	}
	return For(s).Children(n.ID())
}

// AllChildrenNodes returns every descendant, depth first.
func (n *Node) AllChildrenNodes() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(p *Node) {
		for _, c := range p.ChildrenNodes() {
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

// siblings returns the list the node is ordered in.
func (n *Node) siblings() []*Node {
	s := n.Scene()
	if s == nil {
		return nil
	}
	x := For(s)
	if n.ParentNode() == nil {
		return x.TopLevel()
	}
	return x.Children(n.ParentNodeID())
}

// IndexInParent returns the node's position among its siblings, or -1.
func (n *Node) IndexInParent() int {
	for i, c := range n.siblings() {
		if c == n {
			return i
		}
	}
	return -1
}

// SetIndexInParent moves the node to position index among its siblings by
// picking a sorting value between the new neighbours. The first position
// takes the first sibling's value minus one, the last position the last
// sibling's value plus one.
func (n *Node) SetIndexInParent(index int) {
	sib := n.siblings()
	old := -1
	for i, c := range sib {
		if c == n {
			old = i
		}
	}
	if old < 0 {
		return
	}
	last := len(sib) - 1
	index = max(0, min(index, last))
	if index == old {
		return
	}
	switch {
	case index == 0:
		n.SetSortingValue(sib[0].sortingValue - 1)
	case index == last:
		n.SetSortingValue(sib[last].sortingValue + 1)
	case index < old:
		n.SetSortingValue((sib[index-1].sortingValue + sib[index].sortingValue) / 2)
	default:
		n.SetSortingValue((sib[index].sortingValue + sib[index+1].sortingValue) / 2)
	}
}

func (n *Node) CopyContent(src mrml.Node) {
	n.BaseNode.CopyContent(src)
	if h, ok := src.(*Node); ok {
		n.SetSortingValue(h.sortingValue)
		n.sortPending = h.sortPending
	}
}

func (n *Node) WriteAttributes(attrs *mrml.AttributeList) {
	n.BaseNode.WriteAttributes(attrs)
	attrs.Set("sortingValue", strconv.FormatFloat(n.sortingValue, 'g', -1, 64))
}

func (n *Node) ReadAttributes(attrs mrml.AttributeList) {
	n.StartModify()
	defer n.EndModify()
	n.BaseNode.ReadAttributes(attrs)
	if v, ok := attrs.Get("sortingValue"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slogFor(n).Warn("invalid sortingValue", "node", n.ID(), "value", v)
			return
		}
		n.sortPending = false
		n.SetSortingValue(f)
	}
}
