package mrml

// SelectionNode is the application-wide singleton that tracks the active
// volume and the active place node. Both are stored as plain ID fields
// rather than references, so it keeps them valid through UpdateReferenceID.
type SelectionNode struct {
	BaseNode
	activeVolumeID    string
	activePlaceNodeID string
}

// DefaultSingletonTag is the singleton tag of the scene's SelectionNode.
const DefaultSingletonTag = "Singleton"

func NewSelectionNode() *SelectionNode {
	n := &SelectionNode{}
	n.Init(n)
	n.singletonTag = DefaultSingletonTag
	return n
}

func (n *SelectionNode) ClassName() string { return "SelectionNode" }
func (n *SelectionNode) Tag() string       { return "Selection" }
func (n *SelectionNode) New() Node         { return NewSelectionNode() }

func (n *SelectionNode) ActiveVolumeID() string { return n.activeVolumeID }

func (n *SelectionNode) SetActiveVolumeID(id string) {
	if n.activeVolumeID == id {
		return
	}
	n.activeVolumeID = id
	n.Modified()
}

func (n *SelectionNode) ActivePlaceNodeID() string { return n.activePlaceNodeID }

func (n *SelectionNode) SetActivePlaceNodeID(id string) {
	if n.activePlaceNodeID == id {
		return
	}
	n.activePlaceNodeID = id
	n.Modified()
}

func (n *SelectionNode) CopyContent(src Node) {
	n.BaseNode.CopyContent(src)
	if s, ok := src.(*SelectionNode); ok {
		n.SetActiveVolumeID(s.activeVolumeID)
		n.SetActivePlaceNodeID(s.activePlaceNodeID)
	}
}

func (n *SelectionNode) WriteAttributes(attrs *AttributeList) {
	n.BaseNode.WriteAttributes(attrs)
	attrs.Set("activeVolumeID", n.activeVolumeID)
	attrs.Set("activePlaceNodeID", n.activePlaceNodeID)
}

func (n *SelectionNode) ReadAttributes(attrs AttributeList) {
	n.StartModify()
	defer n.EndModify()
	n.BaseNode.ReadAttributes(attrs)
	if v, ok := attrs.Get("activeVolumeID"); ok {
		n.SetActiveVolumeID(v)
	}
	if v, ok := attrs.Get("activePlaceNodeID"); ok {
		n.SetActivePlaceNodeID(v)
	}
}

func (n *SelectionNode) UpdateReferenceID(oldID, newID string) {
	n.BaseNode.UpdateReferenceID(oldID, newID)
	if oldID == "" {
		return
	}
	if n.activeVolumeID == oldID {
		n.SetActiveVolumeID(newID)
	}
	if n.activePlaceNodeID == oldID {
		n.SetActivePlaceNodeID(newID)
	}
}

func (n *SelectionNode) UpdateReferences() {
	n.BaseNode.UpdateReferences()
	if n.scene == nil {
		return
	}
	if n.activeVolumeID != "" && n.scene.NodeByID(n.activeVolumeID) == nil {
		n.SetActiveVolumeID("")
	}
	if n.activePlaceNodeID != "" && n.scene.NodeByID(n.activePlaceNodeID) == nil {
		n.SetActivePlaceNodeID("")
	}
}
