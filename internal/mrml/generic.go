package mrml

// GenericNode is a node class defined purely by its class name and tag. It
// carries only what BaseNode carries, which is enough for classes declared
// in configuration.
type GenericNode struct {
	BaseNode
	className string
	tag       string
}

// NewGenericNode creates a detached node of the given class.
func NewGenericNode(className, tag string) *GenericNode {
	n := &GenericNode{className: className, tag: tag}
	n.Init(n)
	return n
}

func (n *GenericNode) ClassName() string { return n.className }
func (n *GenericNode) Tag() string       { return n.tag }

// New returns a detached node of the same class. The singleton tag carries
// over, so a registered prototype with a tag makes the class a singleton.
func (n *GenericNode) New() Node {
	c := NewGenericNode(n.className, n.tag)
	c.singletonTag = n.singletonTag
	return c
}
