package mrml

import (
	"fmt"
	"slices"
)

// Registry maps class names and tags to prototype nodes. Each scene owns
// one; nothing is registered process wide.
type Registry struct {
	classes map[string]Node
	tags    map[string]string // tag -> class name
	order   []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]Node),
		tags:    make(map[string]string),
	}
}

// Register adds or replaces the prototype for proto's class.
func (r *Registry) Register(proto Node) error {
	class := proto.ClassName()
	if class == "" {
		return fmt.Errorf("node class name must not be empty")
	}
	if other, ok := r.tags[proto.Tag()]; ok && other != class {
		return fmt.Errorf("tag %q already registered by class %q", proto.Tag(), other)
	}
	if _, ok := r.classes[class]; !ok {
		r.order = append(r.order, class)
	}
	r.classes[class] = proto
	r.tags[proto.Tag()] = class
	return nil
}

// Create returns a new detached node of the class.
func (r *Registry) Create(class string) (Node, bool) {
	proto, ok := r.classes[class]
	if !ok {
		return nil, false
	}
	return proto.New(), true
}

// ClassForTag returns the class registered for a serialization tag.
func (r *Registry) ClassForTag(tag string) (string, bool) {
	c, ok := r.tags[tag]
	return c, ok
}

// ClassNames returns the registered classes in registration order.
func (r *Registry) ClassNames() []string { return slices.Clone(r.order) }

// RegisterNodeClass registers a node class on the scene's registry.
func (s *Scene) RegisterNodeClass(proto Node) error {
	if err := s.registry.Register(proto); err != nil {
		return fmt.Errorf("register node class: %w", err)
	}
	return nil
}

// CreateNodeByClass returns a new detached node of a registered class, or nil.
func (s *Scene) CreateNodeByClass(class string) Node {
	n, ok := s.registry.Create(class)
	if !ok {
		s.logger.Warn("unknown node class", "class", class)
		return nil
	}
	return n
}

// Registry returns the scene's class registry.
func (s *Scene) Registry() *Registry { return s.registry }
