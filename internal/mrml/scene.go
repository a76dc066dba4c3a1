package mrml

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/event"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/metrics"
)

type singletonKey struct {
	class string
	tag   string
}

// Scene owns a set of nodes. It assigns unique IDs and names, resolves
// references by ID, keeps the reverse reference index and fires the scene
// level events.
type Scene struct {
	uid    uuid.UUID
	logger *slog.Logger

	nodes []Node
	byID  map[string]Node
	names map[string]int // name -> number of nodes carrying it

	idCounters   map[string]int
	nameCounters map[string]int
	usedIDs      map[string]struct{} // every ID ever bound; never handed out again
	reserved     map[string]struct{}

	refIndex   map[string]*referrers
	singletons map[singletonKey]Node
	registry   *Registry

	states     map[State]int
	pending    map[*BaseNode]struct{} // inserted during import, not yet announced
	deferred   []Node
	batchDirty bool

	modified uint64
	remap    map[string]string

	mergeMode  CopyMode
	extensions map[any]any
	bus        event.Bus
}

// NewScene returns an empty scene with the built-in node classes registered.
func NewScene() *Scene {
	s := &Scene{
		uid:          uuid.New(),
		logger:       slog.Default(),
		byID:         make(map[string]Node),
		names:        make(map[string]int),
		idCounters:   make(map[string]int),
		nameCounters: make(map[string]int),
		usedIDs:      make(map[string]struct{}),
		reserved:     make(map[string]struct{}),
		refIndex:     make(map[string]*referrers),
		singletons:   make(map[singletonKey]Node),
		registry:     NewRegistry(),
		states:       make(map[State]int),
		pending:      make(map[*BaseNode]struct{}),
		remap:        make(map[string]string),
		extensions:   make(map[any]any),
	}
	_ = s.registry.Register(NewSelectionNode())
	return s
}

// UID identifies this scene instance in logs.
func (s *Scene) UID() uuid.UUID { return s.uid }

// SetLogger replaces the diagnostics logger.
func (s *Scene) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	s.logger = l.With("scene", s.uid.String())
}

func (s *Scene) Logger() *slog.Logger { return s.logger }

// SetSingletonMergeMode selects how an added singleton is copied onto the
// existing instance.
func (s *Scene) SetSingletonMergeMode(m CopyMode) { s.mergeMode = m }

func (s *Scene) SingletonMergeMode() CopyMode { return s.mergeMode }

// Subscribe registers fn for scene events.
func (s *Scene) Subscribe(fn event.Handler, kinds ...event.Kind) uuid.UUID {
	return s.bus.Subscribe(fn, kinds...)
}

func (s *Scene) Unsubscribe(id uuid.UUID) bool { return s.bus.Unsubscribe(id) }

func (s *Scene) invoke(kind event.Kind, payload any) {
	s.bus.Publish(event.Event{Kind: kind, Source: s, Payload: payload})
}

// ModifiedCounter increases on every structural change: node added or
// removed, reference changed, node modified. Derived caches compare it with
// the value they were built at.
func (s *Scene) ModifiedCounter() uint64 { return s.modified }

func (s *Scene) touch() { s.modified++ }

// Extension returns per-scene state stored under key, creating it on first
// use. It lets packages layered on the scene keep caches whose lifetime is
// the scene's.
func (s *Scene) Extension(key any, create func() any) any {
	if v, ok := s.extensions[key]; ok {
		return v
	}
	v := create()
	s.extensions[key] = v
	return v
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

// NodeByID returns the in-scene node with the ID, or nil.
func (s *Scene) NodeByID(id string) Node {
	if id == "" {
		return nil
	}
	return s.byID[id]
}

// Nodes returns all nodes in insertion order.
func (s *Scene) Nodes() []Node { return slices.Clone(s.nodes) }

func (s *Scene) NumberOfNodes() int { return len(s.nodes) }

// NthNode returns the node at insertion position i, or nil.
func (s *Scene) NthNode(i int) Node {
	if i < 0 || i >= len(s.nodes) {
		return nil
	}
	return s.nodes[i]
}

// NodesByClass returns the nodes of the class in insertion order.
func (s *Scene) NodesByClass(class string) []Node {
	var out []Node
	for _, n := range s.nodes {
		if n.ClassName() == class {
			out = append(out, n)
		}
	}
	return out
}

func (s *Scene) NumberOfNodesByClass(class string) int { return len(s.NodesByClass(class)) }

// NodesByName returns the nodes carrying the name in insertion order.
func (s *Scene) NodesByName(name string) []Node {
	if s.names[name] == 0 {
		return nil
	}
	var out []Node
	for _, n := range s.nodes {
		if n.Base().name == name {
			out = append(out, n)
		}
	}
	return out
}

func (s *Scene) FirstNodeByName(name string) Node {
	if nodes := s.NodesByName(name); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// SingletonNode returns the singleton of the class with the tag, or nil.
func (s *Scene) SingletonNode(class, tag string) Node {
	return s.singletons[singletonKey{class: class, tag: tag}]
}

// ---------------------------------------------------------------------------
// Add / remove
// ---------------------------------------------------------------------------

// AddNode inserts node and returns it. If node is a singleton and the scene
// already holds one with the same class and tag, node is copied onto the
// existing one, which is returned instead. A node that already belongs to
// another scene is refused and nil is returned.
func (s *Scene) AddNode(node Node) Node {
	if node == nil {
		return nil
	}
	b := node.Base()
	if b.self == nil {
		b.self = node
	}
	switch b.scene {
	case s:
		return node
	case nil:
	default:
		s.logger.Warn("node already belongs to another scene", "id", b.id, "class", node.ClassName())
		return nil
	}

	if b.singletonTag != "" {
		if existing := s.SingletonNode(node.ClassName(), b.singletonTag); existing != nil {
			s.mergeSingleton(existing, node)
			return existing
		}
	}

	importing := s.IsImporting()
	if !importing {
		s.invoke(event.NodeAboutToBeAdded, node)
	}
	s.insert(node)
	if importing {
		s.pending[b] = struct{}{}
		s.deferred = append(s.deferred, node)
		return node
	}
	s.announce(node)
	return node
}

func (s *Scene) mergeSingleton(existing, incoming Node) {
	s.logger.Debug("merging singleton",
		"class", existing.ClassName(), "tag", existing.Base().singletonTag,
		"id", existing.Base().id, "mode", s.mergeMode.String())
	Copy(existing, incoming, s.mergeMode)
	metrics.SingletonMerges.Inc()
}

func (s *Scene) insert(node Node) {
	b := node.Base()
	b.id = s.claimID(node)
	if b.name == "" {
		b.name = s.GenerateUniqueName(node.Tag())
	}

	s.nodes = append(s.nodes, node)
	s.byID[b.id] = node
	s.usedIDs[b.id] = struct{}{}
	s.names[b.name]++
	if b.singletonTag != "" {
		s.singletons[singletonKey{class: node.ClassName(), tag: b.singletonTag}] = node
	}
	b.scene = s
	for _, role := range b.roles {
		for _, ref := range b.refs[role] {
			s.addReferenceEntry(b, ref.targetID)
		}
	}
	s.touch()
	metrics.NodesAdded.WithLabelValues(node.ClassName()).Inc()
}

func (s *Scene) claimID(node Node) string {
	b := node.Base()
	id := b.id
	switch {
	case id != "" && s.byID[id] == nil:
	case id == "" && b.singletonTag != "" && s.isIDFree(node.ClassName()+b.singletonTag):
		id = node.ClassName() + b.singletonTag
	default:
		if id != "" {
			s.logger.Debug("declared node ID already in use, assigning a new one", "declared", id)
		}
		id = s.GenerateUniqueID(node.ClassName())
	}
	delete(s.reserved, id)
	return id
}

// announce fires the notifications for an inserted node: NodeAdded, then
// ReferenceAdded for every reference that resolves now that the node is
// visible, then SceneModified.
func (s *Scene) announce(node Node) {
	b := node.Base()
	delete(s.pending, b)
	s.invoke(event.NodeAdded, node)

	for _, role := range slices.Clone(b.roles) {
		for i, ref := range slices.Clone(b.refs[role]) {
			t := s.byID[ref.targetID]
			if t == nil || !s.isAnnounced(t.Base()) {
				continue
			}
			b.InvokeEvent(event.ReferenceAdded, ReferenceEvent{Role: role, Index: i, TargetID: ref.targetID, Target: t})
		}
	}

	if r := s.refIndex[b.id]; r != nil {
		for _, holder := range slices.Clone(r.order) {
			if holder == b || !s.isAnnounced(holder) {
				continue
			}
			for _, loc := range holder.locationsOf(b.id) {
				holder.InvokeEvent(event.ReferenceAdded, ReferenceEvent{
					Role: loc.Role, Index: loc.Index, TargetID: b.id, Target: node,
				})
				metrics.DelayedReferencesResolved.Inc()
			}
		}
	}
	s.sceneModified()
}

func (s *Scene) isAnnounced(b *BaseNode) bool {
	if b.scene != s {
		return false
	}
	_, waiting := s.pending[b]
	return !waiting
}

func (s *Scene) sceneModified() {
	if s.IsBatchProcessing() {
		s.batchDirty = true
		return
	}
	s.invoke(event.SceneModified, nil)
}

// RemoveNode takes node out of the scene. References held by other nodes
// keep the removed ID; they simply stop resolving.
func (s *Scene) RemoveNode(node Node) {
	if node == nil {
		return
	}
	b := node.Base()
	if b.scene != s {
		return
	}
	s.invoke(event.NodeAboutToBeRemoved, node)

	if i := slices.Index(s.nodes, node); i >= 0 {
		s.nodes = slices.Delete(s.nodes, i, i+1)
	}
	delete(s.byID, b.id)
	if s.names[b.name]--; s.names[b.name] <= 0 {
		delete(s.names, b.name)
	}
	if b.singletonTag != "" {
		key := singletonKey{class: node.ClassName(), tag: b.singletonTag}
		if s.singletons[key] == node {
			delete(s.singletons, key)
		}
	}
	if _, ok := s.pending[b]; ok {
		delete(s.pending, b)
		if i := slices.Index(s.deferred, node); i >= 0 {
			s.deferred = slices.Delete(s.deferred, i, i+1)
		}
	}
	for _, role := range b.roles {
		for _, ref := range b.refs[role] {
			s.removeReferenceEntry(b, ref.targetID)
		}
	}
	b.scene = nil
	s.touch()
	metrics.NodesRemoved.WithLabelValues(node.ClassName()).Inc()

	s.invoke(event.NodeRemoved, node)
	s.sceneModified()
}

// RemoveNodeByID removes the node with the ID, if any.
func (s *Scene) RemoveNodeByID(id string) bool {
	n := s.NodeByID(id)
	if n == nil {
		return false
	}
	s.RemoveNode(n)
	return true
}

// Clear removes every node under the Close state, last added first.
// Singletons stay unless removeSingletons is set.
func (s *Scene) Clear(removeSingletons bool) {
	s.StartState(CloseState)
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if i >= len(s.nodes) {
			continue
		}
		n := s.nodes[i]
		if !removeSingletons && n.Base().singletonTag != "" {
			continue
		}
		s.RemoveNode(n)
	}
	clear(s.reserved)
	clear(s.remap)
	s.EndState(CloseState)
}

// UpdateNodeReferences asks every node to drop stored IDs that no longer
// resolve.
func (s *Scene) UpdateNodeReferences() {
	for _, n := range s.Nodes() {
		n.UpdateReferences()
	}
}

// renamed keeps the name counts in sync with BaseNode.SetName.
func (s *Scene) renamed(old, name string) {
	if s.names[old]--; s.names[old] <= 0 {
		delete(s.names, old)
	}
	s.names[name]++
}

// ---------------------------------------------------------------------------
// Graph queries
// ---------------------------------------------------------------------------

// ReferencedNodes returns node followed by every node reachable through its
// references, breadth first, in role and index discovery order. Each node
// appears once.
func (s *Scene) ReferencedNodes(node Node) []Node {
	if node == nil {
		return nil
	}
	seen := map[*BaseNode]struct{}{node.Base(): {}}
	out := []Node{node}
	for i := 0; i < len(out); i++ {
		b := out[i].Base()
		if b.scene != s {
			continue
		}
		for _, role := range b.roles {
			for _, ref := range b.refs[role] {
				t := s.byID[ref.targetID]
				if t == nil {
					continue
				}
				if _, ok := seen[t.Base()]; ok {
					continue
				}
				seen[t.Base()] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return out
}

// IsNodeReferencingNodeID reports whether node holds a reference to id in
// any role.
func (s *Scene) IsNodeReferencingNodeID(node Node, id string) bool {
	if node == nil || id == "" {
		return false
	}
	r := s.refIndex[id]
	return r != nil && r.count[node.Base()] > 0
}

// verify checks the scene's index invariants. Tests call it after mutations.
func (s *Scene) verify() error {
	if len(s.byID) != len(s.nodes) {
		return fmt.Errorf("id index has %d entries, node list %d", len(s.byID), len(s.nodes))
	}
	for _, n := range s.nodes {
		if s.byID[n.Base().id] != n {
			return fmt.Errorf("node %s missing from id index", n.Base().id)
		}
	}
	want := make(map[string]map[*BaseNode]int)
	for _, n := range s.nodes {
		b := n.Base()
		for _, role := range b.roles {
			for _, ref := range b.refs[role] {
				if want[ref.targetID] == nil {
					want[ref.targetID] = make(map[*BaseNode]int)
				}
				want[ref.targetID][b]++
			}
		}
	}
	if len(want) != len(s.refIndex) {
		return fmt.Errorf("reference index has %d targets, expected %d", len(s.refIndex), len(want))
	}
	for id, holders := range want {
		r := s.refIndex[id]
		if r == nil {
			return fmt.Errorf("reference index missing target %s", id)
		}
		if len(r.order) != len(holders) {
			return fmt.Errorf("target %s: %d referencing nodes indexed, expected %d", id, len(r.order), len(holders))
		}
		for b, c := range holders {
			if r.count[b] != c {
				return fmt.Errorf("target %s: node %s indexed %d times, expected %d", id, b.id, r.count[b], c)
			}
		}
	}
	return nil
}
