package mrml

import (
	"maps"
	"slices"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/metrics"
)

// Import merges a batch of detached nodes, typically just read from a scene
// file, into the scene and returns the ID remap table of this batch.
//
// Declared IDs that are free are kept. A declared ID that is already bound
// in the scene is replaced by a generated one and recorded as old -> new; a
// singleton that matches an existing one is merged into it and its declared
// ID maps to the existing node's ID. Every node of the batch then gets
// UpdateReferenceID for each entry, so references inside the batch follow
// their targets while references to IDs that were not remapped keep
// resolving to the nodes already in the scene.
//
// Insertion runs under ImportState: NodeAdded events and the ReferenceAdded
// events they unlock are delivered once the whole batch is consistent, in
// batch order, before EndImport.
func (s *Scene) Import(nodes []Node) map[string]string {
	s.StartState(ImportState)
	defer s.EndState(ImportState)

	var batch []Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if b := n.Base(); b.scene != nil {
			s.logger.Warn("skipping imported node that is already in a scene", "id", b.id)
			continue
		}
		batch = append(batch, n)
	}

	remap := make(map[string]string)
	setRemap := func(old, id string) {
		if _, ok := remap[old]; !ok && old != id {
			remap[old] = id
		}
	}

	var (
		held       []string // IDs reserved for the batch
		collisions []Node
		claimed    = make(map[string]struct{})
		singletons = make(map[singletonKey]Node)
		mergedInto = make(map[Node]Node)
	)
	for _, n := range batch {
		b := n.Base()
		if b.singletonTag != "" {
			key := singletonKey{class: n.ClassName(), tag: b.singletonTag}
			if existing := s.singletons[key]; existing != nil {
				if b.id != "" {
					setRemap(b.id, existing.Base().id)
				}
				continue
			}
			if first, ok := singletons[key]; ok {
				mergedInto[n] = first
				continue
			}
			singletons[key] = n
		}
		if b.id == "" {
			continue
		}
		if _, dup := claimed[b.id]; dup {
			// Same ID declared twice in one batch: references go to the first.
			collisions = append(collisions, n)
			continue
		}
		if s.byID[b.id] != nil || s.IsIDReserved(b.id) {
			collisions = append(collisions, n)
			claimed[b.id] = struct{}{}
			continue
		}
		claimed[b.id] = struct{}{}
		s.reserved[b.id] = struct{}{}
		held = append(held, b.id)
	}
	for _, n := range collisions {
		b := n.Base()
		id := s.GenerateUniqueID(n.ClassName())
		s.reserved[id] = struct{}{}
		held = append(held, id)
		if s.byID[b.id] != nil || !slices.Contains(held, b.id) {
			setRemap(b.id, id)
		}
		b.id = id
	}
	for n, first := range mergedInto {
		if id := n.Base().id; id != "" {
			setRemap(id, first.Base().id)
		}
	}

	if len(remap) > 0 {
		order := remapOrder(remap)
		for _, n := range batch {
			for _, p := range order {
				n.UpdateReferenceID(p[0], p[1])
			}
		}
		metrics.ImportRemappedIDs.Add(float64(len(remap)))
	}

	for _, n := range batch {
		s.AddNode(n)
	}
	for _, id := range held {
		delete(s.reserved, id)
	}

	s.remap = maps.Clone(remap)
	metrics.Imports.Inc()
	s.logger.Debug("imported nodes", "count", len(batch), "remapped", len(remap))
	return remap
}

// IDRemap returns the remap table of the most recent import.
func (s *Scene) IDRemap() map[string]string { return maps.Clone(s.remap) }

// RemappedID translates an ID from the most recent import's namespace.
func (s *Scene) RemappedID(old string) (string, bool) {
	id, ok := s.remap[old]
	return id, ok
}

// remapOrder sorts remap entries so an entry a->b is applied after any entry
// b->c; applying them one by one then never rewrites an ID twice. Cycles
// cannot be ordered and are appended as they are.
func remapOrder(remap map[string]string) [][2]string {
	keys := slices.Sorted(maps.Keys(remap))
	pending := make(map[string]bool, len(keys))
	for _, k := range keys {
		pending[k] = true
	}
	var out [][2]string
	for len(out) < len(keys) {
		progressed := false
		for _, k := range keys {
			if !pending[k] || pending[remap[k]] {
				continue
			}
			out = append(out, [2]string{k, remap[k]})
			pending[k] = false
			progressed = true
		}
		if progressed {
			continue
		}
		for _, k := range keys {
			if pending[k] {
				out = append(out, [2]string{k, remap[k]})
				pending[k] = false
			}
		}
	}
	return out
}
