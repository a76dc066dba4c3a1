package hierarchy

import (
	"log/slog"
	"sort"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/event"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/metrics"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
)

type indexKey struct{}

// Index caches parent -> children lists for the hierarchy nodes of one
// scene. It rebuilds itself in a single pass whenever the scene's modified
// counter has moved since the last build.
type Index struct {
	scene      *mrml.Scene
	built      bool
	builtAt    uint64
	children   map[string][]*Node
	topLevel   []*Node
	associated map[string]*Node
	maxSorting float64
	counter    float64
}

// For returns the index of the scene, creating it on first use.
func For(s *mrml.Scene) *Index {
	return s.Extension(indexKey{}, func() any {
		x := &Index{scene: s}
		s.Subscribe(x.nodeAdded, event.NodeAdded)
		return x
	}).(*Index)
}

// nodeAdded places nodes parented before insertion after their siblings.
func (x *Index) nodeAdded(ev event.Event) {
	n, ok := ev.Payload.(*Node)
	if !ok || !n.sortPending {
		return
	}
	n.sortPending = false
	n.SetSortingValue(x.nextSortingValue())
}

func (x *Index) refresh() {
	if x.built && x.builtAt == x.scene.ModifiedCounter() {
		return
	}
	x.children = make(map[string][]*Node)
	x.associated = make(map[string]*Node)
	x.topLevel = nil
	x.maxSorting = 0
	var pending []*Node
	for _, sn := range x.scene.Nodes() {
		n, ok := sn.(*Node)
		if !ok {
			continue
		}
		if n.sortPending {
			pending = append(pending, n)
		} else {
			x.maxSorting = max(x.maxSorting, n.sortingValue)
		}
		pid := n.ParentNodeID()
		if pid != "" {
			x.children[pid] = append(x.children[pid], n)
		}
		if n.ParentNode() == nil {
			x.topLevel = append(x.topLevel, n)
		}
		if aid := n.AssociatedNodeID(); aid != "" {
			if _, taken := x.associated[aid]; !taken {
				x.associated[aid] = n
			}
		}
	}
	// Nodes added before the index subscribed to the scene.
	for _, n := range pending {
		n.sortPending = false
		x.counter = max(x.counter, x.maxSorting) + 1
		n.sortingValue = x.counter
		x.maxSorting = x.counter
	}
	for _, list := range x.children {
		sortBySortingValue(list)
	}
	sortBySortingValue(x.topLevel)
	x.built = true
	x.builtAt = x.scene.ModifiedCounter()
	metrics.HierarchyRebuilds.Inc()
}

func sortBySortingValue(list []*Node) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].sortingValue < list[j].sortingValue
	})
}

// Children returns the hierarchy nodes whose parent reference is parentID,
// ordered by sorting value.
func (x *Index) Children(parentID string) []*Node {
	x.refresh()
	return append([]*Node(nil), x.children[parentID]...)
}

// TopLevel returns the hierarchy nodes without a resolvable parent.
func (x *Index) TopLevel() []*Node {
	x.refresh()
	return append([]*Node(nil), x.topLevel...)
}

// AssociatedHierarchyNode returns the first hierarchy node associated with
// the data node ID, or nil.
func (x *Index) AssociatedHierarchyNode(id string) *Node {
	x.refresh()
	return x.associated[id]
}

// nextSortingValue hands out a value larger than any in the scene so a
// freshly parented node sorts last.
func (x *Index) nextSortingValue() float64 {
	x.refresh()
	x.counter = max(x.counter, x.maxSorting) + 1
	return x.counter
}

func slogFor(n *Node) *slog.Logger {
	if s := n.Scene(); s != nil {
		return s.Logger()
	}
	return slog.Default()
}
