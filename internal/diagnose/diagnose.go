// Package diagnose reports reference problems in a scene: references whose
// target ID does not resolve, and groups of nodes that reference each other
// in a cycle.
package diagnose

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
)

// Dangling is a stored reference whose target is not in the scene.
type Dangling struct {
	NodeID   string `json:"node_id"`
	Role     string `json:"role"`
	Index    int    `json:"index"`
	TargetID string `json:"target_id"`
}

func (d Dangling) String() string {
	return fmt.Sprintf("%s %s[%d] -> %s", d.NodeID, d.Role, d.Index, d.TargetID)
}

// Report is the result of Check.
type Report struct {
	Dangling []Dangling `json:"dangling"`
	// Cycles lists each strongly connected group of referencing nodes, IDs
	// in scene order. A node referencing itself is a cycle of one.
	Cycles [][]string `json:"cycles"`
}

// OK reports whether no dangling reference was found. Cycles are legal and
// do not fail a report.
func (r Report) OK() bool { return len(r.Dangling) == 0 }

func (r Report) String() string {
	var b strings.Builder
	for _, d := range r.Dangling {
		fmt.Fprintf(&b, "dangling: %s\n", d)
	}
	for _, c := range r.Cycles {
		fmt.Fprintf(&b, "cycle: %s\n", strings.Join(c, " -> "))
	}
	return b.String()
}

// Check inspects every reference of every node in s.
func Check(s *mrml.Scene) Report {
	nodes := s.Nodes()
	index := make(map[string]int64, len(nodes))
	g := simple.NewDirectedGraph()
	for i, n := range nodes {
		index[n.Base().ID()] = int64(i)
		g.AddNode(simple.Node(i))
	}

	var r Report
	selfLoop := make(map[int64]bool)
	for i, n := range nodes {
		b := n.Base()
		for _, role := range b.ReferenceRoles() {
			for k, id := range b.ReferenceIDs(role) {
				j, ok := index[id]
				switch {
				case !ok:
					r.Dangling = append(r.Dangling, Dangling{NodeID: b.ID(), Role: role, Index: k, TargetID: id})
				case j == int64(i):
					selfLoop[j] = true
				default:
					g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
				}
			}
		}
	}

	var groups [][]int64
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) == 1 && !selfLoop[scc[0].ID()] {
			continue
		}
		ids := make([]int64, 0, len(scc))
		for _, v := range scc {
			ids = append(ids, v.ID())
		}
		slices.Sort(ids)
		groups = append(groups, ids)
	}
	slices.SortFunc(groups, func(a, b []int64) int { return int(a[0] - b[0]) })
	for _, grp := range groups {
		cycle := make([]string, 0, len(grp))
		for _, i := range grp {
			cycle = append(cycle, nodes[i].Base().ID())
		}
		r.Cycles = append(r.Cycles, cycle)
	}
	return r
}
