package mrml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/event"
)

func declared(class, id string) *GenericNode {
	n := NewGenericNode(class, class)
	n.SetID(id)
	return n
}

func TestImportRemapsCollidingIDs(t *testing.T) {
	s := NewScene()
	residentVolume := s.AddNode(NewGenericNode("VolumeNode", "Volume"))
	residentDisplay := s.AddNode(NewGenericNode("DisplayNode", "Display"))
	transform := s.AddNode(NewGenericNode("TransformNode", "Transform"))
	require.Equal(t, "VolumeNode1", residentVolume.Base().ID())
	require.Equal(t, "DisplayNode1", residentDisplay.Base().ID())
	before := s.NumberOfNodes()

	volume := declared("VolumeNode", "VolumeNode1")
	volume.AddReferenceID("display", "DisplayNode1")
	volume.AddReferenceID("transform", "TransformNode1")
	display := declared("DisplayNode", "DisplayNode1")
	holder := newHolderNode()
	holder.SetID("HolderNode1")
	holder.volumeID = "VolumeNode1"
	holder.AddReferenceID("volume", "VolumeNode1")
	model := declared("ModelNode", "ModelNode1")
	model.AddReferenceID("display", "DisplayNode1")

	remap := s.Import([]Node{volume, display, holder, model})

	assert.Equal(t, map[string]string{
		"VolumeNode1":  "VolumeNode2",
		"DisplayNode1": "DisplayNode2",
	}, remap)
	assert.Equal(t, before+4, s.NumberOfNodes())
	assert.Equal(t, "VolumeNode2", volume.ID())
	assert.Equal(t, "DisplayNode2", display.ID())
	assert.Equal(t, "HolderNode1", holder.ID())
	assert.Equal(t, "ModelNode1", model.ID())

	assert.Same(t, display, volume.Reference("display").(*GenericNode))
	assert.Same(t, transform, volume.Reference("transform"), "IDs that were not remapped resolve to resident nodes")
	assert.Equal(t, "VolumeNode2", holder.volumeID)
	assert.Same(t, volume, holder.Reference("volume").(*GenericNode))
	assert.Same(t, display, model.Reference("display").(*GenericNode))

	assert.Empty(t, residentVolume.Base().ReferenceRoles())
	assert.Same(t, residentVolume, s.NodeByID("VolumeNode1"))

	id, ok := s.RemappedID("DisplayNode1")
	assert.True(t, ok)
	assert.Equal(t, "DisplayNode2", id)
	assert.False(t, s.IsIDReserved("ModelNode1"))
	require.NoError(t, s.verify())
}

func batchPair() []Node {
	a := declared("NodeHelper", "NodeHelper1")
	b := declared("NodeHelper", "NodeHelper2")
	a.AddReferenceID("peer", "NodeHelper2")
	b.AddReferenceID("peer", "NodeHelper1")
	b.AddReferenceID("self", "NodeHelper2")
	return []Node{a, b}
}

func TestImportTwiceYieldsDisjointCopies(t *testing.T) {
	s := NewScene()
	first := batchPair()
	second := batchPair()

	assert.Empty(t, s.Import(first))
	remap := s.Import(second)

	assert.Len(t, remap, 2)
	assert.Equal(t, 4, s.NumberOfNodes())
	for _, nodes := range [][]Node{first, second} {
		a, b := nodes[0].Base(), nodes[1].Base()
		assert.Same(t, nodes[1], a.Reference("peer"))
		assert.Same(t, nodes[0], b.Reference("peer"))
		assert.Same(t, nodes[1], b.Reference("self"))
	}
	assert.NotEqual(t, first[0].Base().ID(), second[0].Base().ID())
	assert.NotEqual(t, first[1].Base().ID(), second[1].Base().ID())
	require.NoError(t, s.verify())
}

func TestImportDefersAddedEvents(t *testing.T) {
	s := NewScene()
	a := declared("NodeHelper", "NodeHelper1")
	b := declared("NodeHelper", "NodeHelper2")
	a.AddReferenceID("peer", "NodeHelper2")

	var log eventLog
	log.scene(s)
	log.node(a)
	s.Import([]Node{a, b})

	assert.Equal(t, []string{
		"StartBatchProcess",
		"StartImport",
		"NodeAdded NodeHelper1",
		"NodeAdded NodeHelper2",
		"ReferenceAdded NodeHelper1->NodeHelper2",
		"EndImport",
		"EndBatchProcess",
		"SceneModified",
	}, log.entries)
	assert.Zero(t, log.count(event.NodeAboutToBeAdded))
}

func TestImportDanglingAcrossBatches(t *testing.T) {
	s := NewScene()
	a := declared("NodeHelper", "NodeHelper1")
	a.AddReferenceID("later", "NodeHelper7")
	s.Import([]Node{a})
	assert.Nil(t, a.Reference("later"))

	var log eventLog
	log.node(a)
	later := declared("NodeHelper", "NodeHelper7")
	remap := s.Import([]Node{later})

	assert.Empty(t, remap)
	assert.Same(t, later, a.Reference("later").(*GenericNode))
	assert.Equal(t, 1, log.count(event.ReferenceAdded))
}

func TestImportMergesSingletons(t *testing.T) {
	s := NewScene()
	volume := s.AddNode(NewGenericNode("VolumeNode", "Volume"))
	existing := s.AddNode(NewSelectionNode()).(*SelectionNode)

	incoming := NewSelectionNode()
	incoming.SetID("SelectionNode1")
	incoming.SetActiveVolumeID("VolumeNode1")
	user := declared("NodeHelper", "NodeHelper1")
	user.AddReferenceID("selection", "SelectionNode1")

	remap := s.Import([]Node{incoming, user})

	assert.Equal(t, map[string]string{"SelectionNode1": "SelectionNodeSingleton"}, remap)
	assert.Equal(t, 3, s.NumberOfNodes())
	assert.Same(t, existing, user.Reference("selection"))
	assert.Equal(t, volume.Base().ID(), existing.ActiveVolumeID())
}

func TestImportDuplicateIDsInBatch(t *testing.T) {
	s := NewScene()
	a := declared("NodeHelper", "NodeHelper1")
	dup := declared("NodeHelper", "NodeHelper1")
	user := declared("NodeHelper", "NodeHelper5")
	user.AddReferenceID("r", "NodeHelper1")

	remap := s.Import([]Node{a, dup, user})

	assert.Empty(t, remap)
	assert.Equal(t, "NodeHelper1", a.ID())
	assert.NotEqual(t, "NodeHelper1", dup.ID())
	assert.Same(t, a, user.Reference("r").(*GenericNode))
	require.NoError(t, s.verify())
}

func TestRemapOrderAvoidsChains(t *testing.T) {
	order := remapOrder(map[string]string{"A": "B", "B": "C"})
	assert.Equal(t, [][2]string{{"B", "C"}, {"A", "B"}}, order)

	n := newHelper()
	n.AddReferenceID("r", "A")
	n.AddReferenceID("r", "B")
	for _, p := range order {
		n.UpdateReferenceID(p[0], p[1])
	}
	assert.Equal(t, []string{"B", "C"}, n.ReferenceIDs("r"))
}
