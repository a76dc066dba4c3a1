package mrml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/event"
)

func TestAddNodeAssignsIDsAndNames(t *testing.T) {
	s := NewScene()
	a := s.AddNode(newHelper())
	b := s.AddNode(newHelper())

	assert.Equal(t, "NodeHelper1", a.Base().ID())
	assert.Equal(t, "NodeHelper2", b.Base().ID())
	assert.Equal(t, "Helper", a.Base().Name())
	assert.Equal(t, "Helper_1", b.Base().Name())
	assert.Equal(t, 2, s.NumberOfNodes())
	assert.Same(t, b, s.NodeByID("NodeHelper2"))
	assert.Same(t, a, s.NthNode(0))
	assert.Nil(t, s.NthNode(2))
}

func TestGeneratedIDsAreNeverReused(t *testing.T) {
	s := NewScene()
	s.AddNode(newHelper())
	second := s.AddNode(newHelper())
	s.RemoveNode(second)

	third := s.AddNode(newHelper())

	assert.Equal(t, "NodeHelper3", third.Base().ID())
	assert.Equal(t, "NodeHelper4", s.GenerateUniqueID("NodeHelper"))
	require.NoError(t, s.verify())
}

func TestDeclaredIDCollisionIsReplaced(t *testing.T) {
	s := NewScene()
	s.AddNode(newHelper())

	dup := newHelper()
	dup.SetID("NodeHelper1")
	s.AddNode(dup)

	assert.Equal(t, "NodeHelper2", dup.ID())
	require.NoError(t, s.verify())
}

func TestKeepsSuppliedName(t *testing.T) {
	s := NewScene()
	n := newHelper()
	n.SetName("Brain")
	s.AddNode(n)
	other := newHelper()
	other.SetName("Brain")
	s.AddNode(other)

	assert.Equal(t, "Brain", n.Name())
	assert.Len(t, s.NodesByName("Brain"), 2)
	assert.Equal(t, "Brain_1", s.GenerateUniqueName("Brain"))

	n.SetName("Skull")
	assert.Same(t, n, s.FirstNodeByName("Skull").(*GenericNode))
	assert.Len(t, s.NodesByName("Brain"), 1)
}

func TestReservedIDs(t *testing.T) {
	s := NewScene()
	require.True(t, s.ReserveID("NodeHelper1"))
	assert.False(t, s.ReserveID("NodeHelper1"))

	generated := s.AddNode(newHelper())
	assert.Equal(t, "NodeHelper2", generated.Base().ID())

	claimer := newHelper()
	claimer.SetID("NodeHelper1")
	s.AddNode(claimer)
	assert.Equal(t, "NodeHelper1", claimer.ID())
	assert.False(t, s.IsIDReserved("NodeHelper1"))
	assert.False(t, s.ReserveID("NodeHelper1"), "bound IDs cannot be reserved")

	require.True(t, s.ReserveID("Tmp1"))
	s.ReleaseID("Tmp1")
	assert.False(t, s.IsIDReserved("Tmp1"))
}

func TestAddNodeEventOrder(t *testing.T) {
	s := NewScene()
	var log eventLog
	log.scene(s)

	n := s.AddNode(newHelper())
	s.RemoveNode(n)

	assert.Equal(t, []string{
		"NodeAboutToBeAdded ",
		"NodeAdded NodeHelper1",
		"SceneModified",
		"NodeAboutToBeRemoved NodeHelper1",
		"NodeRemoved NodeHelper1",
		"SceneModified",
	}, log.entries)
	assert.Nil(t, n.Base().Scene())
}

func TestAddNodeFromOtherSceneIsRefused(t *testing.T) {
	s1, s2 := NewScene(), NewScene()
	n := s1.AddNode(newHelper())

	assert.Nil(t, s2.AddNode(n))
	assert.Same(t, n, s1.AddNode(n))
	assert.Zero(t, s2.NumberOfNodes())
}

func TestSingletonMerge(t *testing.T) {
	cases := []struct {
		name         string
		mode         CopyMode
		wantModified int
	}{
		{name: "single modified", mode: CopySingleModified, wantModified: 1},
		{name: "regular", mode: CopyRegular, wantModified: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewScene()
			s.SetSingletonMergeMode(tc.mode)
			target := s.AddNode(newHelper())
			existing := s.AddNode(NewSelectionNode()).(*SelectionNode)
			require.Equal(t, "SelectionNodeSingleton", existing.ID())

			var log eventLog
			log.node(existing)
			incoming := NewSelectionNode()
			incoming.SetName("Selection")
			incoming.SetAttribute("layout", "four-up")
			incoming.SetActiveVolumeID("Volume7")
			incoming.AddReferenceID("unit", target.Base().ID())

			got := s.AddNode(incoming)

			assert.Same(t, existing, got)
			assert.Nil(t, incoming.Scene())
			assert.Equal(t, 2, s.NumberOfNodes())
			assert.Equal(t, "Volume7", existing.ActiveVolumeID())
			v, ok := existing.Attribute("layout")
			assert.True(t, ok)
			assert.Equal(t, "four-up", v)
			assert.Same(t, target, existing.Reference("unit"))
			assert.Equal(t, tc.wantModified, log.count(event.Modified))
			require.NoError(t, s.verify())
		})
	}
}

func TestStartEndModifyCollapsesEvents(t *testing.T) {
	n := newHelper()
	var log eventLog
	log.node(n)

	n.StartModify()
	n.SetAttribute("a", "1")
	n.StartModify()
	n.SetAttribute("b", "2")
	n.EndModify()
	assert.Zero(t, log.count(event.Modified))
	n.SetName("x")
	n.EndModify()
	assert.Equal(t, 1, log.count(event.Modified))

	n.StartModify()
	n.EndModify()
	assert.Equal(t, 1, log.count(event.Modified), "nothing modified, nothing fired")
	n.EndModify()
	assert.False(t, n.IsModifying())
}

func TestAttributes(t *testing.T) {
	n := newHelper()
	n.SetAttribute("b", "2")
	n.SetAttribute("a", "")
	n.SetAttribute("c", "3")
	n.SetAttribute("", "ignored")

	v, ok := n.Attribute("a")
	assert.True(t, ok)
	assert.Equal(t, "", v)
	_, ok = n.Attribute("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "a", "c"}, n.AttributeNames())

	n.RemoveAttribute("a")
	assert.Equal(t, []string{"b", "c"}, n.AttributeNames())
}

func TestStateEvents(t *testing.T) {
	s := NewScene()
	var log eventLog
	log.scene(s)

	s.StartState(ImportState)
	s.StartState(ImportState)
	assert.True(t, s.IsImporting())
	assert.True(t, s.IsBatchProcessing())
	s.EndState(ImportState)
	s.EndState(ImportState)
	s.EndState(SaveState)

	assert.Equal(t, []string{"StartBatchProcess", "StartImport", "EndImport", "EndBatchProcess"}, log.entries)
	assert.False(t, s.IsBatchProcessing())

	log.reset()
	s.StartState(SaveState)
	s.EndState(SaveState)
	assert.Equal(t, []string{"StartSave", "EndSave"}, log.entries)
}

func TestBatchCollapsesSceneModified(t *testing.T) {
	s := NewScene()
	var log eventLog
	log.scene(s)

	s.StartState(BatchProcessState)
	s.AddNode(newHelper())
	s.AddNode(newHelper())
	assert.Zero(t, log.count(event.SceneModified))
	assert.Equal(t, 2, log.count(event.NodeAdded))
	s.EndState(BatchProcessState)

	assert.Equal(t, 1, log.count(event.SceneModified))
	assert.Equal(t, "SceneModified", log.entries[len(log.entries)-1])
}

func TestClear(t *testing.T) {
	s := NewScene()
	s.AddNode(newHelper())
	sel := s.AddNode(NewSelectionNode())
	s.AddNode(newHelper())
	var log eventLog
	log.scene(s)

	s.Clear(false)

	assert.Equal(t, []Node{sel}, s.Nodes())
	assert.Equal(t, "StartBatchProcess", log.entries[0])
	assert.Equal(t, "StartClose", log.entries[1])
	assert.Equal(t, 2, log.count(event.NodeRemoved))

	s.Clear(true)
	assert.Zero(t, s.NumberOfNodes())
	assert.Nil(t, s.SingletonNode("SelectionNode", DefaultSingletonTag))
	require.NoError(t, s.verify())
}

func TestModifiedCounter(t *testing.T) {
	s := NewScene()
	c0 := s.ModifiedCounter()
	n := s.AddNode(newHelper()).(*GenericNode)
	c1 := s.ModifiedCounter()
	n.SetAttribute("k", "v")
	c2 := s.ModifiedCounter()
	n.AddReferenceID("r", "X")
	c3 := s.ModifiedCounter()

	assert.Less(t, c0, c1)
	assert.Less(t, c1, c2)
	assert.Less(t, c2, c3)
}

func TestExtensionIsPerScene(t *testing.T) {
	type key struct{}
	s1, s2 := NewScene(), NewScene()
	calls := 0
	mk := func() any { calls++; return new(int) }

	a := s1.Extension(key{}, mk)
	assert.Same(t, a, s1.Extension(key{}, mk))
	assert.NotSame(t, a, s2.Extension(key{}, mk))
	assert.Equal(t, 2, calls)
}

func TestCreateNodeByClass(t *testing.T) {
	s := NewScene()
	require.NoError(t, s.RegisterNodeClass(NewGenericNode("ModelNode", "Model")))
	require.Error(t, s.RegisterNodeClass(NewGenericNode("OtherModelNode", "Model")))

	n := s.CreateNodeByClass("ModelNode")
	require.NotNil(t, n)
	assert.Equal(t, "Model", n.Tag())
	assert.Nil(t, n.Base().Scene())
	assert.Nil(t, s.CreateNodeByClass("NoSuchNode"))
	assert.Equal(t, []string{"SelectionNode", "ModelNode"}, s.Registry().ClassNames())
}

func TestWriteReadAttributes(t *testing.T) {
	src := NewSelectionNode()
	src.SetID("SelectionNode3")
	src.SetName("sel")
	src.SetDescription("main selection")
	src.SetHideFromEditors(true)
	src.SetAttribute("a;b", "x:y")
	src.SetAttribute("empty", "")
	src.AddReferenceID("", "Default1")
	src.AddReferenceID("unit", "Unit1")
	src.AddReferenceID("unit", "Unit2")
	src.SetActiveVolumeID("Volume1")

	var attrs AttributeList
	src.WriteAttributes(&attrs)
	v, _ := attrs.Get("unitRef")
	assert.Equal(t, "Unit1 Unit2", v)

	dst := NewSelectionNode()
	dst.ReadAttributes(attrs)

	assert.Equal(t, "SelectionNode3", dst.ID())
	assert.Equal(t, "sel", dst.Name())
	assert.Equal(t, "main selection", dst.Description())
	assert.True(t, dst.HideFromEditors())
	assert.Equal(t, src.AttributeNames(), dst.AttributeNames())
	got, _ := dst.Attribute("a;b")
	assert.Equal(t, "x:y", got)
	assert.Equal(t, []string{"Default1"}, dst.ReferenceIDs(""))
	assert.Equal(t, []string{"Unit1", "Unit2"}, dst.ReferenceIDs("unit"))
	assert.Equal(t, "Volume1", dst.ActiveVolumeID())
}

func TestReadAttributesSkipsInvalidValues(t *testing.T) {
	n := newHelper()
	var log eventLog
	log.node(n)

	n.ReadAttributes(AttributeList{
		{Name: "name", Value: "ok"},
		{Name: "selectable", Value: "maybe"},
		{Name: "attributes", Value: "broken"},
		{Name: "hideFromEditors", Value: "true"},
	})

	assert.Equal(t, "ok", n.Name())
	assert.True(t, n.Selectable())
	assert.True(t, n.HideFromEditors())
	assert.Equal(t, 1, log.count(event.Modified))
}
