package mrml

import (
	"fmt"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/event"
)

func newHelper() *GenericNode { return NewGenericNode("NodeHelper", "Helper") }

// holderNode keeps a node ID in a plain field, outside the reference list.
type holderNode struct {
	BaseNode
	volumeID string
}

func newHolderNode() *holderNode {
	n := &holderNode{}
	n.Init(n)
	return n
}

func (n *holderNode) ClassName() string { return "HolderNode" }
func (n *holderNode) Tag() string       { return "Holder" }
func (n *holderNode) New() Node         { return newHolderNode() }

func (n *holderNode) UpdateReferenceID(oldID, newID string) {
	n.BaseNode.UpdateReferenceID(oldID, newID)
	if n.volumeID == oldID {
		n.volumeID = newID
	}
}

// eventLog collects events from several sources into one ordered list.
type eventLog struct {
	entries []string
	events  []event.Event
}

func (l *eventLog) scene(s *Scene) {
	s.Subscribe(func(ev event.Event) {
		l.events = append(l.events, ev)
		if n, ok := ev.Payload.(Node); ok {
			l.entries = append(l.entries, fmt.Sprintf("%s %s", ev.Kind, n.Base().ID()))
			return
		}
		l.entries = append(l.entries, ev.Kind.String())
	})
}

func (l *eventLog) node(n Node) {
	n.Base().Subscribe(func(ev event.Event) {
		l.events = append(l.events, ev)
		if r, ok := ev.Payload.(ReferenceEvent); ok {
			l.entries = append(l.entries, fmt.Sprintf("%s %s->%s", ev.Kind, n.Base().ID(), r.TargetID))
			return
		}
		l.entries = append(l.entries, fmt.Sprintf("%s %s", ev.Kind, n.Base().ID()))
	})
}

func (l *eventLog) count(kind event.Kind) int {
	c := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			c++
		}
	}
	return c
}

func (l *eventLog) reset() {
	l.entries = nil
	l.events = nil
}
