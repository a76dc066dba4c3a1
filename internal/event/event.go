package event

import "fmt"

// Kind identifies what happened. The built-in kinds form the closed vocabulary
// shared by nodes and scenes; applications may define their own kinds at or
// above UserKind.
type Kind int

const (
	// Node events.
	Modified Kind = iota + 1
	ReferenceAdded
	ReferenceModified
	ReferenceRemoved

	// Scene events.
	NodeAboutToBeAdded
	NodeAdded
	NodeAboutToBeRemoved
	NodeRemoved
	SceneModified

	// Scene state transitions.
	StartBatchProcess
	EndBatchProcess
	StartClose
	EndClose
	StartImport
	EndImport
	StartRestore
	EndRestore
	StartSave
	EndSave
)

// UserKind is the first kind available for application-defined events.
const UserKind Kind = 1000

var kindNames = map[Kind]string{
	Modified:             "Modified",
	ReferenceAdded:       "ReferenceAdded",
	ReferenceModified:    "ReferenceModified",
	ReferenceRemoved:     "ReferenceRemoved",
	NodeAboutToBeAdded:   "NodeAboutToBeAdded",
	NodeAdded:            "NodeAdded",
	NodeAboutToBeRemoved: "NodeAboutToBeRemoved",
	NodeRemoved:          "NodeRemoved",
	SceneModified:        "SceneModified",
	StartBatchProcess:    "StartBatchProcess",
	EndBatchProcess:      "EndBatchProcess",
	StartClose:           "StartClose",
	EndClose:             "EndClose",
	StartImport:          "StartImport",
	EndImport:            "EndImport",
	StartRestore:         "StartRestore",
	EndRestore:           "EndRestore",
	StartSave:            "StartSave",
	EndSave:              "EndSave",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	if k >= UserKind {
		return fmt.Sprintf("User+%d", int(k-UserKind))
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is delivered synchronously to every subscriber of the emitting object.
type Event struct {
	Kind    Kind
	Source  any // the node or scene that emitted the event
	Payload any // optional, kind specific
}
