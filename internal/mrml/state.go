package mrml

import "github.com/gyaneshwarpardhi/mrmlscene/internal/event"

// State is a coarse scene operating mode. States nest: each StartState must
// be matched by an EndState, and only the outermost pair fires events.
type State int

const (
	BatchProcessState State = iota
	CloseState
	ImportState
	RestoreState
	SaveState
)

var stateEvents = map[State][2]event.Kind{
	BatchProcessState: {event.StartBatchProcess, event.EndBatchProcess},
	CloseState:        {event.StartClose, event.EndClose},
	ImportState:       {event.StartImport, event.EndImport},
	RestoreState:      {event.StartRestore, event.EndRestore},
	SaveState:         {event.StartSave, event.EndSave},
}

func (st State) String() string {
	switch st {
	case BatchProcessState:
		return "BatchProcess"
	case CloseState:
		return "Close"
	case ImportState:
		return "Import"
	case RestoreState:
		return "Restore"
	case SaveState:
		return "Save"
	}
	return "Unknown"
}

// impliesBatch reports whether entering st also enters BatchProcessState.
func (st State) impliesBatch() bool {
	return st == CloseState || st == ImportState || st == RestoreState
}

// StartState enters st. Close, Import and Restore enter BatchProcess first,
// so the batch start event precedes the state's own start event.
func (s *Scene) StartState(st State) {
	if _, ok := stateEvents[st]; !ok {
		s.logger.Warn("unknown scene state", "state", int(st))
		return
	}
	if st.impliesBatch() {
		s.StartState(BatchProcessState)
	}
	s.states[st]++
	if s.states[st] == 1 {
		s.invoke(stateEvents[st][0], nil)
	}
}

// EndState leaves st. Leaving the outermost Import announces the nodes it
// inserted before EndImport fires; leaving the outermost BatchProcess fires
// EndBatchProcess and then one SceneModified if anything changed meanwhile.
func (s *Scene) EndState(st State) {
	if s.states[st] == 0 {
		s.logger.Warn("EndState without StartState", "state", st.String())
		return
	}
	s.states[st]--
	if s.states[st] == 0 {
		if st == ImportState {
			s.flushDeferred()
		}
		s.invoke(stateEvents[st][1], nil)
		if st == BatchProcessState && s.batchDirty {
			s.batchDirty = false
			s.invoke(event.SceneModified, nil)
		}
	}
	if st.impliesBatch() {
		s.EndState(BatchProcessState)
	}
}

func (s *Scene) flushDeferred() {
	for len(s.deferred) > 0 {
		n := s.deferred[0]
		s.deferred = s.deferred[1:]
		if n.Base().scene != s {
			continue
		}
		s.announce(n)
	}
}

// InState reports whether st is currently entered.
func (s *Scene) InState(st State) bool { return s.states[st] > 0 }

func (s *Scene) IsBatchProcessing() bool { return s.InState(BatchProcessState) }
func (s *Scene) IsImporting() bool       { return s.InState(ImportState) }
func (s *Scene) IsClosing() bool         { return s.InState(CloseState) }
func (s *Scene) IsRestoring() bool       { return s.InState(RestoreState) }
func (s *Scene) IsSaving() bool          { return s.InState(SaveState) }
