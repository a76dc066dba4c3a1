package mrml

import "strconv"

// BuildID joins an ID base and a numeric suffix.
func BuildID(base string, n int) string { return base + strconv.Itoa(n) }

// GenerateUniqueID returns base followed by the next counter value for base
// that no node has ever used and nobody has reserved. Counters only grow, so
// an ID freed by a removal is not handed out again.
func (s *Scene) GenerateUniqueID(base string) string {
	for {
		s.idCounters[base]++
		id := BuildID(base, s.idCounters[base])
		if s.isIDFree(id) {
			return id
		}
	}
}

func (s *Scene) isIDFree(id string) bool {
	if _, ok := s.byID[id]; ok {
		return false
	}
	if _, ok := s.usedIDs[id]; ok {
		return false
	}
	_, ok := s.reserved[id]
	return !ok
}

// GenerateUniqueName returns base when no node carries that name, otherwise
// base_N with the next free N.
func (s *Scene) GenerateUniqueName(base string) string {
	if s.names[base] == 0 {
		return base
	}
	for {
		s.nameCounters[base]++
		name := base + "_" + strconv.Itoa(s.nameCounters[base])
		if s.names[name] == 0 {
			return name
		}
	}
}

// ReserveID claims id so the generator will not produce it. A node declaring
// the reserved ID takes it when added. It fails when id is bound to a node or
// already reserved.
func (s *Scene) ReserveID(id string) bool {
	if id == "" || s.byID[id] != nil {
		return false
	}
	if _, ok := s.reserved[id]; ok {
		return false
	}
	s.reserved[id] = struct{}{}
	return true
}

// ReleaseID drops a reservation.
func (s *Scene) ReleaseID(id string) { delete(s.reserved, id) }

// IsIDReserved reports whether id is reserved and not yet bound.
func (s *Scene) IsIDReserved(id string) bool {
	_, ok := s.reserved[id]
	return ok
}
