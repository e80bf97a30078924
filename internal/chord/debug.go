package chord

import "strings"

// IsDead reports whether this node is a singleton that has not joined any
// ring: its own successor is itself and it has no predecessor.
func (s *State) IsDead() bool {
	succ := s.FirstSuccessor()
	pred := s.GetPredecessor()
	return succ != nil && succ.ID.Equal(s.self.ID) && pred == nil
}

// DebugString renders a compact, stable-field-order textual snapshot:
// "<dead?> pre:<short_id> node:<short_id> succ:<short_id> succList:<csv of short_id>"
// where short_id is the first 5 characters of the identifier's decimal
// representation. Intended for humans (REPL, ad hoc inspection), not
// machine parsing.
func (s *State) DebugString() string {
	status := "ALIVE"
	if s.IsDead() {
		status = "DEAD"
	}

	pre := "-"
	if p := s.GetPredecessor(); p != nil {
		pre = p.ID.Short(5)
	}

	succ := "-"
	if n := s.FirstSuccessor(); n != nil {
		succ = n.ID.Short(5)
	}

	var succList []string
	for _, n := range s.SuccessorList() {
		succList = append(succList, n.ID.Short(5))
	}

	return status + " pre:" + pre + " node:" + s.self.ID.Short(5) +
		" succ:" + succ + " succList:" + strings.Join(succList, ",")
}
