package chord

import (
	"context"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
)

// FindSuccessor resolves id to the node that owns it: the first node whose
// identifier lies at or after id on the ring. It walks the finger table
// locally as far as possible, then forwards the query to the closest node
// it knows of that precedes id, recursing over the network until that
// remote node reports an id interval it actually owns.
func (s *State) FindSuccessor(ctx context.Context, id ring.ID) (*domain.Node, error) {
	succ := s.FirstSuccessor()
	if succ == nil {
		return nil, ErrNoSuccessor
	}
	if id.Within(s.self.ID, succ.ID, false, true) {
		return succ, nil
	}

	closest := s.ClosestPrecedingNode(id)
	if closest.ID.Equal(s.self.ID) {
		// No finger or successor-list entry is a better hop than ourselves;
		// our own successor view must be stale.
		return succ, nil
	}

	found, err := s.transport.FindSuccessorForId(ctx, closest, id)
	if err != nil {
		s.lgr.Warn("FindSuccessor: forwarding failed, falling back to own successor",
			logger.FNode("peer", closest), logger.F("err", err.Error()))
		return succ, nil
	}
	return found, nil
}

// ClosestPrecedingNode scans the finger table from the highest entry down
// and returns the node among fingers and the successor list closest to but
// strictly before id, without contacting the network. Falling back all the
// way returns self.
func (s *State) ClosestPrecedingNode(id ring.ID) *domain.Node {
	for i := s.m - 1; i >= 0; i-- {
		f := s.fingers[i].Node()
		if f == nil {
			continue
		}
		if f.ID.Within(s.self.ID, id, false, false) {
			return f
		}
	}
	for _, succ := range s.SuccessorList() {
		if succ.ID.Within(s.self.ID, id, false, false) {
			return succ
		}
	}
	return s.self
}
