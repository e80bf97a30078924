package chord

import (
	"context"
	"errors"

	"chordring/internal/domain"
	"chordring/internal/logger"
)

// CreateNewDHT initializes self as the sole member of a brand-new ring.
func (s *State) CreateNewDHT() {
	s.InitSingleNode()
	s.lgr.Info("created new ring", logger.FNode("self", s.self))
}

// Join contacts bootstrap peers in order and, on the first reachable one,
// resolves self's successor by asking it to find the successor of self's
// own id. That lookup is the only RPC Join makes per peer tried: every
// other piece of state (predecessor, successor list, fingers) converges
// afterwards through the periodic maintenance ticks, never synchronously.
func (s *State) Join(ctx context.Context, bootstrap []*domain.Node) error {
	var lastErr error
	for _, peer := range bootstrap {
		if peer == nil || peer.ID.Equal(s.self.ID) {
			continue
		}
		succ, err := s.transport.FindSuccessorForId(ctx, peer, s.self.ID)
		if err != nil {
			lastErr = err
			s.lgr.Warn("join: bootstrap peer failed", logger.FNode("peer", peer), logger.F("err", err.Error()))
			continue
		}
		s.SetSuccessor(0, succ)
		s.lgr.Info("joined ring", logger.FNode("bootstrap", peer), logger.FNode("successor", succ))
		return nil
	}
	if lastErr != nil {
		return errors.Join(ErrJoinFailed, lastErr)
	}
	return ErrJoinFailed
}

// Stabilize verifies the current successor is still the right one: it asks
// the successor for its own predecessor, adopts that predecessor as our
// successor if it is a closer fit, then notifies the (possibly updated)
// successor that we may be its predecessor. If the successor is
// unreachable, it is replaced by the next non-nil entry in the successor
// list (that entry is not probed first; a dead one is caught on a later
// round); if the list has no other entry, the node reverts to single-node
// mode.
func (s *State) Stabilize(ctx context.Context) {
	succ := s.FirstSuccessor()
	if succ == nil {
		s.lgr.Error("stabilize: no successor set")
		return
	}

	var pred *domain.Node
	unreachable := false
	if succ.ID.Equal(s.self.ID) {
		pred = s.GetPredecessor()
	} else {
		cctx, cancel := context.WithTimeout(ctx, s.failureTimeout)
		p, err := s.transport.GetPredecessor(cctx, succ)
		cancel()
		if err != nil {
			s.lgr.Warn("stabilize: successor unreachable", logger.FNode("successor", succ), logger.F("err", err.Error()))
			unreachable = true
		} else {
			pred = p
		}
	}

	if unreachable {
		if !s.promoteNextSuccessor(succ) {
			s.lgr.Warn("stabilize: no live successor candidates, reverting to single-node mode")
			s.InitSingleNode()
			return
		}
		succ = s.FirstSuccessor()
	} else if pred != nil && !pred.ID.Equal(s.self.ID) && pred.ID.Within(s.self.ID, succ.ID, false, false) {
		s.SetSuccessor(0, pred)
		succ = pred
	}

	if succ.ID.Equal(s.self.ID) {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.failureTimeout)
	defer cancel()
	if err := s.transport.Notify(cctx, succ, s.self); err != nil {
		s.lgr.Warn("stabilize: notify failed", logger.FNode("successor", succ), logger.F("err", err.Error()))
	}
}

// promoteNextSuccessor shifts the first non-nil candidate after slot 0 in
// the successor list into slot 0 and reports whether one was found. The
// candidate's liveness is not checked here.
func (s *State) promoteNextSuccessor(dead *domain.Node) bool {
	for i := 1; i < s.succListSize; i++ {
		if s.GetSuccessor(i) != nil {
			s.PromoteCandidate(i)
			s.lgr.Info("stabilize: promoted successor candidate",
				logger.FNode("dead", dead), logger.FNode("promoted", s.GetSuccessor(0)))
			return true
		}
	}
	return false
}

// FixSuccessorList refreshes the successor list by asking the first
// successor for its own list, keeping slot 0 as our own successor and
// filling the remaining slots with the successor's list shifted by one.
func (s *State) FixSuccessorList(ctx context.Context) {
	succ := s.FirstSuccessor()
	if succ == nil || succ.ID.Equal(s.self.ID) {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.failureTimeout)
	remote, err := s.transport.GetSuccessorsList(cctx, succ)
	cancel()
	if err != nil {
		s.lgr.Warn("fix_successor_list: could not fetch list", logger.FNode("successor", succ), logger.F("err", err.Error()))
		return
	}

	newList := make([]*domain.Node, s.succListSize)
	newList[0] = succ
	for i := 1; i < s.succListSize; i++ {
		if i-1 < len(remote) && remote[i-1] != nil && !remote[i-1].ID.Equal(s.self.ID) {
			newList[i] = remote[i-1]
		}
	}
	s.SetSuccessorList(newList)
}

// FixFingers refreshes one finger-table entry per call, round-robin over
// the m entries, so a full table refresh is amortized across many ticks
// instead of bursting m lookups at once.
func (s *State) FixFingers(ctx context.Context) {
	i := s.NextFixFingerIndex()
	finger := s.Finger(i)
	succ, err := s.FindSuccessor(ctx, finger.Start)
	if err != nil {
		s.lgr.Warn("fix_fingers: lookup failed", logger.F("index", i), logger.F("err", err.Error()))
		return
	}
	s.SetFinger(i, succ)
}

// CheckPredecessor pings the current predecessor and clears it if it does
// not answer, so a dead predecessor's ownership claim does not linger and
// block this node from absorbing its keys.
func (s *State) CheckPredecessor(ctx context.Context) {
	pred := s.GetPredecessor()
	if pred == nil || pred.ID.Equal(s.self.ID) {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.failureTimeout)
	err := s.transport.Ping(cctx, pred)
	cancel()
	if err != nil {
		s.lgr.Warn("check_predecessor: predecessor unresponsive, clearing", logger.FNode("predecessor", pred), logger.F("err", err.Error()))
		s.SetPredecessor(nil)
	}
}

// ResourceRepair scans locally-stored resources outside the (predecessor,
// self] ownership interval and hands each one to whichever node a fresh
// lookup says is now actually responsible. This is how ownership changes
// triggered elsewhere (a join inserting a new owner between us and our
// predecessor, stale handoffs) eventually get reconciled, instead of
// relying solely on the asynchronous handoff HandleNotify starts.
func (s *State) ResourceRepair(ctx context.Context) {
	pred := s.GetPredecessor()
	if pred == nil {
		return
	}
	resources := s.storage.Between(s.self.ID, pred.ID)
	if len(resources) == 0 {
		return
	}
	for _, res := range resources {
		owner, err := s.FindSuccessor(ctx, res.Key)
		if err != nil || owner == nil {
			s.lgr.Warn("resource_repair: lookup failed", logger.F("key", res.RawKey), logger.F("err", err))
			continue
		}
		if owner.ID.Equal(s.self.ID) {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, s.failureTimeout)
		err = s.transport.StoreValue(cctx, owner, res)
		cancel()
		if err != nil {
			s.lgr.Warn("resource_repair: transfer failed", logger.F("key", res.RawKey), logger.FNode("owner", owner), logger.F("err", err.Error()))
			continue
		}
		if err := s.storage.Delete(res.Key); err != nil {
			s.lgr.Warn("resource_repair: delete after transfer failed", logger.F("key", res.RawKey), logger.F("err", err))
			continue
		}
		s.lgr.Info("resource_repair: resource handed off", logger.F("key", res.RawKey), logger.FNode("owner", owner))
	}
}
