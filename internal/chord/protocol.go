package chord

import (
	"context"
	"errors"
	"fmt"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
	"chordring/internal/transport"
)

// HandleFindSuccessorForId serves a peer's successor lookup.
func (s *State) HandleFindSuccessorForId(ctx context.Context, id ring.ID) (*domain.Node, error) {
	return s.FindSuccessor(ctx, id)
}

// HandleGetSuccessorId serves a peer's request for our first successor.
func (s *State) HandleGetSuccessorId(ctx context.Context) (*domain.Node, error) {
	succ := s.FirstSuccessor()
	if succ == nil {
		return nil, ErrNoSuccessor
	}
	return succ, nil
}

// HandleGetPredecessor serves a peer's request for our predecessor.
func (s *State) HandleGetPredecessor(ctx context.Context) (*domain.Node, error) {
	return s.GetPredecessor(), nil
}

// HandleNotify processes a peer's claim to be our predecessor: candidate
// becomes our predecessor if we have none, or if candidate lies strictly
// between our current predecessor and ourselves.
func (s *State) HandleNotify(ctx context.Context, candidate *domain.Node) error {
	if candidate == nil || candidate.ID.Equal(s.self.ID) {
		return nil
	}
	pred := s.GetPredecessor()
	if pred != nil && !candidate.ID.Within(pred.ID, s.self.ID, false, false) {
		return nil
	}

	s.SetPredecessor(candidate)
	s.lgr.Info("predecessor updated via notify",
		logger.FNode("candidate", candidate), logger.FNode("previous", pred))

	// Hand off resources now owned by the new predecessor: (old_pred, candidate].
	// With no prior predecessor, self was the effective lower bound.
	lower := s.self.ID
	if pred != nil {
		lower = pred.ID
	}
	resources := s.storage.Between(lower, candidate.ID)
	if len(resources) > 0 {
		go s.transferResources(candidate, resources)
	}
	return nil
}

// transferResources pushes resources to newOwner and drops any that were
// accepted from local storage. Run asynchronously so Notify never blocks
// on a remote RPC.
func (s *State) transferResources(newOwner *domain.Node, resources []domain.Resource) {
	ctx := context.Background()
	failed := 0
	for _, r := range resources {
		if err := s.transport.StoreValue(ctx, newOwner, r); err != nil {
			failed++
			s.lgr.Warn("transferResources: failed to push resource to new owner",
				logger.FNode("owner", newOwner), logger.F("err", err.Error()))
			continue
		}
		_ = s.storage.Delete(r.Key)
	}
	if failed > 0 {
		s.lgr.Warn("transferResources: some resources failed to transfer",
			logger.F("failed", failed), logger.F("total", len(resources)))
	} else {
		s.lgr.Info("transferResources: handed off resources to new owner",
			logger.F("count", len(resources)), logger.FNode("owner", newOwner))
	}
}

// HandlePing answers a liveness check.
func (s *State) HandlePing(ctx context.Context) error { return nil }

// HandleGetSuccessorsList serves a peer's request for our successor list.
func (s *State) HandleGetSuccessorsList(ctx context.Context) ([]*domain.Node, error) {
	return s.SuccessorList(), nil
}

// HandleGetStorageValue serves a peer's read of a locally-stored value.
func (s *State) HandleGetStorageValue(ctx context.Context, key ring.ID) ([]byte, error) {
	res, err := s.storage.Get(key)
	if err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return nil, transport.ErrNotFound
		}
		return nil, err
	}
	return res.Value, nil
}

// HandleStoreValue serves a peer's request to store a resource locally.
// This is the node-to-node path; it enforces the ownership interval
// (pred, self] unless no predecessor is known yet (bootstrap phase, where
// the single node in the ring owns everything).
func (s *State) HandleStoreValue(ctx context.Context, res domain.Resource) error {
	pred := s.GetPredecessor()
	if pred != nil && !res.Key.Between(pred.ID, s.self.ID) {
		return domain.ErrNotResponsible
	}
	s.storage.Put(res)
	return nil
}

// HandleRemoveValue serves a peer's request to delete a locally-stored
// resource.
func (s *State) HandleRemoveValue(ctx context.Context, key ring.ID) error {
	if err := s.storage.Delete(key); err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return transport.ErrNotFound
		}
		return err
	}
	return nil
}

var _ transport.Handler = (*State)(nil)

// Put stores a resource on behalf of an external client: it locates the
// owning successor and either stores locally or forwards the write.
func (s *State) Put(ctx context.Context, res domain.Resource) error {
	owner, err := s.FindSuccessor(ctx, res.Key)
	if err != nil {
		return fmt.Errorf("put %s: %w", res.RawKey, err)
	}
	if owner.ID.Equal(s.self.ID) {
		if err := s.HandleStoreValue(ctx, res); err != nil {
			return fmt.Errorf("put %s: store locally: %w", res.RawKey, err)
		}
		return nil
	}
	if err := s.transport.StoreValue(ctx, owner, res); err != nil {
		return fmt.Errorf("put %s: store at %s: %w", res.RawKey, owner.Addr, err)
	}
	return nil
}

// Get retrieves a resource on behalf of an external client.
func (s *State) Get(ctx context.Context, key ring.ID) ([]byte, error) {
	owner, err := s.FindSuccessor(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key.Hex(), err)
	}
	if owner.ID.Equal(s.self.ID) {
		val, err := s.HandleGetStorageValue(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key.Hex(), err)
		}
		return val, nil
	}
	val, err := s.transport.GetStorageValue(ctx, owner, key)
	if err != nil {
		return nil, fmt.Errorf("get %s from %s: %w", key.Hex(), owner.Addr, err)
	}
	return val, nil
}

// Delete removes a resource on behalf of an external client.
func (s *State) Delete(ctx context.Context, key ring.ID) error {
	owner, err := s.FindSuccessor(ctx, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key.Hex(), err)
	}
	if owner.ID.Equal(s.self.ID) {
		if err := s.HandleRemoveValue(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key.Hex(), err)
		}
		return nil
	}
	if err := s.transport.RemoveValue(ctx, owner, key); err != nil {
		return fmt.Errorf("delete %s at %s: %w", key.Hex(), owner.Addr, err)
	}
	return nil
}
