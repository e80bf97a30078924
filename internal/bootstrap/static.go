package bootstrap

import (
	"context"

	"chordring/internal/domain"
)

// StaticBootstrap returns a fixed, operator-supplied list of peer
// addresses. Nothing to register or deregister.
type StaticBootstrap struct {
	peers []string
}

func NewStaticBootstrap(peers []string) *StaticBootstrap {
	return &StaticBootstrap{peers: peers}
}

func (s *StaticBootstrap) Discover(ctx context.Context) ([]string, error) {
	return s.peers, nil
}

func (s *StaticBootstrap) Register(ctx context.Context, node *domain.Node) error {
	return nil
}

func (s *StaticBootstrap) Deregister(ctx context.Context, node *domain.Node) error {
	return nil
}

var _ Bootstrap = (*StaticBootstrap)(nil)
