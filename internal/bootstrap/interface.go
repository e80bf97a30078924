// Package bootstrap resolves the initial set of peer addresses a node
// tries to join through, and (for backends that need it) advertises the
// node's own address so later joiners can find it.
package bootstrap

import (
	"context"

	"chordring/internal/domain"
)

// Bootstrap discovers candidate peers to join a ring through, and
// optionally publishes this node's own address for discovery by others.
type Bootstrap interface {
	// Discover returns known peer addresses, best-effort.
	Discover(ctx context.Context) ([]string, error)
	// Register advertises node, a no-op for backends with nothing to publish.
	Register(ctx context.Context, node *domain.Node) error
	// Deregister withdraws a previous Register call.
	Deregister(ctx context.Context, node *domain.Node) error
}
