// Package simulator implements an in-process transport.Transport backed by
// a plain registry of transport.Handler, for single-process tests that
// assemble small rings without opening real sockets. Nodes can be
// disconnected and reconnected with Unplug/Plug to drive the failure
// scenarios spec.md's end-to-end tests describe.
package simulator

import (
	"context"
	"sync"

	"chordring/internal/domain"
	"chordring/internal/ring"
	"chordring/internal/transport"
)

// Network is a shared in-process registry of node handlers, addressed by
// domain.Node.Addr. It implements transport.Transport.
type Network struct {
	mu       sync.RWMutex
	handlers map[string]transport.Handler
	unplugged map[string]bool
}

// NewNetwork returns an empty simulated network.
func NewNetwork() *Network {
	return &Network{
		handlers:  make(map[string]transport.Handler),
		unplugged: make(map[string]bool),
	}
}

// Register attaches addr's inbound handler to the network.
func (n *Network) Register(addr string, h transport.Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[addr] = h
}

// Unregister removes addr from the network entirely.
func (n *Network) Unregister(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.handlers, addr)
	delete(n.unplugged, addr)
}

// Unplug makes addr unreachable without removing it, simulating a node that
// is still alive but partitioned or crashed-and-not-yet-restarted.
func (n *Network) Unplug(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unplugged[addr] = true
}

// Plug restores addr's reachability after Unplug.
func (n *Network) Plug(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.unplugged, addr)
}

func (n *Network) resolve(addr string) (transport.Handler, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.unplugged[addr] {
		return nil, transport.ErrUnreachable
	}
	h, ok := n.handlers[addr]
	if !ok {
		return nil, transport.ErrUnreachable
	}
	return h, nil
}

func (n *Network) FindSuccessorForId(ctx context.Context, peer *domain.Node, id ring.ID) (*domain.Node, error) {
	h, err := n.resolve(peer.Addr)
	if err != nil {
		return nil, err
	}
	return h.HandleFindSuccessorForId(ctx, id)
}

func (n *Network) GetSuccessorId(ctx context.Context, peer *domain.Node) (*domain.Node, error) {
	h, err := n.resolve(peer.Addr)
	if err != nil {
		return nil, err
	}
	return h.HandleGetSuccessorId(ctx)
}

func (n *Network) GetPredecessor(ctx context.Context, peer *domain.Node) (*domain.Node, error) {
	h, err := n.resolve(peer.Addr)
	if err != nil {
		return nil, err
	}
	return h.HandleGetPredecessor(ctx)
}

func (n *Network) Notify(ctx context.Context, peer *domain.Node, candidate *domain.Node) error {
	h, err := n.resolve(peer.Addr)
	if err != nil {
		return err
	}
	return h.HandleNotify(ctx, candidate)
}

func (n *Network) Ping(ctx context.Context, peer *domain.Node) error {
	h, err := n.resolve(peer.Addr)
	if err != nil {
		return err
	}
	return h.HandlePing(ctx)
}

func (n *Network) GetSuccessorsList(ctx context.Context, peer *domain.Node) ([]*domain.Node, error) {
	h, err := n.resolve(peer.Addr)
	if err != nil {
		return nil, err
	}
	return h.HandleGetSuccessorsList(ctx)
}

func (n *Network) GetStorageValue(ctx context.Context, peer *domain.Node, key ring.ID) ([]byte, error) {
	h, err := n.resolve(peer.Addr)
	if err != nil {
		return nil, err
	}
	return h.HandleGetStorageValue(ctx, key)
}

func (n *Network) StoreValue(ctx context.Context, peer *domain.Node, res domain.Resource) error {
	h, err := n.resolve(peer.Addr)
	if err != nil {
		return err
	}
	return h.HandleStoreValue(ctx, res)
}

func (n *Network) RemoveValue(ctx context.Context, peer *domain.Node, key ring.ID) error {
	h, err := n.resolve(peer.Addr)
	if err != nil {
		return err
	}
	return h.HandleRemoveValue(ctx, key)
}

var _ transport.Transport = (*Network)(nil)
