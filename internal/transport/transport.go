// Package transport defines the abstract RPC surface a Chord node uses to
// talk to its peers, decoupled from any concrete network stack. Request
// routing from an Id to a physical endpoint is resolved by whoever holds a
// *domain.Node (it always carries an Addr alongside the Id); Transport only
// needs the Addr to dial.
package transport

import (
	"context"
	"errors"

	"chordring/internal/domain"
	"chordring/internal/ring"
)

// Sentinel errors every Transport implementation normalizes its failures
// to, so callers in internal/chord never depend on a concrete RPC stack's
// error types.
var (
	// ErrUnreachable means the peer could not be dialed or did not respond
	// in time. It is never fatal to the protocol: it demotes the peer
	// (successor-list failover, predecessor clearing) but the overlay keeps
	// running.
	ErrUnreachable = errors.New("transport: peer unreachable")

	// ErrNotFound means the peer was reached but reports the requested key
	// does not exist locally. Surfaced to the caller unchanged.
	ErrNotFound = errors.New("transport: key not found")

	// ErrNotResponsible means the peer was reached but does not currently
	// own the given key's ownership interval.
	ErrNotResponsible = errors.New("transport: peer not responsible for key")
)

// Transport is the outbound RPC surface a node uses to contact a peer. It
// implements the seven core RPCs (FindSuccessorForId through
// GetStorageValue) plus the two supplemented storage-write operations
// (StoreValue, RemoveValue).
type Transport interface {
	// FindSuccessorForId asks peer to resolve id to its owning successor.
	FindSuccessorForId(ctx context.Context, peer *domain.Node, id ring.ID) (*domain.Node, error)

	// GetSuccessorId returns peer's first successor.
	GetSuccessorId(ctx context.Context, peer *domain.Node) (*domain.Node, error)

	// GetPredecessor returns peer's current predecessor, or nil if unset.
	GetPredecessor(ctx context.Context, peer *domain.Node) (*domain.Node, error)

	// Notify informs peer that candidate may be its predecessor.
	Notify(ctx context.Context, peer *domain.Node, candidate *domain.Node) error

	// Ping checks liveness only.
	Ping(ctx context.Context, peer *domain.Node) error

	// GetSuccessorsList returns peer's full successor list.
	GetSuccessorsList(ctx context.Context, peer *domain.Node) ([]*domain.Node, error)

	// GetStorageValue reads a value peer stores locally.
	GetStorageValue(ctx context.Context, peer *domain.Node, key ring.ID) ([]byte, error)

	// StoreValue asks peer to store a value locally.
	StoreValue(ctx context.Context, peer *domain.Node, res domain.Resource) error

	// RemoveValue asks peer to delete a locally-stored value.
	RemoveValue(ctx context.Context, peer *domain.Node, key ring.ID) error
}

// Handler is the inbound side of Transport: what a node exposes to serve
// incoming RPCs. internal/chord's protocol.go implements it; transport
// implementations (simulator, grpcnet) wire inbound requests to it.
type Handler interface {
	HandleFindSuccessorForId(ctx context.Context, id ring.ID) (*domain.Node, error)
	HandleGetSuccessorId(ctx context.Context) (*domain.Node, error)
	HandleGetPredecessor(ctx context.Context) (*domain.Node, error)
	HandleNotify(ctx context.Context, candidate *domain.Node) error
	HandlePing(ctx context.Context) error
	HandleGetSuccessorsList(ctx context.Context) ([]*domain.Node, error)
	HandleGetStorageValue(ctx context.Context, key ring.ID) ([]byte, error)
	HandleStoreValue(ctx context.Context, res domain.Resource) error
	HandleRemoveValue(ctx context.Context, key ring.ID) error
}
