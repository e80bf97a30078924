// Package storage provides the local key/value store each DHT node keeps
// for the resources it currently owns.
package storage

import (
	"chordring/internal/domain"
	"chordring/internal/ring"
)

// Storage is the local storage contract a node holds its owned resources
// through. Ownership (the ring interval a key must fall in to live here) is
// decided by the caller, not by Storage itself.
type Storage interface {
	Put(resource domain.Resource)
	Get(id ring.ID) (domain.Resource, error)
	Delete(id ring.ID) error
	Between(from, to ring.ID) []domain.Resource
	All() []domain.Resource
}
