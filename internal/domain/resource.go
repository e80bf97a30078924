package domain

import (
	"errors"

	"chordring/internal/ring"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrNotResponsible   = errors.New("node not responsible for the given key")
)

// Resource is a stored DHT value. Value is opaque ([]byte), not a fixed
// schema type, so the storage layer and its wire encoding stay agnostic to
// whatever callers choose to put in the ring.
type Resource struct {
	Key    ring.ID
	RawKey string
	Value  []byte
}
