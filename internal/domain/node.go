package domain

import "chordring/internal/ring"

// Node identifies a DHT peer: its ring identifier and the address the
// transport should dial to reach it. Every reference a State keeps
// (successor, predecessor, successor list, finger targets) carries both,
// since the abstract Transport contract resolves Id to endpoint by having
// each stored pointer remember where it was last seen.
type Node struct {
	ID   ring.ID
	Addr string
}

// Equal reports whether two nodes denote the same ring identifier.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.ID.Equal(other.ID)
}
