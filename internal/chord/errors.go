package chord

import "errors"

var (
	// ErrNoSuccessor means the node has not yet resolved any successor,
	// i.e. it has not been initialized as a single-node ring or joined one.
	ErrNoSuccessor = errors.New("chord: node has no successor")

	// ErrAlreadyJoined reports that a node's ring state has already been
	// initialized. Join and CreateNewDHT do not check for this and never
	// return it.
	ErrAlreadyJoined = errors.New("chord: node already part of a ring")

	// ErrJoinFailed means every bootstrap peer was unreachable or refused
	// the join.
	ErrJoinFailed = errors.New("chord: join failed, no reachable bootstrap peer")
)
