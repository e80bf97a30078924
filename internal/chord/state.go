// Package chord implements the Chord overlay itself: per-node ring state,
// finger-table routing, the join/stabilize/notify/fix-fingers/
// check-predecessor maintenance protocol, successor-list failover, and the
// RPC handlers a node exposes to its peers.
package chord

import (
	"fmt"
	"sync"
	"time"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
	"chordring/internal/storage"
	"chordring/internal/transport"
)

// defaultFailureTimeout bounds the maintenance RPCs a node sends directly to
// a neighbour (stabilize, successor-list refresh, predecessor check,
// resource-repair transfer), so a single unreachable neighbour can never
// stall those rounds indefinitely. Lookups made through FindSuccessor are
// bounded only by the caller's context.
const defaultFailureTimeout = 2 * time.Second

// nodeEntry is a single mutex-guarded pointer slot, the same fine-grained
// locking unit used for every individually-updatable field of State
// (predecessor, each successor-list slot, each finger).
type nodeEntry struct {
	mu   sync.RWMutex
	node *domain.Node
}

func (e *nodeEntry) get() *domain.Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.node
}

func (e *nodeEntry) set(n *domain.Node) {
	e.mu.Lock()
	e.node = n
	e.mu.Unlock()
}

// FingerEntry is one row of the finger table: the ring position it was
// computed for, and the node currently believed to own it.
type FingerEntry struct {
	Start ring.ID
	entry *nodeEntry
}

// Node returns the finger's current target, or nil if unresolved.
func (f *FingerEntry) Node() *domain.Node { return f.entry.get() }

// State is a node's full view of the ring: its own identity, its
// predecessor, its successor list (for failover), its finger table (for
// logarithmic routing) and its local resource storage. Each field is
// guarded independently so unrelated updates (e.g. stabilize updating the
// successor while fix_fingers updates a finger) never contend.
type State struct {
	lgr   logger.Logger
	space ring.Space
	m     int // bits in the identifier space == len(fingers)

	self          *domain.Node
	predecessor   *nodeEntry
	successorList []*nodeEntry
	succListSize  int
	fingers       []*FingerEntry

	storage   storage.Storage
	transport transport.Transport

	failureTimeout time.Duration

	fixFingerMu   sync.Mutex
	fixFingerNext int // round-robin counter into fingers, mod m (spec.md §9 fix)
}

// WithFailureTimeout overrides the default per-RPC timeout maintenance
// operations use when contacting a peer.
func WithFailureTimeout(d time.Duration) Option {
	return func(s *State) {
		if d > 0 {
			s.failureTimeout = d
		}
	}
}

// Option customizes State construction.
type Option func(*State)

// WithLogger sets the logger used for structured diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.lgr = l
		}
	}
}

// New builds a State for self in the given identifier space, with
// succListSize successor-list slots and an M-entry finger table (M ==
// space.Bits). All slots start unresolved (nil); call InitSingleNode or
// Join to populate them.
func New(self *domain.Node, space ring.Space, succListSize int, store storage.Storage, tr transport.Transport, opts ...Option) *State {
	s := &State{
		lgr:            &logger.NopLogger{},
		space:          space,
		m:              space.Bits,
		self:           self,
		predecessor:    &nodeEntry{},
		successorList:  make([]*nodeEntry, succListSize),
		succListSize:   succListSize,
		fingers:        make([]*FingerEntry, space.Bits),
		storage:        store,
		transport:      tr,
		failureTimeout: defaultFailureTimeout,
	}
	for i := range s.successorList {
		s.successorList[i] = &nodeEntry{}
	}
	for i := range s.fingers {
		s.fingers[i] = &FingerEntry{
			Start: space.FingerStart(self.ID, i),
			entry: &nodeEntry{},
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lgr.Debug("chord state initialized", logger.F("m", s.m), logger.F("succListSize", succListSize))
	return s
}

// InitSingleNode configures the state to represent a fresh, one-member
// ring: the first successor and every finger target self, predecessor stays
// unset until the first notify. Successor-list slots after the first are
// left as they are.
func (s *State) InitSingleNode() {
	s.successorList[0].set(s.self)
	s.predecessor.set(nil)
	for _, f := range s.fingers {
		f.entry.set(s.self)
	}
	s.lgr.Debug("state reset to single-node ring")
}

func (s *State) Self() *domain.Node   { return s.self }
func (s *State) Space() ring.Space    { return s.space }
func (s *State) M() int               { return s.m }
func (s *State) SuccListSize() int    { return s.succListSize }
func (s *State) Storage() storage.Storage { return s.storage }

// GetPredecessor returns the current predecessor, or nil if unset.
func (s *State) GetPredecessor() *domain.Node { return s.predecessor.get() }

// SetPredecessor updates the predecessor pointer.
func (s *State) SetPredecessor(n *domain.Node) {
	s.predecessor.set(n)
	s.lgr.Debug("predecessor updated", logger.FNode("predecessor", n))
}

// GetSuccessor returns the i-th successor-list entry, or nil if index is
// out of range or unresolved.
func (s *State) GetSuccessor(i int) *domain.Node {
	if i < 0 || i >= len(s.successorList) {
		return nil
	}
	return s.successorList[i].get()
}

// FirstSuccessor is a convenience for GetSuccessor(0).
func (s *State) FirstSuccessor() *domain.Node { return s.GetSuccessor(0) }

// SetSuccessor updates the i-th successor-list entry.
func (s *State) SetSuccessor(i int, n *domain.Node) {
	if i < 0 || i >= len(s.successorList) {
		s.lgr.Warn("SetSuccessor: index out of range", logger.F("index", i))
		return
	}
	s.successorList[i].set(n)
}

// SuccessorList returns a snapshot slice of the non-nil successor entries,
// in order, first successor first.
func (s *State) SuccessorList() []*domain.Node {
	out := make([]*domain.Node, 0, len(s.successorList))
	for _, e := range s.successorList {
		if n := e.get(); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// SetSuccessorList replaces the whole successor list; nodes must have the
// same length as the configured succListSize.
func (s *State) SetSuccessorList(nodes []*domain.Node) {
	if len(nodes) != len(s.successorList) {
		s.lgr.Warn("SetSuccessorList: length mismatch",
			logger.F("expected", len(s.successorList)), logger.F("got", len(nodes)))
		return
	}
	for i, n := range nodes {
		s.successorList[i].set(n)
	}
}

// PromoteCandidate restructures the successor list so the entry at index i
// becomes the new head (index 0), shifting the tail forward and padding
// with nils. Used when the current successor is declared dead.
func (s *State) PromoteCandidate(i int) {
	if i <= 0 || i >= s.succListSize {
		s.lgr.Warn("PromoteCandidate: invalid index", logger.F("index", i))
		return
	}
	candidate := s.GetSuccessor(i)
	if candidate == nil {
		s.lgr.Warn("PromoteCandidate: candidate is nil", logger.F("index", i))
		return
	}
	newList := make([]*domain.Node, 0, s.succListSize)
	newList = append(newList, candidate)
	for j := i + 1; j < s.succListSize; j++ {
		if n := s.GetSuccessor(j); n != nil {
			newList = append(newList, n)
		}
	}
	for len(newList) < s.succListSize {
		newList = append(newList, nil)
	}
	s.SetSuccessorList(newList)
}

// Finger returns the i-th finger-table entry.
func (s *State) Finger(i int) *FingerEntry {
	if i < 0 || i >= len(s.fingers) {
		return nil
	}
	return s.fingers[i]
}

// SetFinger updates the node backing the i-th finger.
func (s *State) SetFinger(i int, n *domain.Node) {
	if i < 0 || i >= len(s.fingers) {
		s.lgr.Warn("SetFinger: index out of range", logger.F("index", i))
		return
	}
	s.fingers[i].entry.set(n)
}

// NextFixFingerIndex returns the next finger index fix_fingers should
// refresh, advancing the internal round-robin counter modulo m (spec.md §9:
// the counter must wrap at m, not m-1 -- an off-by-one in the naive
// implementation would leave finger[m-1] never refreshed).
func (s *State) NextFixFingerIndex() int {
	s.fixFingerMu.Lock()
	defer s.fixFingerMu.Unlock()
	i := s.fixFingerNext
	s.fixFingerNext = (s.fixFingerNext + 1) % s.m
	return i
}

// String implements fmt.Stringer with a short human-readable summary,
// useful in ad hoc log lines that don't need the full DebugString format.
func (s *State) String() string {
	return fmt.Sprintf("node(%s)", s.self.ID.Short(5))
}
