package chord

import (
	"context"
	"math/big"
	"testing"
	"time"

	"chordring/internal/domain"
	"chordring/internal/logger"
	"chordring/internal/ring"
	"chordring/internal/storage"
	"chordring/internal/transport/simulator"
)

// testRing wires up a small M=6 ring (spec's own literal-scenario bit
// width) of State instances sharing one simulator.Network, addressed by
// decimal id string.
type testRing struct {
	t       *testing.T
	space   ring.Space
	net     *simulator.Network
	succLen int
	nodes   map[string]*State
}

func newTestRing(t *testing.T) *testRing {
	t.Helper()
	space, err := ring.NewSpace(6)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	return &testRing{
		t:       t,
		space:   space,
		net:     simulator.NewNetwork(),
		succLen: 3,
		nodes:   make(map[string]*State),
	}
}

func (r *testRing) idOf(v int64) ring.ID {
	return r.space.FromBigInt(big.NewInt(v))
}

func (r *testRing) addNode(v int64) *State {
	id := r.idOf(v)
	addr := id.Decimal()
	self := &domain.Node{ID: id, Addr: addr}
	store := storage.NewMemoryStorage(&logger.NopLogger{})
	s := New(self, r.space, r.succLen, store, r.net)
	r.net.Register(addr, s)
	r.nodes[addr] = s
	return s
}

func (r *testRing) tick(ctx context.Context, s *State) {
	s.Stabilize(ctx)
	s.FixSuccessorList(ctx)
	for i := 0; i < s.M(); i++ {
		s.FixFingers(ctx)
	}
	s.CheckPredecessor(ctx)
}

func (r *testRing) converge(ctx context.Context, rounds int, states ...*State) {
	for i := 0; i < rounds; i++ {
		for _, s := range states {
			r.tick(ctx, s)
		}
	}
}

func TestSingleNodeRing(t *testing.T) {
	r := newTestRing(t)
	a := r.addNode(10)
	a.CreateNewDHT()

	ctx := context.Background()
	if succ := a.FirstSuccessor(); succ == nil || !succ.ID.Equal(r.idOf(10)) {
		t.Fatalf("expected self successor, got %v", succ)
	}
	if pred := a.GetPredecessor(); pred != nil {
		t.Fatalf("expected no predecessor after InitSingleNode, got %v", pred)
	}

	found, err := a.FindSuccessor(ctx, r.idOf(33))
	if err != nil {
		t.Fatalf("FindSuccessor: %v", err)
	}
	if !found.ID.Equal(r.idOf(10)) {
		t.Fatalf("find_successor(33) = %s, want 10", found.ID.Decimal())
	}
}

func TestTwoNodeJoin(t *testing.T) {
	r := newTestRing(t)
	a := r.addNode(10)
	a.CreateNewDHT()

	b := r.addNode(40)
	ctx := context.Background()
	if err := b.Join(ctx, []*domain.Node{a.Self()}); err != nil {
		t.Fatalf("Join: %v", err)
	}

	r.converge(ctx, 4, a, b)

	if succ := a.FirstSuccessor(); !succ.ID.Equal(r.idOf(40)) {
		t.Fatalf("A.successor = %s, want 40", succ.ID.Decimal())
	}
	if pred := a.GetPredecessor(); pred == nil || !pred.ID.Equal(r.idOf(40)) {
		t.Fatalf("A.predecessor = %v, want 40", pred)
	}
	if succ := b.FirstSuccessor(); !succ.ID.Equal(r.idOf(10)) {
		t.Fatalf("B.successor = %s, want 10", succ.ID.Decimal())
	}
	if pred := b.GetPredecessor(); pred == nil || !pred.ID.Equal(r.idOf(10)) {
		t.Fatalf("B.predecessor = %v, want 10", pred)
	}

	if got, err := a.FindSuccessor(ctx, r.idOf(25)); err != nil || !got.ID.Equal(r.idOf(40)) {
		t.Fatalf("A.find_successor(25) = %v, err %v, want 40", got, err)
	}
	if got, err := a.FindSuccessor(ctx, r.idOf(50)); err != nil || !got.ID.Equal(r.idOf(10)) {
		t.Fatalf("A.find_successor(50) = %v, err %v, want 10", got, err)
	}
	if got, err := b.FindSuccessor(ctx, r.idOf(5)); err != nil || !got.ID.Equal(r.idOf(10)) {
		t.Fatalf("B.find_successor(5) = %v, err %v, want 10", got, err)
	}
}

func TestThreeNodeConvergence(t *testing.T) {
	r := newTestRing(t)
	a := r.addNode(5)
	a.CreateNewDHT()

	b := r.addNode(20)
	c := r.addNode(50)
	ctx := context.Background()
	if err := b.Join(ctx, []*domain.Node{a.Self()}); err != nil {
		t.Fatalf("B.Join: %v", err)
	}
	r.converge(ctx, 4, a, b)
	if err := c.Join(ctx, []*domain.Node{a.Self()}); err != nil {
		t.Fatalf("C.Join: %v", err)
	}
	r.converge(ctx, 8, a, b, c)

	// P4: walking successor pointers returns to start in exactly N steps.
	start := a
	cur := start
	steps := 0
	for {
		cur = r.nodes[cur.FirstSuccessor().Addr]
		steps++
		if cur == start || steps > 10 {
			break
		}
	}
	if steps != 3 {
		t.Fatalf("ring closure: expected 3 steps, got %d", steps)
	}

	if got, err := c.FindSuccessor(ctx, r.idOf(21)); err != nil || !got.ID.Equal(r.idOf(50)) {
		t.Fatalf("C.find_successor(21) = %v, err %v, want 50", got, err)
	}
	if got, err := a.FindSuccessor(ctx, r.idOf(21)); err != nil || !got.ID.Equal(r.idOf(50)) {
		t.Fatalf("A.find_successor(21) = %v, err %v, want 50", got, err)
	}
}

func TestPredecessorFailureIsCleared(t *testing.T) {
	r := newTestRing(t)
	a := r.addNode(10)
	a.CreateNewDHT()
	b := r.addNode(40)
	ctx := context.Background()
	if err := b.Join(ctx, []*domain.Node{a.Self()}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	r.converge(ctx, 4, a, b)

	if pred := a.GetPredecessor(); pred == nil || !pred.ID.Equal(r.idOf(40)) {
		t.Fatalf("expected A.predecessor = 40 before failure")
	}

	r.net.Unplug(b.Self().Addr)
	a.CheckPredecessor(ctx)

	if pred := a.GetPredecessor(); pred != nil {
		t.Fatalf("expected predecessor cleared after failure, got %v", pred)
	}
}

func TestSuccessorListFailover(t *testing.T) {
	r := newTestRing(t)
	a := r.addNode(5)
	a.CreateNewDHT()
	b := r.addNode(20)
	c := r.addNode(50)
	ctx := context.Background()
	if err := b.Join(ctx, []*domain.Node{a.Self()}); err != nil {
		t.Fatalf("B.Join: %v", err)
	}
	r.converge(ctx, 4, a, b)
	if err := c.Join(ctx, []*domain.Node{a.Self()}); err != nil {
		t.Fatalf("C.Join: %v", err)
	}
	r.converge(ctx, 8, a, b, c)

	if succ := a.FirstSuccessor(); !succ.ID.Equal(r.idOf(20)) {
		t.Fatalf("A.successor = %s, want 20 before failover", succ.ID.Decimal())
	}

	r.net.Unplug(b.Self().Addr)
	a.Stabilize(ctx)

	if succ := a.FirstSuccessor(); succ == nil || succ.ID.Equal(r.idOf(20)) {
		t.Fatalf("expected A to fail over away from dead successor 20, got %v", succ)
	}
}

func TestWrapAroundRouting(t *testing.T) {
	r := newTestRing(t)
	a := r.addNode(60)
	a.CreateNewDHT()
	b := r.addNode(2)
	ctx := context.Background()
	if err := b.Join(ctx, []*domain.Node{a.Self()}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	r.converge(ctx, 4, a, b)

	// 63 wraps past the top of the ring to the lowest id, 2.
	got, err := a.FindSuccessor(ctx, r.idOf(63))
	if err != nil {
		t.Fatalf("FindSuccessor: %v", err)
	}
	if !got.ID.Equal(r.idOf(2)) {
		t.Fatalf("find_successor(63) = %s, want 2 (wrap-around)", got.ID.Decimal())
	}
}

func TestDebugStringFormat(t *testing.T) {
	r := newTestRing(t)
	a := r.addNode(10)
	a.CreateNewDHT()
	s := a.DebugString()
	want := "DEAD pre:- node:10 succ:10 succList:10"
	if s != want {
		t.Fatalf("DebugString = %q, want %q", s, want)
	}
}

func TestLifecycleStartStopIdempotent(t *testing.T) {
	r := newTestRing(t)
	a := r.addNode(10)
	a.CreateNewDHT()
	l := NewLifecycle(a, Intervals{
		Stabilize:        10 * time.Millisecond,
		FixFingers:       10 * time.Millisecond,
		CheckPredecessor: 10 * time.Millisecond,
		ResourceRepair:   10 * time.Millisecond,
	})
	l.Start()
	l.Start() // no-op, must not spawn a second set of timers
	time.Sleep(50 * time.Millisecond)
	l.Stop()
	l.Stop() // no-op, must not panic
}
