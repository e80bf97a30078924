package grpcnet

import (
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"chordring/internal/logger"
)

// poolEntry tracks one cached connection and how many logical owners
// currently depend on it (the successor list, the predecessor pointer,
// the finger table can all reference the same address at once).
type poolEntry struct {
	conn     *grpc.ClientConn
	refCount int
}

// Pool caches grpc.ClientConn by address, reference-counted so that an
// address referenced from multiple places in the ring state (successor
// list, predecessor, fingers) shares one underlying connection and is
// only closed once nothing references it anymore. Adapted from the
// simpler address-keyed cache in clientpool.go, generalized to
// reference counting because maintenance's churn (successor list updates,
// predecessor replacement) constantly adds and drops interest in the same
// addresses without a natural single owner.
type Pool struct {
	lgr            logger.Logger
	mu             sync.Mutex
	entries        map[string]*poolEntry
	dialOpts       []grpc.DialOption
	failureTimeout time.Duration
}

// NewPool builds an empty connection pool. extraOpts are appended after
// the default insecure transport credentials.
func NewPool(lgr logger.Logger, failureTimeout time.Duration, extraOpts ...grpc.DialOption) *Pool {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, extraOpts...)
	return &Pool{
		lgr:            lgr,
		entries:        make(map[string]*poolEntry),
		dialOpts:       opts,
		failureTimeout: failureTimeout,
	}
}

// FailureTimeout is the per-RPC deadline maintenance operations should use
// when contacting peers through this pool.
func (p *Pool) FailureTimeout() time.Duration { return p.failureTimeout }

// AddRef records a new logical owner of addr's connection, dialing it if
// this is the first reference.
func (p *Pool) AddRef(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[addr]; ok {
		e.refCount++
		return nil
	}
	conn, err := grpc.NewClient(addr, p.dialOpts...)
	if err != nil {
		return fmt.Errorf("grpcnet: dial %s: %w", addr, err)
	}
	p.entries[addr] = &poolEntry{conn: conn, refCount: 1}
	p.lgr.Debug("pool: connection opened", logger.F("addr", addr))
	return nil
}

// Release drops one logical owner's interest in addr, closing the
// connection once the count reaches zero.
func (p *Pool) Release(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[addr]
	if !ok {
		return nil
	}
	e.refCount--
	if e.refCount > 0 {
		return nil
	}
	delete(p.entries, addr)
	p.lgr.Debug("pool: connection closed", logger.F("addr", addr))
	return e.conn.Close()
}

// GetFromPool returns the cached connection for addr, or an error if
// nothing currently references it.
func (p *Pool) GetFromPool(addr string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[addr]
	if !ok {
		return nil, fmt.Errorf("grpcnet: no pooled connection for %s", addr)
	}
	return e.conn, nil
}

// DialEphemeral opens a connection outside the refcounted pool, for
// one-off contact with a peer nothing currently tracks (e.g. a bootstrap
// address encountered only during join). The caller is responsible for
// closing the returned connection.
func (p *Pool) DialEphemeral(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, p.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpcnet: dial ephemeral %s: %w", addr, err)
	}
	return conn, nil
}

// dial resolves addr to a connection for one RPC call: the pooled
// connection when one exists, otherwise a short-lived ephemeral one that
// is closed via the returned release func once the call completes.
func (p *Pool) dial(addr string) (*grpc.ClientConn, func(), error) {
	if conn, err := p.GetFromPool(addr); err == nil {
		return conn, func() {}, nil
	}
	conn, err := p.DialEphemeral(addr)
	if err != nil {
		return nil, nil, err
	}
	return conn, func() { _ = conn.Close() }, nil
}

// CloseAll closes every connection currently in the pool, regardless of
// reference count. Intended for process shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, e := range p.entries {
		_ = e.conn.Close()
		delete(p.entries, addr)
	}
}
