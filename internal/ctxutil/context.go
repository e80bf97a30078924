// Package ctxutil provides context.Context construction helpers layered on
// top of internal/trace: trace-id attachment, a hop counter for bounding
// lookup forwarding depth, and context-cancellation checks RPC handlers run
// before doing any work.
package ctxutil

import (
	"context"
	"errors"
	"time"

	"chordring/internal/ring"
	"chordring/internal/trace"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type hopsKey struct{}

// ContextOption configures the behavior of NewContext. Multiple options
// can be combined.
type ContextOption func(*ctxConfig)

type ctxConfig struct {
	withTrace bool
	withHops  bool
	nodeID    ring.ID
	timeout   time.Duration
}

// WithTrace enables attaching a fresh trace id derived from nodeID.
func WithTrace(nodeID ring.ID) ContextOption {
	return func(cfg *ctxConfig) {
		cfg.withTrace = true
		cfg.nodeID = nodeID
	}
}

// WithTimeout sets a timeout duration for the created context. The caller
// must invoke the returned cancel function.
func WithTimeout(d time.Duration) ContextOption {
	return func(cfg *ctxConfig) {
		cfg.timeout = d
	}
}

// WithHops initializes the hop counter at 0 in the context, so forwarding
// a lookup can be bounded against an excessive hop count.
func WithHops() ContextOption {
	return func(cfg *ctxConfig) {
		cfg.withHops = true
	}
}

// NewContext builds a context.Background()-derived context configured by
// opts. Returns a no-op cancel func if no timeout was requested.
func NewContext(opts ...ContextOption) (context.Context, context.CancelFunc) {
	cfg := &ctxConfig{}
	for _, o := range opts {
		o(cfg)
	}

	var ctx context.Context
	cancel := func() {}
	if cfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), cfg.timeout)
	} else {
		ctx = context.Background()
	}
	if cfg.withTrace {
		ctx, _ = trace.AttachTraceID(ctx, cfg.nodeID.Hex())
	}
	if cfg.withHops {
		ctx = context.WithValue(ctx, hopsKey{}, 0)
	}
	return ctx, cancel
}

// TraceIDFromContext extracts the trace id attached to ctx, or "" if none.
func TraceIDFromContext(ctx context.Context) string {
	return trace.GetTraceID(ctx)
}

// EnsureTraceID attaches a fresh trace id derived from nodeID if ctx does
// not already carry one.
func EnsureTraceID(ctx context.Context, nodeID ring.ID) context.Context {
	if id := trace.GetTraceID(ctx); id == "" {
		ctx, _ = trace.AttachTraceID(ctx, nodeID.Hex())
	}
	return ctx
}

// HopsFromContext returns the current hop counter, or -1 if unset.
func HopsFromContext(ctx context.Context) int {
	if hops, ok := ctx.Value(hopsKey{}).(int); ok {
		return hops
	}
	return -1
}

// IncHops increments the hop counter if present; -1 (uncounted) stays -1.
func IncHops(ctx context.Context) context.Context {
	hops, ok := ctx.Value(hopsKey{}).(int)
	if !ok {
		return ctx
	}
	if hops == -1 {
		return ctx
	}
	return context.WithValue(ctx, hopsKey{}, hops+1)
}

// CheckContext reports whether ctx has already been canceled or expired,
// translated to the gRPC status code an RPC handler should return.
// Handlers call this first, before doing any work.
func CheckContext(ctx context.Context) error {
	switch err := ctx.Err(); {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled by client")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	default:
		return nil
	}
}
