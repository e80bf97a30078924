// Package trace attaches a per-request trace identifier to a context.Context,
// so a lookup that hops across several nodes can be correlated in logs.
package trace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type traceKey struct{}

// GenerateTraceID creates a globally unique trace id in the form
// "<nodeID>-<uuid>".
func GenerateTraceID(nodeID string) string {
	return fmt.Sprintf("%s-%s", nodeID, uuid.NewString())
}

// AttachTraceID generates a fresh trace id for nodeID and stores it in ctx.
// Returns the derived context and the generated id.
func AttachTraceID(ctx context.Context, nodeID string) (context.Context, string) {
	traceID := GenerateTraceID(nodeID)
	return context.WithValue(ctx, traceKey{}, traceID), traceID
}

// GetTraceID retrieves the trace id from ctx, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	if v := ctx.Value(traceKey{}); v != nil {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return ""
}
