package logging

import (
	"context"

	"github.com/alexisbeaulieu97/portgraph/internal/ports"
)

// WithCorrelationID stores the provided correlation identifier inside the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return ports.WithCorrelationID(ctx, id)
}

// GetCorrelationID retrieves the correlation identifier from the context, returning
// an empty string when none is present.
func GetCorrelationID(ctx context.Context) string {
	return ports.GetCorrelationID(ctx)
}

// NewCorrelatedContext returns ctx carrying a fresh correlation identifier,
// unless one is already present.
func NewCorrelatedContext(ctx context.Context) context.Context {
	if GetCorrelationID(ctx) != "" {
		return ctx
	}
	return ports.WithCorrelationID(ctx, ports.GenerateCorrelationID())
}
