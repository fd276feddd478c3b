package gateway

import (
	"context"

	"github.com/minwoo/labpilot/internal/agent"
)

// Gateway defines the interface for caller-facing surfaces.
type Gateway interface {
	// Start begins serving requests and blocks until the listener stops
	Start() error
	// Stop gracefully shuts down the gateway
	Stop(ctx context.Context) error
}

// QueryHandler is the single core operation a gateway needs.
type QueryHandler interface {
	HandleQuery(ctx context.Context, query string) (agent.FinalAnswer, error)
}
