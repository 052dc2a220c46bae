package adapter

import (
	"context"

	"github.com/marmos91/fileshover/pkg/store"
)

// Adapter represents a protocol server that can be managed by server.Server.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Resolver injection: SetResolver() provides the content backend
//  3. Startup: Serve() starts the protocol server and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetResolver() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	//   - Stop accepting new connections
	//   - Wait for active connections to complete (with timeout)
	//   - Clean up resources
	//
	// If Serve returns before context cancellation, server.Server treats it
	// as fatal and stops everything else.
	Serve(ctx context.Context) error

	// SetResolver injects the resolver requests are served from.
	//
	// Called exactly once before Serve().
	SetResolver(resolver store.Resolver)

	// Stop initiates graceful shutdown of the protocol server.
	//
	// Implementations must be idempotent, safe to call concurrently with
	// Serve(), and respect the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and metrics.
	Protocol() string

	// Port returns the TCP port the adapter is listening on.
	Port() int
}
