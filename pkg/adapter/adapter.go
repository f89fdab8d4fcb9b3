package adapter

import (
	"context"
)

// Adapter represents an external-facing transport adapter managed by the
// CasaHub process.
//
// Each adapter exposes the application over one transport (currently HTTP)
// and provides a unified interface for lifecycle management. Adapters are
// constructed with a ready facade handle and never own backends themselves.
//
// Lifecycle:
//  1. Creation: Adapter is created with transport-specific configuration
//     and the application handle
//  2. Startup: Serve() starts the transport server and blocks until shutdown
//  3. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. Stop() may be called
// concurrently with Serve().
type Adapter interface {
	// Serve starts the transport server and blocks until the context is
	// cancelled or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	//   - Stop accepting new connections
	//   - Wait for active requests to complete (with timeout)
	//   - Clean up resources
	//   - Return context.Canceled or nil
	//
	// Parameters:
	//   - ctx: Controls the server lifecycle. Cancellation triggers shutdown.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - context.Canceled if cancelled via context
	//   - error if startup fails or shutdown is not graceful
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown of the transport server.
	//
	// Implementations must:
	//   - Be safe to call multiple times (idempotent)
	//   - Be safe to call concurrently with Serve()
	//   - Respect the context timeout for shutdown operations
	//
	// Parameters:
	//   - ctx: Controls the shutdown timeout. When cancelled, force cleanup.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable transport name for logging.
	//
	// The returned value should be constant for the lifecycle of the
	// adapter.
	Protocol() string

	// Port returns the TCP port the adapter is listening on.
	//
	// Returns 0 if the adapter has not yet started.
	Port() int
}
