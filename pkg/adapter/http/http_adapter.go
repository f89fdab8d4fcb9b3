// Package http exposes the CasaHub application over HTTP.
//
// The surface is deliberately thin: every handler resolves its component
// through the facade, translates the request into one component call, and
// maps the outcome back to a status code. All domain rules (size ceilings,
// media-type allowlist, pagination clamping, duplicate detection) live in
// the components, never here.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/casahub/casahub/internal/logger"
	"github.com/casahub/casahub/pkg/adapter"
	"github.com/casahub/casahub/pkg/catalog"
	"github.com/casahub/casahub/pkg/facade"
	"github.com/casahub/casahub/pkg/metrics"
)

var _ adapter.Adapter = (*HTTPAdapter)(nil)

// HTTPAdapter implements the adapter.Adapter interface over plain net/http.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections)
//  3. In-flight requests drain, bounded by ShutdownTimeout
//
// Thread safety:
// All methods are safe for concurrent use. Stop is idempotent.
type HTTPAdapter struct {
	config HTTPConfig
	app    *facade.App

	// builder translates listing query parameters; immutable after New.
	builder *catalog.Builder

	server *http.Server

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
}

// HTTPConfig holds configuration parameters for the HTTP server.
type HTTPConfig struct {
	// ListenAddress is the host:port to bind, e.g. ":8080".
	ListenAddress string

	// ShutdownTimeout bounds the drain of in-flight requests during
	// graceful shutdown. Defaults to 30s.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout guards against slow-header clients.
	// Defaults to 10s.
	ReadHeaderTimeout time.Duration
}

func (c *HTTPConfig) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = ":8080"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = 10 * time.Second
	}
}

// New creates an HTTP adapter serving the given application.
func New(app *facade.App, config HTTPConfig) *HTTPAdapter {
	config.applyDefaults()

	a := &HTTPAdapter{
		config: config,
		app:    app,
		builder: catalog.NewBuilder(catalog.BuilderConfig{
			DefaultPageSize: app.Config().Catalog.DefaultPageSize,
			MaxPageSize:     app.Config().Catalog.MaxPageSize,
		}),
	}

	a.server = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return a
}

// Handler returns the routing table. Exposed so tests can drive the
// adapter without binding a socket.
func (a *HTTPAdapter) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/media", a.handleUpload)
	mux.HandleFunc("GET /api/media/{id}", a.handleDownload)
	mux.HandleFunc("GET /api/media/{id}/info", a.handleMediaInfo)
	mux.HandleFunc("DELETE /api/media/{id}", a.handleDeleteMedia)

	mux.HandleFunc("GET /api/listings", a.handleListings)
	mux.HandleFunc("GET /api/listings/search", a.handleSearch)
	mux.HandleFunc("GET /api/listings/stats", a.handleStats)
	mux.HandleFunc("POST /api/listings/import", a.handleImport)

	mux.HandleFunc("GET /healthz", a.handleHealth)

	if metrics.IsEnabled() {
		mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	return mux
}

// Serve starts the HTTP server and blocks until the context is cancelled
// or an unrecoverable error occurs.
func (a *HTTPAdapter) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.ListenAddress, err)
	}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		listener.Close()
		return nil
	}
	a.listener = listener
	a.mu.Unlock()

	logger.Info("HTTP server listening on %s", listener.Addr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		if err := a.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		<-serveErr
		return ctx.Err()

	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Stop gracefully shuts the server down, draining in-flight requests until
// the context expires. Safe to call more than once.
func (a *HTTPAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	a.mu.Unlock()

	logger.Info("Stopping HTTP server...")
	return a.server.Shutdown(ctx)
}

// Protocol returns "HTTP".
func (a *HTTPAdapter) Protocol() string {
	return "HTTP"
}

// Port returns the bound TCP port, or 0 before Serve.
func (a *HTTPAdapter) Port() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return 0
	}
	if addr, ok := a.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
