package http

import (
	"context"
	"fmt"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casahub/casahub/pkg/config"
	"github.com/casahub/casahub/pkg/facade"
)

// newTestAdapter builds an adapter over a memory-backed application.
func newTestAdapter(t *testing.T) (*HTTPAdapter, *facade.App) {
	t.Helper()

	var cfg config.Config
	config.ApplyDefaults(&cfg)

	app, err := facade.Init(context.Background(), &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	return New(app, HTTPConfig{}), app
}

func TestServeAndGracefulShutdown(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	adapter.config.ListenAddress = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- adapter.Serve(ctx)
	}()

	// Wait for the listener to come up.
	var port int
	require.Eventually(t, func() bool {
		port = adapter.Port()
		return port != 0
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := nethttp.Get(fmt.Sprintf("http://127.0.0.1:%d/healthz", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-serveErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	ctx := context.Background()
	require.NoError(t, adapter.Stop(ctx))
	require.NoError(t, adapter.Stop(ctx))
}

func TestProtocolName(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	assert.Equal(t, "HTTP", adapter.Protocol())
	assert.Zero(t, adapter.Port())
}

func TestClosedApplicationReportsUnavailable(t *testing.T) {
	adapter, app := newTestAdapter(t)
	require.NoError(t, app.Close(context.Background()))

	for _, path := range []string{
		"/api/listings",
		"/api/listings/search?q=villa",
		"/api/listings/stats",
		"/api/media/some-id/info",
		"/healthz",
	} {
		rec := doRequest(t, adapter, "GET", path, nil, "")
		assert.Equal(t, nethttp.StatusServiceUnavailable, rec.Code, path)
	}
}
