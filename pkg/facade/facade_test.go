package facade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casahub/casahub/pkg/config"
)

func memoryConfig() *config.Config {
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	return &cfg
}

func TestInitAndClose(t *testing.T) {
	ctx := context.Background()

	app, err := Init(ctx, memoryConfig())
	require.NoError(t, err)
	assert.True(t, app.IsReady())

	uploader, err := app.Uploader()
	require.NoError(t, err)
	assert.NotNil(t, uploader)

	engine, err := app.Engine()
	require.NoError(t, err)
	assert.NotNil(t, engine)

	require.NoError(t, app.Close(ctx))
	assert.False(t, app.IsReady())

	// Closed app fails loudly instead of serving stale handles.
	_, err = app.Uploader()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = app.Engine()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = app.Streamer()
	assert.ErrorIs(t, err, ErrNotReady)

	// Double close is harmless.
	require.NoError(t, app.Close(ctx))
}

func TestInitFailureLeavesNoOpenStores(t *testing.T) {
	cfg := memoryConfig()
	cfg.Catalog.Type = "badger"
	cfg.Catalog.Badger = map[string]any{} // missing db_path

	_, err := Init(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing source")
}

func TestInitWithBadgerBackends(t *testing.T) {
	ctx := context.Background()

	cfg := memoryConfig()
	cfg.Chunks.Type = "badger"
	cfg.Chunks.Badger["db_path"] = t.TempDir()
	cfg.Records.Type = "badger"
	cfg.Records.Badger["db_path"] = t.TempDir()
	cfg.Catalog.Type = "badger"
	cfg.Catalog.Badger["db_path"] = t.TempDir()

	app, err := Init(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, app.IsReady())
	require.NoError(t, app.Close(ctx))
}
