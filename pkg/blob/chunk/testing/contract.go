package testing

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casahub/casahub/pkg/blob"
)

func (suite *StoreTestSuite) testWriteRead(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	id := blob.NewID()
	data := []byte("chunk payload bytes")

	require.NoError(t, store.WriteChunk(ctx, id, 0, data))

	got, err := store.ReadChunk(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func (suite *StoreTestSuite) testReadMissing(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	_, err := store.ReadChunk(ctx, blob.NewID(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, blob.ErrChunkNotFound)
}

func (suite *StoreTestSuite) testWriteIdempotent(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	id := blob.NewID()
	data := []byte("same bytes twice")

	require.NoError(t, store.WriteChunk(ctx, id, 3, data))
	// Retried write with identical bytes must be a no-op success.
	require.NoError(t, store.WriteChunk(ctx, id, 3, data))

	got, err := store.ReadChunk(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func (suite *StoreTestSuite) testWriteConflict(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	id := blob.NewID()

	require.NoError(t, store.WriteChunk(ctx, id, 0, []byte("original content")))

	err := store.WriteChunk(ctx, id, 0, []byte("divergent content"))
	require.Error(t, err)
	assert.ErrorIs(t, err, blob.ErrChunkConflict)

	// Original bytes must survive the rejected rewrite.
	got, err := store.ReadChunk(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("original content"), got)
}

func (suite *StoreTestSuite) testDeleteChunks(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	id := blob.NewID()
	other := blob.NewID()

	for seq := uint32(0); seq < 4; seq++ {
		require.NoError(t, store.WriteChunk(ctx, id, seq, []byte(fmt.Sprintf("chunk-%d", seq))))
	}
	require.NoError(t, store.WriteChunk(ctx, other, 0, []byte("unrelated")))

	require.NoError(t, store.DeleteChunks(ctx, id))

	for seq := uint32(0); seq < 4; seq++ {
		_, err := store.ReadChunk(ctx, id, seq)
		assert.ErrorIs(t, err, blob.ErrChunkNotFound, "chunk %d should be gone", seq)
	}

	// Other blobs are untouched.
	got, err := store.ReadChunk(ctx, other, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("unrelated"), got)
}

func (suite *StoreTestSuite) testDeleteIdempotent(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	id := blob.NewID()
	require.NoError(t, store.WriteChunk(ctx, id, 0, []byte("x")))

	require.NoError(t, store.DeleteChunks(ctx, id))
	require.NoError(t, store.DeleteChunks(ctx, id))
	require.NoError(t, store.DeleteChunks(ctx, blob.NewID()))
}

func (suite *StoreTestSuite) testMultiChunkOrder(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	id := blob.NewID()
	const count = 12

	// Write out of order; reads by sequence number must still resolve.
	for _, seq := range []uint32{7, 0, 11, 3, 1, 2, 4, 5, 6, 8, 9, 10} {
		data := []byte(fmt.Sprintf("seq=%04d", seq))
		require.NoError(t, store.WriteChunk(ctx, id, seq, data))
	}

	for seq := uint32(0); seq < count; seq++ {
		got, err := store.ReadChunk(ctx, id, seq)
		require.NoError(t, err)
		assert.Equal(t, []byte(fmt.Sprintf("seq=%04d", seq)), got)
	}
}

func (suite *StoreTestSuite) testListBlobIDs(t *testing.T) {
	store := suite.NewStore(t)
	lister, ok := store.(blob.ChunkLister)
	if !ok {
		t.Skip("store does not implement ChunkLister")
	}
	ctx := testContext()

	ids := []blob.ID{blob.NewID(), blob.NewID(), blob.NewID()}
	for _, id := range ids {
		require.NoError(t, store.WriteChunk(ctx, id, 0, []byte("a")))
		require.NoError(t, store.WriteChunk(ctx, id, 1, []byte("b")))
	}

	listed, err := lister.ListBlobIDs(ctx)
	require.NoError(t, err)

	want := make([]string, len(ids))
	for i, id := range ids {
		want[i] = string(id)
	}
	got := make([]string, len(listed))
	for i, id := range listed {
		got[i] = string(id)
	}
	sort.Strings(want)
	sort.Strings(got)
	assert.Equal(t, want, got)
}
