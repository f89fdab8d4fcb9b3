// Package testing provides a conformance test suite for blob.ChunkStore
// implementations. It tests the interface contract, not implementation
// details, making it reusable across backends (memory, badger, s3).
package testing

import (
	"context"
	"testing"

	"github.com/casahub/casahub/pkg/blob"
)

// StoreTestSuite exercises the ChunkStore contract against a fresh store
// per test.
//
// Usage:
//
//	func TestMyChunkStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) blob.ChunkStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh ChunkStore instance for each test, ensuring
	// test isolation. Cleanup should be registered on t.
	NewStore func(t *testing.T) blob.ChunkStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("WriteRead", suite.testWriteRead)
	t.Run("ReadMissing", suite.testReadMissing)
	t.Run("WriteIdempotent", suite.testWriteIdempotent)
	t.Run("WriteConflict", suite.testWriteConflict)
	t.Run("DeleteChunks", suite.testDeleteChunks)
	t.Run("DeleteIdempotent", suite.testDeleteIdempotent)
	t.Run("MultiChunkOrder", suite.testMultiChunkOrder)
	t.Run("ListBlobIDs", suite.testListBlobIDs)
}

func testContext() context.Context {
	return context.Background()
}
