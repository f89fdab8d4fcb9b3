package badger

import (
	"fmt"

	"github.com/casahub/casahub/pkg/blob"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so chunk data is organized with prefixed
// keys. The schema keeps point lookups O(1) and lets all chunks of one blob
// be range-scanned with a single prefix.
//
// Data Type   Prefix   Key Format             Value
// =============================================================
// Chunk data  "c:"     c:<blobID>:<seq>       raw chunk bytes
//
// The sequence number is zero-padded to 8 decimal digits so that
// lexicographic key order equals ascending sequence order. This makes
// prefix iteration over "c:<blobID>:" yield chunks in streaming order and
// bounds blobs to ~10^8 chunks, far beyond the upload size ceiling.
//
// Blob IDs are UUIDs and contain no ':' characters, so keys are unambiguous.

const prefixChunk = "c:"

// keyChunk generates the key for one chunk.
//
// Format: "c:<blobID>:<%08d seq>"
// Example: "c:550e8400-e29b-41d4-a716-446655440000:00000003"
func keyChunk(id blob.ID, seq uint32) []byte {
	return []byte(fmt.Sprintf("%s%s:%08d", prefixChunk, id, seq))
}

// keyChunkPrefix generates the prefix for range-scanning all chunks of a
// blob in ascending sequence order.
func keyChunkPrefix(id blob.ID) []byte {
	return []byte(prefixChunk + string(id) + ":")
}
