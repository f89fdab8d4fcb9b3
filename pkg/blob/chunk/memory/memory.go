package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/casahub/casahub/pkg/blob"
)

// chunkKey addresses one chunk inside the in-memory map.
type chunkKey struct {
	id  blob.ID
	seq uint32
}

// MemoryChunkStore implements blob.ChunkStore using an in-memory map.
//
// Designed for testing, development, and ephemeral deployments. All data is
// lost on restart.
//
// Thread safety: protected by a sync.RWMutex. Chunk bytes are copied on
// write and on read so callers can never race with store-internal state.
//
// Implements blob.ChunkStore and blob.ChunkLister.
type MemoryChunkStore struct {
	chunks map[chunkKey][]byte
	mu     sync.RWMutex
}

// NewMemoryChunkStore creates an empty in-memory chunk store.
func NewMemoryChunkStore(ctx context.Context) (*MemoryChunkStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryChunkStore{
		chunks: make(map[chunkKey][]byte),
	}, nil
}

// WriteChunk stores one chunk. A retried write with identical bytes is a
// no-op; a rewrite with different bytes returns blob.ErrChunkConflict.
func (s *MemoryChunkStore) WriteChunk(ctx context.Context, id blob.ID, seq uint32, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := chunkKey{id: id, seq: seq}
	if existing, ok := s.chunks[key]; ok {
		if bytes.Equal(existing, data) {
			return nil
		}
		return fmt.Errorf("chunk %s/%d: %w", id, seq, blob.ErrChunkConflict)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	s.chunks[key] = stored

	return nil
}

// ReadChunk returns a copy of one chunk's bytes, or blob.ErrChunkNotFound.
func (s *MemoryChunkStore) ReadChunk(ctx context.Context, id blob.ID, seq uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.chunks[chunkKey{id: id, seq: seq}]
	if !ok {
		return nil, fmt.Errorf("chunk %s/%d: %w", id, seq, blob.ErrChunkNotFound)
	}

	out := make([]byte, len(stored))
	copy(out, stored)
	return out, nil
}

// DeleteChunks removes every chunk of the blob. Idempotent.
func (s *MemoryChunkStore) DeleteChunks(ctx context.Context, id blob.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.chunks {
		if key.id == id {
			delete(s.chunks, key)
		}
	}

	return nil
}

// ListBlobIDs returns the distinct blob identifiers with stored chunks.
func (s *MemoryChunkStore) ListBlobIDs(ctx context.Context) ([]blob.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[blob.ID]struct{})
	for key := range s.chunks {
		seen[key.id] = struct{}{}
	}

	ids := make([]blob.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

// Close releases nothing for the in-memory store.
func (s *MemoryChunkStore) Close() error {
	return nil
}
