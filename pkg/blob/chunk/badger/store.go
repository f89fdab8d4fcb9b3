package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/casahub/casahub/pkg/blob"
)

// BadgerChunkStore implements blob.ChunkStore using BadgerDB for
// persistence.
//
// Suitable for single-node deployments where chunk data must survive
// restarts without an external object store. Chunks are stored as raw
// values under namespaced keys (see keys.go).
//
// Thread safety: BadgerDB transactions provide isolation; idempotent-write
// checking runs inside a single read-modify-write transaction, so
// concurrent conflicting writes to the same (blobID, seq) cannot interleave.
//
// Implements blob.ChunkStore and blob.ChunkLister.
type BadgerChunkStore struct {
	db *badger.DB
}

// BadgerChunkStoreConfig contains configuration for creating a BadgerDB
// chunk store.
type BadgerChunkStoreConfig struct {
	// DBPath is the directory where BadgerDB stores its files.
	DBPath string `mapstructure:"db_path"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 128).
	BlockCacheSizeMB int64 `mapstructure:"block_cache_mb"`
}

// NewBadgerChunkStore opens (creating if necessary) a BadgerDB-backed chunk
// store at the configured path.
//
// Chunk values are already incompressible for typical media (JPEG, PNG), so
// value-log compression is disabled.
func NewBadgerChunkStore(ctx context.Context, config BadgerChunkStoreConfig) (*BadgerChunkStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if config.DBPath == "" {
		return nil, fmt.Errorf("badger chunk store: db_path is required")
	}

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 128
	}

	opts := badger.DefaultOptions(config.DBPath)
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerChunkStore{db: db}, nil
}

// WriteChunk stores one chunk inside a single transaction. A retried write
// with identical bytes is a no-op; a rewrite with different bytes returns
// blob.ErrChunkConflict.
func (s *BadgerChunkStore) WriteChunk(ctx context.Context, id blob.ID, seq uint32, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := keyChunk(id, seq)

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case err == badger.ErrKeyNotFound:
			return txn.Set(key, data)
		case err != nil:
			return err
		}

		return item.Value(func(existing []byte) error {
			if bytes.Equal(existing, data) {
				return nil
			}
			return fmt.Errorf("chunk %s/%d: %w", id, seq, blob.ErrChunkConflict)
		})
	})
	if err != nil {
		if errors.Is(err, blob.ErrChunkConflict) {
			return err
		}
		return fmt.Errorf("badger write chunk %s/%d: %w", id, seq, err)
	}

	return nil
}

// ReadChunk returns the bytes of one chunk, or blob.ErrChunkNotFound.
func (s *BadgerChunkStore) ReadChunk(ctx context.Context, id blob.ID, seq uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyChunk(id, seq))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("chunk %s/%d: %w", id, seq, blob.ErrChunkNotFound)
		}
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// DeleteChunks removes every chunk of the blob via a prefix scan.
// Idempotent: a blob with no chunks deletes successfully.
func (s *BadgerChunkStore) DeleteChunks(ctx context.Context, id blob.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := keyChunkPrefix(id)

	// Collect keys first: Badger forbids writes during iteration.
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger scan chunks %s: %w", id, err)
	}

	// Delete in batches; WriteBatch handles transaction size limits.
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("badger delete chunk key: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger delete chunks %s: %w", id, err)
	}

	return nil
}

// ListBlobIDs returns the distinct blob identifiers with stored chunks.
func (s *BadgerChunkStore) ListBlobIDs(ctx context.Context) ([]blob.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[blob.ID]struct{})

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixChunk)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix([]byte(prefixChunk)); it.Next() {
			key := string(it.Item().Key())

			// Key format: c:<blobID>:<seq>. The blob ID is a UUID and never
			// contains ':', so the last separator bounds it.
			rest := strings.TrimPrefix(key, prefixChunk)
			idx := strings.LastIndex(rest, ":")
			if idx <= 0 {
				continue
			}
			seen[blob.ID(rest[:idx])] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list blob ids: %w", err)
	}

	ids := make([]blob.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

// Close closes the BadgerDB database and releases all resources.
func (s *BadgerChunkStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}
