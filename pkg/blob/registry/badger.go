package registry

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/casahub/casahub/pkg/blob"
)

// Key namespace:
//
// Data Type        Prefix   Key Format      Value
// =====================================================
// Visible records  "b:"     b:<blobID>      blob.Record (JSON)
// Draft markers    "d:"     d:<blobID>      Draft (JSON)
//
// Records and drafts use disjoint prefixes, so the visibility rule holds
// structurally: a point lookup under "b:" can never observe a draft.
// JSON values keep the database debuggable; record metadata is small enough
// that encoding overhead is irrelevant.
const (
	prefixRecord = "b:"
	prefixDraft  = "d:"
)

func keyRecord(id blob.ID) []byte {
	return []byte(prefixRecord + string(id))
}

func keyDraft(id blob.ID) []byte {
	return []byte(prefixDraft + string(id))
}

// BadgerRecordStore implements RecordStore using BadgerDB for persistence.
//
// Suitable for deployments where blob metadata must survive restarts.
// Can share a process with a BadgerChunkStore but must use its own
// database directory.
type BadgerRecordStore struct {
	db *badger.DB
}

// BadgerRecordStoreConfig contains configuration for creating a BadgerDB
// record store.
type BadgerRecordStoreConfig struct {
	// DBPath is the directory where BadgerDB stores its files.
	DBPath string `mapstructure:"db_path"`
}

// NewBadgerRecordStore opens (creating if necessary) a BadgerDB-backed
// record store at the configured path.
func NewBadgerRecordStore(ctx context.Context, config BadgerRecordStoreConfig) (*BadgerRecordStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if config.DBPath == "" {
		return nil, fmt.Errorf("badger record store: db_path is required")
	}

	opts := badger.DefaultOptions(config.DBPath)
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerRecordStore{db: db}, nil
}

func (s *BadgerRecordStore) PutDraft(ctx context.Context, draft *Draft) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyDraft(draft.ID), encoded)
	})
}

func (s *BadgerRecordStore) GetDraft(ctx context.Context, id blob.ID) (*Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var draft Draft
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyDraft(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("draft %s: %w", id, blob.ErrBlobNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &draft)
		})
	})
	if err != nil {
		return nil, err
	}

	return &draft, nil
}

func (s *BadgerRecordStore) DeleteDraft(ctx context.Context, id blob.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyDraft(id))
	})
}

func (s *BadgerRecordStore) PutRecord(ctx context.Context, record *blob.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyRecord(record.ID), encoded)
	})
}

func (s *BadgerRecordStore) GetRecord(ctx context.Context, id blob.ID) (*blob.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record blob.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRecord(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("blob %s: %w", id, blob.ErrBlobNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (s *BadgerRecordStore) DeleteRecord(ctx context.Context, id blob.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyRecord(id))
	})
}

func (s *BadgerRecordStore) ListIDs(ctx context.Context) ([]blob.ID, []blob.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var visible, drafts []blob.ID

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			switch {
			case len(key) > len(prefixRecord) && key[:len(prefixRecord)] == prefixRecord:
				visible = append(visible, blob.ID(key[len(prefixRecord):]))
			case len(key) > len(prefixDraft) && key[:len(prefixDraft)] == prefixDraft:
				drafts = append(drafts, blob.ID(key[len(prefixDraft):]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("badger list blob records: %w", err)
	}

	return visible, drafts, nil
}

// Close closes the BadgerDB database and releases all resources.
func (s *BadgerRecordStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}
