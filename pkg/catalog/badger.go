package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Key namespace:
//
// Data Type   Prefix   Key Format       Value
// ================================================
// Listings    "l:"     l:<listingID>    Listing (JSON)
const prefixListing = "l:"

func keyListing(id string) []byte {
	return []byte(prefixListing + id)
}

// BadgerSource implements MutableSource using BadgerDB for persistence.
//
// Must use its own database directory; it cannot share one with the blob
// stores.
type BadgerSource struct {
	db *badger.DB
}

// BadgerSourceConfig contains configuration for creating a BadgerDB listing
// source.
type BadgerSourceConfig struct {
	// DBPath is the directory where BadgerDB stores its files.
	DBPath string `mapstructure:"db_path"`
}

// NewBadgerSource opens (creating if necessary) a BadgerDB-backed listing
// source at the configured path.
func NewBadgerSource(ctx context.Context, config BadgerSourceConfig) (*BadgerSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if config.DBPath == "" {
		return nil, fmt.Errorf("badger listing source: db_path is required")
	}

	opts := badger.DefaultOptions(config.DBPath)
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerSource{db: db}, nil
}

func (s *BadgerSource) List(ctx context.Context) ([]*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*Listing

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixListing)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var l Listing
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &l)
			})
			if err != nil {
				return fmt.Errorf("decode listing %s: %w", it.Item().Key(), err)
			}
			out = append(out, &l)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list listings: %w", err)
	}

	return out, nil
}

func (s *BadgerSource) Get(ctx context.Context, id string) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var listing Listing
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyListing(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("listing %s: %w", id, ErrListingNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &listing)
		})
	})
	if err != nil {
		return nil, err
	}

	return &listing, nil
}

func (s *BadgerSource) Put(ctx context.Context, listing *Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("failed to encode listing: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyListing(listing.ID), encoded)
	})
}

func (s *BadgerSource) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyListing(id)); err == badger.ErrKeyNotFound {
			return fmt.Errorf("listing %s: %w", id, ErrListingNotFound)
		} else if err != nil {
			return err
		}
		return txn.Delete(keyListing(id))
	})
}

// Close closes the BadgerDB database and releases all resources.
func (s *BadgerSource) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}
