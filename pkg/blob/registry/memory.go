package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/casahub/casahub/pkg/blob"
)

// MemoryRecordStore implements RecordStore with in-memory maps.
//
// Records and drafts live in separate maps, so the visibility rule holds
// structurally. Intended for tests and ephemeral deployments.
type MemoryRecordStore struct {
	records map[blob.ID]*blob.Record
	drafts  map[blob.ID]*Draft
	mu      sync.RWMutex
}

// NewMemoryRecordStore creates an empty in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[blob.ID]*blob.Record),
		drafts:  make(map[blob.ID]*Draft),
	}
}

func (s *MemoryRecordStore) PutDraft(ctx context.Context, draft *Draft) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *draft
	s.drafts[draft.ID] = &copied
	return nil
}

func (s *MemoryRecordStore) GetDraft(ctx context.Context, id blob.ID) (*Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[id]
	if !ok {
		return nil, fmt.Errorf("draft %s: %w", id, blob.ErrBlobNotFound)
	}

	copied := *draft
	return &copied, nil
}

func (s *MemoryRecordStore) DeleteDraft(ctx context.Context, id blob.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, id)
	return nil
}

func (s *MemoryRecordStore) PutRecord(ctx context.Context, record *blob.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records[record.ID] = &copied
	return nil
}

func (s *MemoryRecordStore) GetRecord(ctx context.Context, id blob.ID) (*blob.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", id, blob.ErrBlobNotFound)
	}

	copied := *record
	return &copied, nil
}

func (s *MemoryRecordStore) DeleteRecord(ctx context.Context, id blob.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

func (s *MemoryRecordStore) ListIDs(ctx context.Context) ([]blob.ID, []blob.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	visible := make([]blob.ID, 0, len(s.records))
	for id := range s.records {
		visible = append(visible, id)
	}

	drafts := make([]blob.ID, 0, len(s.drafts))
	for id := range s.drafts {
		drafts = append(drafts, id)
	}

	return visible, drafts, nil
}

func (s *MemoryRecordStore) Close() error {
	return nil
}
