package catalog

import (
	"context"
	"fmt"
	"sync"
)

// MemorySource implements MutableSource with an in-memory map. Intended for
// tests and ephemeral deployments.
type MemorySource struct {
	listings map[string]*Listing
	mu       sync.RWMutex
}

// NewMemorySource creates an empty in-memory listing source.
func NewMemorySource() *MemorySource {
	return &MemorySource{listings: make(map[string]*Listing)}
}

func (s *MemorySource) List(ctx context.Context) ([]*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Listing, 0, len(s.listings))
	for _, l := range s.listings {
		copied := *l
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemorySource) Get(ctx context.Context, id string) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, ErrListingNotFound)
	}

	copied := *l
	return &copied, nil
}

func (s *MemorySource) Put(ctx context.Context, listing *Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *listing
	s.listings[listing.ID] = &copied
	return nil
}

func (s *MemorySource) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[id]; !ok {
		return fmt.Errorf("listing %s: %w", id, ErrListingNotFound)
	}

	delete(s.listings, id)
	return nil
}

func (s *MemorySource) Close() error {
	return nil
}
