package market

import (
	"fmt"
	"sync"
)

// ListingStore persists listings and the listing id counter.
type ListingStore interface {
	// NextListingID allocates the next sequential listing id, starting
	// at 1. Zero is the sentinel for "does not exist".
	NextListingID() (uint64, error)

	// Put stores a new listing.
	Put(l *Listing) error

	// Get retrieves a listing by id, closed or not.
	Get(id uint64) (*Listing, error)

	// SetClosed marks a listing terminal, or clears the mark again during
	// settlement rollback.
	SetClosed(id uint64, closed bool) error
}

// MemListingStore is an in-memory implementation of ListingStore for
// testing.
type MemListingStore struct {
	mu       sync.RWMutex
	listings map[uint64]*Listing
	lastID   uint64
}

// Compile-time interface check.
var _ ListingStore = (*MemListingStore)(nil)

// NewMemListingStore creates a new in-memory listing store.
func NewMemListingStore() *MemListingStore {
	return &MemListingStore{listings: make(map[uint64]*Listing)}
}

// NextListingID allocates the next sequential listing id.
func (s *MemListingStore) NextListingID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}

// Put stores a new listing.
func (s *MemListingStore) Put(l *Listing) error {
	if l == nil {
		return fmt.Errorf("%w: listing", ErrNilParam)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.listings[l.ListingID] = &cp
	return nil
}

// Get retrieves a listing by id.
func (s *MemListingStore) Get(id uint64) (*Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrListingNotFound, id)
	}
	cp := *l
	return &cp, nil
}

// SetClosed marks a listing terminal or clears the mark.
func (s *MemListingStore) SetClosed(id uint64, closed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrListingNotFound, id)
	}
	l.Closed = closed
	return nil
}
