package token

import (
	"fmt"
	"sync"
)

// Store persists token records, the custody map and the id counter.
type Store interface {
	// NextTokenID allocates the next sequential token id, starting at 1.
	NextTokenID() (uint64, error)

	// PutToken stores a new token record.
	PutToken(rec *Record) error

	// GetToken retrieves a token record by id.
	GetToken(id uint64) (*Record, error)

	// SetOwner updates the custody holder of a token.
	SetOwner(id uint64, owner Address) error

	// SetRoyalties replaces the royalty list of a token.
	SetRoyalties(id uint64, entries []RoyaltyEntry) error

	// SetOperator grants or revokes operator approval for all of an
	// owner's tokens.
	SetOperator(owner, operator Address, approved bool) error

	// IsOperator reports whether operator holds approval from owner.
	IsOperator(owner, operator Address) (bool, error)

	// TokenCount returns the number of minted tokens.
	TokenCount() (uint64, error)
}

// MemStore is an in-memory implementation of Store for testing.
type MemStore struct {
	mu        sync.RWMutex
	tokens    map[uint64]*Record
	operators map[[2 * AddressSize]byte]bool
	lastID    uint64
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates a new in-memory token store.
func NewMemStore() *MemStore {
	return &MemStore{
		tokens:    make(map[uint64]*Record),
		operators: make(map[[2 * AddressSize]byte]bool),
	}
}

func operatorKey(owner, operator Address) [2 * AddressSize]byte {
	var k [2 * AddressSize]byte
	copy(k[:AddressSize], owner[:])
	copy(k[AddressSize:], operator[:])
	return k
}

// NextTokenID allocates the next sequential token id.
func (s *MemStore) NextTokenID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}

// PutToken stores a new token record.
func (s *MemStore) PutToken(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("%w: record", ErrNilParam)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[rec.ID] = cloneRecord(rec)
	return nil
}

// GetToken retrieves a token record by id.
func (s *MemStore) GetToken(id uint64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tokens[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrTokenNotFound, id)
	}
	return cloneRecord(rec), nil
}

// SetOwner updates the custody holder of a token.
func (s *MemStore) SetOwner(id uint64, owner Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTokenNotFound, id)
	}
	rec.Owner = owner
	return nil
}

// SetRoyalties replaces the royalty list of a token.
func (s *MemStore) SetRoyalties(id uint64, entries []RoyaltyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrTokenNotFound, id)
	}
	rec.Royalties = append([]RoyaltyEntry(nil), entries...)
	return nil
}

// SetOperator grants or revokes operator approval.
func (s *MemStore) SetOperator(owner, operator Address, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := operatorKey(owner, operator)
	if approved {
		s.operators[k] = true
	} else {
		delete(s.operators, k)
	}
	return nil
}

// IsOperator reports whether operator holds approval from owner.
func (s *MemStore) IsOperator(owner, operator Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.operators[operatorKey(owner, operator)], nil
}

// TokenCount returns the number of minted tokens.
func (s *MemStore) TokenCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.tokens)), nil
}

// cloneRecord copies a record so callers cannot mutate stored state.
func cloneRecord(rec *Record) *Record {
	c := *rec
	c.Royalties = append([]RoyaltyEntry(nil), rec.Royalties...)
	return &c
}
