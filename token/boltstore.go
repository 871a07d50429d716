package token

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketTokens    = []byte("tokens")
	bucketOperators = []byte("operators")
)

// BoltStore is a bbolt-backed implementation of Store.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("token: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("token: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketTokens, bucketOperators} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("token: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// idKey encodes a token id as an 8-byte big-endian key for sorted storage.
func idKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// NextTokenID allocates the next sequential token id via the bucket sequence.
func (s *BoltStore) NextTokenID() (uint64, error) {
	var id uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		seq, err := tx.Bucket(bucketTokens).NextSequence()
		if err != nil {
			return fmt.Errorf("boltstore: next token id: %w", err)
		}
		id = seq
		return nil
	})
	return id, err
}

// PutToken stores a new token record keyed by id.
func (s *BoltStore) PutToken(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("%w: record", ErrNilParam)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := encodeGob(rec)
		if err != nil {
			return fmt.Errorf("encode token: %w", err)
		}
		if err := tx.Bucket(bucketTokens).Put(idKey(rec.ID), data); err != nil {
			return fmt.Errorf("boltstore: put token: %w", err)
		}
		return nil
	})
}

// GetToken retrieves a token record by id.
func (s *BoltStore) GetToken(id uint64) (*Record, error) {
	var rec Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTokens).Get(idKey(id))
		if data == nil {
			return fmt.Errorf("%w: id %d", ErrTokenNotFound, id)
		}
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("boltstore: decode token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetOwner updates the custody holder of a token.
func (s *BoltStore) SetOwner(id uint64, owner Address) error {
	return s.updateToken(id, func(rec *Record) {
		rec.Owner = owner
	})
}

// SetRoyalties replaces the royalty list of a token.
func (s *BoltStore) SetRoyalties(id uint64, entries []RoyaltyEntry) error {
	return s.updateToken(id, func(rec *Record) {
		rec.Royalties = append([]RoyaltyEntry(nil), entries...)
	})
}

// updateToken applies fn to a stored record inside one write transaction.
func (s *BoltStore) updateToken(id uint64, fn func(*Record)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		data := b.Get(idKey(id))
		if data == nil {
			return fmt.Errorf("%w: id %d", ErrTokenNotFound, id)
		}

		var rec Record
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("boltstore: decode token: %w", err)
		}
		fn(&rec)

		out, err := encodeGob(&rec)
		if err != nil {
			return fmt.Errorf("encode token: %w", err)
		}
		if err := b.Put(idKey(id), out); err != nil {
			return fmt.Errorf("boltstore: update token: %w", err)
		}
		return nil
	})
}

// SetOperator grants or revokes operator approval.
// The key is owner || operator for prefix scanning by owner.
func (s *BoltStore) SetOperator(owner, operator Address, approved bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketOperators)
		k := operatorKey(owner, operator)
		if approved {
			if err := b.Put(k[:], []byte{0x01}); err != nil {
				return fmt.Errorf("boltstore: put operator: %w", err)
			}
			return nil
		}
		if err := b.Delete(k[:]); err != nil {
			return fmt.Errorf("boltstore: delete operator: %w", err)
		}
		return nil
	})
}

// IsOperator reports whether operator holds approval from owner.
func (s *BoltStore) IsOperator(owner, operator Address) (bool, error) {
	var approved bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		k := operatorKey(owner, operator)
		approved = tx.Bucket(bucketOperators).Get(k[:]) != nil
		return nil
	})
	return approved, err
}

// TokenCount returns the number of minted tokens.
func (s *BoltStore) TokenCount() (uint64, error) {
	var count uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = uint64(tx.Bucket(bucketTokens).Stats().KeyN)
		return nil
	})
	return count, err
}
