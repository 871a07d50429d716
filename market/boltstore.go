package market

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketListings = []byte("listings")

// BoltListingStore is a bbolt-backed implementation of ListingStore.
type BoltListingStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ ListingStore = (*BoltListingStore)(nil)

// OpenBoltListingStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltListingStore(dbPath string) (*BoltListingStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("market: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("market: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketListings); err != nil {
			return fmt.Errorf("boltstore: create bucket %q: %w", bucketListings, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("market: create buckets: %w", err)
	}

	return &BoltListingStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltListingStore) Close() error { return s.db.Close() }

// listingKey encodes a listing id as an 8-byte big-endian key.
func listingKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

func encodeListing(l *Listing) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeListing(data []byte, l *Listing) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(l)
}

// NextListingID allocates the next sequential listing id via the bucket
// sequence.
func (s *BoltListingStore) NextListingID() (uint64, error) {
	var id uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		seq, err := tx.Bucket(bucketListings).NextSequence()
		if err != nil {
			return fmt.Errorf("boltstore: next listing id: %w", err)
		}
		id = seq
		return nil
	})
	return id, err
}

// Put stores a new listing keyed by id.
func (s *BoltListingStore) Put(l *Listing) error {
	if l == nil {
		return fmt.Errorf("%w: listing", ErrNilParam)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := encodeListing(l)
		if err != nil {
			return fmt.Errorf("encode listing: %w", err)
		}
		if err := tx.Bucket(bucketListings).Put(listingKey(l.ListingID), data); err != nil {
			return fmt.Errorf("boltstore: put listing: %w", err)
		}
		return nil
	})
}

// Get retrieves a listing by id.
func (s *BoltListingStore) Get(id uint64) (*Listing, error) {
	var l Listing
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketListings).Get(listingKey(id))
		if data == nil {
			return fmt.Errorf("%w: id %d", ErrListingNotFound, id)
		}
		if err := decodeListing(data, &l); err != nil {
			return fmt.Errorf("boltstore: decode listing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SetClosed marks a listing terminal or clears the mark.
func (s *BoltListingStore) SetClosed(id uint64, closed bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketListings)
		data := b.Get(listingKey(id))
		if data == nil {
			return fmt.Errorf("%w: id %d", ErrListingNotFound, id)
		}

		var l Listing
		if err := decodeListing(data, &l); err != nil {
			return fmt.Errorf("boltstore: decode listing: %w", err)
		}
		l.Closed = closed

		out, err := encodeListing(&l)
		if err != nil {
			return fmt.Errorf("encode listing: %w", err)
		}
		if err := b.Put(listingKey(id), out); err != nil {
			return fmt.Errorf("boltstore: update listing: %w", err)
		}
		return nil
	})
}
