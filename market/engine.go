package market

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfsorg/libnftmarket-go/event"
	"github.com/bitfsorg/libnftmarket-go/ledger"
	"github.com/bitfsorg/libnftmarket-go/token"
)

// Engine is the marketplace state machine.
//
// State-mutating operations are serialized by the engine lock and applied
// one at a time; each either fully commits (state changes plus emitted
// events) or fully discards its effects. The lock is not held while
// external value transfers run, so a payment hook that calls back into the
// engine observes the listing already in its terminal state and fails fast
// instead of re-entering settlement.
type Engine struct {
	mu       sync.Mutex
	addr     token.Address
	store    ListingStore
	payments *ledger.Ledger
	events   *event.Log
	log      *zap.Logger

	contractsMu sync.RWMutex
	contracts   map[token.Address]NFT
}

// NewEngine creates a marketplace engine. addr is the engine's identity,
// the operator address sellers approve on their token source. logger may
// be nil.
func NewEngine(addr token.Address, store ListingStore, payments *ledger.Ledger, events *event.Log, logger *zap.Logger) (*Engine, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("%w: engine address", ErrNilParam)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: listing store", ErrNilParam)
	}
	if payments == nil {
		return nil, fmt.Errorf("%w: payment ledger", ErrNilParam)
	}
	if events == nil {
		return nil, fmt.Errorf("%w: event log", ErrNilParam)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		addr:      addr,
		store:     store,
		payments:  payments,
		events:    events,
		log:       logger,
		contracts: make(map[token.Address]NFT),
	}, nil
}

// Address returns the engine's operator identity.
func (e *Engine) Address() token.Address { return e.addr }

// RegisterContract makes a token source available for listings under the
// given contract address.
func (e *Engine) RegisterContract(addr token.Address, nft NFT) error {
	if nft == nil {
		return fmt.Errorf("%w: token source", ErrNilParam)
	}
	if addr.IsZero() {
		return fmt.Errorf("%w: contract address", ErrNilParam)
	}

	e.contractsMu.Lock()
	defer e.contractsMu.Unlock()
	e.contracts[addr] = nft
	return nil
}

func (e *Engine) contract(addr token.Address) (NFT, error) {
	e.contractsMu.RLock()
	defer e.contractsMu.RUnlock()

	nft, ok := e.contracts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, addr)
	}
	return nft, nil
}

// CreateListing publishes a sale offer for tokenID on nftContract at the
// given price. The seller must own the token and must have granted the
// engine operator approval; the token is not escrowed — custody moves only
// at purchase time.
func (e *Engine) CreateListing(seller, nftContract token.Address, tokenID, price uint64) (uint64, error) {
	if price == 0 {
		return 0, ErrInvalidPrice
	}
	if price > math.MaxUint64/token.BpsDenominator {
		return 0, fmt.Errorf("%w: %d", ErrPriceOverflow, price)
	}

	nft, err := e.contract(nftContract)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	owner, err := nft.OwnerOf(tokenID)
	if err != nil {
		return 0, err
	}
	if owner != seller {
		return 0, fmt.Errorf("%w: token %d owned by %s", ErrNotTokenOwner, tokenID, owner)
	}
	approved, err := nft.IsApprovedOperator(seller, e.addr)
	if err != nil {
		return 0, err
	}
	if !approved {
		return 0, fmt.Errorf("%w: seller %s", ErrNotApproved, seller)
	}

	id, err := e.store.NextListingID()
	if err != nil {
		return 0, fmt.Errorf("market: allocate listing id: %w", err)
	}
	l := &Listing{
		ListingID:   id,
		Seller:      seller,
		NFTContract: nftContract,
		TokenID:     tokenID,
		Price:       price,
	}
	if err := e.store.Put(l); err != nil {
		return 0, fmt.Errorf("market: store listing: %w", err)
	}

	e.events.Append(EventListingCreated, ListingCreatedEvent{
		ListingID:   id,
		Seller:      seller,
		NFTContract: nftContract,
		TokenID:     tokenID,
		Price:       price,
	})
	e.log.Info("created listing",
		zap.Uint64("listing_id", id),
		zap.String("seller", seller.String()),
		zap.Uint64("token_id", tokenID),
		zap.Uint64("price", price))
	return id, nil
}

// DeleteListing retires a listing without moving funds. Only the stored
// seller may delete.
func (e *Engine) DeleteListing(caller token.Address, listingID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, err := e.store.Get(listingID)
	if err != nil {
		return err
	}
	if l.Closed {
		return fmt.Errorf("%w: id %d", ErrListingNotFound, listingID)
	}
	if caller != l.Seller {
		return fmt.Errorf("%w: %s", ErrNotSeller, caller)
	}

	if err := e.store.SetClosed(listingID, true); err != nil {
		return fmt.Errorf("market: close listing: %w", err)
	}

	e.events.Append(EventListingDeleted, ListingDeletedEvent{ListingID: listingID})
	e.log.Info("deleted listing", zap.Uint64("listing_id", listingID))
	return nil
}

// Listings is the read-only listing query surface. A closed or unknown id
// reports the zero Listing, whose Price of zero is the "does not exist"
// sentinel.
func (e *Engine) Listings(listingID uint64) Listing {
	l, err := e.store.Get(listingID)
	if err != nil || l.Closed {
		return Listing{}
	}
	return *l
}
