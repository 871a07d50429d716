// Package market implements the marketplace listing and settlement engine.
//
// The engine owns the listing registry and executes two purchase variants
// against any registered token source: a standard purchase that pays the
// live royalty split, and a full-ownership purchase that additionally
// extinguishes future royalty obligations on the token. Settlement is
// atomic: payment distribution and custody transfer either both complete
// or the operation aborts with no partial effect.
package market

import (
	"github.com/bitfsorg/libnftmarket-go/event"
	"github.com/bitfsorg/libnftmarket-go/token"
)

// Event types emitted by the engine.
const (
	EventListingCreated         event.Type = "ListingCreated"
	EventListingPurchased       event.Type = "ListingPurchased"
	EventFullOwnershipPurchased event.Type = "FullOwnershipPurchased"
	EventListingDeleted         event.Type = "ListingDeleted"
)

// ListingCreatedEvent is the payload of an EventListingCreated record.
type ListingCreatedEvent struct {
	ListingID   uint64
	Seller      token.Address
	NFTContract token.Address
	TokenID     uint64
	Price       uint64
}

// ListingPurchasedEvent is the payload of an EventListingPurchased record.
type ListingPurchasedEvent struct {
	ListingID        uint64
	Buyer            token.Address
	Price            uint64
	TotalRoyaltyPaid uint64
}

// FullOwnershipPurchasedEvent is the payload of an
// EventFullOwnershipPurchased record.
type FullOwnershipPurchasedEvent struct {
	ListingID        uint64
	Buyer            token.Address
	Price            uint64
	TotalRoyaltyPaid uint64
}

// ListingDeletedEvent is the payload of an EventListingDeleted record.
type ListingDeletedEvent struct {
	ListingID uint64
}

// Listing is a standing offer to sell one token at a fixed price.
//
// A closed listing is terminal and externally indistinguishable from a
// non-existent one: the query surface reports it with Price zero.
type Listing struct {
	ListingID   uint64
	Seller      token.Address
	NFTContract token.Address
	TokenID     uint64
	Price       uint64
	Closed      bool
}

// NFT is the token-source capability consumed by the engine: custody,
// live royalty lookup, and royalty clearing for full-ownership sales.
// token.Registry satisfies it; any compliant source may be registered.
type NFT interface {
	// OwnerOf returns the current custody holder of a token.
	OwnerOf(tokenID uint64) (token.Address, error)

	// IsApprovedOperator reports whether operator may move owner's tokens.
	IsApprovedOperator(owner, operator token.Address) (bool, error)

	// Transfer moves custody from from to to on behalf of caller.
	Transfer(caller, from, to token.Address, tokenID uint64) error

	// RoyaltySplit returns the live royalty entries of a token.
	RoyaltySplit(tokenID uint64) ([]token.RoyaltyEntry, error)

	// RemoveRoyaltyRecipients clears the royalty list of a token.
	RemoveRoyaltyRecipients(caller token.Address, tokenID uint64) error

	// RestoreRoyalties reinstates a royalty list during settlement
	// rollback.
	RestoreRoyalties(caller token.Address, tokenID uint64, entries []token.RoyaltyEntry) error
}

// Compile-time interface check.
var _ NFT = (*token.Registry)(nil)
