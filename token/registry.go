package token

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bitfsorg/libnftmarket-go/event"
)

// EventMint is emitted once per successful mint.
const EventMint event.Type = "Mint"

// MintEvent is the payload of an EventMint record.
type MintEvent struct {
	TokenID uint64
	Owner   Address
}

// Default collection identity and token metadata, overridable via
// RegistryOpts.
const (
	DefaultName   = "SimpleNFT"
	DefaultSymbol = "SNFT"
)

// DefaultMetadata is the metadata record stamped on minted tokens when no
// override is configured.
var DefaultMetadata = Metadata{
	Name:        "Simple NFT",
	Description: "This is a simple NFT.",
	ImageHash:   123456789,
}

// RegistryOpts configures a Registry.
type RegistryOpts struct {
	Name   string
	Symbol string

	// TokenMetadata is stamped on every minted token. Zero value means
	// DefaultMetadata.
	TokenMetadata Metadata

	// DefaultRoyalty is the fallback for the single-recipient RoyaltyInfo
	// shim when a token carries no royalty entries. Nil disables the
	// fallback.
	DefaultRoyalty *RoyaltyEntry

	Logger *zap.Logger
}

// Registry is the token issuance and royalty state machine.
//
// State-mutating operations are serialized: each runs to completion as an
// all-or-nothing unit relative to every other operation on the registry.
type Registry struct {
	mu     sync.Mutex
	store  Store
	events *event.Log
	log    *zap.Logger

	name           string
	symbol         string
	tokenMetadata  Metadata
	defaultRoyalty *RoyaltyEntry

	trustedMu sync.RWMutex
	trusted   map[Address]bool
}

// NewRegistry creates a registry over the given store. Events are appended
// to events; opts may be nil for defaults.
func NewRegistry(store Store, events *event.Log, opts *RegistryOpts) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store", ErrNilParam)
	}
	if events == nil {
		return nil, fmt.Errorf("%w: event log", ErrNilParam)
	}

	r := &Registry{
		store:         store,
		events:        events,
		log:           zap.NewNop(),
		name:          DefaultName,
		symbol:        DefaultSymbol,
		tokenMetadata: DefaultMetadata,
		trusted:       make(map[Address]bool),
	}
	if opts != nil {
		if opts.Name != "" {
			r.name = opts.Name
		}
		if opts.Symbol != "" {
			r.symbol = opts.Symbol
		}
		if opts.TokenMetadata != (Metadata{}) {
			r.tokenMetadata = opts.TokenMetadata
		}
		if opts.DefaultRoyalty != nil {
			if opts.DefaultRoyalty.PercentageBps > BpsDenominator {
				return nil, fmt.Errorf("%w: default royalty %d bps",
					ErrRoyaltyOverflow, opts.DefaultRoyalty.PercentageBps)
			}
			dr := *opts.DefaultRoyalty
			r.defaultRoyalty = &dr
		}
		if opts.Logger != nil {
			r.log = opts.Logger
		}
	}
	return r, nil
}

// Name returns the collection name.
func (r *Registry) Name() string { return r.name }

// Symbol returns the collection symbol.
func (r *Registry) Symbol() string { return r.symbol }

// Supports probes whether the registry implements a capability.
func (r *Registry) Supports(cap Capability) bool {
	switch cap {
	case CapTransferable, CapRoyaltyBearing:
		return true
	}
	return false
}

// TrustClearer marks addr as a trusted party allowed to clear and restore
// royalty lists regardless of custody, such as a marketplace settling a
// full-ownership purchase.
func (r *Registry) TrustClearer(addr Address) {
	r.trustedMu.Lock()
	defer r.trustedMu.Unlock()
	r.trusted[addr] = true
}

func (r *Registry) isTrusted(addr Address) bool {
	r.trustedMu.RLock()
	defer r.trustedMu.RUnlock()
	return r.trusted[addr]
}

// Mint issues a new token to caller with the given royalty split.
//
// recipients and percentages must have equal length and the percentages
// must sum to at most 10000 bps. The split is stored verbatim, in input
// order, with no deduplication. Returns the new sequential token id.
func (r *Registry) Mint(caller Address, recipients []Address, percentages []uint64) (uint64, error) {
	if caller.IsZero() {
		return 0, fmt.Errorf("%w: minter", ErrZeroAddress)
	}
	if len(recipients) != len(percentages) {
		return 0, fmt.Errorf("%w: %d recipients, %d percentages",
			ErrArityMismatch, len(recipients), len(percentages))
	}

	var total uint64
	entries := make([]RoyaltyEntry, len(recipients))
	for i := range recipients {
		if percentages[i] > BpsDenominator {
			return 0, fmt.Errorf("%w: entry %d is %d bps", ErrRoyaltyOverflow, i, percentages[i])
		}
		total += percentages[i]
		if total > BpsDenominator {
			return 0, fmt.Errorf("%w: %d bps", ErrRoyaltyOverflow, total)
		}
		entries[i] = RoyaltyEntry{Recipient: recipients[i], PercentageBps: percentages[i]}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.store.NextTokenID()
	if err != nil {
		return 0, fmt.Errorf("token: allocate id: %w", err)
	}
	rec := &Record{
		ID:        id,
		Owner:     caller,
		Metadata:  r.tokenMetadata,
		Royalties: entries,
	}
	if err := r.store.PutToken(rec); err != nil {
		return 0, fmt.Errorf("token: store token: %w", err)
	}

	r.events.Append(EventMint, MintEvent{TokenID: id, Owner: caller})
	r.log.Info("minted token",
		zap.Uint64("token_id", id),
		zap.String("owner", caller.String()),
		zap.Int("royalty_recipients", len(entries)))
	return id, nil
}

// TokenMetadata returns the metadata record of a token.
func (r *Registry) TokenMetadata(id uint64) (Metadata, error) {
	rec, err := r.store.GetToken(id)
	if err != nil {
		return Metadata{}, err
	}
	return rec.Metadata, nil
}

// TotalSupply returns the number of minted tokens.
func (r *Registry) TotalSupply() (uint64, error) { return r.store.TokenCount() }

// GetRoyaltyInfo returns the full royalty split of a token as parallel
// recipient and percentage sequences. Both are empty for a token with no
// remaining royalty obligations.
func (r *Registry) GetRoyaltyInfo(id uint64) ([]Address, []uint64, error) {
	rec, err := r.store.GetToken(id)
	if err != nil {
		return nil, nil, err
	}

	recipients := make([]Address, len(rec.Royalties))
	percentages := make([]uint64, len(rec.Royalties))
	for i, e := range rec.Royalties {
		recipients[i] = e.Recipient
		percentages[i] = e.PercentageBps
	}
	return recipients, percentages, nil
}

// RoyaltySplit returns the live royalty entries of a token, in payout order.
func (r *Registry) RoyaltySplit(id uint64) ([]RoyaltyEntry, error) {
	rec, err := r.store.GetToken(id)
	if err != nil {
		return nil, err
	}
	return rec.Royalties, nil
}

// RoyaltyInfo is the single-recipient compatibility shim: it reports the
// first royalty recipient and its amount for the given sale price, falling
// back to the configured default royalty when the token carries no entries.
// The full multi-recipient split is only available via GetRoyaltyInfo.
func (r *Registry) RoyaltyInfo(id, salePrice uint64) (Address, uint64) {
	if rec, err := r.store.GetToken(id); err == nil && len(rec.Royalties) > 0 {
		e := rec.Royalties[0]
		return e.Recipient, salePrice * e.PercentageBps / BpsDenominator
	}
	if r.defaultRoyalty != nil {
		return r.defaultRoyalty.Recipient, salePrice * r.defaultRoyalty.PercentageBps / BpsDenominator
	}
	return ZeroAddress, 0
}

// RemoveRoyaltyRecipients clears the royalty list of a token. The caller
// must be the owner, an approved operator of the owner, or a trusted
// clearer. Clearing an already-empty list is a no-op.
func (r *Registry) RemoveRoyaltyRecipients(caller Address, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.GetToken(id)
	if err != nil {
		return err
	}
	if err := r.authorizeClear(caller, rec.Owner); err != nil {
		return err
	}
	if len(rec.Royalties) == 0 {
		return nil
	}

	if err := r.store.SetRoyalties(id, nil); err != nil {
		return fmt.Errorf("token: clear royalties: %w", err)
	}
	r.log.Info("cleared royalties",
		zap.Uint64("token_id", id),
		zap.String("caller", caller.String()))
	return nil
}

// RestoreRoyalties reinstates a royalty list during settlement rollback.
// Same authorization as RemoveRoyaltyRecipients; the restored shares must
// still sum to at most 10000 bps.
func (r *Registry) RestoreRoyalties(caller Address, id uint64, entries []RoyaltyEntry) error {
	var total uint64
	for _, e := range entries {
		if e.PercentageBps > BpsDenominator {
			return fmt.Errorf("%w: entry is %d bps", ErrRoyaltyOverflow, e.PercentageBps)
		}
		total += e.PercentageBps
		if total > BpsDenominator {
			return fmt.Errorf("%w: %d bps", ErrRoyaltyOverflow, total)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.GetToken(id)
	if err != nil {
		return err
	}
	if err := r.authorizeClear(caller, rec.Owner); err != nil {
		return err
	}

	if err := r.store.SetRoyalties(id, entries); err != nil {
		return fmt.Errorf("token: restore royalties: %w", err)
	}
	return nil
}

func (r *Registry) authorizeClear(caller, owner Address) error {
	if caller == owner || r.isTrusted(caller) {
		return nil
	}
	approved, err := r.store.IsOperator(owner, caller)
	if err != nil {
		return fmt.Errorf("token: operator lookup: %w", err)
	}
	if !approved {
		return fmt.Errorf("%w: %s may not mutate royalties", ErrNotAuthorized, caller)
	}
	return nil
}

// OwnerOf returns the current custody holder of a token.
func (r *Registry) OwnerOf(id uint64) (Address, error) {
	rec, err := r.store.GetToken(id)
	if err != nil {
		return ZeroAddress, err
	}
	return rec.Owner, nil
}

// SetApprovalForAll grants or revokes operator approval over all of the
// caller's tokens.
func (r *Registry) SetApprovalForAll(caller, operator Address, approved bool) error {
	if caller.IsZero() || operator.IsZero() {
		return fmt.Errorf("%w: approval party", ErrZeroAddress)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.SetOperator(caller, operator, approved)
}

// IsApprovedOperator reports whether operator may move owner's tokens.
func (r *Registry) IsApprovedOperator(owner, operator Address) (bool, error) {
	return r.store.IsOperator(owner, operator)
}

// Transfer moves custody of a token from from to to. The caller must be
// from or an operator approved by from.
func (r *Registry) Transfer(caller, from, to Address, id uint64) error {
	if to.IsZero() {
		return fmt.Errorf("%w: transfer target", ErrZeroAddress)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.GetToken(id)
	if err != nil {
		return err
	}
	if rec.Owner != from {
		return fmt.Errorf("%w: token %d owned by %s", ErrNotOwner, id, rec.Owner)
	}
	if caller != from {
		approved, err := r.store.IsOperator(from, caller)
		if err != nil {
			return fmt.Errorf("token: operator lookup: %w", err)
		}
		if !approved {
			return fmt.Errorf("%w: %s may not transfer token %d", ErrNotAuthorized, caller, id)
		}
	}

	if err := r.store.SetOwner(id, to); err != nil {
		return fmt.Errorf("token: set owner: %w", err)
	}
	r.log.Debug("transferred token",
		zap.Uint64("token_id", id),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	return nil
}
