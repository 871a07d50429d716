// Package token implements a non-fungible token registry with per-token,
// multi-recipient royalty enforcement.
//
// The registry owns token issuance, immutable metadata, the custody map
// (ownership and operator approvals) and an ordered royalty list per token.
// Royalty percentages are expressed in basis points; the sum of a token's
// royalty shares never exceeds BpsDenominator.
package token

const (
	// BpsDenominator is the basis-point denominator: 10000 bps = 100%.
	BpsDenominator = 10000
)

// Capability tags a feature a token source may support, probed via
// Registry.Supports. Mirrors ERC-165 style interface detection.
type Capability string

const (
	// CapTransferable marks support for the custody primitive
	// (ownership, operator approval, transfer).
	CapTransferable Capability = "transferable"

	// CapRoyaltyBearing marks support for royalty lookup and the
	// single-recipient RoyaltyInfo shim.
	CapRoyaltyBearing Capability = "royalty-bearing"
)

// Metadata is the immutable-after-mint descriptive record of a token.
type Metadata struct {
	Name        string
	Description string
	ImageHash   uint64
}

// RoyaltyEntry is one (recipient, share) pair in a token's royalty list.
// Entry order is payout iteration order. Duplicate recipients are allowed
// and receive separate payouts.
type RoyaltyEntry struct {
	Recipient     Address
	PercentageBps uint64
}

// Record is the stored state of a single token.
type Record struct {
	ID        uint64
	Owner     Address
	Metadata  Metadata
	Royalties []RoyaltyEntry
}
