package market

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libnftmarket-go/ledger"
	"github.com/bitfsorg/libnftmarket-go/token"
)

// Price of 1.0 in a six-decimal smallest unit.
const oneUnit = 1_000_000

func TestBuyFromListing(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	royaltyA := makeAddr(0x02)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, oneUnit)

	// 5% royalty to A.
	tokenID, listingID := m.mintAndList(t, seller, []token.Address{royaltyA}, []uint64{500}, oneUnit)

	require.NoError(t, m.engine.BuyFromListing(buyer, listingID, oneUnit))

	// A receives 0.05, the seller 0.95.
	assert.Equal(t, uint64(50_000), m.payments.BalanceOf(royaltyA))
	assert.Equal(t, uint64(950_000), m.payments.BalanceOf(seller))
	assert.Zero(t, m.payments.BalanceOf(buyer))

	owner, err := m.registry.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)

	recs := m.events.ByType(EventListingPurchased)
	require.Len(t, recs, 1)
	assert.Equal(t, ListingPurchasedEvent{
		ListingID:        listingID,
		Buyer:            buyer,
		Price:            oneUnit,
		TotalRoyaltyPaid: 50_000,
	}, recs[0].Payload.(ListingPurchasedEvent))

	// The listing is terminal.
	assert.Zero(t, m.engine.Listings(listingID).Price)
}

func TestBuyFromListing_PayoutConservation(t *testing.T) {
	tests := []struct {
		name  string
		bps   []uint64
		price uint64
	}{
		{"single 5%", []uint64{500}, oneUnit},
		{"three way", []uint64{300, 200, 100}, oneUnit},
		{"rounding dust", []uint64{333, 333}, 1001},
		{"full royalty", []uint64{10000}, 777},
		{"no royalty", nil, 555},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMarket(t)
			seller := makeAddr(0x01)
			buyer := makeAddr(0x03)
			m.payments.Deposit(buyer, tt.price)

			recipients := make([]token.Address, len(tt.bps))
			for i := range tt.bps {
				recipients[i] = makeAddr(byte(0x10 + i))
			}

			_, listingID := m.mintAndList(t, seller, recipients, tt.bps, tt.price)
			require.NoError(t, m.engine.BuyFromListing(buyer, listingID, tt.price))

			// Every payout is floor(price * bps / 10000); the seller keeps
			// the remainder, so the full price is conserved.
			var royaltyTotal uint64
			for i, bps := range tt.bps {
				want := tt.price * bps / token.BpsDenominator
				assert.Equal(t, want, m.payments.BalanceOf(recipients[i]), "recipient %d", i)
				royaltyTotal += want
			}
			assert.Equal(t, tt.price-royaltyTotal, m.payments.BalanceOf(seller))
			assert.Zero(t, m.payments.BalanceOf(buyer))
		})
	}
}

func TestBuyFromListing_InvalidPayment(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, 2*oneUnit)

	tokenID, listingID := m.mintAndList(t, seller, nil, nil, oneUnit)

	// Underpayment and overpayment both fail; exact match is required.
	assert.ErrorIs(t, m.engine.BuyFromListing(buyer, listingID, oneUnit-1), ErrInvalidPayment)
	assert.ErrorIs(t, m.engine.BuyFromListing(buyer, listingID, oneUnit+1), ErrInvalidPayment)

	// Nothing moved and the listing is still live.
	assert.Equal(t, uint64(2*oneUnit), m.payments.BalanceOf(buyer))
	owner, err := m.registry.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, seller, owner)
	assert.Equal(t, uint64(oneUnit), m.engine.Listings(listingID).Price)
}

func TestBuyFromListing_TerminalIsTerminal(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	buyer := makeAddr(0x03)
	second := makeAddr(0x04)
	m.payments.Deposit(buyer, oneUnit)
	m.payments.Deposit(second, oneUnit)

	_, listingID := m.mintAndList(t, seller, nil, nil, oneUnit)
	require.NoError(t, m.engine.BuyFromListing(buyer, listingID, oneUnit))

	// Exactly one successful terminal transition per listing id.
	assert.ErrorIs(t, m.engine.BuyFromListing(second, listingID, oneUnit), ErrListingNotFound)
	assert.ErrorIs(t, m.engine.BuyFullOwnership(second, listingID, oneUnit), ErrListingNotFound)
	assert.ErrorIs(t, m.engine.DeleteListing(seller, listingID), ErrListingNotFound)

	// No further funds moved.
	assert.Equal(t, uint64(oneUnit), m.payments.BalanceOf(second))
	assert.Equal(t, uint64(oneUnit), m.payments.BalanceOf(seller))
}

func TestBuyAfterDelete(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, oneUnit)

	_, listingID := m.mintAndList(t, seller, nil, nil, oneUnit)
	require.NoError(t, m.engine.DeleteListing(seller, listingID))

	assert.ErrorIs(t, m.engine.BuyFromListing(buyer, listingID, oneUnit), ErrListingNotFound)
	assert.Equal(t, uint64(oneUnit), m.payments.BalanceOf(buyer))
}

func TestBuyFromListing_InsufficientFunds(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, oneUnit-1)

	tokenID, listingID := m.mintAndList(t, seller, []token.Address{makeAddr(0x02)}, []uint64{500}, oneUnit)

	err := m.engine.BuyFromListing(buyer, listingID, oneUnit)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// Full rollback: listing live, custody unchanged, funds intact.
	assert.Equal(t, uint64(oneUnit), m.engine.Listings(listingID).Price)
	owner, oerr := m.registry.OwnerOf(tokenID)
	require.NoError(t, oerr)
	assert.Equal(t, seller, owner)
	assert.Equal(t, uint64(oneUnit-1), m.payments.BalanceOf(buyer))
}

func TestBuyFromListing_RecipientRejects(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	royaltyA := makeAddr(0x02)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, oneUnit)
	m.payments.SetAcceptHook(royaltyA, func(token.Address, uint64) error {
		return errors.New("recipient cannot accept funds")
	})

	tokenID, listingID := m.mintAndList(t, seller, []token.Address{royaltyA}, []uint64{500}, oneUnit)

	err := m.engine.BuyFromListing(buyer, listingID, oneUnit)
	assert.ErrorIs(t, err, ledger.ErrTransferRejected)

	// The whole sale aborted: no partial payment, no custody change, the
	// listing stays available for retry or deletion.
	assert.Equal(t, uint64(oneUnit), m.payments.BalanceOf(buyer))
	assert.Zero(t, m.payments.BalanceOf(seller))
	assert.Zero(t, m.payments.BalanceOf(royaltyA))
	owner, oerr := m.registry.OwnerOf(tokenID)
	require.NoError(t, oerr)
	assert.Equal(t, seller, owner)
	assert.Equal(t, uint64(oneUnit), m.engine.Listings(listingID).Price)

	// After the recipient recovers, the same listing settles.
	m.payments.SetAcceptHook(royaltyA, nil)
	require.NoError(t, m.engine.BuyFromListing(buyer, listingID, oneUnit))
}

func TestBuyFromListing_ApprovalRevoked(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, oneUnit)

	tokenID, listingID := m.mintAndList(t, seller, nil, nil, oneUnit)

	// The seller invalidates the listing out-of-band.
	require.NoError(t, m.registry.SetApprovalForAll(seller, testEngineAddr, false))

	err := m.engine.BuyFromListing(buyer, listingID, oneUnit)
	assert.ErrorIs(t, err, ErrNotApproved)

	assert.Equal(t, uint64(oneUnit), m.payments.BalanceOf(buyer))
	owner, oerr := m.registry.OwnerOf(tokenID)
	require.NoError(t, oerr)
	assert.Equal(t, seller, owner)
}

func TestBuyFromListing_TokenMovedAway(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	buyer := makeAddr(0x03)
	elsewhere := makeAddr(0x04)
	m.payments.Deposit(buyer, oneUnit)

	tokenID, listingID := m.mintAndList(t, seller, nil, nil, oneUnit)
	require.NoError(t, m.registry.Transfer(seller, seller, elsewhere, tokenID))

	err := m.engine.BuyFromListing(buyer, listingID, oneUnit)
	assert.ErrorIs(t, err, ErrNotTokenOwner)
	assert.Equal(t, uint64(oneUnit), m.payments.BalanceOf(buyer))
}

func TestBuyFromListing_LiveRoyaltyRead(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	royaltyA := makeAddr(0x02)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, oneUnit)

	tokenID, listingID := m.mintAndList(t, seller, []token.Address{royaltyA}, []uint64{500}, oneUnit)

	// The split is read at settlement time, not listing time: clearing
	// royalties after listing changes the sale's economics.
	require.NoError(t, m.registry.RemoveRoyaltyRecipients(seller, tokenID))

	require.NoError(t, m.engine.BuyFromListing(buyer, listingID, oneUnit))
	assert.Zero(t, m.payments.BalanceOf(royaltyA))
	assert.Equal(t, uint64(oneUnit), m.payments.BalanceOf(seller))
}

// ---------------------------------------------------------------------------
// Full ownership purchases
// ---------------------------------------------------------------------------

func TestBuyFullOwnership(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	royaltyA := makeAddr(0x02)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, oneUnit)

	tokenID, listingID := m.mintAndList(t, seller, []token.Address{royaltyA}, []uint64{500}, oneUnit)

	require.NoError(t, m.engine.BuyFullOwnership(buyer, listingID, oneUnit))

	// This sale still honors the pre-existing split.
	assert.Equal(t, uint64(50_000), m.payments.BalanceOf(royaltyA))
	assert.Equal(t, uint64(950_000), m.payments.BalanceOf(seller))

	owner, err := m.registry.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)

	recs := m.events.ByType(EventFullOwnershipPurchased)
	require.Len(t, recs, 1)
	assert.Equal(t, FullOwnershipPurchasedEvent{
		ListingID:        listingID,
		Buyer:            buyer,
		Price:            oneUnit,
		TotalRoyaltyPaid: 50_000,
	}, recs[0].Payload.(FullOwnershipPurchasedEvent))
	assert.Empty(t, m.events.ByType(EventListingPurchased))

	// Future royalty obligations are extinguished, persistently.
	for i := 0; i < 2; i++ {
		recipients, percentages, err := m.registry.GetRoyaltyInfo(tokenID)
		require.NoError(t, err)
		assert.Empty(t, recipients)
		assert.Empty(t, percentages)
	}
}

func TestBuyFullOwnership_NoRoyalties(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, oneUnit)

	tokenID, listingID := m.mintAndList(t, seller, nil, nil, oneUnit)

	require.NoError(t, m.engine.BuyFullOwnership(buyer, listingID, oneUnit))
	assert.Equal(t, uint64(oneUnit), m.payments.BalanceOf(seller))

	owner, err := m.registry.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)
}

func TestBuyFullOwnership_RollbackRestoresRoyalties(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	royaltyA := makeAddr(0x02)
	buyer := makeAddr(0x03)
	elsewhere := makeAddr(0x04)
	m.payments.Deposit(buyer, oneUnit)

	tokenID, listingID := m.mintAndList(t, seller, []token.Address{royaltyA}, []uint64{500}, oneUnit)

	// A payment hook moves the token mid-settlement, after payouts but
	// before custody transfer. The whole operation must unwind.
	m.payments.SetAcceptHook(royaltyA, func(token.Address, uint64) error {
		return m.registry.Transfer(seller, seller, elsewhere, tokenID)
	})

	err := m.engine.BuyFullOwnership(buyer, listingID, oneUnit)
	require.Error(t, err)

	// Funds returned, royalty list restored, listing live again.
	assert.Equal(t, uint64(oneUnit), m.payments.BalanceOf(buyer))
	assert.Zero(t, m.payments.BalanceOf(seller))
	assert.Zero(t, m.payments.BalanceOf(royaltyA))

	recipients, percentages, gerr := m.registry.GetRoyaltyInfo(tokenID)
	require.NoError(t, gerr)
	assert.Equal(t, []token.Address{royaltyA}, recipients)
	assert.Equal(t, []uint64{500}, percentages)

	assert.Equal(t, uint64(oneUnit), m.engine.Listings(listingID).Price)
	assert.Empty(t, m.events.ByType(EventFullOwnershipPurchased))
}

// ---------------------------------------------------------------------------
// Reentrancy
// ---------------------------------------------------------------------------

func TestSettlement_ReentrantPurchaseFailsFast(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	royaltyA := makeAddr(0x02)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, 2*oneUnit)

	_, listingID := m.mintAndList(t, seller, []token.Address{royaltyA}, []uint64{500}, oneUnit)

	// The royalty recipient's payment callback re-enters the engine
	// targeting the same listing. It must observe the terminal state and
	// fail with not-found rather than re-execute settlement.
	var reentrantErr error
	m.payments.SetAcceptHook(royaltyA, func(token.Address, uint64) error {
		reentrantErr = m.engine.BuyFromListing(buyer, listingID, oneUnit)
		return nil
	})

	require.NoError(t, m.engine.BuyFromListing(buyer, listingID, oneUnit))
	assert.ErrorIs(t, reentrantErr, ErrListingNotFound)

	// Settled exactly once.
	assert.Equal(t, uint64(50_000), m.payments.BalanceOf(royaltyA))
	assert.Equal(t, uint64(950_000), m.payments.BalanceOf(seller))
	assert.Equal(t, uint64(oneUnit), m.payments.BalanceOf(buyer))
	assert.Len(t, m.events.ByType(EventListingPurchased), 1)
}

func TestSettlement_ReentrantDeleteFailsFast(t *testing.T) {
	m := newTestMarket(t)
	seller := makeAddr(0x01)
	royaltyA := makeAddr(0x02)
	buyer := makeAddr(0x03)
	m.payments.Deposit(buyer, oneUnit)

	_, listingID := m.mintAndList(t, seller, []token.Address{royaltyA}, []uint64{500}, oneUnit)

	var reentrantErr error
	m.payments.SetAcceptHook(royaltyA, func(token.Address, uint64) error {
		reentrantErr = m.engine.DeleteListing(seller, listingID)
		return nil
	})

	require.NoError(t, m.engine.BuyFromListing(buyer, listingID, oneUnit))
	assert.ErrorIs(t, reentrantErr, ErrListingNotFound)
}
