package market

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfsorg/libnftmarket-go/ledger"
	"github.com/bitfsorg/libnftmarket-go/token"
)

// BuyFromListing purchases the listed token. payment must equal the
// listing price exactly. The live royalty split is read at settlement
// time; each recipient receives floor(price * bps / 10000) and the seller
// receives the remainder, so rounding dust stays with the seller.
func (e *Engine) BuyFromListing(buyer token.Address, listingID, payment uint64) error {
	return e.settle(buyer, listingID, payment, false)
}

// BuyFullOwnership is the purchase variant that additionally extinguishes
// all future royalty obligations on the token. The payout for this sale
// still honors the pre-existing split; royalty removal is a post-sale side
// effect, not a price discount.
func (e *Engine) BuyFullOwnership(buyer token.Address, listingID, payment uint64) error {
	return e.settle(buyer, listingID, payment, true)
}

// settle executes a purchase in two phases. Under the engine lock it
// validates the listing, reads the live royalty split, computes all
// payouts and commits the listing terminal. Only then do external effects
// run: payment distribution first, then the royalty clear for
// full-ownership sales, then custody transfer. Any failure unwinds the
// completed steps in reverse and reopens the listing, so the operation
// aborts with no partial fund movement or custody change.
func (e *Engine) settle(buyer token.Address, listingID, payment uint64, full bool) error {
	e.mu.Lock()

	l, err := e.store.Get(listingID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if l.Closed {
		e.mu.Unlock()
		return fmt.Errorf("%w: id %d", ErrListingNotFound, listingID)
	}
	if payment != l.Price {
		e.mu.Unlock()
		return fmt.Errorf("%w: paid %d, price %d", ErrInvalidPayment, payment, l.Price)
	}

	nft, err := e.contract(l.NFTContract)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	owner, err := nft.OwnerOf(l.TokenID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if owner != l.Seller {
		e.mu.Unlock()
		return fmt.Errorf("%w: token %d moved to %s", ErrNotTokenOwner, l.TokenID, owner)
	}
	approved, err := nft.IsApprovedOperator(l.Seller, e.addr)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if !approved {
		e.mu.Unlock()
		return fmt.Errorf("%w: seller %s revoked approval", ErrNotApproved, l.Seller)
	}

	split, err := nft.RoyaltySplit(l.TokenID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	payouts, totalRoyalty := computePayouts(l.Price, l.Seller, split)

	// Terminal commit before any external transfer: a reentrant call
	// targeting this listing from here on observes it as non-existent.
	if err := e.store.SetClosed(listingID, true); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("market: close listing: %w", err)
	}
	e.mu.Unlock()

	// Payments before custody.
	receipt, err := e.payments.Distribute(buyer, payouts)
	if err != nil {
		e.reopen(listingID)
		return fmt.Errorf("market: settlement payment: %w", err)
	}

	// Clear royalties while the seller still holds custody, so the
	// engine's operator approval covers the clear.
	var cleared []token.RoyaltyEntry
	if full && len(split) > 0 {
		if err := nft.RemoveRoyaltyRecipients(e.addr, l.TokenID); err != nil {
			e.unwind(nft, l, receipt, nil)
			return fmt.Errorf("market: clear royalties: %w", err)
		}
		cleared = split
	}

	if err := nft.Transfer(e.addr, l.Seller, buyer, l.TokenID); err != nil {
		e.unwind(nft, l, receipt, cleared)
		return fmt.Errorf("market: custody transfer: %w", err)
	}

	if full {
		e.events.Append(EventFullOwnershipPurchased, FullOwnershipPurchasedEvent{
			ListingID:        listingID,
			Buyer:            buyer,
			Price:            l.Price,
			TotalRoyaltyPaid: totalRoyalty,
		})
	} else {
		e.events.Append(EventListingPurchased, ListingPurchasedEvent{
			ListingID:        listingID,
			Buyer:            buyer,
			Price:            l.Price,
			TotalRoyaltyPaid: totalRoyalty,
		})
	}
	e.log.Info("settled purchase",
		zap.Uint64("listing_id", listingID),
		zap.String("buyer", buyer.String()),
		zap.Uint64("price", l.Price),
		zap.Uint64("total_royalty", totalRoyalty),
		zap.Bool("full_ownership", full))
	return nil
}

// unwind rolls back the completed settlement steps: restore a cleared
// royalty list, reverse the payment distribution, reopen the listing.
// Failures here indicate state mutated behind the engine's back mid-flight
// and are surfaced loudly in the log.
func (e *Engine) unwind(nft NFT, l *Listing, receipt *ledger.Receipt, cleared []token.RoyaltyEntry) {
	if len(cleared) > 0 {
		if err := nft.RestoreRoyalties(e.addr, l.TokenID, cleared); err != nil {
			e.log.Error("settlement rollback: restore royalties failed",
				zap.Uint64("token_id", l.TokenID), zap.Error(err))
		}
	}
	if receipt != nil {
		if err := e.payments.Reverse(receipt); err != nil {
			e.log.Error("settlement rollback: payment reversal failed",
				zap.Uint64("listing_id", l.ListingID), zap.Error(err))
		}
	}
	e.reopen(l.ListingID)
}

func (e *Engine) reopen(listingID uint64) {
	if err := e.store.SetClosed(listingID, false); err != nil {
		e.log.Error("settlement rollback: reopen listing failed",
			zap.Uint64("listing_id", listingID), zap.Error(err))
	}
}

// computePayouts builds the payout legs for a sale: one per royalty entry
// in registry order, floor(price * bps / 10000) each, then the seller with
// the remainder. Residual dust from integer rounding therefore stays with
// the seller.
func computePayouts(price uint64, seller token.Address, split []token.RoyaltyEntry) ([]ledger.Payout, uint64) {
	payouts := make([]ledger.Payout, 0, len(split)+1)
	var totalRoyalty uint64
	for _, entry := range split {
		amount := price * entry.PercentageBps / token.BpsDenominator
		payouts = append(payouts, ledger.Payout{To: entry.Recipient, Amount: amount})
		totalRoyalty += amount
	}
	payouts = append(payouts, ledger.Payout{To: seller, Amount: price - totalRoyalty})
	return payouts, totalRoyalty
}
