package market

import "errors"

var (
	// ErrListingNotFound indicates the listing id does not exist or has
	// reached a terminal state.
	ErrListingNotFound = errors.New("market: listing not found")

	// ErrNotSeller indicates a listing mutation by someone other than the
	// address that created it.
	ErrNotSeller = errors.New("market: not the seller")

	// ErrInvalidPayment indicates the payment does not exactly match the
	// listing price.
	ErrInvalidPayment = errors.New("market: payment does not match price")

	// ErrInvalidPrice indicates a listing price of zero.
	ErrInvalidPrice = errors.New("market: price must be positive")

	// ErrPriceOverflow indicates a price too large for royalty arithmetic.
	ErrPriceOverflow = errors.New("market: price overflows royalty arithmetic")

	// ErrNotTokenOwner indicates the caller does not own the token being
	// listed.
	ErrNotTokenOwner = errors.New("market: caller does not own token")

	// ErrNotApproved indicates the marketplace lacks operator approval
	// over the seller's tokens.
	ErrNotApproved = errors.New("market: marketplace not approved as operator")

	// ErrUnknownContract indicates the token source address is not
	// registered with the engine.
	ErrUnknownContract = errors.New("market: unknown token contract")

	// ErrNilParam indicates a nil required parameter.
	ErrNilParam = errors.New("market: nil parameter")
)
