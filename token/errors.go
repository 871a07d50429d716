package token

import "errors"

var (
	// ErrArityMismatch indicates the recipient and percentage inputs to
	// a mint have different lengths.
	ErrArityMismatch = errors.New("token: recipients and percentages mismatch")

	// ErrRoyaltyOverflow indicates a royalty list whose shares sum to
	// more than 100%.
	ErrRoyaltyOverflow = errors.New("token: total royalty exceeds 100%")

	// ErrTokenNotFound indicates the token id does not exist.
	ErrTokenNotFound = errors.New("token: token not found")

	// ErrNotAuthorized indicates the caller may not move or mutate the
	// token (not the owner, an approved operator, or a trusted party).
	ErrNotAuthorized = errors.New("token: not authorized")

	// ErrNotOwner indicates the stated sender does not own the token.
	ErrNotOwner = errors.New("token: sender does not own token")

	// ErrZeroAddress indicates the zero address where a real address is
	// required.
	ErrZeroAddress = errors.New("token: zero address")

	// ErrInvalidAddress indicates a malformed address encoding.
	ErrInvalidAddress = errors.New("token: invalid address")

	// ErrNilParam indicates a nil required parameter.
	ErrNilParam = errors.New("token: nil parameter")
)
