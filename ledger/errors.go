package ledger

import "errors"

var (
	// ErrInsufficientFunds indicates the payer balance cannot cover the
	// distribution total.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrTransferRejected indicates a recipient refused to accept funds.
	ErrTransferRejected = errors.New("ledger: transfer rejected by recipient")

	// ErrNoPayouts indicates a distribution with no payees.
	ErrNoPayouts = errors.New("ledger: no payouts")

	// ErrAmountOverflow indicates payout amounts overflow the balance type.
	ErrAmountOverflow = errors.New("ledger: amount overflow")

	// ErrReverseFailed indicates a compensating reversal could not be
	// applied because a payee balance was already spent.
	ErrReverseFailed = errors.New("ledger: reversal failed")

	// ErrNilParam indicates a nil required parameter.
	ErrNilParam = errors.New("ledger: nil parameter")
)
