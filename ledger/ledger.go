// Package ledger implements the value-transfer primitive consumed by
// marketplace settlement: per-address balances with atomic multi-payee
// distribution.
//
// A distribution debits the payer and credits every payee as a single
// all-or-nothing unit. Recipients may carry an accept hook that can refuse
// funds; hooks run before any balance is credited, so a refusal aborts the
// whole distribution with the payer made whole. Hooks execute without the
// ledger lock held and may therefore call back into the ledger or the
// marketplace.
package ledger

import (
	"fmt"
	"math"
	"sync"

	"github.com/bitfsorg/libnftmarket-go/token"
)

// AcceptFunc decides whether an address accepts an incoming credit.
// Returning a non-nil error refuses the funds and aborts the distribution.
type AcceptFunc func(to token.Address, amount uint64) error

// Payout is one (payee, amount) leg of a distribution.
type Payout struct {
	To     token.Address
	Amount uint64
}

// Receipt records a committed distribution for compensating reversal.
type Receipt struct {
	From    token.Address
	Total   uint64
	Payouts []Payout
}

// Ledger tracks balances in the smallest currency unit.
type Ledger struct {
	mu       sync.Mutex
	balances map[token.Address]uint64
	hooks    map[token.Address]AcceptFunc
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances: make(map[token.Address]uint64),
		hooks:    make(map[token.Address]AcceptFunc),
	}
}

// Deposit credits addr with amount.
func (l *Ledger) Deposit(addr token.Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] += amount
}

// BalanceOf returns the current balance of addr.
func (l *Ledger) BalanceOf(addr token.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

// SetAcceptHook installs an accept hook for addr. A nil fn removes the hook.
func (l *Ledger) SetAcceptHook(addr token.Address, fn AcceptFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fn == nil {
		delete(l.hooks, addr)
		return
	}
	l.hooks[addr] = fn
}

// Distribute moves the sum of payouts from the payer to the payees as one
// atomic unit. On any failure no balance changes; on success the returned
// receipt can undo the distribution via Reverse.
func (l *Ledger) Distribute(from token.Address, payouts []Payout) (*Receipt, error) {
	if len(payouts) == 0 {
		return nil, ErrNoPayouts
	}

	var total uint64
	for _, p := range payouts {
		if p.Amount > math.MaxUint64-total {
			return nil, fmt.Errorf("%w: payout total", ErrAmountOverflow)
		}
		total += p.Amount
	}

	// Reserve the payer's funds up front. The debit is visible to any
	// nested operation triggered by an accept hook, which matches funds
	// being in flight.
	l.mu.Lock()
	if l.balances[from] < total {
		have := l.balances[from]
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, total, have)
	}
	l.balances[from] -= total
	hooks := make([]AcceptFunc, len(payouts))
	for i, p := range payouts {
		hooks[i] = l.hooks[p.To]
	}
	l.mu.Unlock()

	// Ask every recipient before crediting anyone. A refusal refunds the
	// payer and leaves all payees untouched.
	for i, p := range payouts {
		if hooks[i] == nil {
			continue
		}
		if err := hooks[i](p.To, p.Amount); err != nil {
			l.mu.Lock()
			l.balances[from] += total
			l.mu.Unlock()
			return nil, fmt.Errorf("%w: %s: %v", ErrTransferRejected, p.To, err)
		}
	}

	l.mu.Lock()
	for _, p := range payouts {
		l.balances[p.To] += p.Amount
	}
	l.mu.Unlock()

	return &Receipt{
		From:    from,
		Total:   total,
		Payouts: append([]Payout(nil), payouts...),
	}, nil
}

// Reverse undoes a committed distribution: every payee is debited and the
// payer credited back. It fails without changes if any payee balance no
// longer covers its payout.
func (l *Ledger) Reverse(r *Receipt) error {
	if r == nil {
		return fmt.Errorf("%w: receipt", ErrNilParam)
	}

	// Aggregate per payee first: the same address may appear in several
	// payouts.
	owed := make(map[token.Address]uint64, len(r.Payouts))
	for _, p := range r.Payouts {
		owed[p.To] += p.Amount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for to, amount := range owed {
		if l.balances[to] < amount {
			return fmt.Errorf("%w: %s holds %d of %d", ErrReverseFailed, to, l.balances[to], amount)
		}
	}
	for to, amount := range owed {
		l.balances[to] -= amount
	}
	l.balances[r.From] += r.Total
	return nil
}
