// Package economy holds the global currency ledger: one non-negative integer
// balance per account, persisted as a single document in the backing store.
package economy

import (
	"fmt"

	"shopcraft.gg/internal/persistence/kvstore"
)

const balancesKey = "balances"

// Ledger is the balance store. Every mutation reads the whole balances
// document, changes it in memory, and writes the whole document back; the
// balance seen by Get is never allowed to go below zero.
type Ledger struct {
	store           kvstore.Store
	startingBalance int64
}

func NewLedger(store kvstore.Store, startingBalance int64) *Ledger {
	if startingBalance < 0 {
		startingBalance = 0
	}
	return &Ledger{store: store, startingBalance: startingBalance}
}

func (l *Ledger) balances() (map[string]int64, error) {
	b := map[string]int64{}
	if _, err := l.store.Get(balancesKey, &b); err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	return b, nil
}

// Get returns the account's balance. An unseen account is initialized to the
// starting balance, and that initialization is persisted before returning.
func (l *Ledger) Get(account string) (int64, error) {
	b, err := l.balances()
	if err != nil {
		return 0, err
	}
	v, ok := b[account]
	if !ok {
		v = l.startingBalance
		b[account] = v
		if err := l.store.Put(balancesKey, b); err != nil {
			return 0, fmt.Errorf("persist balances: %w", err)
		}
	}
	return v, nil
}

// Set stores max(0, amount) for the account. Negative amounts are clamped,
// never rejected: currency must not go negative, and the over-debit guard is
// the caller's funds pre-check.
func (l *Ledger) Set(account string, amount int64) error {
	if amount < 0 {
		amount = 0
	}
	b, err := l.balances()
	if err != nil {
		return err
	}
	b[account] = amount
	if err := l.store.Put(balancesKey, b); err != nil {
		return fmt.Errorf("persist balances: %w", err)
	}
	return nil
}

// Add applies delta (negative for a debit) and returns the resulting balance.
func (l *Ledger) Add(account string, delta int64) (int64, error) {
	cur, err := l.Get(account)
	if err != nil {
		return 0, err
	}
	next := cur + delta
	if next < 0 {
		next = 0
	}
	if err := l.Set(account, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Transfer moves amount from one account to another. It rejects non-positive
// amounts and insufficient funds before touching either balance.
func (l *Ledger) Transfer(from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	if from == to {
		return fmt.Errorf("transfer to self")
	}
	cur, err := l.Get(from)
	if err != nil {
		return err
	}
	if cur < amount {
		return fmt.Errorf("insufficient funds: have %d, need %d", cur, amount)
	}
	if _, err := l.Add(from, -amount); err != nil {
		return err
	}
	_, err = l.Add(to, amount)
	return err
}
