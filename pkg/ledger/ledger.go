// Package ledger folds an ordered stream of transfer records into an
// owner -> asset -> balance table.
//
// Owners, and assets within an owner, iterate in the order they were first
// referenced during replay. Every encoding emits that order, so the same
// record stream always serialises to the same bytes.
package ledger

import (
	"math/big"
	"slices"

	"github.com/ava-labs/libevm/common"

	"github.com/ava-labs/token-ledger/pkg/transfer"
)

// Entry is one owner/asset balance.
type Entry struct {
	Owner   common.Address
	AssetID string
	Balance *big.Int
}

type account struct {
	assets   []string
	balances map[string]*big.Int
}

// Ledger is a two-level ordered mapping of owner to asset to signed balance.
// Balances may be negative: history before the replayed range is unknown.
type Ledger struct {
	owners   []common.Address
	accounts map[common.Address]*account
}

func newLedger() *Ledger {
	return &Ledger{accounts: make(map[common.Address]*account)}
}

// Replay folds records strictly in input order. For each record the sender's
// balance is decremented and the recipient's incremented by Amount.
func Replay(records []transfer.Transfer) *Ledger {
	l := newLedger()
	for _, r := range records {
		amount := r.Amount
		if amount == nil {
			amount = new(big.Int)
		}
		l.add(r.From, r.AssetID, new(big.Int).Neg(amount))
		l.add(r.To, r.AssetID, amount)
	}
	return l
}

func (l *Ledger) entry(owner common.Address, asset string) *big.Int {
	l.ensureOwner(owner)
	acc := l.accounts[owner]
	bal, ok := acc.balances[asset]
	if !ok {
		bal = new(big.Int)
		acc.balances[asset] = bal
		acc.assets = append(acc.assets, asset)
	}
	return bal
}

func (l *Ledger) add(owner common.Address, asset string, delta *big.Int) {
	bal := l.entry(owner, asset)
	bal.Add(bal, delta)
}

// Balance returns a copy of the balance, zero when the entry does not exist.
func (l *Ledger) Balance(owner common.Address, asset string) *big.Int {
	if acc, ok := l.accounts[owner]; ok {
		if bal, ok := acc.balances[asset]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return new(big.Int)
}

// Owners returns the owners in first-reference order.
func (l *Ledger) Owners() []common.Address {
	return slices.Clone(l.owners)
}

// Assets returns the assets held by owner in first-reference order.
func (l *Ledger) Assets(owner common.Address) []string {
	if acc, ok := l.accounts[owner]; ok {
		return slices.Clone(acc.assets)
	}
	return nil
}

// Len returns the number of owner/asset entries.
func (l *Ledger) Len() int {
	n := 0
	for _, acc := range l.accounts {
		n += len(acc.assets)
	}
	return n
}

// Each calls fn for every entry in iteration order. The balance passed to fn
// must not be modified.
func (l *Ledger) Each(fn func(owner common.Address, asset string, balance *big.Int)) {
	for _, owner := range l.owners {
		acc := l.accounts[owner]
		for _, asset := range acc.assets {
			fn(owner, asset, acc.balances[asset])
		}
	}
}

// Entries returns copies of every entry in iteration order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, l.Len())
	l.Each(func(owner common.Address, asset string, balance *big.Int) {
		out = append(out, Entry{Owner: owner, AssetID: asset, Balance: new(big.Int).Set(balance)})
	})
	return out
}

// Supply sums the balances of asset across all owners, the zero address
// included. For any complete replay it is zero.
func (l *Ledger) Supply(asset string) *big.Int {
	sum := new(big.Int)
	for _, acc := range l.accounts {
		if bal, ok := acc.balances[asset]; ok {
			sum.Add(sum, bal)
		}
	}
	return sum
}

// Equal reports whether both ledgers hold the same entries in the same order.
func (l *Ledger) Equal(o *Ledger) bool {
	if l == nil || o == nil {
		return l == o
	}
	if !slices.Equal(l.owners, o.owners) {
		return false
	}
	for _, owner := range l.owners {
		a, b := l.accounts[owner], o.accounts[owner]
		if !slices.Equal(a.assets, b.assets) {
			return false
		}
		for _, asset := range a.assets {
			if a.balances[asset].Cmp(b.balances[asset]) != 0 {
				return false
			}
		}
	}
	return true
}
