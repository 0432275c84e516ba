package venue

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/settlegate/settlegate/internal/model"
	"github.com/settlegate/settlegate/internal/signer"
)

// SimBank is an in-memory token ledger standing in for the on-chain transfer
// layer in dev mode and tests. It satisfies both collaborator interfaces the
// executor consumes: the permit transfer service and the token mover.
type SimBank struct {
	domain   *signer.Domain
	mu       sync.Mutex
	balances map[common.Address]map[common.Address]*big.Int // token -> holder -> balance
}

func NewSimBank(domain *signer.Domain) *SimBank {
	return &SimBank{
		domain:   domain,
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits a holder out of thin air. Test and dev seeding only.
func (b *SimBank) Mint(token, holder common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(token, holder, amount)
}

func (b *SimBank) Balance(_ context.Context, token, holder common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.balance(token, holder)), nil
}

// Transfer moves tokens between holders, failing on insufficient balance.
func (b *SimBank) Transfer(_ context.Context, token, from, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(token, from, to, amount)
}

// PermitTransfer validates the witness-bound permit signature and moves the
// permit amount from the maker to the recipient, the way the on-chain permit
// service would.
func (b *SimBank) PermitTransfer(_ context.Context, trade *model.Trade, to common.Address) error {
	if err := signer.VerifyPermitSignature(b.domain, &trade.Permit, &trade.Order, trade.PermitSignature); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(trade.Permit.Token, trade.Order.Maker, to, trade.Permit.Amount)
}

// Snapshot copies the full balance table and returns a closure restoring it.
func (b *SimBank) Snapshot() func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	saved := make(map[common.Address]map[common.Address]*big.Int, len(b.balances))
	for token, holders := range b.balances {
		copied := make(map[common.Address]*big.Int, len(holders))
		for holder, bal := range holders {
			copied[holder] = new(big.Int).Set(bal)
		}
		saved[token] = copied
	}
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.balances = saved
	}
}

func (b *SimBank) balance(token, holder common.Address) *big.Int {
	holders, ok := b.balances[token]
	if !ok {
		return big.NewInt(0)
	}
	bal, ok := holders[holder]
	if !ok {
		return big.NewInt(0)
	}
	return bal
}

func (b *SimBank) credit(token, holder common.Address, amount *big.Int) {
	holders, ok := b.balances[token]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		b.balances[token] = holders
	}
	cur, ok := holders[holder]
	if !ok {
		cur = big.NewInt(0)
		holders[holder] = cur
	}
	cur.Add(cur, amount)
}

func (b *SimBank) move(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid transfer amount")
	}
	bal := b.balance(token, from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance: %s holds %s of %s, need %s",
			from.Hex(), bal, token.Hex(), amount)
	}
	bal.Sub(bal, amount)
	b.credit(token, to, amount)
	return nil
}
