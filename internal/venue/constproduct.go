package venue

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	feeNum   = big.NewInt(997) // 30 bps pool fee, V2 style
	feeDenom = big.NewInt(1000)
)

type pool struct {
	reserveA *big.Int // reserves keyed by sorted pair order
	reserveB *big.Int
}

// ConstProductAdapter is the reference adapter: a constant-product AMM over
// in-memory pools, settling balances through a SimBank. It exists to exercise
// the full settlement path without a chain.
type ConstProductAdapter struct {
	addr  common.Address
	bank  *SimBank
	mu    sync.Mutex
	pools map[[2]common.Address]*pool
}

func NewConstProductAdapter(addr common.Address, bank *SimBank) *ConstProductAdapter {
	return &ConstProductAdapter{
		addr:  addr,
		bank:  bank,
		pools: make(map[[2]common.Address]*pool),
	}
}

func (a *ConstProductAdapter) Address() common.Address {
	return a.addr
}

// AddPool seeds reserves for one token pair and mints the adapter enough
// output-side inventory to honor swaps against it.
func (a *ConstProductAdapter) AddPool(tokenA, tokenB common.Address, reserveA, reserveB *big.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key, flipped := pairKey(tokenA, tokenB)
	if flipped {
		reserveA, reserveB = reserveB, reserveA
	}
	a.pools[key] = &pool{
		reserveA: new(big.Int).Set(reserveA),
		reserveB: new(big.Int).Set(reserveB),
	}
	a.bank.Mint(tokenA, a.addr, reserveA)
	a.bank.Mint(tokenB, a.addr, reserveB)
}

// Execute swaps along the route path hop by hop and delivers the final output
// to params.Recipient. The input amount must already sit on the adapter's
// address.
func (a *ConstProductAdapter) Execute(ctx context.Context, params ExecuteParams) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	amount := new(big.Int).Set(params.AmountIn)
	path := params.Route.Path
	for i := 0; i+1 < len(path); i++ {
		out, err := a.swap(path[i], path[i+1], amount)
		if err != nil {
			return nil, err
		}
		amount = out
	}

	outToken := path[len(path)-1]
	if err := a.bank.Transfer(ctx, outToken, a.addr, params.Recipient, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// Snapshot copies pool reserves and returns a closure restoring them. The
// bank snapshots its own balances separately.
func (a *ConstProductAdapter) Snapshot() func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	saved := make(map[[2]common.Address]*pool, len(a.pools))
	for key, p := range a.pools {
		saved[key] = &pool{
			reserveA: new(big.Int).Set(p.reserveA),
			reserveB: new(big.Int).Set(p.reserveB),
		}
	}
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.pools = saved
	}
}

// swap applies the constant-product formula with the 30 bps fee:
// out = in*997*rOut / (rIn*1000 + in*997)
func (a *ConstProductAdapter) swap(tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	key, flipped := pairKey(tokenIn, tokenOut)
	p, ok := a.pools[key]
	if !ok {
		return nil, fmt.Errorf("no pool for pair %s/%s", tokenIn.Hex(), tokenOut.Hex())
	}
	rIn, rOut := p.reserveA, p.reserveB
	if flipped {
		rIn, rOut = rOut, rIn
	}

	inWithFee := new(big.Int).Mul(amountIn, feeNum)
	numerator := new(big.Int).Mul(inWithFee, rOut)
	denominator := new(big.Int).Mul(rIn, feeDenom)
	denominator.Add(denominator, inWithFee)
	out := numerator.Div(numerator, denominator)

	if out.Sign() <= 0 {
		return nil, fmt.Errorf("swap produced zero output for pair %s/%s", tokenIn.Hex(), tokenOut.Hex())
	}

	rIn.Add(rIn, amountIn)
	rOut.Sub(rOut, out)
	return out, nil
}

func pairKey(a, b common.Address) (key [2]common.Address, flipped bool) {
	if bytesLess(b, a) {
		return [2]common.Address{b, a}, true
	}
	return [2]common.Address{a, b}, false
}

func bytesLess(a, b common.Address) bool {
	for i := 0; i < common.AddressLength; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
