package service

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlegate/settlegate/internal/ledger"
	"github.com/settlegate/settlegate/internal/model"
	"github.com/settlegate/settlegate/internal/pkg/apperrors"
	"github.com/settlegate/settlegate/internal/repository"
	"github.com/settlegate/settlegate/internal/signer"
	"github.com/settlegate/settlegate/internal/validation"
	"github.com/settlegate/settlegate/internal/venue"
)

var (
	tokenA      = common.HexToAddress("0xAAAA000000000000000000000000000000000001")
	tokenB      = common.HexToAddress("0xBBBB000000000000000000000000000000000002")
	tokenC      = common.HexToAddress("0xCCCC000000000000000000000000000000000003")
	adapterAddr = common.HexToAddress("0x4444000000000000000000000000000000000004")
	relayerAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
	holdingAddr = common.HexToAddress("0x1000000000000000000000000000000000000001")
)

type harness struct {
	executor *Executor
	store    *ConfigStore
	nonces   ledger.Store
	bank     *venue.SimBank
	adapter  *venue.ConstProductAdapter
	registry *venue.StaticRegistry
	signer   *signer.Signer
	domain   *signer.Domain
	maker    common.Address
}

func newHarness(t *testing.T, feeRateBps int) *harness {
	t.Helper()

	domain := signer.NewDomain(137, common.HexToAddress("0xC000000000000000000000000000000000000003"))
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s, err := signer.NewSigner(hexutil.Encode(crypto.FromECDSA(key))[2:], domain)
	require.NoError(t, err)

	bank := venue.NewSimBank(domain)
	adapter := venue.NewConstProductAdapter(adapterAddr, bank)
	adapter.AddPool(tokenA, tokenB, big.NewInt(1_000_000), big.NewInt(1_000_000))

	registry := venue.NewStaticRegistry()
	registry.Register(model.VenueInfo{
		Protocol: model.ProtocolUniswapV2,
		Adapter:  adapterAddr,
		Active:   true,
		Version:  1,
		Name:     "v2-reference",
	})

	store, err := NewConfigStore(registry, feeRateBps)
	require.NoError(t, err)
	store.AddWhitelisted(tokenC)

	nonces := ledger.NewMemoryStore()
	engine := validation.NewEngine(store, nonces)
	codes := venue.NewStaticCodeChecker(adapterAddr, tokenA, tokenB, tokenC)

	executor := NewExecutor(store, engine, nonces, domain, codes, bank, bank,
		repository.NewMemoryRecordStore(0), holdingAddr)
	executor.RegisterAdapter(adapter)

	bank.Mint(tokenA, s.Address(), big.NewInt(1000))

	return &harness{
		executor: executor,
		store:    store,
		nonces:   nonces,
		bank:     bank,
		adapter:  adapter,
		registry: registry,
		signer:   s,
		domain:   domain,
		maker:    s.Address(),
	}
}

func (h *harness) signedTrade(t *testing.T, nonce uint64, minOut int64) *model.Trade {
	t.Helper()
	expiry := uint64(2_000_000_000)
	order := model.Order{
		Maker:        h.maker,
		InputToken:   tokenA,
		InputAmount:  big.NewInt(1000),
		OutputToken:  tokenB,
		MinAmountOut: big.NewInt(minOut),
		Expiry:       expiry,
		Nonce:        nonce,
	}
	permit := model.Permit{
		Token:    order.InputToken,
		Amount:   order.InputAmount,
		Nonce:    order.Nonce,
		Deadline: order.Expiry,
	}
	orderSig, err := h.signer.SignOrder(&order)
	require.NoError(t, err)
	permitSig, err := h.signer.SignPermit(&permit, &order)
	require.NoError(t, err)
	return &model.Trade{
		Order:           order,
		OrderSignature:  orderSig,
		Permit:          permit,
		PermitSignature: permitSig,
	}
}

func v2Route() *model.RouteData {
	return &model.RouteData{Protocol: model.ProtocolUniswapV2, Path: []common.Address{tokenA, tokenB}}
}

func balance(t *testing.T, h *harness, token, holder common.Address) *big.Int {
	t.Helper()
	bal, err := h.bank.Balance(context.Background(), token, holder)
	require.NoError(t, err)
	return bal
}

func TestSettle_HappyPath(t *testing.T) {
	h := newHarness(t, 250)
	ctx := context.Background()

	trade := h.signedTrade(t, 1, 1)
	result, err := h.executor.Settle(ctx, relayerAddr, trade, v2Route())
	require.NoError(t, err)

	// fee + maker payout must cover the full realized output
	total := new(big.Int).Add(result.FeeAmount, result.MakerOut)
	assert.Zero(t, total.Cmp(result.AmountOut))

	// input left the maker, payouts landed
	assert.Zero(t, balance(t, h, tokenA, h.maker).Sign())
	assert.Zero(t, balance(t, h, tokenB, h.maker).Cmp(result.MakerOut))
	assert.Zero(t, balance(t, h, tokenB, relayerAddr).Cmp(result.FeeAmount))
	// nothing stuck on the holding address
	assert.Zero(t, balance(t, h, tokenB, holdingAddr).Sign())

	used, err := h.nonces.Used(ctx, h.maker, 1)
	require.NoError(t, err)
	assert.True(t, used)

	records, err := h.executor.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.RecordID, records[0].ID)
	assert.Equal(t, "TOKEN_IN_TOKEN_OUT", records[0].TradeType)
}

func TestSettle_ReplayRejected(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	trade := h.signedTrade(t, 1, 1)
	_, err := h.executor.Settle(ctx, relayerAddr, trade, v2Route())
	require.NoError(t, err)

	// Even with fresh funds the same (maker, nonce) can never settle again
	h.bank.Mint(tokenA, h.maker, big.NewInt(1000))
	_, err = h.executor.Settle(ctx, relayerAddr, trade, v2Route())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrReplay))
}

func TestSettle_BelowMinOut_FullRollback(t *testing.T) {
	h := newHarness(t, 250)
	ctx := context.Background()

	// Pool can never produce 10000 from 1000 in
	trade := h.signedTrade(t, 1, 10_000)
	_, err := h.executor.Settle(ctx, relayerAddr, trade, v2Route())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrOutcome))

	// Nonce unwound, maker funds restored, nothing paid out
	used, err := h.nonces.Used(ctx, h.maker, 1)
	require.NoError(t, err)
	assert.False(t, used)
	assert.Equal(t, int64(1000), balance(t, h, tokenA, h.maker).Int64())
	assert.Zero(t, balance(t, h, tokenB, h.maker).Sign())
	assert.Zero(t, balance(t, h, tokenB, relayerAddr).Sign())

	// The same order settles fine once the guarantee is realistic
	retry := h.signedTrade(t, 1, 900)
	_, err = h.executor.Settle(ctx, relayerAddr, retry, v2Route())
	assert.NoError(t, err)
}

func TestSettle_TamperedOrderSignature(t *testing.T) {
	h := newHarness(t, 0)

	trade := h.signedTrade(t, 1, 1)
	trade.Order.MinAmountOut = big.NewInt(2) // diverges from what was signed

	_, err := h.executor.Settle(context.Background(), relayerAddr, trade, v2Route())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSignature))
}

func TestSettle_InactiveVenue(t *testing.T) {
	h := newHarness(t, 0)
	h.registry.Register(model.VenueInfo{
		Protocol: model.ProtocolUniswapV2,
		Adapter:  adapterAddr,
		Active:   false,
		Version:  1,
		Name:     "v2-reference",
	})

	trade := h.signedTrade(t, 1, 1)
	_, err := h.executor.Settle(context.Background(), relayerAddr, trade, v2Route())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrVenue))
	assert.Equal(t, "venue_inactive", apperrors.Reason(err))
}

func TestSettle_AdapterWithoutCode(t *testing.T) {
	h := newHarness(t, 0)
	bare := common.HexToAddress("0x5555000000000000000000000000000000000005")
	h.registry.Register(model.VenueInfo{
		Protocol: model.ProtocolUniswapV2,
		Adapter:  bare, // never added to the code checker
		Active:   true,
		Version:  1,
		Name:     "bare-eoa",
	})

	trade := h.signedTrade(t, 1, 1)
	_, err := h.executor.Settle(context.Background(), relayerAddr, trade, v2Route())
	require.Error(t, err)
	assert.Equal(t, "adapter_not_contract", apperrors.Reason(err))
}

// mismatchRegistry resolves every protocol to the same venue info, the way a
// misconfigured registry deployment would.
type mismatchRegistry struct{ info model.VenueInfo }

func (r mismatchRegistry) Resolve(model.Protocol) (model.VenueInfo, error) {
	return r.info, nil
}

func TestSettle_RegistryProtocolMismatch(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.store.SetRegistry(mismatchRegistry{info: model.VenueInfo{
		Protocol: model.ProtocolUniswapV3,
		Adapter:  adapterAddr,
		Active:   true,
		Version:  1,
		Name:     "wrong-family",
	}}))

	trade := h.signedTrade(t, 1, 1)
	_, err := h.executor.Settle(context.Background(), relayerAddr, trade, v2Route())
	require.Error(t, err)
	assert.Equal(t, "protocol_mismatch", apperrors.Reason(err))
}

// reentrantAdapter calls back into Settle from inside Execute, like a
// malicious venue contract would.
type reentrantAdapter struct {
	addr     common.Address
	executor *Executor
	relayer  common.Address
	trade    *model.Trade
	route    *model.RouteData
	inner    error
}

func (a *reentrantAdapter) Address() common.Address { return a.addr }

func (a *reentrantAdapter) Execute(ctx context.Context, _ venue.ExecuteParams) (*big.Int, error) {
	_, a.inner = a.executor.Settle(ctx, a.relayer, a.trade, a.route)
	return nil, a.inner
}

func TestSettle_ReentrancyGuard(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	trade := h.signedTrade(t, 1, 1)
	route := v2Route()
	evil := &reentrantAdapter{
		addr:     adapterAddr,
		executor: h.executor,
		relayer:  relayerAddr,
		trade:    trade,
		route:    route,
	}
	h.executor.RegisterAdapter(evil) // replaces the honest binding

	_, err := h.executor.Settle(ctx, relayerAddr, trade, route)
	require.Error(t, err)
	require.Error(t, evil.inner)
	assert.True(t, apperrors.Is(evil.inner, apperrors.ErrReentrancy))

	// The aborted settlement left no trace
	used, err := h.nonces.Used(ctx, h.maker, 1)
	require.NoError(t, err)
	assert.False(t, used)
	assert.Equal(t, int64(1000), balance(t, h, tokenA, h.maker).Int64())
}

func TestSettle_MultiHopThroughWhitelist(t *testing.T) {
	h := newHarness(t, 100)
	h.adapter.AddPool(tokenA, tokenC, big.NewInt(1_000_000), big.NewInt(1_000_000))
	h.adapter.AddPool(tokenC, tokenB, big.NewInt(1_000_000), big.NewInt(1_000_000))

	trade := h.signedTrade(t, 1, 1)
	route := &model.RouteData{
		Protocol: model.ProtocolUniswapV2,
		Path:     []common.Address{tokenA, tokenC, tokenB},
	}

	result, err := h.executor.Settle(context.Background(), relayerAddr, trade, route)
	require.NoError(t, err)
	assert.Positive(t, result.AmountOut.Sign())
}

func TestCancelNonce(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	cancelSig, err := h.signer.SignCancel(1)
	require.NoError(t, err)
	require.NoError(t, h.executor.CancelNonce(ctx, h.maker, 1, cancelSig))

	// Cancelling again is a replay
	err = h.executor.CancelNonce(ctx, h.maker, 1, cancelSig)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrReplay))

	// A signed order on that nonce can no longer settle
	trade := h.signedTrade(t, 1, 1)
	_, err = h.executor.Settle(ctx, relayerAddr, trade, v2Route())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrReplay))
	// and no tokens moved
	assert.Equal(t, int64(1000), balance(t, h, tokenA, h.maker).Int64())
}

func TestCancelNonceRequiresMakerSignature(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	strangerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	stranger, err := signer.NewSigner(hexutil.Encode(crypto.FromECDSA(strangerKey))[2:], h.domain)
	require.NoError(t, err)

	// A stranger signing the cancel for the maker's nonce is refused
	forged, err := stranger.SignCancel(7)
	require.NoError(t, err)
	err = h.executor.CancelNonce(ctx, h.maker, 7, forged)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSignature))

	// A maker signature over a different nonce does not transfer
	otherNonce, err := h.signer.SignCancel(8)
	require.NoError(t, err)
	err = h.executor.CancelNonce(ctx, h.maker, 7, otherNonce)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSignature))

	// The nonce survived both attempts: the maker's order still settles
	trade := h.signedTrade(t, 7, 7)
	_, err = h.executor.Settle(ctx, relayerAddr, trade, v2Route())
	require.NoError(t, err)
}

func TestSplitFee(t *testing.T) {
	cases := []struct {
		name      string
		amountOut int64
		bps       int
		wantFee   int64
		wantMaker int64
	}{
		{"250 bps of 1000", 1000, 250, 25, 975},
		{"zero rate", 1000, 0, 0, 1000},
		{"rounds down to zero", 39, 250, 0, 39},
		{"floor division", 999, 250, 24, 975},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, makerOut := SplitFee(big.NewInt(tc.amountOut), tc.bps)
			assert.Equal(t, tc.wantFee, fee.Int64())
			assert.Equal(t, tc.wantMaker, makerOut.Int64())
		})
	}
}

func TestCounterValueBeyondInt64(t *testing.T) {
	// 10^24: a plausible fee in 18-decimal base units, well past int64
	huge, ok := new(big.Int).SetString("1000000000000000000000000", 10)
	require.True(t, ok)

	got := counterValue(huge)
	assert.InEpsilon(t, 1e24, got, 1e-9)

	// small amounts stay exact
	assert.Equal(t, float64(25), counterValue(big.NewInt(25)))
	assert.Zero(t, counterValue(big.NewInt(0)))
}
