package service

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/settlegate/settlegate/internal/ledger"
	"github.com/settlegate/settlegate/internal/model"
	"github.com/settlegate/settlegate/internal/pkg/apperrors"
	"github.com/settlegate/settlegate/internal/pkg/logger"
	"github.com/settlegate/settlegate/internal/pkg/metrics"
	"github.com/settlegate/settlegate/internal/signer"
	"github.com/settlegate/settlegate/internal/validation"
	"github.com/settlegate/settlegate/internal/venue"
)

var bpsDenominator = big.NewInt(10000)

// PermitTransfer is the external signature-based transfer service: given a
// valid witness-bound permit it pulls the permit amount from the maker
// straight to the recipient.
type PermitTransfer interface {
	PermitTransfer(ctx context.Context, trade *model.Trade, to common.Address) error
}

// TokenMover moves assets held by the executor during payout and recovery.
type TokenMover interface {
	Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error
	Balance(ctx context.Context, token, holder common.Address) (*big.Int, error)
}

// Snapshotter is an optional collaborator capability: a point-in-time state
// capture with an undo closure. The executor snapshots every collaborator
// that supports it before the effectful stage, so a failure mid-settlement
// unwinds token moves the same way it unwinds the nonce mark. On-chain
// collaborators get this from the execution environment instead.
type Snapshotter interface {
	Snapshot() (restore func())
}

// RecordStore persists settlement records for observability.
type RecordStore interface {
	Insert(ctx context.Context, record *model.SettlementRecord) error
	Recent(ctx context.Context, limit int) ([]*model.SettlementRecord, error)
}

// SettleResult is the realized outcome handed back to the relayer.
type SettleResult struct {
	RecordID  string
	AmountOut *big.Int
	FeeAmount *big.Int
	MakerOut  *big.Int
}

// Executor is the settlement orchestrator: the only component that mutates
// state. It sequences validation, nonce consumption, the permit pull, adapter
// dispatch, the min-out check, and the fee split.
type Executor struct {
	store    *ConfigStore
	engine   *validation.Engine
	nonces   ledger.Store
	domain   *signer.Domain
	codes    venue.CodeChecker
	permits  PermitTransfer
	mover    TokenMover
	records  RecordStore
	holding  common.Address
	guard    entryGuard
	mu       sync.RWMutex
	adapters map[common.Address]venue.Adapter
}

func NewExecutor(
	store *ConfigStore,
	engine *validation.Engine,
	nonces ledger.Store,
	domain *signer.Domain,
	codes venue.CodeChecker,
	permits PermitTransfer,
	mover TokenMover,
	records RecordStore,
	holding common.Address,
) *Executor {
	return &Executor{
		store:    store,
		engine:   engine,
		nonces:   nonces,
		domain:   domain,
		codes:    codes,
		permits:  permits,
		mover:    mover,
		records:  records,
		holding:  holding,
		adapters: make(map[common.Address]venue.Adapter),
	}
}

// RegisterAdapter binds an adapter implementation to its registry address.
func (e *Executor) RegisterAdapter(a venue.Adapter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adapters[a.Address()] = a
}

// Holding is the executor's asset-holding address; adapters deliver swap
// output here and payouts draw from it.
func (e *Executor) Holding() common.Address {
	return e.holding
}

// Settle validates and executes one trade against the routed venue. Either
// every effect lands (nonce consumed, tokens swapped, payouts done, record
// written) or none do: any failure after the nonce mark unwinds it.
func (e *Executor) Settle(ctx context.Context, relayer common.Address, trade *model.Trade, route *model.RouteData) (*SettleResult, error) {
	if err := e.guard.enter(); err != nil {
		return nil, err
	}
	defer e.guard.exit()

	// 1. Validation pipeline (read-only)
	if err := e.engine.Validate(ctx, relayer, trade, route); err != nil {
		metrics.SettlementsTotal.WithLabelValues("rejected", string(route.Protocol)).Inc()
		return nil, err
	}

	// 2. Order authenticity against the deployment's EIP-712 domain. The
	// permit signature is the transfer service's to verify.
	if err := signer.VerifyOrderSignature(e.domain, &trade.Order, trade.OrderSignature); err != nil {
		metrics.SettlementsTotal.WithLabelValues("rejected", string(route.Protocol)).Inc()
		return nil, apperrors.Newf(apperrors.ErrSignature, "order_signature", "%v", err)
	}

	tradeType := validation.Classify(route)

	// 3. Venue resolution and sanity
	info, adapter, err := e.resolveVenue(ctx, route)
	if err != nil {
		metrics.SettlementsTotal.WithLabelValues("rejected", string(route.Protocol)).Inc()
		return nil, err
	}

	// 4. Consume the nonce before any external call so a reentrant attempt
	// on the same order fails its replay check. Unwound on any later error.
	if err := e.nonces.Mark(ctx, trade.Order.Maker, trade.Order.Nonce); err != nil {
		return nil, apperrors.Wrap(err)
	}

	restores := e.snapshot(adapter)
	result, err := e.execute(ctx, relayer, trade, route, tradeType, info, adapter)
	if err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		if rbErr := e.nonces.Unmark(ctx, trade.Order.Maker, trade.Order.Nonce); rbErr != nil {
			logger.Error("nonce rollback failed",
				"maker", trade.Order.Maker.Hex(), "nonce", trade.Order.Nonce, "error", rbErr)
		}
		metrics.SettlementsTotal.WithLabelValues("failed", string(route.Protocol)).Inc()
		return nil, err
	}

	metrics.SettlementsTotal.WithLabelValues("settled", string(route.Protocol)).Inc()
	return result, nil
}

// snapshot captures every distinct collaborator that supports rollback.
func (e *Executor) snapshot(adapter venue.Adapter) []func() {
	var restores []func()
	seen := make(map[any]struct{})
	for _, c := range []any{e.permits, e.mover, adapter} {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if s, ok := c.(Snapshotter); ok {
			restores = append(restores, s.Snapshot())
		}
	}
	return restores
}

func (e *Executor) resolveVenue(ctx context.Context, route *model.RouteData) (model.VenueInfo, venue.Adapter, error) {
	info, err := e.store.Registry().Resolve(route.Protocol)
	if err != nil {
		return info, nil, apperrors.Wrap(err)
	}
	if !info.Active {
		return info, nil, apperrors.Newf(apperrors.ErrVenue, "venue_inactive",
			"venue %s is not active", info.Name)
	}
	if info.Version == 0 {
		return info, nil, apperrors.Newf(apperrors.ErrVenue, "stale_version",
			"venue %s has version 0", info.Name)
	}
	if info.Protocol != route.Protocol {
		return info, nil, apperrors.Newf(apperrors.ErrVenue, "protocol_mismatch",
			"registry resolved protocol %q for requested %q", info.Protocol, route.Protocol)
	}
	hasCode, err := e.codes.HasCode(ctx, info.Adapter)
	if err != nil {
		return info, nil, apperrors.New(apperrors.ErrUpstream, "adapter code check failed", err)
	}
	if !hasCode {
		return info, nil, apperrors.Newf(apperrors.ErrVenue, "adapter_not_contract",
			"adapter %s has no deployed code", info.Adapter.Hex())
	}

	e.mu.RLock()
	adapter, ok := e.adapters[info.Adapter]
	e.mu.RUnlock()
	if !ok {
		return info, nil, apperrors.Newf(apperrors.ErrVenue, "adapter_unbound",
			"no adapter implementation bound for %s", info.Adapter.Hex())
	}
	return info, adapter, nil
}

// execute runs the effectful stage: permit pull, swap, min-out check, payout,
// record. Runs after the nonce mark; its caller unwinds the mark on error.
func (e *Executor) execute(
	ctx context.Context,
	relayer common.Address,
	trade *model.Trade,
	route *model.RouteData,
	tradeType model.TradeType,
	info model.VenueInfo,
	adapter venue.Adapter,
) (*SettleResult, error) {
	order := &trade.Order

	// Input goes maker -> adapter directly, never through the executor.
	if err := e.permits.PermitTransfer(ctx, trade, info.Adapter); err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "permit transfer failed", err)
	}

	amountOut, err := adapter.Execute(ctx, venue.ExecuteParams{
		Route:     *route,
		AmountIn:  order.InputAmount,
		Recipient: e.holding,
	})
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "adapter execution failed", err)
	}

	// Only knowable after the swap
	if amountOut.Cmp(order.MinAmountOut) < 0 {
		return nil, apperrors.Newf(apperrors.ErrOutcome, "below_min_out",
			"realized output %s below guaranteed minimum %s", amountOut, order.MinAmountOut)
	}

	feeAmount, makerOut := SplitFee(amountOut, e.store.FeeRateBps())

	// Native-output trades would pay out the native asset; those routes are
	// rejected in validation today, so the payout token is the route's end.
	payoutToken := order.OutputToken
	if tradeType == model.TokenInNativeOut {
		payoutToken = model.NativeToken
	}

	if feeAmount.Sign() > 0 {
		if err := e.mover.Transfer(ctx, payoutToken, e.holding, relayer, feeAmount); err != nil {
			return nil, apperrors.New(apperrors.ErrUpstream, "fee payout failed", err)
		}
		metrics.FeeCollected.WithLabelValues(payoutToken.Hex()).Add(counterValue(feeAmount))
	}
	if err := e.mover.Transfer(ctx, payoutToken, e.holding, order.Maker, makerOut); err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "maker payout failed", err)
	}

	record := &model.SettlementRecord{
		ID:          uuid.NewString(),
		Maker:       order.Maker,
		Relayer:     relayer,
		Adapter:     info.Adapter,
		Protocol:    route.Protocol,
		InputToken:  order.InputToken,
		OutputToken: order.OutputToken,
		AmountIn:    order.InputAmount,
		AmountOut:   amountOut,
		FeeAmount:   feeAmount,
		Nonce:       order.Nonce,
		TradeType:   tradeType.String(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.records.Insert(ctx, record); err != nil {
		// Observability only; the settlement itself is complete
		logger.Error("settlement record insert failed", "record_id", record.ID, "error", err)
	}

	logger.Info("settlement completed",
		"record_id", record.ID,
		"maker", order.Maker.Hex(),
		"adapter", info.Adapter.Hex(),
		"amount_in", order.InputAmount.String(),
		"amount_out", amountOut.String(),
		"fee", feeAmount.String(),
	)

	return &SettleResult{
		RecordID:  record.ID,
		AmountOut: amountOut,
		FeeAmount: feeAmount,
		MakerOut:  makerOut,
	}, nil
}

// CancelNonce lets a maker burn an unused nonce, invalidating any order
// signed with it. No transfer happens. The signature proves the maker
// themselves asked for the burn; cancellation is irreversible.
func (e *Executor) CancelNonce(ctx context.Context, maker common.Address, nonce uint64, sig []byte) error {
	if err := signer.VerifyCancelSignature(e.domain, maker, nonce, sig); err != nil {
		return apperrors.Newf(apperrors.ErrSignature, "cancel_signature", "%v", err)
	}
	if err := e.nonces.Mark(ctx, maker, nonce); err != nil {
		return apperrors.Wrap(err)
	}
	logger.Info("nonce cancelled", "maker", maker.Hex(), "nonce", nonce)
	return nil
}

// Recent returns the latest settlement records.
func (e *Executor) Recent(ctx context.Context, limit int) ([]*model.SettlementRecord, error) {
	return e.records.Recent(ctx, limit)
}

// counterValue approximates an arbitrary-precision amount for a float64
// counter. 18-decimal token amounts overflow int64 routinely; losing low
// bits is fine for monitoring, losing the magnitude is not.
func counterValue(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}

// SplitFee computes floor(amountOut * bps / 10000) and the maker remainder.
// A zero rate, or one that rounds to zero, takes no fee.
func SplitFee(amountOut *big.Int, feeRateBps int) (fee, makerOut *big.Int) {
	fee = new(big.Int).Mul(amountOut, big.NewInt(int64(feeRateBps)))
	fee.Div(fee, bpsDenominator)
	makerOut = new(big.Int).Sub(amountOut, fee)
	return fee, makerOut
}
