// Package validation implements the pre-settlement check pipeline. All checks
// are read-only; the engine mutates nothing. Checks run in a fixed order so
// cheap structural failures short-circuit before ledger lookups.
package validation

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/settlegate/settlegate/internal/model"
	"github.com/settlegate/settlegate/internal/pkg/apperrors"
	"github.com/settlegate/settlegate/internal/pkg/metrics"
)

const (
	MinPathLen = 2
	MaxPathLen = 4
)

// WhitelistView is read access to the trusted intermediate-token set.
type WhitelistView interface {
	IsWhitelisted(token common.Address) bool
}

// NonceView is read access to the consumed-nonce ledger.
type NonceView interface {
	Used(ctx context.Context, maker common.Address, nonce uint64) (bool, error)
}

type Engine struct {
	whitelist WhitelistView
	nonces    NonceView
	now       func() time.Time
}

func NewEngine(whitelist WhitelistView, nonces NonceView) *Engine {
	return &Engine{whitelist: whitelist, nonces: nonces, now: time.Now}
}

// WithClock overrides the engine's clock. Tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Validate runs the full pipeline for one trade and route. The first failing
// check aborts with its specific error; a nil return means the trade may
// proceed to venue dispatch.
func (e *Engine) Validate(ctx context.Context, relayer common.Address, trade *model.Trade, route *model.RouteData) error {
	checks := []func(context.Context, common.Address, *model.Trade, *model.RouteData) error{
		e.checkStructure,
		e.checkConsistency,
		e.checkExpiry,
		e.checkReplay,
		e.checkExecutor,
		e.checkRouteShape,
		e.checkIntermediates,
		e.checkProtocolShape,
	}
	for _, check := range checks {
		if err := check(ctx, relayer, trade, route); err != nil {
			metrics.ValidationRejects.WithLabelValues(apperrors.Reason(err)).Inc()
			return err
		}
	}
	return nil
}

func (e *Engine) checkStructure(_ context.Context, _ common.Address, trade *model.Trade, _ *model.RouteData) error {
	order, permit := &trade.Order, &trade.Permit

	zero := common.Address{}
	switch {
	case order.Maker == zero:
		return apperrors.Newf(apperrors.ErrStructural, "zero_maker", "order maker is the zero address")
	case order.InputToken == zero:
		return apperrors.Newf(apperrors.ErrStructural, "zero_input_token", "order input token is the zero address")
	case order.OutputToken == zero:
		return apperrors.Newf(apperrors.ErrStructural, "zero_output_token", "order output token is the zero address")
	case permit.Token == zero:
		return apperrors.Newf(apperrors.ErrStructural, "zero_permit_token", "permit token is the zero address")
	}

	switch {
	case order.InputAmount == nil || order.InputAmount.Sign() <= 0:
		return apperrors.Newf(apperrors.ErrStructural, "zero_input_amount", "order input amount must be positive")
	case order.MinAmountOut == nil || order.MinAmountOut.Sign() <= 0:
		return apperrors.Newf(apperrors.ErrStructural, "zero_min_out", "order minimum output must be positive")
	case permit.Amount == nil || permit.Amount.Sign() <= 0:
		return apperrors.Newf(apperrors.ErrStructural, "zero_permit_amount", "permit amount must be positive")
	}
	return nil
}

// checkConsistency enforces the order/permit pairing invariant: the permit's
// signature economically authorizes only its own fields, so any divergence
// from the order means the bundle was mis-assembled.
func (e *Engine) checkConsistency(_ context.Context, _ common.Address, trade *model.Trade, _ *model.RouteData) error {
	order, permit := &trade.Order, &trade.Permit

	if permit.Token != order.InputToken {
		return apperrors.Newf(apperrors.ErrConsistency, "token_mismatch",
			"permit token %s does not match order input token %s", permit.Token.Hex(), order.InputToken.Hex())
	}
	if permit.Amount.Cmp(order.InputAmount) != 0 {
		return apperrors.Newf(apperrors.ErrConsistency, "amount_mismatch",
			"permit amount %s does not match order input amount %s", permit.Amount, order.InputAmount)
	}
	if permit.Nonce != order.Nonce {
		return apperrors.Newf(apperrors.ErrConsistency, "nonce_mismatch",
			"permit nonce %d does not match order nonce %d", permit.Nonce, order.Nonce)
	}
	if permit.Deadline != order.Expiry {
		return apperrors.Newf(apperrors.ErrConsistency, "deadline_mismatch",
			"permit deadline %d does not match order expiry %d", permit.Deadline, order.Expiry)
	}
	return nil
}

// Settlement at exactly the expiry second is still allowed.
func (e *Engine) checkExpiry(_ context.Context, _ common.Address, trade *model.Trade, _ *model.RouteData) error {
	now := uint64(e.now().Unix())
	if now > trade.Order.Expiry {
		return apperrors.Newf(apperrors.ErrExpired, "expired",
			"order expired at %d, now %d", trade.Order.Expiry, now)
	}
	return nil
}

func (e *Engine) checkReplay(ctx context.Context, _ common.Address, trade *model.Trade, _ *model.RouteData) error {
	used, err := e.nonces.Used(ctx, trade.Order.Maker, trade.Order.Nonce)
	if err != nil {
		return apperrors.Wrap(err)
	}
	if used {
		return apperrors.Newf(apperrors.ErrReplay, "nonce_used",
			"nonce %d already consumed for maker %s", trade.Order.Nonce, trade.Order.Maker.Hex())
	}
	return nil
}

func (e *Engine) checkExecutor(_ context.Context, relayer common.Address, trade *model.Trade, _ *model.RouteData) error {
	authorized := trade.Order.AuthorizedExecutor
	if authorized == (common.Address{}) {
		return nil // open order, any relayer may settle
	}
	if relayer != authorized {
		return apperrors.Newf(apperrors.ErrUnauthorized, "executor_mismatch",
			"relayer %s is not the authorized executor %s", relayer.Hex(), authorized.Hex())
	}
	return nil
}

func (e *Engine) checkRouteShape(_ context.Context, _ common.Address, trade *model.Trade, route *model.RouteData) error {
	n := len(route.Path)
	if n < MinPathLen {
		return apperrors.Newf(apperrors.ErrRoute, "path_too_short", "route path has %d tokens, minimum %d", n, MinPathLen)
	}
	if n > MaxPathLen {
		return apperrors.Newf(apperrors.ErrRoute, "path_too_long", "route path has %d tokens, maximum %d", n, MaxPathLen)
	}

	order := &trade.Order
	if route.Path[0] != order.InputToken {
		return apperrors.Newf(apperrors.ErrRoute, "input_endpoint_mismatch",
			"route starts at %s, order input is %s", route.Path[0].Hex(), order.InputToken.Hex())
	}
	if route.Path[n-1] != order.OutputToken {
		return apperrors.Newf(apperrors.ErrRoute, "output_endpoint_mismatch",
			"route ends at %s, order output is %s", route.Path[n-1].Hex(), order.OutputToken.Hex())
	}
	if order.InputToken == order.OutputToken {
		return apperrors.Newf(apperrors.ErrRoute, "same_token", "input and output token are both %s", order.InputToken.Hex())
	}

	// Native legs are disabled until adapters carry wrapping logic.
	for _, hop := range route.Path {
		if hop == model.NativeToken {
			return apperrors.Newf(apperrors.ErrRoute, "native_leg",
				"native asset legs are not supported, found at %s", hop.Hex())
		}
	}
	return nil
}

func (e *Engine) checkIntermediates(_ context.Context, _ common.Address, _ *model.Trade, route *model.RouteData) error {
	for _, hop := range route.Path[1 : len(route.Path)-1] {
		if !e.whitelist.IsWhitelisted(hop) {
			return apperrors.Newf(apperrors.ErrRoute, "unlisted_intermediate",
				"intermediate token %s is not whitelisted", hop.Hex())
		}
	}
	return nil
}

func (e *Engine) checkProtocolShape(_ context.Context, _ common.Address, _ *model.Trade, route *model.RouteData) error {
	return ValidateProtocolShape(route)
}
