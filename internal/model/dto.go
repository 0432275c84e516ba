package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// SettleRequest is the incoming JSON body for POST /v1/settle. Amounts travel
// as decimal strings in base units so large values survive JSON intact.
type SettleRequest struct {
	Order           OrderDTO  `json:"order" binding:"required"`
	OrderSignature  string    `json:"order_signature" binding:"required"`
	Permit          PermitDTO `json:"permit" binding:"required"`
	PermitSignature string    `json:"permit_signature" binding:"required"`
	Route           RouteDTO  `json:"route" binding:"required"`
}

type OrderDTO struct {
	Maker              string `json:"maker" binding:"required"`
	InputToken         string `json:"input_token" binding:"required"`
	InputAmount        string `json:"input_amount" binding:"required"`
	OutputToken        string `json:"output_token" binding:"required"`
	MinAmountOut       string `json:"min_amount_out" binding:"required"`
	Expiry             uint64 `json:"expiry" binding:"required"`
	Nonce              uint64 `json:"nonce"`
	AuthorizedExecutor string `json:"authorized_executor,omitempty"`
}

type PermitDTO struct {
	Token    string `json:"token" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	Nonce    uint64 `json:"nonce"`
	Deadline uint64 `json:"deadline" binding:"required"`
}

type RouteDTO struct {
	Protocol string   `json:"protocol" binding:"required"`
	Path     []string `json:"path" binding:"required"`
	FeeTiers []uint32 `json:"fee_tiers"`
}

// CancelRequest is the body for POST /v1/nonces/cancel. Cancellation is
// maker-scoped: the signature must cover (maker, nonce) under the deployment
// domain, so third parties cannot invalidate someone else's orders.
type CancelRequest struct {
	Maker     string `json:"maker" binding:"required"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature" binding:"required"`
}

// SettleResponse reports the realized outcome of a settlement.
type SettleResponse struct {
	RecordID  string `json:"record_id"`
	AmountOut string `json:"amount_out"`
	FeeAmount string `json:"fee_amount"`
	MakerOut  string `json:"maker_out"`
}

func parseAddress(field, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", field, s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(field, s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s amount: %s", field, s)
	}
	if !d.IsInteger() || d.IsNegative() {
		return nil, fmt.Errorf("%s amount must be a non-negative integer in base units: %s", field, s)
	}
	return d.BigInt(), nil
}

// ToTrade converts the wire representation into the domain Trade. Anything
// beyond basic parsing is the validation engine's job.
func (r *SettleRequest) ToTrade() (Trade, error) {
	var t Trade
	var err error

	if t.Order.Maker, err = parseAddress("maker", r.Order.Maker); err != nil {
		return t, err
	}
	if t.Order.InputToken, err = parseAddress("input_token", r.Order.InputToken); err != nil {
		return t, err
	}
	if t.Order.OutputToken, err = parseAddress("output_token", r.Order.OutputToken); err != nil {
		return t, err
	}
	if t.Order.AuthorizedExecutor, err = parseAddress("authorized_executor", r.Order.AuthorizedExecutor); err != nil {
		return t, err
	}
	if t.Order.InputAmount, err = parseAmount("input", r.Order.InputAmount); err != nil {
		return t, err
	}
	if t.Order.MinAmountOut, err = parseAmount("min_out", r.Order.MinAmountOut); err != nil {
		return t, err
	}
	t.Order.Expiry = r.Order.Expiry
	t.Order.Nonce = r.Order.Nonce

	if t.Permit.Token, err = parseAddress("permit_token", r.Permit.Token); err != nil {
		return t, err
	}
	if t.Permit.Amount, err = parseAmount("permit", r.Permit.Amount); err != nil {
		return t, err
	}
	t.Permit.Nonce = r.Permit.Nonce
	t.Permit.Deadline = r.Permit.Deadline

	if t.OrderSignature, err = hexutil.Decode(r.OrderSignature); err != nil {
		return t, fmt.Errorf("invalid order signature encoding: %w", err)
	}
	if t.PermitSignature, err = hexutil.Decode(r.PermitSignature); err != nil {
		return t, fmt.Errorf("invalid permit signature encoding: %w", err)
	}
	return t, nil
}

// ToRoute converts the wire route into domain RouteData.
func (r *RouteDTO) ToRoute() (RouteData, error) {
	route := RouteData{
		Protocol: Protocol(r.Protocol),
		FeeTiers: r.FeeTiers,
	}
	for i, hop := range r.Path {
		addr, err := parseAddress(fmt.Sprintf("path[%d]", i), hop)
		if err != nil {
			return route, err
		}
		route.Path = append(route.Path, addr)
	}
	return route, nil
}
