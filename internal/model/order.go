package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the sentinel address conventionally used to mean the chain's
// native asset rather than an ERC-20 token.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Protocol identifies a venue family. The registry maps these to adapters.
type Protocol string

const (
	ProtocolUniswapV2 Protocol = "UNISWAP_V2"
	ProtocolUniswapV3 Protocol = "UNISWAP_V3"
)

// Order is a maker's signed intent: trade InputAmount of InputToken for at
// least MinAmountOut of OutputToken before Expiry. Identified by (Maker, Nonce).
// Immutable once signed.
type Order struct {
	Maker              common.Address
	InputToken         common.Address
	InputAmount        *big.Int
	OutputToken        common.Address
	MinAmountOut       *big.Int
	Expiry             uint64
	Nonce              uint64
	AuthorizedExecutor common.Address // zero address = any relayer may settle
}

// Permit is the detached transfer authorization that travels with an Order.
// Its fields must exactly mirror the Order's input token/amount/nonce/expiry;
// the permit signature economically authorizes only these fields.
type Permit struct {
	Token    common.Address
	Amount   *big.Int
	Nonce    uint64
	Deadline uint64
}

// Trade bundles an Order and its Permit with their detached signatures.
// This is the unit submitted for settlement.
type Trade struct {
	Order           Order
	OrderSignature  []byte
	Permit          Permit
	PermitSignature []byte
}

// RouteData tells the adapter how to route the swap: an ordered token path
// (2-4 entries, endpoints matching the Order) and venue-specific fee tiers.
type RouteData struct {
	Protocol Protocol
	Path     []common.Address
	FeeTiers []uint32
}

// Hops returns the number of pool hops the path crosses.
func (r RouteData) Hops() int {
	if len(r.Path) < 2 {
		return 0
	}
	return len(r.Path) - 1
}

// TradeType tags a route by its endpoints. Derived, never stored.
type TradeType int

const (
	TokenToToken TradeType = iota
	NativeInTokenOut
	TokenInNativeOut
)

func (t TradeType) String() string {
	switch t {
	case NativeInTokenOut:
		return "NATIVE_IN_TOKEN_OUT"
	case TokenInNativeOut:
		return "TOKEN_IN_NATIVE_OUT"
	default:
		return "TOKEN_IN_TOKEN_OUT"
	}
}

// VenueInfo is the registry's view of one adapter. Read-only to the executor.
type VenueInfo struct {
	Protocol Protocol
	Adapter  common.Address
	Active   bool
	Version  uint32
	Name     string
}
