package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SettlementRecord is the observability entry emitted after every successful
// settlement. Persisted to Postgres when configured, memory otherwise.
type SettlementRecord struct {
	ID          string         `db:"id" json:"id"`
	Maker       common.Address `db:"-" json:"maker"`
	Relayer     common.Address `db:"-" json:"relayer"`
	Adapter     common.Address `db:"-" json:"adapter"`
	Protocol    Protocol       `db:"protocol" json:"protocol"`
	InputToken  common.Address `db:"-" json:"input_token"`
	OutputToken common.Address `db:"-" json:"output_token"`
	AmountIn    *big.Int       `db:"-" json:"amount_in"`
	AmountOut   *big.Int       `db:"-" json:"amount_out"`
	FeeAmount   *big.Int       `db:"-" json:"fee_amount"`
	Nonce       uint64         `db:"nonce" json:"nonce"`
	TradeType   string         `db:"trade_type" json:"trade_type"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
