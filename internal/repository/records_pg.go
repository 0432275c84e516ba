package repository

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"

	"github.com/settlegate/settlegate/internal/model"
)

// PostgresRecordStore persists settlement records. Addresses and big amounts
// are stored as text; Postgres numeric types cap below uint256 range.
type PostgresRecordStore struct {
	db *sqlx.DB
}

func NewPostgresRecordStore(db *sqlx.DB) *PostgresRecordStore {
	store := &PostgresRecordStore{db: db}
	_ = store.ensureSchema(context.Background())
	return store
}

func (r *PostgresRecordStore) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS settlements (
			id           TEXT PRIMARY KEY,
			maker        TEXT NOT NULL,
			relayer      TEXT NOT NULL,
			adapter      TEXT NOT NULL,
			protocol     TEXT NOT NULL,
			input_token  TEXT NOT NULL,
			output_token TEXT NOT NULL,
			amount_in    TEXT NOT NULL,
			amount_out   TEXT NOT NULL,
			fee_amount   TEXT NOT NULL,
			nonce        BIGINT NOT NULL,
			trade_type   TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func (r *PostgresRecordStore) Insert(ctx context.Context, rec *model.SettlementRecord) error {
	if rec == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settlements (
			id, maker, relayer, adapter, protocol,
			input_token, output_token, amount_in, amount_out, fee_amount,
			nonce, trade_type, created_at
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,
			$11,$12,$13
		)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.Maker.Hex(), rec.Relayer.Hex(), rec.Adapter.Hex(), rec.Protocol,
		rec.InputToken.Hex(), rec.OutputToken.Hex(), rec.AmountIn.String(),
		rec.AmountOut.String(), rec.FeeAmount.String(),
		int64(rec.Nonce), rec.TradeType, rec.CreatedAt)
	return err
}

func (r *PostgresRecordStore) Recent(ctx context.Context, limit int) ([]*model.SettlementRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, maker, relayer, adapter, protocol,
		       input_token, output_token, amount_in, amount_out, fee_amount,
		       nonce, trade_type, created_at
		FROM settlements ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SettlementRecord
	for rows.Next() {
		var raw struct {
			ID          string    `db:"id"`
			Maker       string    `db:"maker"`
			Relayer     string    `db:"relayer"`
			Adapter     string    `db:"adapter"`
			Protocol    string    `db:"protocol"`
			InputToken  string    `db:"input_token"`
			OutputToken string    `db:"output_token"`
			AmountIn    string    `db:"amount_in"`
			AmountOut   string    `db:"amount_out"`
			FeeAmount   string    `db:"fee_amount"`
			Nonce       int64     `db:"nonce"`
			TradeType   string    `db:"trade_type"`
			CreatedAt   time.Time `db:"created_at"`
		}
		if err := rows.StructScan(&raw); err != nil {
			return nil, err
		}
		rec := &model.SettlementRecord{
			ID:          raw.ID,
			Maker:       common.HexToAddress(raw.Maker),
			Relayer:     common.HexToAddress(raw.Relayer),
			Adapter:     common.HexToAddress(raw.Adapter),
			Protocol:    model.Protocol(raw.Protocol),
			InputToken:  common.HexToAddress(raw.InputToken),
			OutputToken: common.HexToAddress(raw.OutputToken),
			Nonce:       uint64(raw.Nonce),
			TradeType:   raw.TradeType,
			CreatedAt:   raw.CreatedAt,
		}
		rec.AmountIn, _ = new(big.Int).SetString(raw.AmountIn, 10)
		rec.AmountOut, _ = new(big.Int).SetString(raw.AmountOut, 10)
		rec.FeeAmount, _ = new(big.Int).SetString(raw.FeeAmount, 10)
		out = append(out, rec)
	}
	return out, rows.Err()
}
