package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
)

// PostgresStore persists consumed nonces durably. Mark relies on the primary
// key for its at-most-once guarantee.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	store := &PostgresStore{db: db}
	_ = store.ensureSchema(context.Background())
	return store
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS consumed_nonces (
			maker      TEXT   NOT NULL,
			nonce      BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (maker, nonce)
		)
	`)
	return err
}

func (s *PostgresStore) Used(ctx context.Context, maker common.Address, nonce uint64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM consumed_nonces WHERE maker = $1 AND nonce = $2)`,
		maker.Hex(), int64(nonce))
	return exists, err
}

func (s *PostgresStore) Mark(ctx context.Context, maker common.Address, nonce uint64) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO consumed_nonces (maker, nonce) VALUES ($1, $2)
		ON CONFLICT (maker, nonce) DO NOTHING
	`, maker.Hex(), int64(nonce))
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return replayErr(maker, nonce)
	}
	return nil
}

func (s *PostgresStore) Unmark(ctx context.Context, maker common.Address, nonce uint64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM consumed_nonces WHERE maker = $1 AND nonce = $2`,
		maker.Hex(), int64(nonce))
	return err
}
