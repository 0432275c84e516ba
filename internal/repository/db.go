package repository

import (
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"

	"github.com/settlegate/settlegate/internal/config"
)

func NewDB(cfg *config.Config) (*sqlx.DB, error) {
	if cfg == nil || cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn not configured")
	}

	db, err := sqlx.Connect("pgx", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	return db, nil
}
