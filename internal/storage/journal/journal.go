// internal/storage/journal/journal.go
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rovshanmuradov/coinbot/internal/storage"
	"github.com/rovshanmuradov/coinbot/internal/storage/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id         TEXT PRIMARY KEY,
	side       TEXT NOT NULL,
	mint       TEXT NOT NULL,
	reason     TEXT NOT NULL,
	percent    REAL NOT NULL DEFAULT 0,
	units      INTEGER NOT NULL,
	lamports   INTEGER NOT NULL,
	price      REAL NOT NULL DEFAULT 0,
	signature  TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades(created_at);
CREATE INDEX IF NOT EXISTS idx_trades_mint ON trades(mint);
`

// Journal is a SQLite-backed trade log.
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ storage.TradeStore = (*Journal)(nil)

// Open opens (or creates) the journal at path. ":memory:" is accepted.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	return &Journal{db: db, logger: logger.Named("journal")}, nil
}

// SaveTrade inserts trade, assigning an id and timestamp when missing.
func (j *Journal) SaveTrade(ctx context.Context, trade *models.Trade) error {
	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO trades (id, side, mint, reason, percent, units, lamports, price, signature, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.Side, trade.Mint, trade.Reason, trade.Percent,
		int64(trade.Units), int64(trade.Lamports), trade.Price, trade.Signature,
		trade.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	return nil
}

// Recent returns up to limit trades, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, side, mint, reason, percent, units, lamports, price, signature, created_at
		 FROM trades ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var (
			t               models.Trade
			units, lamports int64
			created         int64
		)
		if err := rows.Scan(&t.ID, &t.Side, &t.Mint, &t.Reason, &t.Percent,
			&units, &lamports, &t.Price, &t.Signature, &created); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Units = uint64(units)
		t.Lamports = uint64(lamports)
		t.CreatedAt = time.Unix(0, created)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
