// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/rovshanmuradov/coinbot/internal/storage/models"
)

// TradeStore persists executed entries and exits.
type TradeStore interface {
	SaveTrade(ctx context.Context, trade *models.Trade) error
	// Recent returns up to limit trades, newest first.
	Recent(ctx context.Context, limit int) ([]models.Trade, error)
	Close() error
}
