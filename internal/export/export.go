// internal/export/export.go
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/storage/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnsupportedFormat is returned for formats other than csv and json.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format represents the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

const lamportsPerSOL = 1_000_000_000

// Options configures which journal rows are exported.
type Options struct {
	Format Format
	Since  time.Time
	Until  time.Time
	Mint   string
	Side   string // models.SideBuy or models.SideSell
}

// Summary aggregates an exported trade set.
type Summary struct {
	TotalTrades  int       `json:"total_trades"`
	BuyCount     int       `json:"buy_count"`
	SellCount    int       `json:"sell_count"`
	UniqueTokens int       `json:"unique_tokens"`
	SpentSOL     float64   `json:"spent_sol"`
	ReceivedSOL  float64   `json:"received_sol"`
	NetSOL       float64   `json:"net_sol"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

type tradeRecord struct {
	ID        string    `json:"id"`
	Side      string    `json:"side"`
	Mint      string    `json:"mint"`
	Reason    string    `json:"reason"`
	Percent   float64   `json:"percent"`
	Units     uint64    `json:"units"`
	Lamports  uint64    `json:"lamports"`
	Price     float64   `json:"price"`
	Signature string    `json:"signature"`
	CreatedAt time.Time `json:"created_at"`
}

var csvHeaders = []string{
	"id", "created_at", "side", "mint", "reason", "percent", "units", "lamports", "price", "signature",
}

// TradeExporter writes journaled trades as CSV or JSON.
type TradeExporter struct {
	logger *zap.Logger
}

func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{logger: logger.Named("export")}
}

// Export filters trades, orders them oldest first and writes them to w.
// It returns the number of exported rows.
func (te *TradeExporter) Export(w io.Writer, trades []models.Trade, opts Options) (int, error) {
	filtered := Filter(trades, opts)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	var err error
	switch opts.Format {
	case FormatCSV, "":
		err = writeCSV(w, filtered)
	case FormatJSON:
		err = writeJSON(w, filtered)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Format)
	}
	if err != nil {
		return 0, err
	}

	te.logger.Debug("Trades exported",
		zap.Int("count", len(filtered)),
		zap.String("format", string(opts.Format)))
	return len(filtered), nil
}

// Filter returns the trades matching every set option.
func Filter(trades []models.Trade, opts Options) []models.Trade {
	filtered := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if !opts.Since.IsZero() && t.CreatedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && t.CreatedAt.After(opts.Until) {
			continue
		}
		if opts.Mint != "" && t.Mint != opts.Mint {
			continue
		}
		if opts.Side != "" && t.Side != opts.Side {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

// Summarize computes totals over trades, which must be ordered oldest first.
func Summarize(trades []models.Trade) Summary {
	summary := Summary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return summary
	}
	summary.StartDate = trades[0].CreatedAt
	summary.EndDate = trades[len(trades)-1].CreatedAt

	tokens := make(map[string]struct{})
	var spent, received uint64
	for _, t := range trades {
		tokens[t.Mint] = struct{}{}
		switch t.Side {
		case models.SideBuy:
			summary.BuyCount++
			spent += t.Lamports
		case models.SideSell:
			summary.SellCount++
			received += t.Lamports
		}
	}
	summary.UniqueTokens = len(tokens)
	summary.SpentSOL = float64(spent) / lamportsPerSOL
	summary.ReceivedSOL = float64(received) / lamportsPerSOL
	summary.NetSOL = summary.ReceivedSOL - summary.SpentSOL
	return summary
}

func writeCSV(w io.Writer, trades []models.Trade) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("write CSV headers: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.ID,
			t.CreatedAt.UTC().Format(time.RFC3339),
			t.Side,
			t.Mint,
			t.Reason,
			strconv.FormatFloat(t.Percent, 'f', 2, 64),
			strconv.FormatUint(t.Units, 10),
			strconv.FormatUint(t.Lamports, 10),
			strconv.FormatFloat(t.Price, 'g', -1, 64),
			t.Signature,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write trade %s: %w", t.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(w io.Writer, trades []models.Trade) error {
	records := make([]tradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, tradeRecord(t))
	}

	data := struct {
		ExportTime time.Time     `json:"export_time"`
		TradeCount int           `json:"trade_count"`
		Summary    Summary       `json:"summary"`
		Trades     []tradeRecord `json:"trades"`
	}{
		ExportTime: time.Now(),
		TradeCount: len(trades),
		Summary:    Summarize(trades),
		Trades:     records,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}
