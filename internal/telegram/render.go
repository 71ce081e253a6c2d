// internal/telegram/render.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/events"
	"github.com/rovshanmuradov/coinbot/internal/storage/models"
)

// RenderPositions renders open positions as a text table.
func RenderPositions(positions []domain.Position) string {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.Header("Mint", "Buy price", "Peak", "Sold")
	for _, p := range positions {
		table.Append(
			domain.ShortMint(p.Mint),
			fmt.Sprintf("%.8f", p.EntryPrice),
			fmt.Sprintf("%.8f", p.PeakPrice),
			fmt.Sprintf("%.2f%%", p.SoldPercent),
		)
	}
	table.Render()
	return b.String()
}

// RenderTrades renders journaled trades as a text table.
func RenderTrades(trades []models.Trade) string {
	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.Header("Time", "Side", "Mint", "Reason", "SOL")
	for _, t := range trades {
		table.Append(
			t.CreatedAt.UTC().Format("01-02 15:04:05"),
			t.Side,
			domain.ShortMint(t.Mint),
			t.Reason,
			fmt.Sprintf("%.4f", float64(t.Lamports)/domain.LamportsPerSOL),
		)
	}
	table.Render()
	return b.String()
}

// FormatEvent renders a trade event as a chat notification. ok is false for
// events that are not announced.
func FormatEvent(event events.Event) (string, bool) {
	switch e := event.(type) {
	case *events.EntryExecutedEvent:
		return fmt.Sprintf("🟢 Bought %s\n%.4f SOL for %d units\nsig: %s",
			displayName(e.Name, e.Mint),
			float64(e.CostLamports)/domain.LamportsPerSOL, e.Units, e.Signature), true
	case *events.ExitExecutedEvent:
		return fmt.Sprintf("🔴 Sold %.0f%% of %s (%s)\n%.4f SOL, sold total %.0f%%\nsig: %s",
			e.Percent, domain.ShortMint(e.Mint), e.Reason,
			float64(e.ProceedsLamports)/domain.LamportsPerSOL, e.SoldPercent, e.Signature), true
	case *events.PositionClosedEvent:
		return fmt.Sprintf("Position %s closed (%s), sold %.0f%%",
			domain.ShortMint(e.Mint), e.Reason, e.SoldPercent), true
	}
	return "", false
}

func displayName(name, mint string) string {
	if name != "" {
		return name
	}
	return domain.ShortMint(mint)
}
