// internal/telegram/commands.go
package telegram

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinbot/internal/bot"
	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/storage/models"
)

// Controller is the engine control surface.
type Controller interface {
	Start(ctx context.Context) error
	Stop() bool
	Status() bot.Status
	ListPositions() []domain.Position
	Balance(ctx context.Context) (uint64, error)
}

// TradeLog lists journaled trades.
type TradeLog interface {
	Recent(ctx context.Context, limit int) ([]models.Trade, error)
}

// Reply texts.
const (
	ReplyUnauthorized   = "Unauthorized user"
	ReplyAlreadyRunning = "Bot already running"
	ReplyStarted        = "Sniper bot started"
	ReplyStopping       = "Sniper bot stopping"
	ReplyNoWallet       = "Wallet not configured"
	ReplyBalanceFailed  = "Failed to fetch balance"
	ReplyNoPositions    = "No active positions"
	ReplyNoTrades       = "No trades yet"
	ReplyTradesFailed   = "Trade history unavailable"
	ReplyUnknown        = "Unknown command"
)

const recentTrades = 10

// Reply is a command response. Pre marks monospace table output.
type Reply struct {
	Text string
	Pre  bool
}

// Command describes a bot command for the Telegram menu.
type Command struct {
	Name        string
	Description string
}

// Menu lists the supported commands.
var Menu = []Command{
	{"start", "Start the sniper bot"},
	{"stop", "Stop the sniper bot"},
	{"status", "Show bot status"},
	{"balance", "Show SOL balance"},
	{"positions", "Show active positions"},
	{"trades", "Show recent trades"},
}

// Commands implements the chat command set independent of the transport.
type Commands struct {
	ctrl    Controller
	trades  TradeLog
	allowed int64
	// runCtx is handed to Start so runs outlive the update that started them.
	runCtx context.Context
	logger *zap.Logger
}

// NewCommands creates the command set. allowed == 0 lets anyone start/stop.
// trades may be nil.
func NewCommands(runCtx context.Context, ctrl Controller, trades TradeLog, allowed int64, logger *zap.Logger) *Commands {
	return &Commands{
		ctrl:    ctrl,
		trades:  trades,
		allowed: allowed,
		runCtx:  runCtx,
		logger:  logger.Named("commands"),
	}
}

func (c *Commands) authorized(userID int64) bool {
	return c.allowed == 0 || userID == c.allowed
}

// Handle executes command for userID and returns the reply.
func (c *Commands) Handle(ctx context.Context, userID int64, command string) Reply {
	c.logger.Debug("Command received", zap.String("command", command), zap.Int64("user_id", userID))

	switch command {
	case "start":
		if !c.authorized(userID) {
			c.logger.Warn("Unauthorized start", zap.Int64("user_id", userID))
			return Reply{Text: ReplyUnauthorized}
		}
		if err := c.ctrl.Start(c.runCtx); err != nil {
			if errors.Is(err, bot.ErrAlreadyRunning) {
				return Reply{Text: ReplyAlreadyRunning}
			}
			c.logger.Error("Start failed", zap.Error(err))
			return Reply{Text: "Start failed: " + err.Error()}
		}
		return Reply{Text: ReplyStarted}

	case "stop":
		if !c.authorized(userID) {
			c.logger.Warn("Unauthorized stop", zap.Int64("user_id", userID))
			return Reply{Text: ReplyUnauthorized}
		}
		c.ctrl.Stop()
		return Reply{Text: ReplyStopping}

	case "status":
		return Reply{Text: "Status: " + c.ctrl.Status().State}

	case "balance":
		lamports, err := c.ctrl.Balance(ctx)
		if errors.Is(err, bot.ErrNoWallet) {
			return Reply{Text: ReplyNoWallet}
		}
		if err != nil {
			c.logger.Warn("Balance query failed", zap.Error(err))
			return Reply{Text: ReplyBalanceFailed}
		}
		return Reply{Text: fmt.Sprintf("Balance: %.4f SOL", float64(lamports)/domain.LamportsPerSOL)}

	case "positions":
		positions := c.ctrl.ListPositions()
		if len(positions) == 0 {
			return Reply{Text: ReplyNoPositions}
		}
		return Reply{Text: RenderPositions(positions), Pre: true}

	case "trades":
		if c.trades == nil {
			return Reply{Text: ReplyTradesFailed}
		}
		trades, err := c.trades.Recent(ctx, recentTrades)
		if err != nil {
			c.logger.Warn("Trade query failed", zap.Error(err))
			return Reply{Text: ReplyTradesFailed}
		}
		if len(trades) == 0 {
			return Reply{Text: ReplyNoTrades}
		}
		return Reply{Text: RenderTrades(trades), Pre: true}
	}
	return Reply{Text: ReplyUnknown}
}
