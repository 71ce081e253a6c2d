package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/coinbot/internal/bot"
	"github.com/rovshanmuradov/coinbot/internal/domain"
	"github.com/rovshanmuradov/coinbot/internal/events"
	"github.com/rovshanmuradov/coinbot/internal/storage/models"
)

const owner int64 = 4242

type fakeController struct {
	running   bool
	starts    int
	stops     int
	positions []domain.Position
	balance   uint64
	balErr    error
}

func (f *fakeController) Start(context.Context) error {
	if f.running {
		return bot.ErrAlreadyRunning
	}
	f.running = true
	f.starts++
	return nil
}

func (f *fakeController) Stop() bool {
	was := f.running
	f.running = false
	f.stops++
	return was
}

func (f *fakeController) Status() bot.Status {
	if f.running {
		return bot.Status{State: bot.StateRunning}
	}
	return bot.Status{State: bot.StateStopped}
}

func (f *fakeController) ListPositions() []domain.Position { return f.positions }

func (f *fakeController) Balance(context.Context) (uint64, error) { return f.balance, f.balErr }

type fakeTrades struct {
	trades []models.Trade
	err    error
}

func (f *fakeTrades) Recent(context.Context, int) ([]models.Trade, error) { return f.trades, f.err }

func newTestCommands(t *testing.T, ctrl Controller, trades TradeLog, allowed int64) *Commands {
	t.Helper()
	return NewCommands(context.Background(), ctrl, trades, allowed, zaptest.NewLogger(t))
}

func TestCommands_StartStopStatus(t *testing.T) {
	ctrl := &fakeController{}
	c := newTestCommands(t, ctrl, nil, owner)
	ctx := context.Background()

	assert.Equal(t, "Status: stopped", c.Handle(ctx, owner, "status").Text)
	assert.Equal(t, ReplyStarted, c.Handle(ctx, owner, "start").Text)
	assert.Equal(t, ReplyAlreadyRunning, c.Handle(ctx, owner, "start").Text)
	assert.Equal(t, "Status: running", c.Handle(ctx, 1, "status").Text)
	assert.Equal(t, ReplyStopping, c.Handle(ctx, owner, "stop").Text)
	assert.Equal(t, "Status: stopped", c.Handle(ctx, owner, "status").Text)
	assert.Equal(t, 1, ctrl.starts)
}

func TestCommands_UnauthorizedChangesNothing(t *testing.T) {
	ctrl := &fakeController{}
	c := newTestCommands(t, ctrl, nil, owner)
	ctx := context.Background()

	assert.Equal(t, ReplyUnauthorized, c.Handle(ctx, 7, "start").Text)
	assert.False(t, ctrl.running)

	ctrl.running = true
	assert.Equal(t, ReplyUnauthorized, c.Handle(ctx, 7, "stop").Text)
	assert.True(t, ctrl.running)
	assert.Zero(t, ctrl.stops)
}

func TestCommands_OpenAccessWithoutAllowedUser(t *testing.T) {
	ctrl := &fakeController{}
	c := newTestCommands(t, ctrl, nil, 0)
	assert.Equal(t, ReplyStarted, c.Handle(context.Background(), 99, "start").Text)
}

func TestCommands_Balance(t *testing.T) {
	ctrl := &fakeController{balance: 1_234_500_000}
	c := newTestCommands(t, ctrl, nil, owner)
	ctx := context.Background()

	assert.Equal(t, "Balance: 1.2345 SOL", c.Handle(ctx, 1, "balance").Text)

	ctrl.balErr = bot.ErrNoWallet
	assert.Equal(t, ReplyNoWallet, c.Handle(ctx, 1, "balance").Text)

	ctrl.balErr = errors.New("rpc down")
	assert.Equal(t, ReplyBalanceFailed, c.Handle(ctx, 1, "balance").Text)
}

func TestCommands_Positions(t *testing.T) {
	ctrl := &fakeController{}
	c := newTestCommands(t, ctrl, nil, owner)
	ctx := context.Background()

	assert.Equal(t, ReplyNoPositions, c.Handle(ctx, 1, "positions").Text)

	pos := domain.NewPosition("AbCdEfGhIjKlMnOpQrStUvWxYz0123456789pump", 500, 1000, time.Now())
	pos.PeakPrice = 1.25
	pos.SoldPercent = 40
	ctrl.positions = []domain.Position{pos}

	reply := c.Handle(ctx, 1, "positions")
	assert.True(t, reply.Pre)
	assert.Contains(t, reply.Text, "AbCd...pump")
	assert.Contains(t, reply.Text, "0.50000000")
	assert.Contains(t, reply.Text, "1.25000000")
	assert.Contains(t, reply.Text, "40.00%")
}

func TestCommands_Trades(t *testing.T) {
	c := newTestCommands(t, &fakeController{}, nil, owner)
	assert.Equal(t, ReplyTradesFailed, c.Handle(context.Background(), 1, "trades").Text)

	log := &fakeTrades{}
	c = newTestCommands(t, &fakeController{}, log, owner)
	assert.Equal(t, ReplyNoTrades, c.Handle(context.Background(), 1, "trades").Text)

	log.trades = []models.Trade{{Side: models.SideSell, Mint: "mint", Reason: "tier_2", Lamports: 2_500_000_000, CreatedAt: time.Now()}}
	reply := c.Handle(context.Background(), 1, "trades")
	assert.True(t, reply.Pre)
	assert.Contains(t, reply.Text, "tier_2")
	assert.Contains(t, reply.Text, "2.5000")
}

func TestCommands_Unknown(t *testing.T) {
	c := newTestCommands(t, &fakeController{}, nil, owner)
	assert.Equal(t, ReplyUnknown, c.Handle(context.Background(), 1, "moon").Text)
}

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func TestNotifier_PushesTradeEvents(t *testing.T) {
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger, 8)
	sender := &fakeSender{}
	n := NewNotifier(sender, owner, bus, logger)
	defer n.Close()

	require.NoError(t, bus.Publish(events.NewExitExecuted(events.ExitExecutedEvent{
		Mint: "mint", Reason: "tier_3", Percent: 30, SoldPercent: 70, ProceedsLamports: 1_500_000_000, Signature: "sig",
	})))
	require.NoError(t, bus.Shutdown(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, owner, sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "Sold 30% of mint (tier_3)")
	assert.Contains(t, sender.sent[0].Text, "1.5000 SOL")
}

func TestSend_WrapsTablesInPre(t *testing.T) {
	sender := &fakeSender{}
	require.NoError(t, send(sender, 1, Reply{Text: "a<b", Pre: true}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "<pre>a&lt;b</pre>", sender.sent[0].Text)
	assert.Equal(t, tgbotapi.ModeHTML, sender.sent[0].ParseMode)
}
